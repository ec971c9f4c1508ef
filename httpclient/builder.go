package httpclient

import (
	"maps"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/restbricks/logger"
)

// Builder assembles a Config step by step and produces an immutable Client
type Builder struct {
	logger logger.Logger
	config Config
}

// NewBuilder creates a builder with default settings: retries disabled,
// DefaultMaxRetries and DefaultInitialDelay for when they get enabled.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log,
		config: Config{
			DefaultHeaders:     make(map[string]string),
			MaxRetries:         DefaultMaxRetries,
			InitialDelay:       DefaultInitialDelay,
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
			TraceIDHeader:      HeaderXRequestID,
		},
	}
}

// WithName sets the client name used in error messages and telemetry
func (b *Builder) WithName(name string) *Builder {
	b.config.Name = name
	return b
}

// WithBaseURL sets the prefix every request path is appended to
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithDefaultHeader sets a header applied to all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRetry enables retries on 5xx responses with the given budget and first delay
func (b *Builder) WithRetry(maxRetries int, initialDelay time.Duration) *Builder {
	b.config.WithRetry = true
	b.config.MaxRetries = maxRetries
	b.config.InitialDelay = initialDelay
	return b
}

// WithTransport sets the underlying round tripper
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithFailureHandler installs the hook invoked on every final failure
func (b *Builder) WithFailureHandler(handler FailureHandler) *Builder {
	b.config.FailureHandler = handler
	return b
}

// WithPayloadLogging enables debug logging of headers and body previews
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithTraceIDHeader sets the header used for trace ID propagation
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithTelemetry sets the OpenTelemetry providers; nil falls back to the globals
func (b *Builder) WithTelemetry(tp oteltrace.TracerProvider, mp metric.MeterProvider) *Builder {
	b.config.TracerProvider = tp
	b.config.MeterProvider = mp
	return b
}

// WithTraceIDGenerator sets the generator used when a request carries no trace ID
func (b *Builder) WithTraceIDGenerator(fn func() string) *Builder {
	b.config.NewTraceID = fn
	return b
}

// WithConfig replaces the accumulated settings wholesale. Zero retry settings
// fall back to the defaults when cfg enables retries.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	if b.config.DefaultHeaders == nil {
		b.config.DefaultHeaders = make(map[string]string)
	}
	return b
}

// Build validates the configuration and creates the client
func (b *Builder) Build() (Client, error) {
	return New(b.logger, b.config)
}

// New validates cfg and creates a client. Configuration problems are reported as
// *ConfigError before any request is attempted.
func New(log logger.Logger, cfg Config) (Client, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return newClient(log, cloneConfig(cfg)), nil
}

// cloneConfig detaches the client from caller-owned maps and slices and fills
// unset defaults. An enabled retry with a zero budget or delay gets
// DefaultMaxRetries and DefaultInitialDelay.
func cloneConfig(cfg Config) *Config {
	out := cfg
	out.DefaultHeaders = maps.Clone(cfg.DefaultHeaders)
	out.RequestInterceptors = append([]RequestInterceptor(nil), cfg.RequestInterceptors...)
	out.ResponseInterceptors = append([]ResponseInterceptor(nil), cfg.ResponseInterceptors...)
	if cfg.BasicAuth != nil {
		auth := *cfg.BasicAuth
		out.BasicAuth = &auth
	}
	if out.WithRetry {
		if out.MaxRetries == 0 {
			out.MaxRetries = DefaultMaxRetries
		}
		if out.InitialDelay == 0 {
			out.InitialDelay = DefaultInitialDelay
		}
	}
	if out.MaxPayloadLogBytes <= 0 {
		out.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if out.TraceIDHeader == "" {
		out.TraceIDHeader = HeaderXRequestID
	}
	return &out
}
