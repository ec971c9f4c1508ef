package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	restbrickstrace "github.com/gaborage/restbricks/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = restbrickstrace.HeaderXRequestID
	// HeaderContentType is set to ContentTypeJSON unless overridden
	HeaderContentType = "Content-Type"
	// ContentTypeJSON is the default request content type
	ContentTypeJSON = "application/json"

	// DefaultMaxRetries is used when retry is enabled without an explicit budget
	DefaultMaxRetries = 3
	// DefaultInitialDelay is the first backoff delay
	DefaultInitialDelay = 500 * time.Millisecond
	// DefaultMaxPayloadLogBytes caps logged body previews
	DefaultMaxPayloadLogBytes = 1024
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	// Start dispatches the request on its own goroutine and returns immediately.
	// The returned Call exposes the request id before any response arrives.
	Start(ctx context.Context, method string, req *Request) *Call
	// Cancel aborts the pending request chain registered under id.
	// It reports false when no such request is pending.
	Cancel(id string) bool
	// Pending returns the number of request chains currently in flight
	Pending() int
}

// Request represents an HTTP request with all necessary data
type Request struct {
	// Path is appended verbatim to the configured base URL
	Path    string
	Headers map[string]string
	// Body is JSON-encoded when the effective Content-Type is application/json.
	// []byte, json.RawMessage and io.Reader are always sent as-is; string and
	// url.Values are sent as-is for non-JSON content types. GET never sends a body.
	Body any
	Auth *BasicAuth
	// ID is the registry key for Cancel. Generated from method, path and time when empty.
	ID string
	// MaxRetries overrides Config.MaxRetries for this call
	MaxRetries *int
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	// Data is the body decoded according to its Content-Type. See decodeSuccess.
	Data any
	// Raw is the underlying transport response; its body is a re-readable copy of Body
	Raw       *nethttp.Response
	RequestID string
	Stats     Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempts    int
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// Name identifies the client in error messages, logs and metrics
	Name           string
	BaseURL        string
	DefaultHeaders map[string]string
	WithRetry      bool
	MaxRetries     int
	InitialDelay   time.Duration

	Transport            nethttp.RoundTripper
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	// FailureHandler receives every final failure. Nil re-raises unchanged.
	FailureHandler FailureHandler

	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string

	TracerProvider oteltrace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return restbrickstrace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return restbrickstrace.IDFromContext(ctx) }

// NewTraceIDInterceptorFor creates an interceptor that sets header from the context trace ID,
// generating one when the context has none. An existing header value is preserved.
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, restbrickstrace.EnsureTraceID(ctx))
		}
		return nil
	}
}
