// Package config loads restcall settings from defaults, a YAML file, inline
// YAML, environment variables and explicit overrides, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/gaborage/restbricks/httpclient"
	"github.com/gaborage/restbricks/observability"
)

// EnvPrefix scopes the environment variables read by Load.
// RESTCALL_CLIENT_BASEURL sets client.baseurl.
const EnvPrefix = "RESTCALL_"

// Sources lists the inputs merged by Load
type Sources struct {
	// File is a YAML file path. A missing file is an error only when Required is set.
	File     string
	Required bool
	// YAML is inline YAML applied on top of File
	YAML []byte
	// Overrides are dotted keys applied last, typically from command-line flags
	Overrides map[string]any
}

// Load merges defaults, File, YAML, RESTCALL_* environment variables and
// Overrides, then validates the result.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			if src.Required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", src.File, err)
			}
		}
	}

	if len(src.YAML) > 0 {
		if err := k.Load(rawbytes.Provider(src.YAML), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse inline yaml: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(src.Overrides) > 0 {
		if err := k.Load(confmap.Provider(src.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts RESTCALL_CLIENT_RETRY_MAX to client.retry.max
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.retry.enabled":      false,
		"client.retry.max":          httpclient.DefaultMaxRetries,
		"client.retry.initialdelay": httpclient.DefaultInitialDelay.String(),
		"client.payload.enabled":    false,
		"client.payload.maxbytes":   httpclient.DefaultMaxPayloadLogBytes,
		"client.traceheader":        httpclient.HeaderXRequestID,

		"log.level":  "info",
		"log.pretty": false,

		"telemetry.exporter":    "",
		"telemetry.servicename": "restcall",
		"telemetry.samplerate":  1.0,
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}

// GetString returns a raw value by dotted key, including keys Config does not model
func (c *Config) GetString(key string) string {
	if c.k == nil {
		return ""
	}
	return c.k.String(key)
}

// Exists reports whether any source set key
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// HTTPClientConfig converts the client section into an httpclient.Config.
// Programmatic settings such as transport and interceptors are left unset.
func (c ClientConfig) HTTPClientConfig() httpclient.Config {
	cfg := httpclient.Config{
		Name:               c.Name,
		BaseURL:            c.BaseURL,
		DefaultHeaders:     make(map[string]string, len(c.Headers)),
		WithRetry:          c.Retry.Enabled,
		MaxRetries:         c.Retry.Max,
		InitialDelay:       c.Retry.InitialDelay,
		LogPayloads:        c.Payload.Enabled,
		MaxPayloadLogBytes: c.Payload.MaxBytes,
		TraceIDHeader:      c.TraceHeader,
	}
	for k, v := range c.Headers {
		cfg.DefaultHeaders[k] = v
	}
	if c.Auth.Username != "" {
		cfg.BasicAuth = &httpclient.BasicAuth{Username: c.Auth.Username, Password: c.Auth.Password}
	}
	return cfg
}

// ObservabilityConfig converts the telemetry section into an observability.Config
func (t TelemetryConfig) ObservabilityConfig() *observability.Config {
	cfg := &observability.Config{
		Enabled:        t.Exporter != "",
		ServiceName:    t.ServiceName,
		ServiceVersion: t.ServiceVersion,
		Exporter:       t.Exporter,
		Endpoint:       t.Endpoint,
		Insecure:       t.Insecure,
		SampleRate:     t.SampleRate,
		MetricInterval: t.MetricInterval,
	}
	if len(t.Headers) > 0 {
		cfg.Headers = make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			cfg.Headers[k] = v
		}
	}
	return cfg
}
