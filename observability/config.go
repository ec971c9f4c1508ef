package observability

import (
	"fmt"
	"strings"
	"time"
)

// Exporter names
const (
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

const (
	defaultSampleRate     = 1.0
	defaultMetricInterval = 10 * time.Second
)

// Config selects and tunes the telemetry pipeline
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Exporter is one of ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC
	Exporter string
	// Endpoint is required for OTLP exporters
	Endpoint string
	Insecure bool
	Headers  map[string]string
	// SampleRate is the ratio of traces kept. Zero means the default of 1.0.
	SampleRate     float64
	MetricInterval time.Duration
}

// ApplyDefaults fills zero values with defaults
func (c *Config) ApplyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
}

// Validate reports the first invalid setting. Disabled configs are always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}

	hasScheme := strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://")
	switch c.Exporter {
	case ExporterStdout:
		return nil
	case ExporterOTLPHTTP:
		if !hasScheme {
			return fmt.Errorf("%w: %s endpoint %q needs http:// or https://", ErrInvalidEndpointFormat, c.Exporter, c.Endpoint)
		}
	case ExporterOTLPGRPC:
		if c.Endpoint == "" || hasScheme {
			return fmt.Errorf("%w: %s endpoint %q must be host:port", ErrInvalidEndpointFormat, c.Exporter, c.Endpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExporter, c.Exporter)
	}
	return nil
}
