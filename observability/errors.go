package observability

import "errors"

// ErrNilConfig is returned when Validate is called on a nil Config pointer.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrMissingServiceName is returned when telemetry is enabled but no service name is configured.
var ErrMissingServiceName = errors.New("observability: service name is required when telemetry is enabled")

// ErrInvalidSampleRate is returned when the trace sample rate is outside [0.0, 1.0].
var ErrInvalidSampleRate = errors.New("observability: trace sample rate must be between 0.0 and 1.0")

// ErrInvalidExporter is returned for an exporter other than stdout, otlp-http or otlp-grpc.
var ErrInvalidExporter = errors.New("observability: exporter must be one of 'stdout', 'otlp-http', 'otlp-grpc'")

// ErrInvalidEndpointFormat is returned when the endpoint does not match the exporter.
// otlp-grpc endpoints are "host:port"; otlp-http endpoints are URLs with a scheme.
var ErrInvalidEndpointFormat = errors.New("observability: invalid endpoint format for exporter")
