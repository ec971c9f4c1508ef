package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the restcall configuration: the REST client itself plus the
// logging and telemetry surrounding it.
type Config struct {
	Client    ClientConfig    `koanf:"client" json:"client" yaml:"client"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry" json:"telemetry" yaml:"telemetry"`

	// k holds the merged sources for keys the struct does not model
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// ClientConfig mirrors httpclient.Config for the settings that can be expressed
// in a file or the environment.
type ClientConfig struct {
	Name    string            `koanf:"name" json:"name" yaml:"name" validate:"omitempty,notblank"`
	BaseURL string            `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"required,notblank,url"`
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	Retry   RetryConfig       `koanf:"retry" json:"retry" yaml:"retry"`
	Auth    AuthConfig        `koanf:"auth" json:"auth" yaml:"auth"`
	Payload PayloadLogConfig  `koanf:"payload" json:"payload" yaml:"payload"`
	// TraceHeader is the header carrying the correlation id
	TraceHeader string `koanf:"traceheader" json:"traceheader" yaml:"traceheader" validate:"omitempty,notblank"`
}

// RetryConfig controls retries of 5xx responses
type RetryConfig struct {
	Enabled      bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Max          int           `koanf:"max" json:"max" yaml:"max" validate:"gte=0,lte=20"`
	InitialDelay time.Duration `koanf:"initialdelay" json:"initialdelay" yaml:"initialdelay" validate:"gte=0"`
}

// AuthConfig holds basic authentication credentials. Both fields empty disables auth.
type AuthConfig struct {
	Username string `koanf:"username" json:"username" yaml:"username" validate:"required_with=Password"`
	Password string `koanf:"password" json:"-" yaml:"password"`
}

// PayloadLogConfig enables debug logging of headers and body previews
type PayloadLogConfig struct {
	Enabled  bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" validate:"gte=0"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// TelemetryConfig selects where spans and metrics go. An empty Exporter disables telemetry.
type TelemetryConfig struct {
	Exporter string `koanf:"exporter" json:"exporter" yaml:"exporter" validate:"omitempty,oneof=stdout otlp-http otlp-grpc"`
	// Endpoint is a URL for otlp-http and host:port for otlp-grpc
	Endpoint       string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"omitempty,notblank"`
	Insecure       bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers        map[string]string `koanf:"headers" json:"-" yaml:"headers"`
	ServiceName    string            `koanf:"servicename" json:"servicename" yaml:"servicename" validate:"required_with=Exporter"`
	ServiceVersion string            `koanf:"serviceversion" json:"serviceversion" yaml:"serviceversion"`
	SampleRate     float64           `koanf:"samplerate" json:"samplerate" yaml:"samplerate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration     `koanf:"metricinterval" json:"metricinterval" yaml:"metricinterval" validate:"gte=0"`
}
