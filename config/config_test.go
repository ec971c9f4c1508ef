package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/restbricks/httpclient"
)

const (
	testBaseURL    = "https://api.example.com"
	envBaseURL     = "RESTCALL_CLIENT_BASEURL"
	envRetryMax    = "RESTCALL_CLIENT_RETRY_MAX"
	envRetryEnable = "RESTCALL_CLIENT_RETRY_ENABLED"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Sources{Overrides: map[string]any{"client.baseurl": testBaseURL}})
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.Client.BaseURL)
	assert.False(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, httpclient.DefaultMaxRetries, cfg.Client.Retry.Max)
	assert.Equal(t, httpclient.DefaultInitialDelay, cfg.Client.Retry.InitialDelay)
	assert.Equal(t, httpclient.DefaultMaxPayloadLogBytes, cfg.Client.Payload.MaxBytes)
	assert.Equal(t, httpclient.HeaderXRequestID, cfg.Client.TraceHeader)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "restcall", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Telemetry.Exporter)
	assert.False(t, cfg.Telemetry.ObservabilityConfig().Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, `
client:
  name: billing
  baseurl: https://billing.example.com/v1
  headers:
    Accept: application/json
  retry:
    enabled: true
    max: 5
    initialdelay: 250ms
  auth:
    username: svc
    password: secret
log:
  level: debug
  pretty: true
custom:
  region: eu-west-1
`)

	cfg, err := Load(Sources{File: path})
	require.NoError(t, err)

	assert.Equal(t, "billing", cfg.Client.Name)
	assert.Equal(t, "https://billing.example.com/v1", cfg.Client.BaseURL)
	assert.Equal(t, map[string]string{"Accept": "application/json"}, cfg.Client.Headers)
	assert.True(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, 5, cfg.Client.Retry.Max)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.Retry.InitialDelay)
	assert.Equal(t, AuthConfig{Username: "svc", Password: "secret"}, cfg.Client.Auth)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "eu-west-1", cfg.GetString("custom.region"))
	assert.True(t, cfg.Exists("custom.region"))
	assert.False(t, cfg.Exists("custom.zone"))
}

func TestLoadPriority(t *testing.T) {
	path := writeFile(t, "client:\n  baseurl: https://file.example.com\n  retry:\n    max: 1\n")
	t.Setenv(envRetryMax, "7")
	t.Setenv(envRetryEnable, "true")

	cfg, err := Load(Sources{
		File: path,
		YAML: []byte("client:\n  name: inline\n  retry:\n    max: 2\n"),
		Overrides: map[string]any{
			"client.name": "flag",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Client.BaseURL, "file value survives")
	assert.Equal(t, 7, cfg.Client.Retry.Max, "env beats file and inline yaml")
	assert.True(t, cfg.Client.Retry.Enabled)
	assert.Equal(t, "flag", cfg.Client.Name, "overrides win")
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv(envBaseURL, testBaseURL)
	t.Setenv("RESTCALL_LOG_LEVEL", "warn")
	t.Setenv("RESTCALL_CLIENT_RETRY_INITIALDELAY", "2s")

	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, testBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2*time.Second, cfg.Client.Retry.InitialDelay)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(Sources{File: missing, Overrides: map[string]any{"client.baseurl": testBaseURL}})
	assert.NoError(t, err, "optional file may be absent")

	_, err = Load(Sources{File: missing, Required: true, Overrides: map[string]any{"client.baseurl": testBaseURL}})
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(Sources{YAML: []byte("client: [unclosed")})
	assert.ErrorContains(t, err, "inline yaml")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		field     string
		category  string
	}{
		{name: "missing base url", overrides: map[string]any{}, field: "client.baseurl", category: "missing"},
		{name: "relative base url", overrides: map[string]any{"client.baseurl": "/api"}, field: "client.baseurl", category: "invalid"},
		{name: "blank name", overrides: map[string]any{"client.baseurl": testBaseURL, "client.name": "  "}, field: "client.name", category: "invalid"},
		{name: "negative retries", overrides: map[string]any{"client.baseurl": testBaseURL, "client.retry.max": -1}, field: "client.retry.max", category: "invalid"},
		{name: "too many retries", overrides: map[string]any{"client.baseurl": testBaseURL, "client.retry.max": 50}, field: "client.retry.max", category: "invalid"},
		{name: "unknown log level", overrides: map[string]any{"client.baseurl": testBaseURL, "log.level": "loud"}, field: "log.level", category: "invalid"},
		{name: "unknown exporter", overrides: map[string]any{"client.baseurl": testBaseURL, "telemetry.exporter": "zipkin"}, field: "telemetry.exporter", category: "invalid"},
		{name: "otlp http without endpoint", overrides: map[string]any{"client.baseurl": testBaseURL, "telemetry.exporter": "otlp-http"}, field: "telemetry.endpoint", category: "missing"},
		{name: "otlp grpc with url endpoint", overrides: map[string]any{"client.baseurl": testBaseURL, "telemetry.exporter": "otlp-grpc", "telemetry.endpoint": "http://collector:4317"}, field: "telemetry.endpoint", category: "invalid"},
		{name: "sample rate out of range", overrides: map[string]any{"client.baseurl": testBaseURL, "telemetry.samplerate": 2.0}, field: "telemetry.samplerate", category: "invalid"},
		{name: "password without user", overrides: map[string]any{"client.baseurl": testBaseURL, "client.auth.password": "x"}, field: "client.auth.username", category: "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Sources{Overrides: tt.overrides})
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, tt.category, cfgErr.Category)
		})
	}
}

func TestConfigErrorFormatting(t *testing.T) {
	assert.Equal(t,
		"config_missing: client.baseurl required set RESTCALL_CLIENT_BASEURL env var or add client.baseurl to the config file",
		NewMissingFieldError("client.baseurl").Error())
	assert.Equal(t,
		`config_invalid: log.level invalid value "loud" must be one of: debug, info`,
		NewInvalidFieldError("log.level", `invalid value "loud"`, []string{"debug", "info"}).Error())
}

func TestHTTPClientConfig(t *testing.T) {
	cc := ClientConfig{
		Name:        "billing",
		BaseURL:     testBaseURL,
		Headers:     map[string]string{"Accept": "application/json"},
		Retry:       RetryConfig{Enabled: true, Max: 4, InitialDelay: time.Second},
		Auth:        AuthConfig{Username: "svc", Password: "pw"},
		Payload:     PayloadLogConfig{Enabled: true, MaxBytes: 128},
		TraceHeader: "X-Trace",
	}

	hc := cc.HTTPClientConfig()
	assert.Equal(t, "billing", hc.Name)
	assert.Equal(t, testBaseURL, hc.BaseURL)
	assert.Equal(t, "application/json", hc.DefaultHeaders["Accept"])
	assert.True(t, hc.WithRetry)
	assert.Equal(t, 4, hc.MaxRetries)
	assert.Equal(t, time.Second, hc.InitialDelay)
	assert.Equal(t, &httpclient.BasicAuth{Username: "svc", Password: "pw"}, hc.BasicAuth)
	assert.True(t, hc.LogPayloads)
	assert.Equal(t, 128, hc.MaxPayloadLogBytes)
	assert.Equal(t, "X-Trace", hc.TraceIDHeader)

	client, err := httpclient.New(nil, hc)
	require.NoError(t, err)
	assert.NotNil(t, client)

	assert.Nil(t, ClientConfig{BaseURL: testBaseURL}.HTTPClientConfig().BasicAuth)
}

func TestObservabilityConfig(t *testing.T) {
	t.Setenv("RESTCALL_TELEMETRY_EXPORTER", "otlp-grpc")
	t.Setenv("RESTCALL_TELEMETRY_ENDPOINT", "collector:4317")

	cfg, err := Load(Sources{
		YAML: []byte("telemetry:\n  insecure: true\n  samplerate: 0.25\n  headers:\n    x-api-key: k\n"),
		Overrides: map[string]any{
			"client.baseurl":           testBaseURL,
			"telemetry.serviceversion": "1.2.3",
		},
	})
	require.NoError(t, err)

	oc := cfg.Telemetry.ObservabilityConfig()
	assert.True(t, oc.Enabled)
	assert.Equal(t, "otlp-grpc", oc.Exporter)
	assert.Equal(t, "collector:4317", oc.Endpoint)
	assert.True(t, oc.Insecure)
	assert.Equal(t, 0.25, oc.SampleRate)
	assert.Equal(t, "restcall", oc.ServiceName)
	assert.Equal(t, "1.2.3", oc.ServiceVersion)
	assert.Equal(t, map[string]string{"x-api-key": "k"}, oc.Headers)
	assert.NoError(t, oc.Validate())
}
