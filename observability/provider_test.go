package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

const testServiceName = "restcall-test"

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, ExporterStdout, cfg.Exporter)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, defaultMetricInterval, cfg.MetricInterval)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil", cfg: nil, wantErr: ErrNilConfig},
		{name: "disabled ignores everything", cfg: &Config{Exporter: "carrier-pigeon"}},
		{name: "missing service name", cfg: &Config{Enabled: true, Exporter: ExporterStdout, SampleRate: 1}, wantErr: ErrMissingServiceName},
		{name: "sample rate too high", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterStdout, SampleRate: 1.5}, wantErr: ErrInvalidSampleRate},
		{name: "negative sample rate", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterStdout, SampleRate: -0.1}, wantErr: ErrInvalidSampleRate},
		{name: "unknown exporter", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: "zipkin", SampleRate: 1}, wantErr: ErrInvalidExporter},
		{name: "http without scheme", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterOTLPHTTP, Endpoint: "collector:4318", SampleRate: 1}, wantErr: ErrInvalidEndpointFormat},
		{name: "grpc with scheme", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterOTLPGRPC, Endpoint: "http://collector:4317", SampleRate: 1}, wantErr: ErrInvalidEndpointFormat},
		{name: "grpc without endpoint", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterOTLPGRPC, SampleRate: 1}, wantErr: ErrInvalidEndpointFormat},
		{name: "valid stdout", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterStdout, SampleRate: 1}},
		{name: "valid http", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterOTLPHTTP, Endpoint: "https://collector:4318", SampleRate: 0.5}},
		{name: "valid grpc", cfg: &Config{Enabled: true, ServiceName: testServiceName, Exporter: ExporterOTLPGRPC, Endpoint: "collector:4317", SampleRate: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	p, err := NewProvider(&Config{Enabled: false})
	require.NoError(t, err)

	assert.IsType(t, noopProvider{}, p)
	assert.IsType(t, noop.TracerProvider{}, p.TracerProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, Shutdown(p, time.Second))
}

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewProvider(&Config{Enabled: true, Exporter: ExporterStdout})
	assert.ErrorIs(t, err, ErrMissingServiceName)

	assert.Panics(t, func() {
		MustNewProvider(&Config{Enabled: true, ServiceName: testServiceName, Exporter: "zipkin"})
	})
}

func TestNewProviderStdoutExportsSpansAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(&Config{
		Enabled:     true,
		ServiceName: testServiceName,
		Exporter:    ExporterStdout,
	}, WithWriter(&buf), WithoutGlobal())
	require.NoError(t, err)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "GET /users")
	span.End()

	counter, err := p.MeterProvider().Meter("test").Int64Counter("restclient.test.calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, Shutdown(p, time.Second))

	out := buf.String()
	assert.Contains(t, out, "GET /users")
	assert.Contains(t, out, "restclient.test.calls")
	assert.Contains(t, out, testServiceName)
}

func TestNewProviderOTLPExporters(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		endpoint string
	}{
		{name: "http", exporter: ExporterOTLPHTTP, endpoint: "http://127.0.0.1:1"},
		{name: "grpc", exporter: ExporterOTLPGRPC, endpoint: "127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(&Config{
				Enabled:     true,
				ServiceName: testServiceName,
				Exporter:    tt.exporter,
				Endpoint:    tt.endpoint,
				Insecure:    true,
				Headers:     map[string]string{"x-api-key": "k"},
			}, WithoutGlobal())
			require.NoError(t, err)
			assert.NotNil(t, p.TracerProvider())
			assert.NotNil(t, p.MeterProvider())

			// nothing listens on the endpoint, so only the call itself is checked
			_ = Shutdown(p, 200*time.Millisecond)
		})
	}
}

type failingProvider struct{ noopProvider }

func (failingProvider) Shutdown(context.Context) error { return errors.New("exporter stuck") }

func TestShutdown(t *testing.T) {
	assert.NoError(t, Shutdown(nil, time.Second))

	err := Shutdown(failingProvider{}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observability shutdown failed")
	assert.Contains(t, err.Error(), "exporter stuck")
}
