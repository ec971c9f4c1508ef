// Package oteltest provides in-memory OpenTelemetry providers and assertion
// helpers for exercising REST client instrumentation in unit tests.
//
//	h := oteltest.New(t)
//	client, _ := httpclient.NewBuilder(log).
//		WithBaseURL(srv.URL).
//		WithTelemetry(h.TracerProvider, h.MeterProvider).
//		Build()
//	...
//	span := h.Span(t, "HTTP GET")
//	oteltest.AssertSpanAttribute(t, span, "http.response.status_code", 200)
package oteltest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const metricNotFoundErrMsg = "metric %s not found"

// Harness bundles a tracer provider backed by an in-memory exporter and a
// meter provider backed by a manual reader. Both are shut down on test cleanup.
type Harness struct {
	TracerProvider *sdktrace.TracerProvider
	Exporter       *tracetest.InMemoryExporter
	MeterProvider  *sdkmetric.MeterProvider
	Reader         *sdkmetric.ManualReader
}

// New creates a Harness bound to the lifetime of t
func New(t *testing.T) *Harness {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	h := &Harness{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:         reader,
	}
	t.Cleanup(func() {
		_ = h.TracerProvider.Shutdown(context.Background())
		_ = h.MeterProvider.Shutdown(context.Background())
	})
	return h
}

// Spans returns every finished span with the given name
func (h *Harness) Spans(name string) tracetest.SpanStubs {
	var out tracetest.SpanStubs
	for _, s := range h.Exporter.GetSpans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Span returns the only finished span with the given name
func (h *Harness) Span(t *testing.T, name string) tracetest.SpanStub {
	t.Helper()
	spans := h.Spans(name)
	require.Len(t, spans, 1, "expected exactly one span named %q", name)
	return spans[0]
}

// Collect reads all metrics recorded so far
func (h *Harness) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// SpanAttribute looks up an attribute on span
func SpanAttribute(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

// AssertSpanAttribute asserts that span carries key with the expected value.
// Supported expected types are string, int, int64, float64 and bool.
func AssertSpanAttribute(t *testing.T, span tracetest.SpanStub, key string, expected any) {
	t.Helper()
	v, ok := SpanAttribute(span, key)
	if !assert.True(t, ok, "attribute %s not found in span %s", key, span.Name) {
		return
	}
	switch e := expected.(type) {
	case string:
		assert.Equal(t, e, v.AsString(), "attribute %s", key)
	case int:
		assert.Equal(t, int64(e), v.AsInt64(), "attribute %s", key)
	case int64:
		assert.Equal(t, e, v.AsInt64(), "attribute %s", key)
	case float64:
		assert.Equal(t, e, v.AsFloat64(), "attribute %s", key)
	case bool:
		assert.Equal(t, e, v.AsBool(), "attribute %s", key)
	default:
		t.Fatalf("unsupported attribute value type: %T", expected)
	}
}

// FindMetric returns the metric with the given name, or nil
func FindMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// SumInt64 adds up every data point of an int64 sum metric
func SumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, metricNotFoundErrMsg, name)
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T, not Sum[int64]", name, m.Data)
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

// HistogramCount adds up the observation counts of a float64 histogram metric
func HistogramCount(t *testing.T, rm metricdata.ResourceMetrics, name string) uint64 {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, metricNotFoundErrMsg, name)
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T, not Histogram[float64]", name, m.Data)
	var total uint64
	for _, dp := range data.DataPoints {
		total += dp.Count
	}
	return total
}

// HistogramPoints returns the data points of a float64 histogram metric
func HistogramPoints(t *testing.T, rm metricdata.ResourceMetrics, name string) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	m := FindMetric(rm, name)
	require.NotNil(t, m, metricNotFoundErrMsg, name)
	data, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T, not Histogram[float64]", name, m.Data)
	return data.DataPoints
}
