// Package tracking records OpenTelemetry spans and metrics for REST client request chains.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/gaborage/restbricks/httpclient"

	// Metric names following OpenTelemetry HTTP client semantic conventions where they exist
	MetricRequestDuration = "http.client.request.duration" // Histogram in seconds, one point per attempt
	MetricRetries         = "restbricks.client.retries"    // Counter
	MetricCancellations   = "restbricks.client.cancellations"
	MetricPending         = "restbricks.client.pending" // Observable UpDownCounter

	AttrMethod     = "http.request.method"
	AttrStatusCode = "http.response.status_code"
	AttrURL        = "url.full"
	AttrErrorType  = "error.type"
	AttrClientName = "restbricks.client.name"
	AttrRequestID  = "restbricks.request.id"
	AttrAttempts   = "restbricks.request.attempts"
)

// Recorder owns the tracer and metric instruments of one client
type Recorder struct {
	tracer        trace.Tracer
	duration      metric.Float64Histogram
	retries       metric.Int64Counter
	cancellations metric.Int64Counter
	clientAttr    attribute.KeyValue
}

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize REST client metric %s: %v\n", metricName, err)
	}
}

// New creates a recorder. Nil providers fall back to the otel globals.
// pending, when non-nil, is observed as the number of in-flight request chains.
func New(clientName string, tp trace.TracerProvider, mp metric.MeterProvider, pending func() int) *Recorder {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	r := &Recorder{
		tracer:     tp.Tracer(instrumentationName),
		clientAttr: attribute.String(AttrClientName, clientName),
	}

	var err error
	r.duration, err = meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of HTTP client request attempts"),
		metric.WithUnit("s"),
	)
	logMetricError(MetricRequestDuration, err)

	r.retries, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of retried request attempts"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)

	r.cancellations, err = meter.Int64Counter(
		MetricCancellations,
		metric.WithDescription("Number of request chains cancelled by id"),
		metric.WithUnit("{request}"),
	)
	logMetricError(MetricCancellations, err)

	if pending != nil {
		_, err = meter.Int64ObservableUpDownCounter(
			MetricPending,
			metric.WithDescription("Number of in-flight request chains"),
			metric.WithUnit("{request}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(pending()), metric.WithAttributes(r.clientAttr))
				return nil
			}),
		)
		logMetricError(MetricPending, err)
	}
	return r
}

// StartChain opens the span covering every attempt of one logical request
func (r *Recorder) StartChain(ctx context.Context, method, url, requestID string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrURL, url),
			attribute.String(AttrRequestID, requestID),
			r.clientAttr,
		),
	)
}

// EndChain finalizes the chain span with its outcome
func EndChain(span trace.Span, statusCode, attempts int, errorType string, err error) {
	span.SetAttributes(attribute.Int(AttrAttempts, attempts))
	if statusCode != 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, statusCode))
	}
	if err != nil {
		span.SetAttributes(attribute.String(AttrErrorType, errorType))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordAttempt records the duration of one transport round trip
func (r *Recorder) RecordAttempt(ctx context.Context, method string, statusCode int, errorType string, d time.Duration) {
	if r.duration == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(AttrMethod, method), r.clientAttr}
	if statusCode != 0 {
		attrs = append(attrs, attribute.Int(AttrStatusCode, statusCode))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(AttrErrorType, errorType))
	}
	r.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts a scheduled retry and marks it on the chain span
func (r *Recorder) RecordRetry(ctx context.Context, method string, retry int, delay time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int("retry", retry),
		attribute.String("delay", delay.String()),
	))
	if r.retries != nil {
		r.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMethod, method), r.clientAttr))
	}
}

// RecordCancellation counts an explicit cancellation by id
func (r *Recorder) RecordCancellation(ctx context.Context) {
	if r.cancellations != nil {
		r.cancellations.Add(ctx, 1, metric.WithAttributes(r.clientAttr))
	}
}
