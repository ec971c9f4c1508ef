package trace

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var uuidPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[a-f0-9]{4}-[a-f0-9]{12}$`)

func TestHeaderConstant(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
}

func TestIDFromContext(t *testing.T) {
	_, ok := IDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = IDFromContext(WithTraceID(context.Background(), ""))
	assert.False(t, ok, "empty id is treated as missing")

	id, ok := IDFromContext(WithTraceID(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestEnsureTraceIDUsesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "existing-trace-id")
	assert.Equal(t, "existing-trace-id", EnsureTraceID(ctx))
}

func TestEnsureTraceIDUsesSpanContext(t *testing.T) {
	traceID, err := oteltrace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	spanID, err := oteltrace.SpanIDFromHex("0123456789abcdef")
	require.NoError(t, err)

	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, "0123456789abcdef0123456789abcdef", EnsureTraceID(ctx))
	assert.Equal(t, "explicit", EnsureTraceID(WithTraceID(ctx, "explicit")))
}

func TestEnsureTraceIDGeneratesWhenMissing(t *testing.T) {
	first := EnsureTraceID(context.Background())
	second := EnsureTraceID(context.Background())
	assert.Regexp(t, uuidPattern, first)
	assert.NotEqual(t, first, second)
}
