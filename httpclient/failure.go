package httpclient

import "context"

// Failure describes a request chain that ended in an error
type Failure struct {
	Method    string
	URL       string
	RequestID string
	// TraceID is the correlation id sent in the trace header
	TraceID string
	// Attempts is the number of transport round trips performed (0 when the request never left)
	Attempts int
	Err      error
}

// FailureHandler decides the final outcome of a failed request chain.
// Returning (nil, f.Err) re-raises; returning a response or a different error
// suppresses or transforms the failure. A handler returning (nil, nil) re-raises.
type FailureHandler interface {
	HandleFailure(ctx context.Context, f *Failure) (*Response, error)
}

// FailureHandlerFunc adapts a plain function to FailureHandler
type FailureHandlerFunc func(ctx context.Context, f *Failure) (*Response, error)

// HandleFailure calls fn
func (fn FailureHandlerFunc) HandleFailure(ctx context.Context, f *Failure) (*Response, error) {
	return fn(ctx, f)
}

// ReraiseFailures is the default handler
var ReraiseFailures FailureHandler = FailureHandlerFunc(func(_ context.Context, f *Failure) (*Response, error) {
	return nil, f.Err
})
