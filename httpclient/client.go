package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/gaborage/restbricks/httpclient/internal/tracking"
	"github.com/gaborage/restbricks/logger"
	restbrickstrace "github.com/gaborage/restbricks/trace"
)

// client implements the Client interface
type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	registry   *registry
	recorder   *tracking.Recorder
	failures   FailureHandler
	callCount  atomic.Int64

	// sleep waits between retry attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Client = (*client)(nil)

func newClient(log logger.Logger, cfg *Config) *client {
	if log == nil {
		log = logger.NewNop()
	}
	transport := cfg.Transport
	if transport == nil {
		transport = nethttp.DefaultTransport
	}
	failures := cfg.FailureHandler
	if failures == nil {
		failures = ReraiseFailures
	}

	c := &client{
		httpClient: &nethttp.Client{Transport: transport},
		logger:     log,
		config:     cfg,
		registry:   &registry{},
		failures:   failures,
		sleep:      sleepContext,
	}
	c.recorder = tracking.New(cfg.Name, cfg.TracerProvider, cfg.MeterProvider, c.registry.len)
	return c
}

// Get performs a GET request; any Body on req is ignored
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do executes one logical request, retrying 5xx responses when enabled.
// The chain is cancellable through Cancel(req.ID) while it runs.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	return c.run(c.begin(ctx, method, req))
}

// Start registers the request and runs it on a new goroutine
func (c *client) Start(ctx context.Context, method string, req *Request) *Call {
	ch := c.begin(ctx, method, req)
	call := &Call{id: ch.id, done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.resp, call.err = c.run(ch)
	}()
	return call
}

// Cancel aborts the request chain registered under id
func (c *client) Cancel(id string) bool {
	if !c.registry.cancel(id) {
		return false
	}
	c.recorder.RecordCancellation(context.Background())
	c.logger.Info().Str("request_id", id).Msg("REST client request cancelled")
	return true
}

// Pending returns the number of in-flight request chains
func (c *client) Pending() int {
	return c.registry.len()
}

// chain is one logical request: all of its attempts share id, context and cancel handle
type chain struct {
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelCauseFunc
	entry   *pendingEntry
	id      string
	method  string
	req     *Request
	traceID string
}

func (c *client) begin(ctx context.Context, method string, req *Request) *chain {
	if req == nil {
		req = &Request{}
	}
	id := req.ID
	if id == "" {
		id = c.registry.newID(method, req.Path)
	}
	chainCtx, cancel := context.WithCancelCause(ctx)
	return &chain{
		parent: ctx,
		ctx:    chainCtx,
		cancel: cancel,
		entry:  c.registry.register(id, cancel),
		id:     id,
		method: method,
		req:    req,
	}
}

// run executes the chain, releases its registry entry and only then hands a
// failure to the failure handler
func (c *client) run(ch *chain) (*Response, error) {
	url := c.config.BaseURL + ch.req.Path
	resp, attempts, err := c.executeTracked(ch, url)
	if err == nil {
		return resp, nil
	}

	var ae *apiError
	if errors.As(err, &ae) {
		ae.withRequest(c.config.Name, ch.method, url, ch.id)
	}
	f := &Failure{Method: ch.method, URL: url, RequestID: ch.id, TraceID: ch.traceID, Attempts: attempts, Err: err}
	c.logFailure(f)
	resp, err = c.failures.HandleFailure(ch.parent, f)
	if resp == nil && err == nil {
		return nil, f.Err
	}
	return resp, err
}

func (c *client) executeTracked(ch *chain, url string) (*Response, int, error) {
	defer func() {
		c.registry.release(ch.id, ch.entry)
		ch.cancel(nil)
	}()
	return c.execute(ch, url)
}

// execute is the retry state machine: attempt, classify, maybe wait, retry or stop
func (c *client) execute(ch *chain, url string) (*Response, int, error) {
	req := ch.req
	headers := mergeHeaders(c.config.DefaultHeaders, req.Headers)
	body, err := encodeBody(ch.method, req.Body, headers.Get(HeaderContentType))
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", ch.method, url, err)
	}

	maxRetries := c.config.MaxRetries
	if req.MaxRetries != nil {
		maxRetries = max(*req.MaxRetries, 0)
	}
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	ch.traceID = c.traceID(ch.ctx, headers)

	ctx, span := c.recorder.StartChain(ch.ctx, ch.method, url, ch.id)
	start := time.Now()

	for retries := 0; ; retries++ {
		attempts := retries + 1
		resp, err := c.attempt(ctx, ch, url, headers, body, auth)
		if err == nil {
			resp.RequestID = ch.id
			resp.Stats.Attempts = attempts
			resp.Stats.ElapsedTime = time.Since(start)
			tracking.EndChain(span, resp.StatusCode, attempts, "", nil)
			return resp, attempts, nil
		}

		if !c.shouldRetry(retries, maxRetries, err) {
			tracking.EndChain(span, statusOf(err), attempts, errorTypeOf(err), err)
			return nil, attempts, err
		}

		delay := backoffDelay(c.config.InitialDelay, retries)
		c.logRetry(ch, url, retries+1, delay, err)
		c.recorder.RecordRetry(ctx, ch.method, retries+1, delay)
		if serr := c.sleep(ctx, delay); serr != nil {
			terr := NewTransportError("request cancelled during retry backoff", serr)
			tracking.EndChain(span, 0, attempts, errorTypeOf(terr), terr)
			return nil, attempts, terr
		}
	}
}

// shouldRetry implements the retry policy: enabled, budget left, and a 5xx response error
func (c *client) shouldRetry(retries, maxRetries int, err error) bool {
	return c.config.WithRetry && retries < maxRetries && IsRetryable(err)
}

// backoffDelay returns initial * 2^retries, saturating instead of overflowing
func backoffDelay(initial time.Duration, retries int) time.Duration {
	if initial <= 0 {
		return 0
	}
	if retries >= 63 || initial > time.Duration(math.MaxInt64>>retries) {
		return time.Duration(math.MaxInt64)
	}
	return initial << retries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// traceID picks the correlation id for the chain: an explicit header, the
// context value, the configured generator, or a fresh uuid
func (c *client) traceID(ctx context.Context, headers nethttp.Header) string {
	if v := headers.Get(c.config.TraceIDHeader); v != "" {
		return v
	}
	if v, ok := restbrickstrace.IDFromContext(ctx); ok {
		return v
	}
	if c.config.NewTraceID != nil {
		if v := c.config.NewTraceID(); v != "" {
			return v
		}
	}
	return restbrickstrace.EnsureTraceID(ctx)
}

// attempt performs a single transport round trip and classifies its outcome
func (c *client) attempt(ctx context.Context, ch *chain, url string, headers nethttp.Header, body []byte, auth *BasicAuth) (*Response, error) {
	method := ch.method
	var reader io.Reader = nethttp.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewTransportError("invalid request", err)
	}
	httpReq.Header = headers.Clone()
	httpReq.Header.Set(c.config.TraceIDHeader, ch.traceID)
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewTransportError("request interceptor failed", err)
		}
	}

	c.logRequest(httpReq, body, ch.id, ch.traceID)
	callCount := c.callCount.Add(1)
	t0 := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		terr := c.transportError(ctx, err)
		c.recorder.RecordAttempt(ctx, method, 0, errorTypeOf(terr), time.Since(t0))
		return nil, terr
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(t0)
	if err != nil {
		terr := c.transportError(ctx, fmt.Errorf("reading response body: %w", err))
		c.recorder.RecordAttempt(ctx, method, httpResp.StatusCode, errorTypeOf(terr), elapsed)
		return nil, terr
	}
	httpResp.Body = io.NopCloser(bytes.NewReader(raw))

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, httpReq, httpResp); err != nil {
			return nil, NewTransportError("response interceptor failed", err)
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       raw,
		Headers:    httpResp.Header,
		Raw:        httpResp,
		Stats:      Stats{ElapsedTime: elapsed, CallCount: callCount},
	}
	c.logResponse(resp, ch.id, ch.traceID)

	if !IsSuccessStatus(resp.StatusCode) {
		rerr := NewResponseError(nethttp.StatusText(resp.StatusCode), resp.StatusCode, raw, decodeFailure(raw))
		c.recorder.RecordAttempt(ctx, method, resp.StatusCode, errorTypeOf(rerr), elapsed)
		return nil, rerr
	}

	data, err := decodeSuccess(resp.StatusCode, httpResp.Header.Get(HeaderContentType), raw)
	if err != nil {
		c.recorder.RecordAttempt(ctx, method, resp.StatusCode, errorTypeOf(err), elapsed)
		return nil, err
	}
	resp.Data = data
	c.recorder.RecordAttempt(ctx, method, resp.StatusCode, "", elapsed)
	return resp, nil
}

// transportError classifies a failed round trip, surfacing the cancellation cause when the
// chain context is done
func (c *client) transportError(ctx context.Context, err error) ClientError {
	if ctx.Err() == nil {
		return NewTransportError("request failed", err)
	}
	cause := context.Cause(ctx)
	if !errors.Is(err, cause) {
		err = fmt.Errorf("%w: %w", cause, err)
	}
	return NewTransportError("request cancelled", err)
}

func statusOf(err error) int {
	if ce, ok := AsClientError(err); ok {
		return ce.StatusCode()
	}
	return 0
}

func errorTypeOf(err error) string {
	if ce, ok := AsClientError(err); ok {
		return ce.Type().String()
	}
	if errors.Is(err, ErrUnsupportedResponseType) {
		return "unsupported_response_type"
	}
	return "error"
}
