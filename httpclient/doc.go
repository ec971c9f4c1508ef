// Package httpclient provides a REST client bound to a base URL, with default
// headers, content-type driven body encoding and decoding, basic auth,
// request/response interceptors and optional retry of server errors.
//
// Retries
//   - Enabled with Builder.WithRetry(maxRetries, initialDelay).
//   - Only responses with status >= 500 are retried.
//   - 4xx responses, parse errors and transport errors are returned immediately.
//   - Request.MaxRetries overrides the budget for one call.
//
// Backoff
//   - delay = initialDelay * 2^retries, without jitter.
//   - The wait ends early when the request is cancelled.
//
// Cancellation
//   - Every request chain is registered under Request.ID (generated when empty).
//   - Client.Cancel(id) aborts the chain, including a pending backoff wait.
//   - The entry is removed when the chain finishes, before the FailureHandler runs.
//
// Notes
//   - Request bodies are encoded once and re-sent on each attempt.
//   - Interceptor errors surface as TransportError and are not retried.
package httpclient
