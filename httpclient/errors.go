package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType identifies which branch of the request outcome produced a ClientError.
type ErrorType int

const (
	// TransportError means no response was obtained (network failure, cancellation,
	// interceptor rejection).
	TransportError ErrorType = iota + 1
	// ResponseError means the server answered with a status outside the success range.
	ResponseError
	// ParseError means a response body could not be decoded into the expected shape.
	ParseError
)

// String returns the lowercase name of the error type
func (t ErrorType) String() string {
	switch t {
	case TransportError:
		return "transport"
	case ResponseError:
		return "response"
	case ParseError:
		return "parse"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupportedResponseType is returned when a successful response declares a
	// content type the client has no decoder for. It is never retried.
	ErrUnsupportedResponseType = errors.New("unsupported response type")
	// ErrUnsupportedBody is returned when a request body cannot be encoded for the
	// effective Content-Type.
	ErrUnsupportedBody = errors.New("unsupported request body")
	// ErrRequestCancelled is the cause attached to transport errors produced by Cancel.
	ErrRequestCancelled = errors.New("request cancelled")
)

// ClientError is the error surfaced by every failed request.
// Callers branch on Type() (or the Is* helpers) instead of matching message text.
type ClientError interface {
	error
	Type() ErrorType
	// StatusCode is 0 when no response was received.
	StatusCode() int
	// Body is the raw response payload, if any.
	Body() []byte
	// Data is the decoded response payload: a JSON value, a string, or nil.
	Data() any
	Unwrap() error
}

// apiError is the single payload shape shared by all ClientError kinds.
type apiError struct {
	kind       ErrorType
	message    string
	statusCode int
	body       []byte
	data       any
	cause      error

	client    string
	method    string
	url       string
	requestID string
}

var _ ClientError = (*apiError)(nil)

func (e *apiError) Error() string {
	var b strings.Builder
	if e.client != "" {
		b.WriteString(e.client)
		b.WriteString(": ")
	}
	b.WriteString(e.kind.String())
	b.WriteString(" error")
	if e.method != "" || e.url != "" {
		fmt.Fprintf(&b, " [%s %s]", e.method, e.url)
	}
	if e.statusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.statusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *apiError) Type() ErrorType { return e.kind }

func (e *apiError) StatusCode() int { return e.statusCode }

func (e *apiError) Body() []byte { return e.body }

func (e *apiError) Data() any { return e.data }

func (e *apiError) Unwrap() error { return e.cause }

// RequestID returns the registry identifier of the request chain that failed
func (e *apiError) RequestID() string { return e.requestID }

// withRequest stamps request identity onto the error
func (e *apiError) withRequest(client, method, url, requestID string) *apiError {
	e.client = client
	e.method = method
	e.url = url
	e.requestID = requestID
	return e
}

// NewResponseError creates an error for a response whose status is outside the success range
func NewResponseError(message string, statusCode int, body []byte, data any) ClientError {
	return &apiError{kind: ResponseError, message: message, statusCode: statusCode, body: body, data: data}
}

// NewParseError creates an error for a body that could not be decoded
func NewParseError(message string, statusCode int, body []byte, cause error) ClientError {
	return &apiError{kind: ParseError, message: message, statusCode: statusCode, body: body, cause: cause}
}

// NewTransportError creates an error for a request that never produced a response
func NewTransportError(message string, cause error) ClientError {
	return &apiError{kind: TransportError, message: message, cause: cause}
}

// AsClientError extracts a ClientError from an error chain
func AsClientError(err error) (ClientError, bool) {
	var ce *apiError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsErrorType checks if an error is a ClientError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	ce, ok := AsClientError(err)
	return ok && ce.Type() == errorType
}

// IsResponseError reports whether the server answered with a failure status
func IsResponseError(err error) bool { return IsErrorType(err, ResponseError) }

// IsParseError reports whether a response body could not be decoded
func IsParseError(err error) bool { return IsErrorType(err, ParseError) }

// IsTransportError reports whether the request failed without a response
func IsTransportError(err error) bool { return IsErrorType(err, TransportError) }

// IsHTTPStatusError checks if an error is a response error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	ce, ok := AsClientError(err)
	return ok && ce.Type() == ResponseError && ce.StatusCode() == statusCode
}

// IsSuccessStatus reports whether a status code counts as success (2xx and 3xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusBadRequest
}

// IsRetryable reports whether an error qualifies for a retry attempt.
// Only response errors with a 5xx status qualify; transport and parse errors never do.
func IsRetryable(err error) bool {
	ce, ok := AsClientError(err)
	return ok && ce.Type() == ResponseError && ce.StatusCode() >= http.StatusInternalServerError
}

// ConfigError reports an invalid client configuration detected at construction time.
// It is not part of the request error taxonomy.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config_invalid: " + e.Message
	}
	return fmt.Sprintf("config_invalid: %s %s", e.Field, e.Message)
}
