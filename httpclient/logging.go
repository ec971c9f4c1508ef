package httpclient

import (
	nethttp "net/http"
	"strings"
	"time"
)

const (
	logRequestMsg  = "REST client request"
	logResponseMsg = "REST client response"
)

// headerFields flattens headers into a field map so the logger's sensitive
// data filter can mask credentials by key
func headerFields(h nethttp.Header) map[string]any {
	fields := make(map[string]any, len(h))
	for k, v := range h {
		fields[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return fields
}

func (c *client) payloadPreview(body []byte) (preview []byte, truncated string) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], "true"
	}
	return body, "false"
}

func (c *client) logRequest(req *nethttp.Request, body []byte, requestID, traceID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Str("trace_id", traceID)
	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg(logRequestMsg)

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Str("trace_id", traceID).
		Interface("headers", headerFields(req.Header)).
		Int("body_size", len(body)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg(logRequestMsg)
}

func (c *client) logResponse(resp *Response, requestID, traceID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", requestID).
		Str("trace_id", traceID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg(logResponseMsg)

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.payloadPreview(resp.Body)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Str("trace_id", traceID).
		Interface("headers", headerFields(resp.Headers)).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", truncated).
		Bytes("body_preview", preview).
		Msg(logResponseMsg)
}

func (c *client) logRetry(ch *chain, url string, retry int, delay time.Duration, err error) {
	c.logger.Warn().
		Err(err).
		Str("method", ch.method).
		Str("url", url).
		Str("request_id", ch.id).
		Str("trace_id", ch.traceID).
		Int("retry", retry).
		Dur("delay", delay).
		Msg("Retrying REST client request")
}

func (c *client) logFailure(f *Failure) {
	c.logger.Error().
		Err(f.Err).
		Str("method", f.Method).
		Str("url", f.URL).
		Str("request_id", f.RequestID).
		Str("trace_id", f.TraceID).
		Int("attempts", f.Attempts).
		Msg("REST client request failed")
}
