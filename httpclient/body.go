package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	nethttp "net/http"
	"net/url"
	"strings"
)

// mergeHeaders layers the JSON content type, client defaults and per-call
// overrides. Keys are canonicalized so later layers win regardless of case.
func mergeHeaders(defaults, overrides map[string]string) nethttp.Header {
	h := make(nethttp.Header, len(defaults)+len(overrides)+1)
	h.Set(HeaderContentType, ContentTypeJSON)
	for k, v := range defaults {
		h.Set(k, v)
	}
	for k, v := range overrides {
		h.Set(k, v)
	}
	return h
}

// isJSONMediaType reports whether a Content-Type value is application/json
// or a structured +json suffix type, ignoring parameters such as charset
func isJSONMediaType(contentType string) bool {
	mt := mediaType(contentType)
	return mt == ContentTypeJSON || strings.HasSuffix(mt, "+json")
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// encodeBody produces the bytes sent for body. The result is buffered once so
// every retry attempt replays the same payload. GET requests never carry a body.
func encodeBody(method string, body any, contentType string) ([]byte, error) {
	if body == nil || method == nethttp.MethodGet {
		return nil, nil
	}

	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		return data, nil
	}

	if isJSONMediaType(contentType) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedBody, err)
		}
		return data, nil
	}

	switch b := body.(type) {
	case string:
		return []byte(b), nil
	case url.Values:
		return []byte(b.Encode()), nil
	default:
		return nil, fmt.Errorf("%w: %T cannot be sent as %q", ErrUnsupportedBody, body, contentType)
	}
}
