package httpclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FormField is one key/value pair of a URL-encoded form body
type FormField struct {
	Key   string
	Value string
}

// Form is a decoded application/x-www-form-urlencoded body in wire order
type Form []FormField

// Get returns the first value for key
func (f Form) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Values converts the form to url.Values, losing ordering across keys
func (f Form) Values() url.Values {
	v := make(url.Values, len(f))
	for _, field := range f {
		v.Add(field.Key, field.Value)
	}
	return v
}

// parseForm decodes a URL-encoded body, keeping pairs in the order they appear
func parseForm(body string) (Form, error) {
	var form Form
	for pair := range strings.SplitSeq(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		form = append(form, FormField{Key: key, Value: value})
	}
	return form, nil
}

var binaryMediaTypes = map[string]struct{}{
	"application/octet-stream": {},
	"application/pdf":          {},
	"application/zip":          {},
	"application/gzip":         {},
}

func isBinaryMediaType(mt string) bool {
	if _, ok := binaryMediaTypes[mt]; ok {
		return true
	}
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/")
}

// decodeSuccess turns the body of a successful response into Data:
//
//	application/json, */*+json         -> any (json.Unmarshal), ParseError on failure
//	text/*                             -> string
//	binary (octet-stream, image/*, ...) -> []byte
//	application/x-www-form-urlencoded  -> Form
//
// Empty bodies decode to nil regardless of content type. Any other content type
// fails with ErrUnsupportedResponseType.
func decodeSuccess(statusCode int, contentType string, body []byte) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	mt := mediaType(contentType)
	switch {
	case isJSONMediaType(mt):
		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, NewParseError("invalid JSON response body", statusCode, body, err)
		}
		return data, nil
	case strings.HasPrefix(mt, "text/"):
		return string(body), nil
	case isBinaryMediaType(mt):
		return body, nil
	case mt == "application/x-www-form-urlencoded":
		form, err := parseForm(string(body))
		if err != nil {
			return nil, NewParseError("invalid form response body", statusCode, body, err)
		}
		return form, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedResponseType, contentType)
	}
}

// decodeFailure extracts a diagnostic payload from a failed response:
// a JSON value when the body parses, otherwise the text
func decodeFailure(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		return data
	}
	return string(body)
}

// DecodeJSON decodes the raw body of resp into T, reporting a ParseError on failure
func DecodeJSON[T any](resp *Response) (T, error) {
	var out T
	if resp == nil {
		return out, NewParseError("nil response", 0, nil, nil)
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, NewParseError(fmt.Sprintf("cannot decode response into %T", out), resp.StatusCode, resp.Body, err)
	}
	return out, nil
}
