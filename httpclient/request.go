package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"time"
)

// Request describes one logical upstream call.
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header

	// Query is merged into URL. See EncodeQuery.
	Query map[string]any

	// Timeout bounds each attempt. Zero uses the client default.
	Timeout time.Duration

	// Success classifies the final status for Response.OK.
	// Default: 2xx.
	Success func(status int) bool

	// Retry is the retry policy. Nil disables retries.
	Retry *RetryPolicy
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	success func(int) bool
}

// OK reports whether Status is a success for the originating request.
func (r *Response) OK() bool {
	if r.success != nil {
		return r.success(r.Status)
	}
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into dst.
func (r *Response) JSON(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("httpclient: decode response body: %w", err)
	}
	return nil
}

// EncodeQuery serializes params into a query string. Nil values (and nil
// pointers) are omitted, slice and array values repeat the key once per
// element without brackets, and every other value is formatted with fmt.
// Keys are emitted in sorted order.
func EncodeQuery(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		appendValue(values, k, v)
	}
	return values.Encode()
}

func appendValue(values url.Values, key string, v any) {
	if v == nil {
		return
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return
		}
		appendValue(values, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			values.Add(key, string(rv.Bytes()))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			appendValue(values, key, rv.Index(i).Interface())
		}
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

// buildURL merges Query into URL, keeping any query already present.
func (r Request) buildURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("httpclient: invalid url: %w", err)
	}
	if len(r.Query) == 0 {
		return u.String(), nil
	}

	values := u.Query()
	for k, v := range r.Query {
		appendValue(values, k, v)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}
