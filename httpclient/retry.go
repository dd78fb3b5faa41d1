package httpclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/reposcore/resilience"
)

// RetryPolicy configures retries for one request.
type RetryPolicy struct {
	// Attempts is the number of retries after the first attempt.
	Attempts int

	// Strategy selects fixed or exponential-jitter delays.
	// Default: resilience.BackoffFixed
	Strategy resilience.BackoffStrategy

	// BaseDelay is the fixed delay or the exponential base.
	// Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps exponential delays.
	// Default: 3s
	MaxDelay time.Duration

	// RetryIf decides whether an attempt is retried. Exactly one of resp and
	// err is non-nil.
	// Default: DefaultRetryIf for the request method.
	RetryIf func(resp *Response, err error) bool
}

// DefaultRetryIf returns the default predicate for method: a transport
// failure on an idempotent request, a connection failure on any request,
// HTTP 429, or any HTTP status >= 500.
func DefaultRetryIf(method string) func(*Response, error) bool {
	idempotent := isIdempotent(method)
	return func(resp *Response, err error) bool {
		if err != nil {
			if errors.Is(err, resilience.ErrTimeout) {
				return idempotent
			}
			return idempotent || isConnectionError(err)
		}
		return resp.Status == http.StatusTooManyRequests || resp.Status >= 500
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
