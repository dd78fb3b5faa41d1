package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/jonwraymond/reposcore/resilience"
)

// TransportError reports a request that never produced an HTTP response:
// DNS, dial, TLS, reset, timeout, or a local guard rejecting the call.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether the failure was a timeout.
func (e *TransportError) IsTimeout() bool {
	if errors.Is(e.Err, resilience.ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// isConnectionError reports failures where the server cannot have processed
// the request, which makes retrying safe for any method.
func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// statusError carries a retryable response through the retry loop.
type statusError struct {
	resp *Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: retryable status %d", e.resp.Status)
}
