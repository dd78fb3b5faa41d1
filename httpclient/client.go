package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/resilience"
)

// Config configures the shared client.
type Config struct {
	// Timeout is the per-attempt timeout when a request sets none.
	// Default: 5s
	Timeout time.Duration

	// UserAgent is sent when a request does not set one.
	UserAgent string

	// MaxIdleConnsPerHost sizes the keep-alive pool.
	// Default: 16
	MaxIdleConnsPerHost int

	// MaxResponseBytes caps how much of a body is read.
	// Default: 10 MiB
	MaxResponseBytes int64
}

// Client issues upstream requests.
//
// Contract:
// - Concurrency: safe for concurrent use; one instance per process.
// - Context: cancellation aborts in-flight attempts and pending retries.
// - Errors: only *TransportError is returned; any HTTP status is a Response.
type Client struct {
	config  Config
	http    *http.Client
	guards  []resilience.ExecutorOption
	logger  observe.Logger
	metrics observe.Recorder
	rand    func() float64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTelemetry attaches logging and metrics.
func WithTelemetry(tel observe.Telemetry) Option {
	return func(c *Client) {
		tel = tel.Component("httpclient")
		c.logger = tel.Logger
		c.metrics = tel.Metrics
	}
}

// WithRateLimiter paces every call through rl.
func WithRateLimiter(rl *resilience.RateLimiter) Option {
	return func(c *Client) {
		if rl != nil {
			c.guards = append(c.guards, resilience.WithRateLimiter(rl))
		}
	}
}

// WithBulkhead bounds concurrent calls through b.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(c *Client) {
		if b != nil {
			c.guards = append(c.guards, resilience.WithBulkhead(b))
		}
	}
}

// WithCircuitBreaker fails calls fast while cb is open. The breaker should
// be built with IsUpstreamFailure as its IsFailure predicate.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.guards = append(c.guards, resilience.WithCircuitBreaker(cb))
		}
	}
}

// IsUpstreamFailure is the failure predicate for circuit breakers guarding
// a Client: transport failures and 5xx replies count, everything else does
// not.
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.resp.Status >= 500
	}
	return true
}

// New creates a Client with a keep-alive transport.
func New(config Config, opts ...Option) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxIdleConnsPerHost <= 0 {
		config.MaxIdleConnsPerHost = 16
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = 10 << 20
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost

	c := &Client{
		config:  config,
		http:    &http.Client{Transport: transport},
		logger:  observe.NopLogger(),
		metrics: observe.NopRecorder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes req. It returns the final Response for any completed exchange,
// including a retryable status once retries are exhausted.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	target, err := req.buildURL()
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}

	retryIf := DefaultRetryIf(req.Method)
	var policy RetryPolicy
	if req.Retry != nil {
		policy = *req.Retry
		if policy.RetryIf != nil {
			retryIf = policy.RetryIf
		}
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		Attempts:  policy.Attempts,
		Strategy:  policy.Strategy,
		BaseDelay: policy.BaseDelay,
		MaxDelay:  policy.MaxDelay,
		Rand:      c.rand,
		RetryIf: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return true
			}
			return retryIf(nil, err)
		},
		OnRetry: func(n int, err error, delay time.Duration) {
			c.logger.Warn(ctx, "retrying upstream request",
				observe.F("method", req.Method),
				observe.F("url", req.URL),
				observe.F("retry", n),
				observe.F("delay_ms", delay.Milliseconds()),
				observe.Err(err),
			)
		},
	})

	opts := append([]resilience.ExecutorOption{
		resilience.WithRetry(retry),
		resilience.WithTimeout(timeout),
	}, c.guards...)
	exec := resilience.NewExecutor(opts...)

	var final *Response
	start := time.Now()
	err = exec.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.attempt(ctx, req, target)
		if err != nil {
			return err
		}
		final = resp
		if retryIf(resp, nil) {
			return &statusError{resp: resp}
		}
		return nil
	})

	var se *statusError
	if errors.As(err, &se) {
		final, err = se.resp, nil
	}
	c.record(ctx, req.Method, final, err, time.Since(start))

	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	return final, nil
}

func (c *Client) attempt(ctx context.Context, req Request, target string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		hreq.Header.Set("User-Agent", c.config.UserAgent)
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Status:  hresp.StatusCode,
		Header:  hresp.Header,
		Body:    data,
		success: req.Success,
	}, nil
}

func (c *Client) record(ctx context.Context, method string, resp *Response, err error, elapsed time.Duration) {
	status := "error"
	if resp != nil && err == nil {
		status = strconv.Itoa(resp.Status)
	}
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("status", status),
	}
	c.metrics.Count(ctx, "http.client.requests", attrs...)
	c.metrics.Observe(ctx, "http.client.duration_ms", float64(elapsed.Microseconds())/1000, attrs...)

	if err != nil {
		c.logger.Warn(ctx, "upstream request failed", observe.F("method", method), observe.Err(err))
		return
	}
	c.logger.Debug(ctx, "upstream request completed",
		observe.F("method", method),
		observe.F("status", resp.Status),
		observe.F("duration_ms", elapsed.Milliseconds()),
	)
}
