// Package httpclient is the outbound HTTP layer for upstream search APIs.
//
// A single Client holds a keep-alive connection pool and is shared across
// requests. Each call carries its own timeout and RetryPolicy; retries cover
// transport failures, 429 and 5xx replies. Do returns a Response for every
// completed exchange, including an error status whose retries ran out, and
// reserves errors for transport failures (*TransportError).
//
// Optional guards from package resilience (rate limiter, circuit breaker,
// bulkhead) wrap the whole call, so one logical request consumes one token
// and one slot however many attempts it takes.
package httpclient
