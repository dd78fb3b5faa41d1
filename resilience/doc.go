// Package resilience guards calls to the upstream search APIs.
//
// Every pattern wraps a func(context.Context) error and can be used on its
// own or composed through an Executor:
//
//   - Retry: re-runs a failed call after a fixed or exponential-jitter delay.
//     The HTTP client uses it for transport failures, 429 and 5xx replies.
//   - Timeout: bounds a single attempt through its context.
//   - CircuitBreaker: fails fast after consecutive upstream failures.
//   - RateLimiter: token bucket pacing outgoing requests. It can be paused
//     until an upstream quota resets.
//   - Bulkhead: bounds in-flight upstream requests.
//
// Composition order, outermost first, is rate limiter, bulkhead, circuit
// breaker, retry, timeout. A retried call therefore consumes one token and
// one bulkhead slot, and every attempt gets its own deadline.
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        Attempts: 2,
//	        Strategy: resilience.BackoffFixed,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//	err := exec.Execute(ctx, callGitHub)
package resilience
