package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how the delay before a retry is chosen.
type BackoffStrategy int

const (
	// BackoffFixed waits BaseDelay before every retry.
	BackoffFixed BackoffStrategy = iota

	// BackoffExponentialJitter waits a uniformly random duration in
	// [0, min(MaxDelay, BaseDelay*2^(retry-1))).
	BackoffExponentialJitter
)

// String returns the config name of the strategy.
func (s BackoffStrategy) String() string {
	switch s {
	case BackoffFixed:
		return "fixed"
	case BackoffExponentialJitter:
		return "exponential-jitter"
	default:
		return "unknown"
	}
}

// ParseBackoffStrategy maps a config name onto a strategy. Unknown names
// yield BackoffFixed and false.
func ParseBackoffStrategy(s string) (BackoffStrategy, bool) {
	switch s {
	case "fixed", "":
		return BackoffFixed, true
	case "exponential-jitter", "exponential":
		return BackoffExponentialJitter, true
	default:
		return BackoffFixed, false
	}
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// Attempts is the number of retries after the first call. Zero disables
	// retrying.
	Attempts int

	// Strategy is the backoff strategy.
	// Default: BackoffFixed
	Strategy BackoffStrategy

	// BaseDelay is the fixed delay, or the exponential base.
	// Default: 500ms
	BaseDelay time.Duration

	// MaxDelay caps exponential delays.
	// Default: 3s
	MaxDelay time.Duration

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry with the 1-based retry number.
	OnRetry func(retry int, err error, delay time.Duration)

	// Rand returns a float in [0, 1). Default: math/rand/v2.Float64.
	Rand func() float64
}

// Retry implements retry with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.Attempts < 0 {
		config.Attempts = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 500 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 3 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	if config.Rand == nil {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		config.Rand = rand.Float64
	}

	return &Retry{config: config}
}

// Execute runs op, retrying while RetryIf accepts the error and attempts
// remain. It returns nil, the first non-retryable error, the last error once
// retries are exhausted, or the context error if cancelled while waiting.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for retry := 0; ; retry++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if retry >= r.config.Attempts || !r.config.RetryIf(err) {
			return err
		}

		delay := r.Delay(retry + 1)
		if r.config.OnRetry != nil {
			r.config.OnRetry(retry+1, err, delay)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Delay returns the wait before the given 1-based retry.
func (r *Retry) Delay(retry int) time.Duration {
	if r.config.Strategy != BackoffExponentialJitter {
		return r.config.BaseDelay
	}

	ceiling := r.config.BaseDelay
	// Stop doubling once the cap is reached so large retry numbers cannot overflow.
	for i := 1; i < retry && ceiling < r.config.MaxDelay; i++ {
		ceiling *= 2
	}
	if ceiling > r.config.MaxDelay {
		ceiling = r.config.MaxDelay
	}

	return time.Duration(r.config.Rand() * float64(ceiling))
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
