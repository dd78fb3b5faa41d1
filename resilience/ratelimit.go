package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of requests allowed per second.
	// Default: 10
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit makes Execute wait for a token instead of failing.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the longest Wait will block. A wait that would exceed it
	// fails immediately with ErrRateLimitExceeded.
	// Default: 1 second
	MaxWait time.Duration
}

// RateLimiter is a token bucket. It can additionally be paused until a
// point in time, which the providers use when the upstream reports its
// quota is exhausted.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
	pausedUntil time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.lastRefresh = rl.now()
	return rl
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	_, ok := rl.reserveLocked(false)
	return ok
}

// Wait blocks until a token is available, the context ends, or the wait
// would exceed MaxWait.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	wait, ok := rl.reserveLocked(true)
	rl.mu.Unlock()
	if !ok {
		return ErrRateLimitExceeded
	}
	if wait <= 0 {
		return nil
	}

	if err := sleep(ctx, wait); err != nil {
		// Hand the reserved token back.
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return err
	}
	return nil
}

// reserveLocked takes one token. When none is available and reserve is
// set, it borrows against future refill and returns how long the caller must
// wait; a wait beyond MaxWait is refused.
func (rl *RateLimiter) reserveLocked(reserve bool) (time.Duration, bool) {
	now := rl.now()
	rl.refillLocked(now)

	if now.Before(rl.pausedUntil) {
		return 0, false
	}
	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}
	if !reserve {
		return 0, false
	}

	wait := time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
	if wait > rl.config.MaxWait {
		return 0, false
	}
	rl.tokens--
	return wait, true
}

// Execute runs the operation if allowed by rate limit.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}

	return op(ctx)
}

// PauseUntil rejects every request until t. Earlier deadlines than the
// current pause are ignored.
func (rl *RateLimiter) PauseUntil(t time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if t.After(rl.pausedUntil) {
		rl.pausedUntil = t
	}
}

// PausedUntil returns the end of the current pause, or the zero time.
func (rl *RateLimiter) PausedUntil() time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.now().Before(rl.pausedUntil) {
		return time.Time{}
	}
	return rl.pausedUntil
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.lastRefresh)
	if elapsed <= 0 {
		return
	}
	rl.lastRefresh = now

	rl.tokens += elapsed.Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(rl.now())
	return rl.tokens
}

// Reset refills the bucket and clears any pause.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Burst)
	rl.lastRefresh = rl.now()
	rl.pausedUntil = time.Time{}
}
