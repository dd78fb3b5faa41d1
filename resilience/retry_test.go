package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{Attempts: -1})

	if r.config.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", r.config.Attempts)
	}
	if r.config.BaseDelay != 500*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 500ms", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 3*time.Second {
		t.Errorf("MaxDelay = %v, want 3s", r.config.MaxDelay)
	}
	if r.config.Strategy != BackoffFixed {
		t.Errorf("Strategy = %v, want fixed", r.config.Strategy)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{Attempts: 3, BaseDelay: time.Millisecond})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_AttemptsCountRetriesAfterFirst(t *testing.T) {
	r := NewRetry(RetryConfig{Attempts: 2, BaseDelay: time.Millisecond})
	testErr := errors.New("persistent error")

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return testErr
	})
	if !errors.Is(err, testErr) {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
}

func TestRetry_ZeroAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{})

	calls := 0
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_RetryIf(t *testing.T) {
	retryable := errors.New("retryable")
	fatal := errors.New("fatal")

	r := NewRetry(RetryConfig{
		Attempts:  5,
		BaseDelay: time.Millisecond,
		RetryIf:   func(err error) bool { return errors.Is(err, retryable) },
	})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return retryable
		}
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("Execute() error = %v, want %v", err, fatal)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var retries []int
	r := NewRetry(RetryConfig{
		Attempts:  2,
		BaseDelay: time.Millisecond,
		OnRetry: func(retry int, err error, delay time.Duration) {
			retries = append(retries, retry)
			if delay != time.Millisecond {
				t.Errorf("delay = %v, want 1ms", delay)
			}
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry calls = %v, want [1 2]", retries)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	r := NewRetry(RetryConfig{Attempts: 3, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Execute(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_FixedDelay(t *testing.T) {
	r := NewRetry(RetryConfig{BaseDelay: 500 * time.Millisecond})
	for retry := 1; retry <= 4; retry++ {
		if got := r.Delay(retry); got != 500*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 500ms", retry, got)
		}
	}
}

func TestRetry_ExponentialJitterBounds(t *testing.T) {
	tests := []struct {
		retry   int
		ceiling time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 3 * time.Second},
		{10, 3 * time.Second},
		{200, 3 * time.Second},
	}

	for _, tt := range tests {
		// Rand close to 1 must approach but stay below the ceiling.
		hi := NewRetry(RetryConfig{
			Strategy: BackoffExponentialJitter,
			Rand:     func() float64 { return 0.999999 },
		})
		got := hi.Delay(tt.retry)
		if got >= tt.ceiling || got < tt.ceiling*99/100 {
			t.Errorf("Delay(%d) with rand~1 = %v, want just below %v", tt.retry, got, tt.ceiling)
		}

		lo := NewRetry(RetryConfig{
			Strategy: BackoffExponentialJitter,
			Rand:     func() float64 { return 0 },
		})
		if got := lo.Delay(tt.retry); got != 0 {
			t.Errorf("Delay(%d) with rand=0 = %v, want 0", tt.retry, got)
		}
	}
}

func TestRetry_ExponentialJitterRandomRange(t *testing.T) {
	r := NewRetry(RetryConfig{Strategy: BackoffExponentialJitter})
	for i := 0; i < 200; i++ {
		if d := r.Delay(3); d < 0 || d >= 2*time.Second {
			t.Fatalf("Delay(3) = %v, want in [0, 2s)", d)
		}
	}
}

func TestParseBackoffStrategy(t *testing.T) {
	tests := []struct {
		in     string
		want   BackoffStrategy
		wantOK bool
	}{
		{"fixed", BackoffFixed, true},
		{"", BackoffFixed, true},
		{"exponential-jitter", BackoffExponentialJitter, true},
		{"linear", BackoffFixed, false},
	}
	for _, tt := range tests {
		got, ok := ParseBackoffStrategy(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseBackoffStrategy(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if BackoffExponentialJitter.String() != "exponential-jitter" {
		t.Errorf("String() = %q", BackoffExponentialJitter.String())
	}
}
