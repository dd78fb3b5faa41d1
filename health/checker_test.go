package health

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/reposcore/vcs/github"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	r := Unhealthy("ping failed", errors.New("connection refused"))
	r.Duration = 1500 * time.Microsecond

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", got["status"])
	}
	if got["error"] != "connection refused" {
		t.Errorf("error = %v, want connection refused", got["error"])
	}
	if got["duration_ms"] != 1.5 {
		t.Errorf("duration_ms = %v, want 1.5", got["duration_ms"])
	}
	if _, ok := got["details"]; ok {
		t.Error("details should be omitted when empty")
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingChecker(t *testing.T) {
	ok := NewPingChecker("redis", fakePinger{})
	if ok.Name() != "redis" {
		t.Errorf("Name() = %q, want redis", ok.Name())
	}
	if r := ok.Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("Check() status = %v, want healthy", r.Status)
	}

	boom := errors.New("dial tcp: refused")
	bad := NewPingChecker("redis", fakePinger{err: boom})
	r := bad.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Check() status = %v, want unhealthy", r.Status)
	}
	if !errors.Is(r.Error, boom) {
		t.Errorf("Check() error = %v, want %v", r.Error, boom)
	}
}

type fakeQuota struct {
	status *github.RateLimitStatus
	err    error
}

func (f fakeQuota) RateLimit(context.Context) (*github.RateLimitStatus, error) {
	return f.status, f.err
}

func TestQuotaChecker(t *testing.T) {
	reset := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name      string
		reader    fakeQuota
		want      Status
		wantInMsg string
	}{
		{
			name:   "quota available",
			reader: fakeQuota{status: &github.RateLimitStatus{Search: github.Quota{Limit: 30, Remaining: 12, Reset: reset}}},
			want:   StatusHealthy,
		},
		{
			name:      "quota exhausted",
			reader:    fakeQuota{status: &github.RateLimitStatus{Search: github.Quota{Limit: 30, Remaining: 0, Reset: reset}}},
			want:      StatusDegraded,
			wantInMsg: "exhausted",
		},
		{
			name:      "query failed",
			reader:    fakeQuota{err: errors.New("boom")},
			want:      StatusUnhealthy,
			wantInMsg: "failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewQuotaChecker(tt.reader)
			r := c.Check(context.Background())
			if r.Status != tt.want {
				t.Errorf("Check() status = %v, want %v", r.Status, tt.want)
			}
			if !strings.Contains(r.Message, tt.wantInMsg) {
				t.Errorf("Check() message = %q, want it to contain %q", r.Message, tt.wantInMsg)
			}
			if tt.reader.err == nil && r.Details["search_reset"] != "2026-01-02T03:04:05Z" {
				t.Errorf("search_reset = %v, want 2026-01-02T03:04:05Z", r.Details["search_reset"])
			}
		})
	}
}
