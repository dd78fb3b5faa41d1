package github

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/vcs"
)

// DefaultRetryAfter is used when a rate-limit reply carries no timing hint.
const DefaultRetryAfter = 60

// rateLimited classifies resp as a rate-limit reply: 403 with a positive
// Retry-After or X-RateLimit-Remaining of 0, or any 429. The wait is taken
// from Retry-After, then X-RateLimit-Reset, then DefaultRetryAfter.
func rateLimited(resp *httpclient.Response, now time.Time) *vcs.RateLimitedError {
	if resp.Status != http.StatusForbidden && resp.Status != http.StatusTooManyRequests {
		return nil
	}
	retryAfter, _ := headerInt(resp.Header, "Retry-After")
	remaining, hasRemaining := headerInt(resp.Header, "X-RateLimit-Remaining")

	limited := resp.Status == http.StatusTooManyRequests || retryAfter > 0 || (hasRemaining && remaining == 0)
	if !limited {
		return nil
	}

	secs := DefaultRetryAfter
	if retryAfter > 0 {
		secs = int(retryAfter)
	} else if reset, ok := headerInt(resp.Header, "X-RateLimit-Reset"); ok {
		if wait := ceilSeconds(time.Unix(reset, 0).Sub(now)); wait > 0 {
			secs = wait
		}
	}
	return &vcs.RateLimitedError{RetryAfterSeconds: secs}
}

func headerInt(h http.Header, name string) (int64, bool) {
	v := strings.TrimSpace(h.Get(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Quota is one rate-limit bucket reported by /rate_limit.
type Quota struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
}

// RateLimitStatus holds the buckets relevant to this provider.
type RateLimitStatus struct {
	Core   Quota `json:"core"`
	Search Quota `json:"search"`
}

type rateLimitResponse struct {
	Resources map[string]struct {
		Limit     int   `json:"limit"`
		Remaining int   `json:"remaining"`
		Used      int   `json:"used"`
		Reset     int64 `json:"reset"`
	} `json:"resources"`
}

// RateLimit reads the caller's current quotas. The endpoint does not count
// against any quota.
func (p *Provider) RateLimit(ctx context.Context) (*RateLimitStatus, error) {
	var status *RateLimitStatus
	op := observe.Op{Component: serviceName, Name: "rate_limit"}
	err := p.instr.Run(ctx, op, func(ctx context.Context) error {
		resp, err := p.get(ctx, "/rate_limit", nil, nil)
		if err != nil {
			return err
		}
		var body rateLimitResponse
		if err := resp.JSON(&body); err != nil {
			return &vcs.UpstreamAPIError{Status: http.StatusBadGateway, Body: resp.Body}
		}
		quota := func(name string) Quota {
			r := body.Resources[name]
			return Quota{Limit: r.Limit, Remaining: r.Remaining, Used: r.Used, Reset: time.Unix(r.Reset, 0).UTC()}
		}
		status = &RateLimitStatus{Core: quota("core"), Search: quota("search")}
		return nil
	})
	return status, err
}
