package health

import (
	"context"
	"time"

	"github.com/jonwraymond/reposcore/vcs/github"
)

// QuotaReader reports upstream rate-limit quotas.
type QuotaReader interface {
	RateLimit(ctx context.Context) (*github.RateLimitStatus, error)
}

// QuotaChecker reports the GitHub search quota. It is degraded while the
// search quota is exhausted and unhealthy when GitHub cannot be queried.
type QuotaChecker struct {
	reader QuotaReader
}

// NewQuotaChecker creates a QuotaChecker.
func NewQuotaChecker(r QuotaReader) *QuotaChecker {
	return &QuotaChecker{reader: r}
}

// Name returns "github".
func (c *QuotaChecker) Name() string { return "github" }

// Check reads the rate-limit status. It is degraded when the search quota
// is spent and unhealthy when GitHub cannot be read.
func (c *QuotaChecker) Check(ctx context.Context) Result {
	status, err := c.reader.RateLimit(ctx)
	if err != nil {
		return Unhealthy("rate limit query failed", err)
	}

	details := map[string]any{
		"search_limit":     status.Search.Limit,
		"search_remaining": status.Search.Remaining,
		"search_reset":     status.Search.Reset.Format(time.RFC3339),
		"core_remaining":   status.Core.Remaining,
	}
	if status.Search.Remaining <= 0 {
		return Degraded("search quota exhausted").WithDetails(details)
	}
	return Healthy("search quota available").WithDetails(details)
}
