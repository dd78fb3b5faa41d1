package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/reposcore/auth"
	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/resilience"
	"github.com/jonwraymond/reposcore/vcs"
)

// Metric names emitted by the provider.
const (
	MetricCacheHit  = "github.search.cache_hit"
	MetricCacheMiss = "github.search.cache_miss"
	MetricSuccess   = "github.search.success"
)

const serviceName = "github"

// ErrNilDependency is returned by New when a required collaborator is nil.
var ErrNilDependency = errors.New("github: nil dependency")

// Provider searches GitHub repositories.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: cancellation aborts the upstream call and pending retries.
// - Errors: see vcs.Provider. Cache failures never surface.
type Provider struct {
	config  Config
	client  *httpclient.Client
	store   *cache.Store
	policy  cache.Policy
	keyer   cache.Keyer
	tokens  auth.TokenSource
	limiter *resilience.RateLimiter
	retry   httpclient.RetryPolicy

	logger  observe.Logger
	metrics observe.Recorder
	instr   *observe.Instrumenter
	now     func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithTokenSource authenticates requests. Without one, requests are
// anonymous.
func WithTokenSource(ts auth.TokenSource) Option {
	return func(p *Provider) { p.tokens = ts }
}

// WithRateLimiter pauses rl when GitHub reports an exhausted quota, and
// refuses searches while it is paused. Pass the limiter the client paces
// with so both observe the same pause.
func WithRateLimiter(rl *resilience.RateLimiter) Option {
	return func(p *Provider) { p.limiter = rl }
}

// WithTelemetry attaches logging, metrics and tracing.
func WithTelemetry(tel observe.Telemetry) Option {
	return func(p *Provider) {
		tel = tel.Component(serviceName)
		p.logger = tel.Logger
		p.metrics = tel.Metrics
		p.instr = tel.Instrumenter
	}
}

// WithRetryPolicy replaces the search retry policy. Attempts below zero
// are treated as zero; other zero fields take httpclient defaults.
func WithRetryPolicy(policy httpclient.RetryPolicy) Option {
	return func(p *Provider) {
		policy.Attempts = max(policy.Attempts, 0)
		p.retry = policy
	}
}

// WithCachePolicy replaces the TTL policy applied to Config.SearchTTL.
func WithCachePolicy(policy cache.Policy) Option {
	return func(p *Provider) { p.policy = policy }
}

// WithKeyer replaces the keyer used for raw-body cache keys. A nil keyer
// keeps the default.
func WithKeyer(k cache.Keyer) Option {
	return func(p *Provider) {
		if k != nil {
			p.keyer = k
		}
	}
}

// New creates a provider. Config is validated and the client and store are
// required.
func New(config Config, client *httpclient.Client, store *cache.Store, opts ...Option) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil || store == nil {
		return nil, fmt.Errorf("%w: client and cache store are required", ErrNilDependency)
	}
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	tel := observe.NopTelemetry()
	p := &Provider{
		config: config,
		client: client,
		store:  store,
		policy: cache.Policy{DefaultTTL: defaults.SearchTTL},
		keyer:  cache.NewDefaultKeyer(),
		retry: httpclient.RetryPolicy{
			Attempts:  2,
			Strategy:  resilience.BackoffFixed,
			BaseDelay: 500 * time.Millisecond,
		},
		logger:  tel.Logger,
		metrics: tel.Metrics,
		instr:   tel.Instrumenter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Kind returns vcs.KindGitHub.
func (p *Provider) Kind() vcs.Kind { return vcs.KindGitHub }

// SearchRepositories returns one page of repositories matching params.
func (p *Provider) SearchRepositories(ctx context.Context, params vcs.SearchParams) (*vcs.SearchResult, error) {
	var result *vcs.SearchResult
	op := observe.Op{Component: serviceName, Name: "search.repositories"}
	err := p.instr.Run(ctx, op, func(ctx context.Context) error {
		var err error
		result, err = p.search(ctx, params)
		return err
	})
	return result, err
}

func (p *Provider) search(ctx context.Context, params vcs.SearchParams) (*vcs.SearchResult, error) {
	payload, err := buildPayload(params)
	if err != nil {
		return nil, err
	}

	key, err := p.keyer.Key(cache.PrefixGitHubBody, payload)
	if err != nil {
		return nil, fmt.Errorf("github: cache key: %w", err)
	}

	var cached vcs.SearchResult
	if p.store.Get(ctx, key, &cached) {
		p.metrics.Count(ctx, MetricCacheHit)
		return &cached, nil
	}
	p.metrics.Count(ctx, MetricCacheMiss)

	if err := p.checkPaused(); err != nil {
		return nil, err
	}

	resp, err := p.get(ctx, "/search/repositories", payload.query(), &p.retry)
	if err != nil {
		return nil, err
	}

	var body searchResponse
	if err := resp.JSON(&body); err != nil {
		return nil, &vcs.UpstreamAPIError{Status: http.StatusBadGateway, Body: resp.Body}
	}
	result := toResult(body)

	p.store.Set(ctx, key, result, p.policy.EffectiveTTL(p.config.SearchTTL))
	p.metrics.Count(ctx, MetricSuccess)
	p.logger.Debug(ctx, "search completed",
		observe.F("q", payload.Q),
		observe.F("page", payload.Page),
		observe.F("per_page", payload.PerPage),
		observe.F("total_count", result.TotalCount),
	)
	return result, nil
}

// get issues an authenticated GET and classifies the outcome. A nil error
// guarantees a status below 400.
func (p *Provider) get(ctx context.Context, path string, query map[string]any, retry *httpclient.RetryPolicy) (*httpclient.Response, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", p.config.APIVersion)
	header.Set("User-Agent", p.config.UserAgent)
	if err := auth.SetAuthorization(ctx, header, p.tokens); err != nil {
		return nil, &vcs.ServiceUnavailableError{Service: serviceName, Err: err}
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     p.config.BaseURL + path,
		Header:  header,
		Query:   query,
		Timeout: p.config.Timeout,
		Success: func(status int) bool { return status < 500 },
		Retry:   retry,
	})
	if err != nil {
		p.logger.Warn(ctx, "github unreachable", observe.F("path", path), observe.Err(err))
		return nil, &vcs.ServiceUnavailableError{Service: serviceName, Err: err}
	}

	if rl := rateLimited(resp, p.now()); rl != nil {
		if p.limiter != nil {
			p.limiter.PauseUntil(p.now().Add(time.Duration(rl.RetryAfterSeconds) * time.Second))
		}
		p.logger.Warn(ctx, "github rate limit exceeded",
			observe.F("path", path),
			observe.F("retry_after_s", rl.RetryAfterSeconds),
		)
		return nil, rl
	}
	if resp.Status >= 400 {
		p.logger.Warn(ctx, "github api error", observe.F("path", path), observe.F("status", resp.Status))
		return nil, &vcs.UpstreamAPIError{Status: resp.Status, Body: resp.Body}
	}
	return resp, nil
}

// checkPaused refuses calls while the shared limiter is paused by an
// earlier rate-limit reply.
func (p *Provider) checkPaused() error {
	if p.limiter == nil {
		return nil
	}
	until := p.limiter.PausedUntil()
	if until.IsZero() {
		return nil
	}
	return &vcs.RateLimitedError{RetryAfterSeconds: ceilSeconds(until.Sub(p.now()))}
}

var _ vcs.Provider = (*Provider)(nil)
