package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/reposcore/auth"
	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/config"
	"github.com/jonwraymond/reposcore/health"
	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/resilience"
	"github.com/jonwraymond/reposcore/scoring"
	"github.com/jonwraymond/reposcore/search"
	"github.com/jonwraymond/reposcore/vcs"
	"github.com/jonwraymond/reposcore/vcs/github"
	"github.com/jonwraymond/reposcore/vcs/gitlab"
)

// app is the composition root. Every shared resource is built once here
// and released by Close.
type app struct {
	tel      observe.Telemetry
	search   *search.Service
	health   *health.Aggregator
	registry *vcs.Registry

	observer observe.Observer
	redis    *cache.RedisBackend
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	tel, err := observe.TelemetryFromObserver(obs)
	if err != nil {
		return nil, err
	}
	a := &app{tel: tel, observer: obs}

	var backend cache.Backend
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		backend = cache.NewMemoryBackend()
	default:
		a.redis = cache.NewRedisBackend(cfg.Redis)
		backend = a.redis
	}
	store := cache.NewStore(backend, tel)

	logger := tel.Logger.WithComponent("reposcore")
	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Rate:        cfg.HTTP.RatePerSecond,
		Burst:       cfg.HTTP.Burst,
		WaitOnLimit: true,
		MaxWait:     cfg.HTTP.MaxWait,
	})
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.HTTP.BreakerMaxFailures,
		ResetTimeout: cfg.HTTP.BreakerResetTimeout,
		IsFailure:    httpclient.IsUpstreamFailure,
		OnStateChange: func(from, to resilience.State) {
			logger.Warn(context.Background(), "upstream circuit state changed",
				observe.F("from", from.String()), observe.F("to", to.String()))
		},
	})
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: cfg.HTTP.MaxConcurrent,
		MaxWait:       cfg.HTTP.MaxWait,
	})
	client := httpclient.New(httpclient.Config{
		Timeout:   cfg.GitHub.Timeout,
		UserAgent: cfg.GitHub.UserAgent,
	},
		httpclient.WithTelemetry(tel),
		httpclient.WithRateLimiter(limiter),
		httpclient.WithBulkhead(bulkhead),
		httpclient.WithCircuitBreaker(breaker),
	)

	tokens, err := tokenSource(cfg, client, tel)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	keyer := cache.NewDefaultKeyer()
	gh, err := github.New(cfg.GitHub.Config, client, store,
		github.WithTokenSource(tokens),
		github.WithKeyer(keyer),
		github.WithRateLimiter(limiter),
		github.WithRetryPolicy(cfg.HTTP.RetryPolicy()),
		github.WithTelemetry(tel),
		github.WithCachePolicy(cache.Policy{DefaultTTL: cfg.GitHub.SearchTTL, MaxTTL: cfg.Cache.MaxTTL}),
	)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.registry, err = vcs.NewRegistry(gh, gitlab.New(tel))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	scoredTTL := cache.Policy{DefaultTTL: cfg.Search.ScoredTTL, MaxTTL: cfg.Cache.MaxTTL}.EffectiveTTL(0)
	a.search, err = search.NewService(a.registry, store, scoring.Engine{}, search.Options{
		ScoredTTL:         scoredTTL,
		Weights:           cfg.Search.Weights.Overrides(),
		DisableCoalescing: cfg.Search.DisableCoalescing,
		Keyer:             keyer,
	}, tel)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	checkers := []health.Checker{health.NewQuotaChecker(gh)}
	if a.redis != nil {
		checkers = append(checkers, health.NewPingChecker("redis", a.redis))
	}
	a.health, err = health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Health.Timeout}, checkers...)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// tokenSource prefers GitHub App auth, then a static token, then anonymous
// access.
func tokenSource(cfg *config.Config, client *httpclient.Client, tel observe.Telemetry) (auth.TokenSource, error) {
	if app := cfg.GitHub.App; app.Enabled() {
		src, err := auth.NewAppInstallationSource(auth.AppConfig{
			AppID:          app.AppID,
			InstallationID: app.InstallationID,
			PrivateKey:     []byte(app.PrivateKey),
			BaseURL:        cfg.GitHub.BaseURL,
			APIVersion:     cfg.GitHub.APIVersion,
		}, client, tel)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	if cfg.GitHub.Token != "" {
		return auth.StaticToken(cfg.GitHub.Token), nil
	}
	return nil, nil
}

// Close releases the Redis pool and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.observer != nil {
		errs = append(errs, a.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
