package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/scoring"
	"github.com/jonwraymond/reposcore/vcs"
)

// Metric names emitted by the service.
const (
	MetricCacheHit  = "search.scored.cache_hit"
	MetricCacheMiss = "search.scored.cache_miss"
	MetricSuccess   = "search.scored.success"
)

// ErrNilDependency is returned by NewService when a collaborator is nil.
var ErrNilDependency = errors.New("search: nil dependency")

// Options configures the Service.
type Options struct {
	// ScoredTTL is how long scored responses are cached.
	// Default: 10m
	ScoredTTL time.Duration

	// Weights overrides the default scoring weights.
	Weights scoring.Overrides

	// DisableCoalescing lets concurrent identical misses each reach the
	// provider.
	// Default: false
	DisableCoalescing bool

	// Keyer derives scored cache keys.
	// Default: cache.DefaultKeyer
	Keyer cache.Keyer
}

// Response is a page of scored repositories, sorted by descending score.
type Response struct {
	TotalCount        int                        `json:"totalCount"`
	IncompleteResults bool                       `json:"incompleteResults"`
	Items             []scoring.ScoredRepository `json:"items"`
}

// Rounded returns a copy with every score rounded for presentation.
func (r *Response) Rounded() *Response {
	out := &Response{
		TotalCount:        r.TotalCount,
		IncompleteResults: r.IncompleteResults,
		Items:             make([]scoring.ScoredRepository, len(r.Items)),
	}
	for i, it := range r.Items {
		out.Items[i] = it.Rounded()
	}
	return out
}

// Service runs scored searches.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: a caller's cancellation returns immediately; a computation
// shared with other callers keeps running for them.
// - Errors: provider errors pass through unchanged (see vcs.Provider).
// Cache failures never surface.
type Service struct {
	registry *vcs.Registry
	store    *cache.Store
	engine   scoring.Engine
	opts     Options
	group    singleflight.Group

	logger  observe.Logger
	metrics observe.Recorder
	instr   *observe.Instrumenter
}

// NewService wires the pipeline.
func NewService(registry *vcs.Registry, store *cache.Store, engine scoring.Engine, opts Options, tel observe.Telemetry) (*Service, error) {
	if registry == nil || store == nil {
		return nil, fmt.Errorf("%w: registry and cache store are required", ErrNilDependency)
	}
	if opts.ScoredTTL <= 0 {
		opts.ScoredTTL = 10 * time.Minute
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	tel = tel.Component("search")
	return &Service{
		registry: registry,
		store:    store,
		engine:   engine,
		opts:     opts,
		logger:   tel.Logger,
		metrics:  tel.Metrics,
		instr:    tel.Instrumenter,
	}, nil
}

// SearchRepositoriesScored returns scored results for params from the
// registry's default provider.
func (s *Service) SearchRepositoriesScored(ctx context.Context, params vcs.SearchParams) (*Response, error) {
	provider, err := s.registry.Default()
	if err != nil {
		return nil, err
	}
	return s.run(ctx, provider, params)
}

// SearchRepositoriesScoredWith is SearchRepositoriesScored against the
// provider registered for kind.
func (s *Service) SearchRepositoriesScoredWith(ctx context.Context, kind vcs.Kind, params vcs.SearchParams) (*Response, error) {
	provider, err := s.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, provider, params)
}

func (s *Service) run(ctx context.Context, provider vcs.Provider, params vcs.SearchParams) (*Response, error) {
	canonical := Canonicalize(params)

	var resp *Response
	op := observe.Op{
		Component: "search",
		Name:      "repositories.scored",
		Attrs:     []attribute.KeyValue{attribute.String("provider", string(provider.Kind()))},
	}
	err := s.instr.Run(ctx, op, func(ctx context.Context) error {
		var err error
		resp, err = s.search(ctx, provider, canonical)
		return err
	})
	return resp, err
}

func (s *Service) search(ctx context.Context, provider vcs.Provider, canonical Params) (*Response, error) {
	key, err := scoredKey(s.opts.Keyer, provider.Kind(), canonical)
	if err != nil {
		return nil, fmt.Errorf("search: cache key: %w", err)
	}

	var cached Response
	if s.store.Get(ctx, key, &cached) {
		s.metrics.Count(ctx, MetricCacheHit)
		s.logger.Debug(ctx, "scored cache hit", observe.F("key", key))
		return &cached, nil
	}
	s.metrics.Count(ctx, MetricCacheMiss)
	s.logger.Debug(ctx, "scored cache miss",
		observe.F("key", key),
		observe.F("language", canonical.Language),
		observe.F("created_from", canonical.CreatedFrom),
		observe.F("per_page", canonical.PerPage),
		observe.F("page", canonical.Page),
	)

	if s.opts.DisableCoalescing {
		return s.compute(ctx, provider, key, canonical)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), provider, key, canonical)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug(ctx, "scored search coalesced", observe.F("key", key))
		}
		return res.Val.(*Response), nil
	}
}

// compute fetches, scores, sorts and caches one page.
func (s *Service) compute(ctx context.Context, provider vcs.Provider, key string, canonical Params) (*Response, error) {
	raw, err := provider.SearchRepositories(ctx, canonical.SearchParams())
	if err != nil {
		return nil, err
	}

	items := s.engine.Score(raw.Items, s.opts.Weights)
	scoring.SortByScore(items)

	resp := &Response{
		TotalCount:        raw.TotalCount,
		IncompleteResults: raw.IncompleteResults,
		Items:             items,
	}
	s.store.Set(ctx, key, resp, s.opts.ScoredTTL)
	s.metrics.Count(ctx, MetricSuccess)
	return resp, nil
}
