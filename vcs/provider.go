package vcs

import (
	"context"
	"fmt"
	"sort"
)

// Provider searches one upstream.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: SearchRepositories must honor cancellation.
// - Errors: failures are *BadRequestError, *RateLimitedError,
// *UpstreamAPIError or *ServiceUnavailableError.
type Provider interface {
	// Kind identifies the provider.
	Kind() Kind

	// SearchRepositories returns one page of canonical results.
	SearchRepositories(ctx context.Context, params SearchParams) (*SearchResult, error)
}

// Registry maps kinds to providers. It is built once and read-only after.
type Registry struct {
	providers map[Kind]Provider
}

// NewRegistry builds a registry from providers. Nil providers and repeated
// kinds are rejected.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[Kind]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			return nil, ErrNilProvider
		}
		kind := p.Kind()
		if _, dup := r.providers[kind]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, kind)
		}
		r.providers[kind] = p
	}
	return r, nil
}

// Get returns the provider registered for kind.
func (r *Registry) Get(kind Kind) (Provider, error) {
	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind=%s", ErrProviderNotFound, kind)
	}
	return p, nil
}

// Default returns the first registered provider in Precedence order.
func (r *Registry) Default() (Provider, error) {
	for _, kind := range Precedence {
		if p, ok := r.providers[kind]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no default provider registered", ErrProviderNotFound)
}

// Kinds lists registered kinds: Precedence order first, then any others
// sorted by name.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.providers))
	seen := make(map[Kind]bool, len(Precedence))
	for _, k := range Precedence {
		if _, ok := r.providers[k]; ok {
			kinds = append(kinds, k)
			seen[k] = true
		}
	}
	var rest []Kind
	for k := range r.providers {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(kinds, rest...)
}
