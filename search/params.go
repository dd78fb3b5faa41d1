package search

import (
	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/vcs"
)

// Public paging defaults.
const (
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// Params are the canonical public search parameters. Only these fields
// take part in the scored cache key.
type Params struct {
	Language    string `json:"language,omitempty"`
	CreatedFrom string `json:"createdFrom,omitempty"`
	PerPage     int    `json:"perPage"`
	Page        int    `json:"page"`
}

// SearchParams converts p back to provider parameters.
func (p Params) SearchParams() vcs.SearchParams {
	return vcs.SearchParams{
		Language:    p.Language,
		CreatedFrom: p.CreatedFrom,
		PerPage:     p.PerPage,
		Page:        p.Page,
	}
}

// Canonicalize keeps language, createdFrom and paging, clamps PerPage to
// [1, MaxPerPage] with DefaultPerPage when unset, and raises Page to at
// least 1. Sort and order are dropped.
func Canonicalize(params vcs.SearchParams) Params {
	perPage := params.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	return Params{
		Language:    params.Language,
		CreatedFrom: params.CreatedFrom,
		PerPage:     min(max(perPage, 1), MaxPerPage),
		Page:        max(params.Page, 1),
	}
}

// keyPayload is hashed into the scored cache key.
type keyPayload struct {
	Provider vcs.Kind `json:"provider"`
	Params   Params   `json:"params"`
}

// ScoredPrefix returns the scored-result key prefix for kind.
func ScoredPrefix(kind vcs.Kind) cache.Prefix {
	switch kind {
	case vcs.KindGitHub:
		return cache.PrefixGitHubScored
	case vcs.KindGitLab:
		return cache.PrefixGitLabScored
	default:
		return cache.Prefix("scored:" + string(kind) + ":search")
	}
}

// ScoredKey is the scored cache key for canonical params served by kind.
func ScoredKey(kind vcs.Kind, params Params) (string, error) {
	return scoredKey(cache.NewDefaultKeyer(), kind, params)
}

func scoredKey(k cache.Keyer, kind vcs.Kind, params Params) (string, error) {
	return k.Key(ScoredPrefix(kind), keyPayload{Provider: kind, Params: params})
}
