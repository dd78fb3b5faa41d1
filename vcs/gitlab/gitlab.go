// Package gitlab registers a GitLab vcs.Provider. Search is not implemented
// yet: every call returns an empty, well-formed result.
package gitlab

import (
	"context"

	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/vcs"
)

// Provider is the GitLab placeholder.
type Provider struct {
	logger observe.Logger
}

// New creates the placeholder provider.
func New(tel observe.Telemetry) *Provider {
	return &Provider{logger: tel.Component("gitlab").Logger}
}

// Kind returns vcs.KindGitLab.
func (p *Provider) Kind() vcs.Kind { return vcs.KindGitLab }

// SearchRepositories logs a warning and returns zero results.
func (p *Provider) SearchRepositories(ctx context.Context, params vcs.SearchParams) (*vcs.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Warn(ctx, "gitlab search is a placeholder, not implemented",
		observe.F("language", params.Language),
		observe.F("created_from", params.CreatedFrom),
	)
	return &vcs.SearchResult{Items: []vcs.Repository{}}, nil
}

var _ vcs.Provider = (*Provider)(nil)
