package github

import (
	"errors"
	"time"
)

// ErrNotConfigured is returned when a required setting is empty.
var ErrNotConfigured = errors.New("github: not configured")

// Config configures the GitHub provider.
type Config struct {
	// BaseURL is the REST API root.
	// Default: https://api.github.com
	BaseURL string `yaml:"base_url"`

	// APIVersion is sent as X-GitHub-Api-Version.
	// Default: 2022-11-28
	APIVersion string `yaml:"api_version"`

	// Timeout bounds each upstream attempt.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// SearchTTL is how long raw search results are cached.
	// Default: 5m
	SearchTTL time.Duration `yaml:"search_ttl"`

	// UserAgent identifies the client to GitHub.
	// Default: version-control-system-repository-scorer/1.0
	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://api.github.com",
		APIVersion: "2022-11-28",
		Timeout:    5 * time.Second,
		SearchTTL:  5 * time.Minute,
		UserAgent:  "version-control-system-repository-scorer/1.0",
	}
}

// Validate reports missing required settings.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.Join(ErrNotConfigured, errors.New("github.baseUrl not configured"))
	}
	if c.APIVersion == "" {
		return errors.Join(ErrNotConfigured, errors.New("github.apiVersion not configured"))
	}
	return nil
}
