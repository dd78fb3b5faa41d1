package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/resilience"
	"github.com/jonwraymond/reposcore/scoring"
	"github.com/jonwraymond/reposcore/vcs/github"
)

var (
	// ErrInvalidConfig indicates a loaded configuration failed validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrInvalidEnv indicates an environment variable could not be parsed.
	ErrInvalidEnv = errors.New("config: invalid environment variable")
)

// Cache backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the whole process configuration.
type Config struct {
	Redis   cache.RedisConfig `yaml:"redis"`
	Cache   CacheConfig       `yaml:"cache"`
	GitHub  GitHubConfig      `yaml:"github"`
	HTTP    HTTPConfig        `yaml:"http"`
	Search  SearchConfig      `yaml:"search"`
	Health  HealthConfig      `yaml:"health"`
	Observe observe.Config    `yaml:"observe"`
}

// CacheConfig selects and bounds the cache.
type CacheConfig struct {
	// Backend is redis or memory.
	// Default: redis
	Backend string `yaml:"backend"`

	// MaxTTL clamps every TTL written.
	// Default: 1h
	MaxTTL time.Duration `yaml:"max_ttl"`
}

// GitHubConfig configures the GitHub provider and its credentials.
type GitHubConfig struct {
	github.Config `yaml:",inline"`

	// Token is a personal access token. Accepts secret references.
	Token string `yaml:"token"`

	// App enables GitHub App installation auth. It takes precedence over
	// Token when configured.
	App AppConfig `yaml:"app"`
}

// AppConfig identifies a GitHub App installation.
type AppConfig struct {
	AppID          string `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`

	// PrivateKey is the PEM key. Accepts secret references, typically
	// secretref:file:/path/to/key.pem.
	PrivateKey string `yaml:"private_key"`
}

// Enabled reports whether any App setting is present.
func (a AppConfig) Enabled() bool {
	return a.AppID != "" || a.InstallationID != 0 || a.PrivateKey != ""
}

// HTTPConfig configures the guards around upstream calls.
type HTTPConfig struct {
	// RatePerSecond paces upstream calls.
	// Default: 10
	RatePerSecond float64 `yaml:"rate_per_second"`

	// Burst is the token bucket size.
	// Default: 10
	Burst int `yaml:"burst"`

	// MaxWait is how long a call may wait for a token.
	// Default: 2s
	MaxWait time.Duration `yaml:"max_wait"`

	// MaxConcurrent bounds in-flight upstream calls.
	// Default: 16
	MaxConcurrent int `yaml:"max_concurrent"`

	// BreakerMaxFailures opens the breaker after this many consecutive
	// upstream failures.
	// Default: 5
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// BreakerResetTimeout is how long the breaker stays open.
	// Default: 30s
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout"`

	// RetryAttempts is the number of retries after a failed search.
	// Default: 2
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is fixed or exponential-jitter.
	// Default: fixed
	RetryBackoff string `yaml:"retry_backoff"`

	// RetryDelay is the fixed delay or the exponential base.
	// Default: 500ms
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RetryPolicy converts the retry settings. Validate rejects unknown
// backoff names beforehand.
func (h HTTPConfig) RetryPolicy() httpclient.RetryPolicy {
	strategy, _ := resilience.ParseBackoffStrategy(h.RetryBackoff)
	return httpclient.RetryPolicy{
		Attempts:  h.RetryAttempts,
		Strategy:  strategy,
		BaseDelay: h.RetryDelay,
	}
}

// SearchConfig configures the scored search service.
type SearchConfig struct {
	// ScoredTTL is how long scored responses are cached.
	// Default: 10m
	ScoredTTL time.Duration `yaml:"scored_ttl"`

	// DisableCoalescing lets concurrent identical misses each compute.
	DisableCoalescing bool `yaml:"disable_coalescing"`

	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig overrides individual scoring weights.
type WeightsConfig struct {
	Stars   *float64 `yaml:"stars"`
	Forks   *float64 `yaml:"forks"`
	Recency *float64 `yaml:"recency"`
}

// Overrides converts to scoring overrides.
func (w WeightsConfig) Overrides() scoring.Overrides {
	return scoring.Overrides{Stars: w.Stars, Forks: w.Forks, Recency: w.Recency}
}

// HealthConfig configures health checks.
type HealthConfig struct {
	// Timeout bounds a full health run.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Redis: cache.RedisConfig{
			Host:        "127.0.0.1",
			Port:        6379,
			DialTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Backend: BackendRedis,
			MaxTTL:  time.Hour,
		},
		GitHub: GitHubConfig{Config: github.DefaultConfig()},
		HTTP: HTTPConfig{
			RatePerSecond:       10,
			Burst:               10,
			MaxWait:             2 * time.Second,
			MaxConcurrent:       16,
			BreakerMaxFailures:  5,
			BreakerResetTimeout: 30 * time.Second,
			RetryAttempts:       2,
			RetryBackoff:        "fixed",
			RetryDelay:          500 * time.Millisecond,
		},
		Search: SearchConfig{ScoredTTL: 10 * time.Minute},
		Health: HealthConfig{Timeout: 5 * time.Second},
		Observe: observe.Config{
			ServiceName: "reposcore",
			Version:     "1.0.0",
			Tracing:     observe.TracingConfig{Exporter: "none"},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if err := c.GitHub.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Cache.Backend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q must be redis or memory", c.Cache.Backend))
	}
	if _, ok := resilience.ParseBackoffStrategy(c.HTTP.RetryBackoff); !ok {
		errs = append(errs, fmt.Errorf("http.retry_backoff %q must be fixed or exponential-jitter", c.HTTP.RetryBackoff))
	}
	if c.HTTP.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("http.retry_attempts %d must not be negative", c.HTTP.RetryAttempts))
	}
	if c.Redis.Port < 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port %d out of range", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db %d must not be negative", c.Redis.DB))
	}
	if c.GitHub.SearchTTL < 0 || c.Search.ScoredTTL < 0 || c.Cache.MaxTTL < 0 {
		errs = append(errs, errors.New("cache TTLs must not be negative"))
	}
	if app := c.GitHub.App; app.Enabled() {
		if app.AppID == "" || app.InstallationID <= 0 || app.PrivateKey == "" {
			errs = append(errs, errors.New("github.app requires app_id, installation_id and private_key"))
		}
	}
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
