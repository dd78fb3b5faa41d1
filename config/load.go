package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/reposcore/secret"
)

// Options controls where Load reads from.
type Options struct {
	// Path is an optional YAML file.
	Path string

	// EnvFiles are dotenv files. Missing files are ignored. Process
	// environment variables win over dotenv values.
	// Default: .env
	EnvFiles []string

	// Lookup reads the process environment.
	// Default: os.LookupEnv
	Lookup func(string) (string, bool)

	// Resolver resolves secret references in credential fields.
	// Default: secret.DefaultResolver()
	Resolver *secret.Resolver
}

// Load builds a validated Config.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env"}
	}
	if opts.Resolver == nil {
		opts.Resolver = secret.DefaultResolver()
	}

	cfg := Default()
	if opts.Path != "" {
		if err := loadFile(opts.Path, &cfg); err != nil {
			return nil, err
		}
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := opts.Lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if err := opts.Resolver.ResolveFields(ctx, map[string]*string{
		"redis.password":         &cfg.Redis.Password,
		"github.token":           &cfg.GitHub.Token,
		"github.app.private_key": &cfg.GitHub.App.PrivateKey,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func readEnvFiles(paths []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		vals, err := godotenv.Read(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
		for k, v := range vals {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

// envReader collects parse failures so that every bad variable is
// reported at once.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) setString(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) setInt(key string, dst *int) {
	if v, ok := r.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidEnv, key, v))
			return
		}
		*dst = n
	}
}

func (r *envReader) setInt64(key string, dst *int64) {
	if v, ok := r.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidEnv, key, v))
			return
		}
		*dst = n
	}
}

func (r *envReader) setBool(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidEnv, key, v))
			return
		}
		*dst = b
	}
}

// setMillis reads a duration expressed in milliseconds.
func (r *envReader) setMillis(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			r.errs = append(r.errs, fmt.Errorf("%w: %s=%q is not a millisecond count", ErrInvalidEnv, key, v))
			return
		}
		*dst = time.Duration(n) * time.Millisecond
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.setString("REDIS_HOST", &cfg.Redis.Host)
	r.setInt("REDIS_PORT", &cfg.Redis.Port)
	r.setString("REDIS_PASSWORD", &cfg.Redis.Password)
	r.setInt("REDIS_DB", &cfg.Redis.DB)
	r.setBool("REDIS_TLS_ENABLED", &cfg.Redis.TLS)
	r.setString("CACHE_BACKEND", &cfg.Cache.Backend)

	r.setString("GITHUB_API_BASE_URL", &cfg.GitHub.BaseURL)
	r.setString("GITHUB_API_VERSION", &cfg.GitHub.APIVersion)
	r.setString("GITHUB_TOKEN", &cfg.GitHub.Token)
	r.setMillis("GITHUB_TIMEOUT_MS", &cfg.GitHub.Timeout)
	r.setString("GITHUB_APP_ID", &cfg.GitHub.App.AppID)
	r.setInt64("GITHUB_APP_INSTALLATION_ID", &cfg.GitHub.App.InstallationID)
	r.setString("GITHUB_APP_PRIVATE_KEY", &cfg.GitHub.App.PrivateKey)

	r.setMillis("CACHE_SEARCH_TTL_MS", &cfg.GitHub.SearchTTL)
	r.setMillis("CACHE_SCORED_TTL_MS", &cfg.Search.ScoredTTL)

	r.setString("LOG_LEVEL", &cfg.Observe.Logging.Level)

	return errors.Join(r.errs...)
}
