package github

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/reposcore/auth"
	"github.com/jonwraymond/reposcore/cache"
	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/resilience"
	"github.com/jonwraymond/reposcore/vcs"
)

const sampleBody = `{
  "total_count": 2,
  "incomplete_results": false,
  "items": [
    {
      "id": 1, "name": "alpha", "full_name": "acme/alpha",
      "html_url": "https://github.com/acme/alpha",
      "stargazers_count": 1200, "forks_count": 80,
      "updated_at": "2025-01-02T03:04:05Z", "created_at": "2020-01-01T00:00:00Z",
      "language": "Go", "description": "first",
      "owner": {"login": "acme", "id": 9, "avatar_url": "https://avatars/9", "html_url": "https://github.com/acme"},
      "license": {"key": "mit", "name": "MIT License", "url": "https://api.github.com/licenses/mit", "spdx_id": "MIT", "node_id": "L1", "html_url": ""}
    },
    {
      "id": 2, "name": "beta", "full_name": "acme/beta",
      "html_url": "https://github.com/acme/beta",
      "stargazers_count": 3, "forks_count": 0,
      "updated_at": "2024-06-01T00:00:00Z", "created_at": "2024-01-01T00:00:00Z",
      "language": null, "description": null,
      "owner": {"login": "acme", "id": 9, "avatar_url": "", "html_url": ""},
      "license": null
    }
  ]
}`

type fixture struct {
	provider *Provider
	backend  *cache.MemoryBackend
	reader   *metric.ManualReader
	logs     *bytes.Buffer
	calls    *atomic.Int32
	last     atomic.Pointer[http.Request]
}

func newFixture(t *testing.T, handler http.HandlerFunc, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{calls: new(atomic.Int32), logs: new(bytes.Buffer)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.last.Store(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	f.reader = metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(f.reader))
	tel := observe.Telemetry{
		Logger:  observe.NewLoggerWithWriter("debug", f.logs),
		Metrics: observe.NewRecorder(mp.Meter("test")),
	}

	f.backend = cache.NewMemoryBackend()
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	p, err := New(cfg, httpclient.New(httpclient.Config{}), cache.NewStore(f.backend, tel),
		append([]Option{WithTelemetry(tel)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p.retry.BaseDelay = time.Millisecond
	f.provider = p
	return f
}

func (f *fixture) count(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := f.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(sampleBody))
}

func TestProvider_ClampsPagingAndBuildsQuery(t *testing.T) {
	f := newFixture(t, okHandler)

	_, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{
		Language:    "go",
		CreatedFrom: "2024-01-01",
		PerPage:     200,
		Page:        0,
	})
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}

	r := f.last.Load()
	if r.URL.Path != "/search/repositories" {
		t.Errorf("path = %q, want /search/repositories", r.URL.Path)
	}
	q := r.URL.Query()
	want := map[string]string{
		"q":        "created:>=2024-01-01 language:go",
		"per_page": "100",
		"page":     "1",
		"sort":     "stars",
		"order":    "desc",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
}

func TestProvider_Headers(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantAuth string
	}{
		{name: "anonymous"},
		{name: "token", opts: []Option{WithTokenSource(auth.StaticToken("ghp_secret"))}, wantAuth: "Bearer ghp_secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, okHandler, tt.opts...)
			if _, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{}); err != nil {
				t.Fatalf("SearchRepositories() error = %v", err)
			}
			r := f.last.Load()
			if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
				t.Errorf("Accept = %q", got)
			}
			if got := r.Header.Get("X-GitHub-Api-Version"); got != "2022-11-28" {
				t.Errorf("X-GitHub-Api-Version = %q", got)
			}
			if got := r.Header.Get("User-Agent"); got != "version-control-system-repository-scorer/1.0" {
				t.Errorf("User-Agent = %q", got)
			}
			if got := r.Header.Get("Authorization"); got != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", got, tt.wantAuth)
			}
			if got := r.URL.Query().Get("q"); got != "stars:>0" {
				t.Errorf("q = %q, want stars:>0", got)
			}
		})
	}
}

func TestProvider_MapsRepositories(t *testing.T) {
	f := newFixture(t, okHandler)
	res, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{Language: "go"})
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}
	if res.TotalCount != 2 || len(res.Items) != 2 {
		t.Fatalf("result = %+v, want 2 items", res)
	}

	a := res.Items[0]
	if a.FullName != "acme/alpha" || a.Stars != 1200 || a.Forks != 80 {
		t.Errorf("alpha = %+v", a)
	}
	if a.Language == nil || *a.Language != "Go" {
		t.Errorf("alpha.Language = %v, want Go", a.Language)
	}
	if a.License == nil || a.License.SPDXID != "MIT" {
		t.Errorf("alpha.License = %+v, want MIT", a.License)
	}
	if a.Owner.AvatarURL != "https://avatars/9" {
		t.Errorf("alpha.Owner.AvatarURL = %q", a.Owner.AvatarURL)
	}

	b := res.Items[1]
	if b.Language != nil || b.Description != nil || b.License != nil {
		t.Errorf("beta nullable fields = %v %v %v, want nil", b.Language, b.Description, b.License)
	}
}

func TestProvider_CacheHitSkipsNetwork(t *testing.T) {
	f := newFixture(t, okHandler)
	params := vcs.SearchParams{Language: "go", PerPage: 10}

	first, err := f.provider.SearchRepositories(context.Background(), params)
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := f.provider.SearchRepositories(context.Background(), params)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}

	if n := f.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if second.Items[0].FullName != first.Items[0].FullName {
		t.Errorf("cached result differs: %+v vs %+v", second.Items[0], first.Items[0])
	}
	if got := f.count(t, MetricCacheHit); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCacheHit, got)
	}
	if got := f.count(t, MetricCacheMiss); got != 1 {
		t.Errorf("%s = %d, want 1", MetricCacheMiss, got)
	}
	if got := f.count(t, MetricSuccess); got != 1 {
		t.Errorf("%s = %d, want 1", MetricSuccess, got)
	}
}

func TestProvider_CacheKeyIsCanonicalPayload(t *testing.T) {
	f := newFixture(t, okHandler)
	if _, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{PerPage: 500}); err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}
	key, err := cache.BuildKey(cache.PrefixGitHubBody, searchPayload{Q: "stars:>0", PerPage: 100, Page: 1, Sort: "stars", Order: "desc"})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if _, ok, _ := f.backend.Get(context.Background(), key); !ok {
		t.Errorf("no cache entry under %s", key)
	}
	if ttl, _ := f.backend.TTL(context.Background(), key); ttl <= 0 || ttl > 5*time.Minute {
		t.Errorf("TTL = %v, want (0, 5m]", ttl)
	}
}

type versionedKeyer struct {
	prefixes []cache.Prefix
	keys     []string
}

func (k *versionedKeyer) Key(prefix cache.Prefix, payload any) (string, error) {
	key, err := cache.BuildKey(prefix, payload)
	if err != nil {
		return "", err
	}
	k.prefixes = append(k.prefixes, prefix)
	k.keys = append(k.keys, "v2:"+key)
	return "v2:" + key, nil
}

func TestProvider_WithKeyer(t *testing.T) {
	keyer := &versionedKeyer{}
	f := newFixture(t, okHandler, WithKeyer(keyer))
	ctx := context.Background()
	for range 2 {
		if _, err := f.provider.SearchRepositories(ctx, vcs.SearchParams{Language: "go"}); err != nil {
			t.Fatalf("SearchRepositories() error = %v", err)
		}
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if len(keyer.keys) != 2 || keyer.keys[0] != keyer.keys[1] {
		t.Fatalf("keyer keys = %v, want the same key twice", keyer.keys)
	}
	if keyer.prefixes[0] != cache.PrefixGitHubBody {
		t.Errorf("prefix = %s, want %s", keyer.prefixes[0], cache.PrefixGitHubBody)
	}
	if _, ok, _ := f.backend.Get(ctx, keyer.keys[0]); !ok {
		t.Errorf("no cache entry under %s", keyer.keys[0])
	}
}

func TestProvider_WithKeyerNilKeepsDefault(t *testing.T) {
	f := newFixture(t, okHandler, WithKeyer(nil))
	if _, ok := f.provider.keyer.(*cache.DefaultKeyer); !ok {
		t.Errorf("keyer = %T, want *cache.DefaultKeyer", f.provider.keyer)
	}
}

func TestProvider_RateLimited(t *testing.T) {
	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{})
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusForbidden)
	}, WithRateLimiter(limiter))

	_, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{Language: "go"})
	var rl *vcs.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want *RateLimitedError", err)
	}
	if rl.RetryAfterSeconds != 60 {
		t.Errorf("RetryAfterSeconds = %d, want 60", rl.RetryAfterSeconds)
	}
	if f.backend.Len() != 0 {
		t.Errorf("cache entries = %d, want 0", f.backend.Len())
	}
	if limiter.PausedUntil().IsZero() {
		t.Error("limiter not paused")
	}

	// While paused, no request reaches GitHub.
	_, err = f.provider.SearchRepositories(context.Background(), vcs.SearchParams{Language: "rust"})
	if !errors.Is(err, vcs.ErrRateLimited) {
		t.Errorf("paused call error = %v, want ErrRateLimited", err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
}

func TestProvider_TooManyRequestsRetriedThenRateLimited(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{})
	var rl *vcs.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want *RateLimitedError", err)
	}
	if rl.RetryAfterSeconds != DefaultRetryAfter {
		t.Errorf("RetryAfterSeconds = %d, want %d", rl.RetryAfterSeconds, DefaultRetryAfter)
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("upstream calls = %d, want 3", n)
	}
}

func TestRateLimited_Classification(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		want    int // -1: not rate limited
	}{
		{name: "retry-after", status: 403, headers: map[string]string{"Retry-After": "12"}, want: 12},
		{name: "remaining zero with reset", status: 403, headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(now.Unix()+30, 10),
		}, want: 30},
		{name: "remaining zero without reset", status: 403, headers: map[string]string{"X-RateLimit-Remaining": "0"}, want: 60},
		{name: "reset in the past", status: 403, headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(now.Unix()-5, 10),
		}, want: 60},
		{name: "429 without hints", status: 429, want: 60},
		{name: "403 remaining positive", status: 403, headers: map[string]string{"X-RateLimit-Remaining": "10"}, want: -1},
		{name: "403 bare", status: 403, want: -1},
		{name: "404", status: 404, headers: map[string]string{"Retry-After": "5"}, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			rl := rateLimited(&httpclient.Response{Status: tt.status, Header: h}, now)
			if tt.want < 0 {
				if rl != nil {
					t.Errorf("rateLimited() = %+v, want nil", rl)
				}
				return
			}
			if rl == nil || rl.RetryAfterSeconds != tt.want {
				t.Errorf("rateLimited() = %+v, want RetryAfterSeconds %d", rl, tt.want)
			}
		})
	}
}

func TestProvider_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "not found", status: http.StatusNotFound, wantCalls: 1},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "forbidden without quota headers", status: http.StatusForbidden, wantCalls: 1},
		{name: "server error retried", status: http.StatusBadGateway, wantCalls: 3},
		{name: "service unavailable retried", status: http.StatusServiceUnavailable, wantCalls: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})
			_, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{})
			var ue *vcs.UpstreamAPIError
			if !errors.As(err, &ue) {
				t.Fatalf("error = %v, want *UpstreamAPIError", err)
			}
			if ue.Status != tt.status {
				t.Errorf("Status = %d, want %d", ue.Status, tt.status)
			}
			if !strings.Contains(string(ue.Body), "nope") {
				t.Errorf("Body = %q", ue.Body)
			}
			if n := f.calls.Load(); n != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", n, tt.wantCalls)
			}
			if f.backend.Len() != 0 {
				t.Error("error reply was cached")
			}
		})
	}
}

func TestProvider_WithRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		wantCalls int32
	}{
		{name: "no retries", attempts: 0, wantCalls: 1},
		{name: "negative clamps to zero", attempts: -3, wantCalls: 1},
		{name: "one retry", attempts: 1, wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}, WithRetryPolicy(httpclient.RetryPolicy{Attempts: tt.attempts, Strategy: resilience.BackoffExponentialJitter}))

			_, err := f.provider.SearchRepositories(context.Background(), vcs.SearchParams{})
			if !errors.Is(err, vcs.ErrUpstreamAPI) {
				t.Fatalf("error = %v, want ErrUpstreamAPI", err)
			}
			if n := f.calls.Load(); n != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestProvider_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = url
	p, err := New(cfg, httpclient.New(httpclient.Config{}), cache.NewStore(cache.NewMemoryBackend(), observe.Telemetry{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p.retry.BaseDelay = time.Millisecond

	_, err = p.SearchRepositories(context.Background(), vcs.SearchParams{})
	var su *vcs.ServiceUnavailableError
	if !errors.As(err, &su) {
		t.Fatalf("error = %v, want *ServiceUnavailableError", err)
	}
	if su.ErrorCode() != "GITHUB_UNAVAILABLE" {
		t.Errorf("ErrorCode() = %q, want GITHUB_UNAVAILABLE", su.ErrorCode())
	}
}

func TestProvider_BadRequestMakesNoCall(t *testing.T) {
	tests := []struct {
		name     string
		params   vcs.SearchParams
		wantCode string
	}{
		{name: "query too long", params: vcs.SearchParams{Language: strings.Repeat("x", 300)}, wantCode: vcs.CodeQueryMaxLengthExceeded},
		{name: "too many operators", params: vcs.SearchParams{Language: "a OR b OR c OR d OR e OR f OR g"}, wantCode: vcs.CodeQueryTooManyBooleanOperators},
		{name: "invalid sort", params: vcs.SearchParams{Sort: "name"}, wantCode: vcs.CodeInvalidSort},
		{name: "invalid order", params: vcs.SearchParams{Order: "up"}, wantCode: vcs.CodeInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, okHandler)
			_, err := f.provider.SearchRepositories(context.Background(), tt.params)
			var br *vcs.BadRequestError
			if !errors.As(err, &br) {
				t.Fatalf("error = %v, want *BadRequestError", err)
			}
			if br.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", br.Code, tt.wantCode)
			}
			if n := f.calls.Load(); n != 0 {
				t.Errorf("upstream calls = %d, want 0", n)
			}
		})
	}
}

func TestProvider_RateLimit(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rate_limit" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"resources":{"core":{"limit":5000,"remaining":4999,"used":1,"reset":1700000000},"search":{"limit":30,"remaining":0,"used":30,"reset":1700000060}}}`))
	})
	status, err := f.provider.RateLimit(context.Background())
	if err != nil {
		t.Fatalf("RateLimit() error = %v", err)
	}
	if status.Core.Remaining != 4999 || status.Search.Limit != 30 || status.Search.Remaining != 0 {
		t.Errorf("status = %+v", status)
	}
	if !status.Search.Reset.Equal(time.Unix(1700000060, 0)) {
		t.Errorf("Search.Reset = %v", status.Search.Reset)
	}
}

func TestNew_Validation(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend(), observe.Telemetry{})
	client := httpclient.New(httpclient.Config{})

	cfg := DefaultConfig()
	cfg.BaseURL = ""
	if _, err := New(cfg, client, store); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New(no base url) error = %v, want ErrNotConfigured", err)
	}
	cfg = DefaultConfig()
	cfg.APIVersion = ""
	if _, err := New(cfg, client, store); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New(no api version) error = %v, want ErrNotConfigured", err)
	}
	if _, err := New(DefaultConfig(), nil, store); !errors.Is(err, ErrNilDependency) {
		t.Errorf("New(nil client) error = %v, want ErrNilDependency", err)
	}
}
