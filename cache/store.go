package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/reposcore/observe"
)

// Metric names emitted by Store.
const (
	MetricGetTotal      = "cache.get.total"
	MetricSetTotal      = "cache.set.total"
	MetricDeleteTotal   = "cache.delete.total"
	MetricLatencySuffix = ".latency_bucket"
)

// LatencyBucket maps an operation duration onto the coarse buckets reported
// by the cache metrics.
func LatencyBucket(d time.Duration) string {
	switch {
	case d < 5*time.Millisecond:
		return "<5ms"
	case d < 20*time.Millisecond:
		return "<20ms"
	case d < 100*time.Millisecond:
		return "<100ms"
	case d < 500*time.Millisecond:
		return "<500ms"
	default:
		return ">=500ms"
	}
}

// Store is a JSON value cache over a Backend.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: no method returns an error. Backend and encoding failures are
// logged at warn; reads degrade to a miss and writes are dropped.
type Store struct {
	backend Backend
	logger  observe.Logger
	metrics observe.Recorder
	now     func() time.Time
}

// NewStore wraps backend. Telemetry parts left nil become no-ops.
func NewStore(backend Backend, tel observe.Telemetry) *Store {
	tel = tel.Component("cache")
	return &Store{
		backend: backend,
		logger:  tel.Logger,
		metrics: tel.Metrics,
		now:     time.Now,
	}
}

// Get decodes the value stored under key into dst. It reports false on a
// miss, on a stored JSON null, on undecodable data and on any backend error.
func (s *Store) Get(ctx context.Context, key string, dst any) bool {
	start := s.now()
	hit := s.get(ctx, key, dst)

	s.metrics.Count(ctx, MetricGetTotal, attribute.Bool("hit", hit))
	s.latency(ctx, "get", start)
	return hit
}

func (s *Store) get(ctx context.Context, key string, dst any) bool {
	if s.backend == nil {
		return false
	}
	if err := ValidateKey(key); err != nil {
		s.logger.Warn(ctx, "cache get skipped", observe.F("key", key), observe.Err(err))
		return false
	}

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "cache get failed", observe.F("key", key), observe.Err(err))
		return false
	}
	if !ok {
		return false
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		s.logger.Warn(ctx, "cache entry undecodable", observe.F("key", key), observe.Err(err))
		return false
	}
	return true
}

// Set JSON-encodes value and stores it under key. ttl is rounded up to whole
// seconds; ttl <= 0 stores without expiry.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	start := s.now()
	s.metrics.Count(ctx, MetricSetTotal, attribute.String("outcome", "attempted"))

	if err := s.set(ctx, key, value, ttl); err != nil {
		s.logger.Warn(ctx, "cache set failed",
			observe.F("key", key),
			observe.F("ttl_seconds", TTLSeconds(ttl)),
			observe.Err(err),
		)
		s.metrics.Count(ctx, MetricSetTotal, attribute.String("outcome", "failed"))
	}
	s.latency(ctx, "set", start)
}

func (s *Store) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.backend == nil {
		return ErrNilBackend
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, key, data, time.Duration(TTLSeconds(ttl))*time.Second)
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) {
	start := s.now()
	s.metrics.Count(ctx, MetricDeleteTotal, attribute.String("outcome", "attempted"))

	err := ErrNilBackend
	if s.backend != nil {
		err = s.backend.Delete(ctx, key)
	}
	if err != nil {
		s.logger.Warn(ctx, "cache delete failed", observe.F("key", key), observe.Err(err))
		s.metrics.Count(ctx, MetricDeleteTotal, attribute.String("outcome", "failed"))
	}
	s.latency(ctx, "delete", start)
}

func (s *Store) latency(ctx context.Context, op string, start time.Time) {
	s.metrics.Count(ctx, "cache."+op+MetricLatencySuffix,
		attribute.String("bucket", LatencyBucket(s.now().Sub(start))))
}
