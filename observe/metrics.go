package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder is the metrics capability handed to components.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: recording is best-effort; implementations must not panic and
// must never surface an error to the instrumented code path.
type Recorder interface {
	// Count adds one to the named counter.
	Count(ctx context.Context, name string, attrs ...attribute.KeyValue)

	// Observe records value into the named histogram.
	Observe(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)
}

// meterRecorder creates otel instruments lazily on first use and reuses them.
type meterRecorder struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewRecorder returns a Recorder backed by meter.
func NewRecorder(meter metric.Meter) Recorder {
	return &meterRecorder{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (r *meterRecorder) Count(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	c, ok := r.counter(name)
	if !ok {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (r *meterRecorder) Observe(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	h, ok := r.histogram(name)
	if !ok {
		return
	}
	h.Record(ctx, value, metric.WithAttributes(attrs...))
}

func (r *meterRecorder) counter(name string) (metric.Int64Counter, bool) {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c, true
	}
	c, err := r.meter.Int64Counter(name, metric.WithUnit("{event}"))
	if err != nil {
		return nil, false
	}
	r.counters[name] = c
	return c, true
}

func (r *meterRecorder) histogram(name string) (metric.Float64Histogram, bool) {
	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return h, true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.histograms[name]; ok {
		return h, true
	}
	h, err := r.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil, false
	}
	r.histograms[name] = h
	return h, true
}

// NopRecorder returns a Recorder that drops everything.
func NopRecorder() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) Count(context.Context, string, ...attribute.KeyValue)            {}
func (nopRecorder) Observe(context.Context, string, float64, ...attribute.KeyValue) {}
