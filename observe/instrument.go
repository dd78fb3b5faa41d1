package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Instrumenter wraps an operation with a span, op metrics and a completion
// log line.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: the error returned by fn is recorded and returned unchanged.
type Instrumenter struct {
	tracer   Tracer
	recorder Recorder
	logger   Logger
}

// NewInstrumenter creates an Instrumenter from its parts. Nil parts are
// replaced by no-ops.
func NewInstrumenter(tracer Tracer, recorder Recorder, logger Logger) *Instrumenter {
	if tracer == nil {
		tracer = NopTracer()
	}
	if recorder == nil {
		recorder = NopRecorder()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrumenter{tracer: tracer, recorder: recorder, logger: logger}
}

// Run executes fn inside a span for op. It records op.total, op.errors and
// op.duration_ms, each tagged with the op's component and name.
func (i *Instrumenter) Run(ctx context.Context, op Op, fn func(context.Context) error) error {
	ctx, span := i.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	elapsed := time.Since(start)
	i.tracer.EndSpan(span, err)

	attrs := make([]attribute.KeyValue, 0, len(op.Attrs)+2)
	attrs = append(attrs,
		attribute.String("op.component", op.Component),
		attribute.String("op.name", op.Name),
	)
	attrs = append(attrs, op.Attrs...)

	i.recorder.Count(ctx, "op.total", attrs...)
	if err != nil {
		i.recorder.Count(ctx, "op.errors", attrs...)
	}
	i.recorder.Observe(ctx, "op.duration_ms", float64(elapsed.Microseconds())/1000, attrs...)

	logger := i.logger.WithComponent(op.Component)
	fields := []Field{
		F("op", op.Name),
		F("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	if err != nil {
		logger.Warn(ctx, "operation failed", append(fields, Err(err))...)
	} else {
		logger.Debug(ctx, "operation completed", fields...)
	}

	return err
}

// Telemetry is the capability bundle injected into every component.
type Telemetry struct {
	Logger       Logger
	Metrics      Recorder
	Instrumenter *Instrumenter
}

// NopTelemetry returns a bundle whose parts discard everything.
func NopTelemetry() Telemetry {
	return Telemetry{
		Logger:       NopLogger(),
		Metrics:      NopRecorder(),
		Instrumenter: NewInstrumenter(nil, nil, nil),
	}
}

// WithDefaults fills nil parts with no-ops.
func (t Telemetry) WithDefaults() Telemetry {
	if t.Logger == nil {
		t.Logger = NopLogger()
	}
	if t.Metrics == nil {
		t.Metrics = NopRecorder()
	}
	if t.Instrumenter == nil {
		t.Instrumenter = NewInstrumenter(nil, t.Metrics, t.Logger)
	}
	return t
}

// Component returns a copy whose logger is tagged with name.
func (t Telemetry) Component(name string) Telemetry {
	t = t.WithDefaults()
	t.Logger = t.Logger.WithComponent(name)
	return t
}

// TelemetryFromObserver builds the bundle from an Observer.
func TelemetryFromObserver(obs Observer) (Telemetry, error) {
	if obs == nil {
		return Telemetry{}, ErrNilObserver
	}
	recorder := NewRecorder(obs.Meter())
	return Telemetry{
		Logger:       obs.Logger(),
		Metrics:      recorder,
		Instrumenter: NewInstrumenter(NewTracer(obs.Tracer()), recorder, obs.Logger()),
	}, nil
}
