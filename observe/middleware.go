package observe

import (
	"context"
	"time"
)

// FetchFunc is the signature Middleware wraps.
type FetchFunc func(ctx context.Context) (any, error)

// Middleware wraps fetches with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: WrapFetch returns a FetchFunc safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// Nop returns a Middleware that records nothing.
func Nop() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware backed by obs.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

func (m *Middleware) Tracer() Tracer   { return m.tracer }
func (m *Middleware) Metrics() Metrics { return m.metrics }
func (m *Middleware) Logger() Logger   { return m.logger }

// WrapFetch instruments fn as one fetch of meta.Scope.
func (m *Middleware) WrapFetch(meta SpanMeta, fn FetchFunc) FetchFunc {
	return func(ctx context.Context) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordFetch(ctx, meta.Scope, duration, err)

		fields := []Field{
			{Key: "scope", Value: meta.Scope},
			{Key: "duration_ms", Value: duration.Milliseconds()},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err})
			m.logger.Warn(ctx, "fetch failed", fields...)
		} else {
			m.logger.Debug(ctx, "fetch completed", fields...)
		}
		return result, err
	}
}
