package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanMeta describes an instrumented operation.
type SpanMeta struct {
	Component string // query|http|dashboard
	Name      string // operation name, e.g. "fetch" or "GET /admin/users"
	Scope     string // query key root or route; used as a low-cardinality label
	Client    bool   // true for outbound calls
	Attrs     []attribute.KeyValue
}

// SpanName returns the deterministic span name: fanadmin.<component>.<name>.
func (m SpanMeta) SpanName() string {
	if m.Component == "" {
		return "fanadmin." + m.Name
	}
	return "fanadmin." + m.Component + "." + m.Name
}

// Tracer wraps OpenTelemetry span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, meta SpanMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta SpanMeta) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(meta.Attrs)+2)
	attrs = append(attrs, attribute.String("fanadmin.component", meta.Component))
	if meta.Scope != "" {
		attrs = append(attrs, attribute.String("fanadmin.scope", meta.Scope))
	}
	attrs = append(attrs, meta.Attrs...)

	kind := trace.SpanKindInternal
	if meta.Client {
		kind = trace.SpanKindClient
	}
	return t.tracer.Start(ctx, meta.SpanName(), trace.WithAttributes(attrs...), trace.WithSpanKind(kind))
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NoopTracer returns a Tracer whose spans are never recorded.
func NoopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
