package trace

import "context"

type ctxKey struct{}

// carrier is what a context holds: the tracer and the innermost span.
type carrier struct {
	tracer Tracer
	span   SpanContext
}

func carrierOf(ctx context.Context) carrier {
	if ctx == nil {
		return carrier{}
	}
	c, _ := ctx.Value(ctxKey{}).(carrier)
	return c
}

// SpanContext identifies the active span and the log it works on.
type SpanContext struct {
	SpanID   uint64
	Document string
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if t := carrierOf(ctx).tracer; t != nil {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx, keeping the current span.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	c := carrierOf(ctx)
	c.tracer = t
	return context.WithValue(ctx, ctxKey{}, c)
}

// CurrentSpan returns the active span context, zero if none.
func CurrentSpan(ctx context.Context) SpanContext {
	return carrierOf(ctx).span
}

// WithSpanContext makes sc the active span of ctx. An empty Document is
// inherited from the enclosing span.
func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		return nil
	}
	c := carrierOf(ctx)
	if sc.Document == "" {
		sc.Document = c.span.Document
	}
	c.span = sc
	return context.WithValue(ctx, ctxKey{}, c)
}
