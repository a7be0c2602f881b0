package trace

import (
	"context"
	"hash/fnv"
	"sync/atomic"
	"time"
)

var (
	globalSeq   atomic.Uint64
	globalSpans atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return globalSeq.Add(1) }

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 { return globalSpans.Add(1) }

// laneOf maps a document URI to a stable non-zero lane number.
func laneOf(document string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(document))
	return uint64(h.Sum32()%1000) + 1
}

// Span tracks one begin/end pair. A nil or disabled span is inert, so callers
// never check whether tracing is on.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	document string
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

var inert = &Span{tracer: Nop}

// Begin starts a span below parent (0 for a root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, scope, name, parent, "")
}

// BeginDocument starts a document span for the log at uri. Children begun
// through Child and points sent through Point carry the same document.
func BeginDocument(t Tracer, name, uri string, parent uint64) *Span {
	return begin(t, ScopeDocument, name, parent, uri)
}

// BeginFrom starts a span below the span active in ctx, using the tracer
// attached to ctx, and returns ctx with the new span active.
func BeginFrom(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	sc := CurrentSpan(ctx)
	s := begin(FromContext(ctx), scope, name, sc.SpanID, sc.Document)
	if s.id == 0 {
		return s, ctx
	}
	return s, WithSpanContext(ctx, s.Context())
}

func begin(t Tracer, scope Scope, name string, parent uint64, document string) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return inert
	}
	s := &Span{
		tracer:   t,
		id:       NextSpanID(),
		parentID: parent,
		document: document,
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	s.emit(KindSpanBegin, s.started, "", nil)
	return s
}

func (s *Span) live() bool {
	return s != nil && s.id != 0 && s.tracer != nil && s.tracer.Enabled()
}

func (s *Span) emit(kind Kind, at time.Time, detail string, extra map[string]string) {
	s.tracer.Emit(&Event{
		Time:     at,
		Seq:      NextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		Document: s.document,
		Name:     s.name,
		Detail:   detail,
		Extra:    extra,
	})
}

// Child starts a span nested in s. A child of an inert span is inert.
func (s *Span) Child(scope Scope, name string) *Span {
	if !s.live() {
		return inert
	}
	return begin(s.tracer, scope, name, s.id, s.document)
}

// End emits the end event and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	now := time.Now()
	s.emit(KindSpanEnd, now, detail, s.extra)
	return now.Sub(s.started)
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Context returns the propagation handle of s.
func (s *Span) Context() SpanContext {
	if s == nil {
		return SpanContext{}
	}
	return SpanContext{SpanID: s.id, Document: s.document}
}

// Point emits an instant event attached to s.
func (s *Span) Point(scope Scope, name, detail string, kv ...string) {
	if !s.live() {
		return
	}
	point(s.tracer, scope, name, s.id, s.document, detail, kv)
}

// Point emits an instant event below parent. Extra is given as key/value pairs.
func Point(t Tracer, scope Scope, name string, parent uint64, detail string, kv ...string) {
	point(t, scope, name, parent, "", detail, kv)
}

// PointFrom emits an instant event below the span active in ctx.
func PointFrom(ctx context.Context, t Tracer, scope Scope, name, detail string, kv ...string) {
	if t == nil {
		t = FromContext(ctx)
	}
	sc := CurrentSpan(ctx)
	point(t, scope, name, sc.SpanID, sc.Document, detail, kv)
}

func point(t Tracer, scope Scope, name string, parent uint64, document, detail string, kv []string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	var extra map[string]string
	if len(kv) > 1 {
		extra = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			extra[kv[i]] = kv[i+1]
		}
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		SpanID:   NextSpanID(),
		ParentID: parent,
		Document: document,
		Name:     name,
		Detail:   detail,
		Extra:    extra,
	})
}
