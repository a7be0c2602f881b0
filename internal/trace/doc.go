// Package trace records what the ingestion pipeline is doing.
//
// Every attempt to ingest a log opens a document span, each run opens a run
// span below it, and soft failures (unmapped artifacts, invalid regions) are
// point events attached to the span they happened in. The output helps explain
// why a result ended up pointing into the log instead of a source file, and
// where a slow ingestion spends its time.
//
// # Usage
//
//	sarifnav ingest --trace=- --trace-level=detail scan.sarif
//
// # Tracers
//
//   - Nop: disabled tracing, zero overhead
//   - StreamTracer: writes every event as it happens (text, NDJSON or Chrome)
//   - RingTracer: keeps the last N events in memory for a dump on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Scopes nest Session > Document > Run > Result. LevelPhase emits session and
// document events, LevelDetail adds runs, LevelDebug adds per-result events.
// LevelError only keeps the ring buffer for crash dumps.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.BeginDocument(t, "ingest", uri, trace.CurrentSpan(ctx).SpanID)
//	ctx = trace.WithSpanContext(ctx, span.Context())
//	defer span.End("")
//
// Events below a document span carry its URI, so a ring dump can be narrowed
// to one log with RingTracer.ForDocument.
package trace
