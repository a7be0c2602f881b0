// Package ingest drives the ingestion of SARIF logs.
//
// An Engine owns the per-document state machine:
//
//	Idle → Parsing → Upgrading            (attempt aborted, upgrader notified)
//	             └─→ ProcessingRuns → Done
//	Parsing → Failed                      (malformed text, nothing committed)
//
// Runs and results are processed strictly in document order so that the
// (runIndex, resultIndex) address of every diagnostic matches the raw log.
// Diagnostics of an attempt are committed to the diag.Store only when the
// attempt reaches Done; a failed attempt leaves the previous state intact.
//
// The collaborators (run info, thread flows, result info, diagnostic
// builder, upgrader, notifier) are interfaces with default implementations
// in this package, so that hosts can swap any of them.
package ingest
