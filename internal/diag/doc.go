// Package diag holds the diagnostics produced from ingested SARIF results.
//
// # Data model
//
// Diagnostic is the central record. It is addressed by Key (document, run
// index, result index), which matches the structural path of the result in
// the raw log. RunID ties it to the run registration of one ingestion attempt
// so that closing a document can drop all of its diagnostics in one call.
//
// Every diagnostic carries two locations:
//
//   - Location – where the finding is: an artifact position when it could be
//     mapped to a real file, otherwise a span inside the raw log.
//   - LocationInSarifFile – an insertion point at the result node in the log.
//
// # Store
//
// Store is goroutine-safe. Producers Add diagnostics and call Sync once a
// document is done; subscribers only ever see synced snapshots. Refresh
// re-resolves locations that were not mapped, typically after the user picked
// a file for an artifact that could not be found.
//
// # Formatting
//
// FormatShort renders one stable line per diagnostic; richer formats live in
// internal/diagfmt.
package diag
