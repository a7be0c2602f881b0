// Package region turns SARIF region descriptions into zero-based, half-open
// line/column ranges.
//
// Normalize never fails: absent or partial input degrades to a documented
// default so a caret can always be drawn. Check is the strict counterpart that
// reports values which are present but cannot be meaningful (startLine 0,
// negative offsets, undecodable snippets).
package region
