// Package sourcemap indexes a raw SARIF log by structural path.
//
// Every JSON value of the log (objects, arrays, scalars) gets an Entry with its
// exact start and end coordinates in the raw text, addressed by a
// slash-delimited path of object keys and array indices, for example
// "runs/0/results/3/locations/0/physicalLocation". The root value has the
// empty path. Keys containing '/' or '~' are escaped as in JSON Pointer
// ("~1" and "~0").
//
// An Index is built once per parse and never mutated; a re-parse replaces it.
// Store keeps the latest Index per document.
package sourcemap
