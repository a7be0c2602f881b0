// Package sarif models the subset of the SARIF 2.1.0 object model that
// sarifnav consumes: runs, results, locations, regions, artifacts, code flows
// and messages.
//
// Every optional number is a pointer so that "absent" (nil) can be told apart
// from a present zero. Validation of present values lives with the consumers
// (see internal/region.Check); this package only decodes.
//
// The package also decides whether a log can be ingested as-is
// (SchemaVersion / IsSupported) and renders messages with argument
// substitution (Message.Rich).
package sarif
