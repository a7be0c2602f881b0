// Package artifact turns SARIF artifact references into concrete file URIs.
//
// Resolver is the contract the location resolver and the ingestion engine
// depend on. FSResolver is the default implementation: it looks on disk,
// searches configured roots, and remembers the choices a user made when
// nothing could be found automatically.
package artifact
