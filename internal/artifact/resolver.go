package artifact

import (
	"context"

	"sarifnav/internal/sarif"
)

// Mapping is the outcome of resolving one artifact reference.
// Mapped is false when URI is only a best guess.
type Mapping struct {
	URI    string
	Mapped bool
}

// MappingChange is delivered to subscribers when a remembered mapping changes.
type MappingChange struct {
	// Key is the combined (base + relative) URI the mapping was made for.
	Key     string
	URIBase string
	Target  string
}

// Resolver is implemented by artifact resolution policies.
type Resolver interface {
	// Resolve maps ref to a concrete URI. It never fails; unresolved
	// references come back with Mapped=false.
	Resolve(ctx context.Context, ref sarif.ArtifactLocation, runID int, uriBase string) Mapping
	// PromptUserToChoose asks for a replacement of uri. The answer is
	// observed by calling Resolve again.
	PromptUserToChoose(ctx context.Context, uri, uriBase string) error
	// OnMappingChanged subscribes fn; the returned func unsubscribes.
	OnMappingChanged(fn func(MappingChange)) (unsubscribe func())
	// ResolveRunArtifacts pre-resolves the artifacts declared by a run.
	ResolveRunArtifacts(ctx context.Context, runID int, artifacts []sarif.Artifact, bases map[string]string)
}

// Canonicalizer is implemented by resolvers that have their own idea of
// URI equality (for example case-insensitive file systems).
type Canonicalizer interface {
	Canonical(uri string) string
}
