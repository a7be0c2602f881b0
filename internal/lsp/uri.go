package lsp

import (
	"path/filepath"

	"sarifnav/internal/artifact"
)

// canonicalURI is the key of a document in the engine.
func canonicalURI(uri string) string {
	return artifact.CanonicalURI(uri)
}

func uriToPath(uri string) string {
	p, ok := artifact.LocalPath(uri)
	if !ok || p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return p
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	return artifact.FileURI(path)
}
