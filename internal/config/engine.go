package config

import (
	"fmt"

	"sarifnav/internal/artifact"
	"sarifnav/internal/ingest"
	"sarifnav/internal/sourcemap"
	"sarifnav/internal/trace"
)

// DefaultCacheDir is where remembered artifact choices live when no
// cache_dir is configured. Empty if the user cache directory is unknown.
func DefaultCacheDir() string {
	dir, err := artifact.DefaultCacheDir("sarifnav")
	if err != nil {
		return ""
	}
	return dir
}

// EngineOptions builds the collaborators an ingest.Engine needs from c.
// chooser may be nil.
func (c *Config) EngineOptions(chooser artifact.Chooser, tracer trace.Tracer) (ingest.Options, error) {
	cacheDir := c.Artifacts.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	cache, err := artifact.OpenChoiceCache(cacheDir)
	if err != nil {
		return ingest.Options{}, fmt.Errorf("choice cache: %w", err)
	}
	resolver := artifact.NewFSResolver(artifact.FSOptions{
		SearchRoots:     append([]string(nil), c.Artifacts.SearchRoots...),
		Excludes:        c.Artifacts.Excludes,
		CaseInsensitive: c.Artifacts.CaseInsensitive,
		Cache:           cache,
		Chooser:         chooser,
	})
	maps, err := sourcemap.NewStore(sourcemap.StoreOptions{
		Capacity:      c.SourceMap.Capacity,
		RetainOnClose: c.SourceMap.Retain(),
	})
	if err != nil {
		return ingest.Options{}, err
	}

	var bases map[string]string
	if len(c.Artifacts.URIBaseIDs) > 0 {
		bases = make(map[string]string, len(c.Artifacts.URIBaseIDs))
		for id, base := range c.Artifacts.URIBaseIDs {
			if !isURI(base) {
				base = artifact.FileURI(base)
			}
			bases[id] = base
		}
	}
	return ingest.Options{
		Artifacts:  resolver,
		SourceMaps: maps,
		URIBases:   bases,
		Strict:     c.Ingest.Strict,
		Tracer:     tracer,
	}, nil
}
