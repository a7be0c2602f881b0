// Package config loads sarifnav.toml and the SARIFNAV_* environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "sarifnav.toml"

// Environment overrides. They win over the file.
const (
	EnvSearchRoots      = "SARIFNAV_SEARCH_ROOTS"
	EnvCacheDir         = "SARIFNAV_CACHE_DIR"
	EnvStrict           = "SARIFNAV_STRICT"
	EnvRetainSourceMaps = "SARIFNAV_RETAIN_SOURCEMAPS"
)

// Config is the merged configuration.
type Config struct {
	// Path is the file that was loaded, empty when none was found.
	Path      string          `toml:"-"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	SourceMap SourceMapConfig `toml:"sourcemap"`
	Ingest    IngestConfig    `toml:"ingest"`
}

type ArtifactsConfig struct {
	SearchRoots     []string `toml:"search_roots"`
	Excludes        []string `toml:"excludes"`
	CaseInsensitive bool     `toml:"case_insensitive"`
	CacheDir        string   `toml:"cache_dir"`
	// URIBaseIDs fill uriBaseIds a log leaves undefined. Values are paths
	// or absolute URIs.
	URIBaseIDs map[string]string `toml:"uri_base_ids"`
}

type SourceMapConfig struct {
	Capacity      int   `toml:"capacity"`
	RetainOnClose *bool `toml:"retain_on_close"`
}

type IngestConfig struct {
	Strict bool `toml:"strict"`
}

// Retain reports whether source maps outlive their documents.
func (c SourceMapConfig) Retain() bool {
	return c.RetainOnClose == nil || *c.RetainOnClose
}

// Find walks up from startDir to locate sarifnav.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads explicitPath, or the sarifnav.toml found from startDir, then
// applies the environment. A .env next to the file (or in startDir) is read
// too; variables already set in the process take precedence over it.
func Load(startDir, explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return nil, err
		}
		if ok {
			path = found
		}
	}

	cfg := &Config{}
	root := startDir
	if path != "" {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
		root = filepath.Dir(cfg.Path)
	}
	if root == "" {
		root = "."
	}

	env, err := readDotEnv(filepath.Join(root, ".env"))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes one configuration file. Relative paths in it are taken
// relative to the file's directory.
func LoadFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	var cfg Config
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", abs, undecoded[0])
	}
	if meta.IsDefined("sourcemap", "capacity") && cfg.SourceMap.Capacity <= 0 {
		return nil, fmt.Errorf("%s: [sourcemap].capacity must be positive", abs)
	}
	for i, root := range cfg.Artifacts.SearchRoots {
		if strings.TrimSpace(root) == "" {
			return nil, fmt.Errorf("%s: [artifacts].search_roots[%d] is empty", abs, i)
		}
	}
	cfg.Path = abs
	cfg.resolvePaths(filepath.Dir(abs))
	return &cfg, nil
}

func (c *Config) resolvePaths(dir string) {
	for i, root := range c.Artifacts.SearchRoots {
		c.Artifacts.SearchRoots[i] = relativeTo(dir, root)
	}
	if c.Artifacts.CacheDir != "" {
		c.Artifacts.CacheDir = relativeTo(dir, c.Artifacts.CacheDir)
	}
	for id, base := range c.Artifacts.URIBaseIDs {
		if !isURI(base) {
			c.Artifacts.URIBaseIDs[id] = relativeTo(dir, base)
		}
	}
}

func relativeTo(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}

func isURI(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(strings.ToLower(s), "file:")
}

func readDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

func (c *Config) applyEnv(dotenv map[string]string) error {
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v), true
		}
		v, ok := dotenv[key]
		return strings.TrimSpace(v), ok
	}

	if v, ok := lookup(EnvSearchRoots); ok && v != "" {
		var roots []string
		for _, root := range filepath.SplitList(v) {
			if root = strings.TrimSpace(root); root != "" {
				roots = append(roots, root)
			}
		}
		c.Artifacts.SearchRoots = roots
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		c.Artifacts.CacheDir = v
	}
	if v, ok := lookup(EnvStrict); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrict, err)
		}
		c.Ingest.Strict = b
	}
	if v, ok := lookup(EnvRetainSourceMaps); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetainSourceMaps, err)
		}
		c.SourceMap.RetainOnClose = &b
	}
	return nil
}
