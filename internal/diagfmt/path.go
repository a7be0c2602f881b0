package diagfmt

import (
	"path/filepath"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
)

// formatPath renders uri according to mode. Non-file URIs are left intact.
func formatPath(uri string, mode PathMode, baseDir string) string {
	p, ok := artifact.LocalPath(uri)
	if !ok || p == "" {
		if uri == "" {
			return "<unknown>"
		}
		return uri
	}
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		return filepath.ToSlash(p)
	case PathModeBasename:
		return nav.FileName(p)
	case PathModeRelative:
		if baseDir == "" {
			baseDir = "."
		}
		return diag.DisplayPath(uri, absDir(baseDir))
	default:
		return diag.DisplayPath(uri, absDir(baseDir))
	}
}

func absDir(dir string) string {
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
