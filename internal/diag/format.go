package diag

import (
	"fmt"
	"path/filepath"
	"strings"

	"sarifnav/internal/artifact"
)

type shortDiagnostic struct {
	Severity string
	Rule     string
	Path     string
	Line     int
	Column   int
	Message  string
}

// FormatShort renders diagnostics into a stable, single-line-per-entry form:
//
//	<severity> <rule> <path>:<line>:<col> <message>
//
// Local files under baseDir are shown relative to it. Entries are sorted by
// path, position, severity, rule and message; the result has no trailing newline.
func FormatShort(diags []Diagnostic, baseDir string) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]shortDiagnostic, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		rule := d.RuleID
		if rule == "" {
			rule = "-"
		}
		rendered = append(rendered, shortDiagnostic{
			Severity: d.Severity.Label(),
			Rule:     rule,
			Path:     DisplayPath(d.Location.URI, baseDir),
			Line:     d.Location.Range.StartLine + 1,
			Column:   d.Location.Range.StartCol + 1,
			Message:  sanitizeMessage(d.Message.Plain),
		})
	}

	sortShort(rendered)

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Rule, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortShort(rendered []shortDiagnostic) {
	less := func(di, dj shortDiagnostic) bool {
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Rule != dj.Rule {
			return di.Rule < dj.Rule
		}
		return di.Message < dj.Message
	}
	// insertion sort keeps equal entries stable without reflection
	for i := 1; i < len(rendered); i++ {
		for j := i; j > 0 && less(rendered[j], rendered[j-1]); j-- {
			rendered[j], rendered[j-1] = rendered[j-1], rendered[j]
		}
	}
}

// DisplayPath shortens file URIs to paths, relative to baseDir when possible.
func DisplayPath(uri, baseDir string) string {
	if uri == "" {
		return "<unknown>"
	}
	p, ok := artifact.LocalPath(uri)
	if !ok {
		return uri
	}
	if baseDir != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(baseDir, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return normalizePath(p)
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
