// Package nav holds the navigable Location produced for every SARIF location,
// whether it points into an analyzed artifact or back into the log itself.
package nav

import (
	"path"
	"strings"

	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
)

// Location is a resolved place a user can jump to.
//
// Mapped is true only when URI names a real artifact (or the log document
// itself); callers must check it before treating URI as a file.
type Location struct {
	ID               *int
	URI              string
	URIBase          string
	Range            region.Range
	EndOfLine        bool
	Mapped           bool
	FileName         string
	LogicalLocations []string
	Message          *sarif.RichText
}

// Default returns the location used before anything is known.
func Default() Location {
	return Location{Range: region.Default()}
}

// SetURI stores uri and caches its last path segment.
func (l *Location) SetURI(uri string) {
	l.URI = uri
	l.FileName = FileName(uri)
}

// FileName returns the last path segment of a URI or path.
func FileName(uri string) string {
	if uri == "" {
		return ""
	}
	uri = strings.ReplaceAll(uri, "\\", "/")
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	uri = strings.TrimRight(uri, "/")
	if uri == "" {
		return ""
	}
	return path.Base(uri)
}

// String renders the location as uri:line:col for logs and short output.
func (l Location) String() string {
	name := l.URI
	if name == "" {
		name = "<unknown>"
	}
	return name + ":" + l.Range.String()
}

// Clone returns a copy that shares nothing mutable with l.
func (l Location) Clone() Location {
	out := l
	if l.ID != nil {
		id := *l.ID
		out.ID = &id
	}
	if l.LogicalLocations != nil {
		out.LogicalLocations = append([]string(nil), l.LogicalLocations...)
	}
	if l.Message != nil {
		msg := *l.Message
		out.Message = &msg
	}
	return out
}
