package lsp

import (
	"sarifnav/internal/nav"
	"sarifnav/internal/region"
	"sarifnav/internal/sourcemap"
)

// toLSPRange converts r, collapsing an end that precedes the start to an
// empty range at the start.
func toLSPRange(r region.Range) lspRange {
	out := lspRange{
		Start: position{Line: maxZero(r.StartLine), Character: maxZero(r.StartCol)},
		End:   position{Line: maxZero(r.EndLine), Character: maxZero(r.EndCol)},
	}
	if before(out.End, out.Start) {
		out.End = out.Start
	}
	return out
}

func toLSPLocation(loc nav.Location) location {
	return location{URI: loc.URI, Range: toLSPRange(loc.Range)}
}

func entryRange(e sourcemap.Entry) lspRange {
	return lspRange{
		Start: position{Line: e.Value.Line, Character: e.Value.Column},
		End:   position{Line: e.ValueEnd.Line, Character: e.ValueEnd.Column},
	}
}

// before reports whether a precedes b.
func before(a, b position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

// contains reports whether p lies in r, end exclusive.
func contains(r lspRange, p position) bool {
	return !before(p, r.Start) && before(p, r.End)
}

func maxZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
