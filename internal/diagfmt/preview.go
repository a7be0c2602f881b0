package diagfmt

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"fortio.org/safecast"
	"github.com/mattn/go-runewidth"

	"sarifnav/internal/artifact"
	"sarifnav/internal/nav"
	"sarifnav/internal/source"
)

type previewLine struct {
	number int // 1-based
	text   string
}

// artifactFile loads the file behind a mapped location, reusing fs.
func artifactFile(fs *source.FileSet, loc nav.Location) *source.File {
	if fs == nil || !loc.Mapped {
		return nil
	}
	p, ok := artifact.LocalPath(loc.URI)
	if !ok || p == "" {
		return nil
	}
	if f, ok := fs.GetByPath(p); ok {
		return f
	}
	id, err := fs.Load(p)
	if err != nil {
		return nil
	}
	return fs.Get(id)
}

// previewLines returns the zero-based line and up to context lines on each
// side, clamped to the file.
func previewLines(f *source.File, line, context int) ([]previewLine, error) {
	total := len(f.LineIdx) + 1
	if line < 0 || line >= total {
		return nil, fmt.Errorf("line %d out of range (%d lines)", line+1, total)
	}
	from := max(line-context, 0)
	to := min(line+context, total-1)
	out := make([]previewLine, 0, to-from+1)
	for i := from; i <= to; i++ {
		n, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, previewLine{number: i + 1, text: strings.TrimRight(f.GetLine(n), "\r")})
	}
	return out, nil
}

// underline returns the marker line for the UTF-16 columns [startCol,
// endCol) of text, in display cells. A range ending past the line is cut at
// the line end; an empty range still gets one caret.
func underline(text string, startCol, endCol int) string {
	units := 0
	var pad, mark strings.Builder
	for _, r := range text {
		if units >= endCol {
			break
		}
		w := runewidth.RuneWidth(r)
		if r == '\t' {
			w = 1
		}
		if units < startCol {
			if r == '\t' {
				pad.WriteByte('\t')
			} else {
				pad.WriteString(strings.Repeat(" ", w))
			}
		} else {
			mark.WriteString(strings.Repeat("~", max(w, 1)))
		}
		units += utf16.RuneLen(r)
	}
	if startCol > units {
		pad.WriteString(strings.Repeat(" ", startCol-units))
	}
	m := mark.String()
	if m == "" {
		return pad.String() + "^"
	}
	return pad.String() + "^" + m[1:]
}

// fitWidth truncates s to width display cells; width 0 means no limit.
func fitWidth(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
