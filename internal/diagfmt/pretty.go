package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
	"sarifnav/internal/source"
)

type palette struct {
	enabled bool
	err     *color.Color
	warn    *color.Color
	info    *color.Color
	path    *color.Color
	gutter  *color.Color
	mark    *color.Color
	note    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		enabled: enabled,
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		path:    color.New(color.Bold),
		gutter:  color.New(color.FgBlue),
		mark:    color.New(color.FgGreen, color.Bold),
		note:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.path, p.gutter, p.mark, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Ожидает items, отсортированные diag.Sort. Для каждой диагностики печатает
// <path>:<line>:<col>: <SEV> <RULE>: <Message>, затем строки контекста с
// подчёркиванием региона и, с ShowNotes, связанные места.
func Pretty(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for i := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, &items[i], fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	loc := d.Location
	where := formatPath(loc.URI, opts.PathMode, opts.BaseDir) + ":" + position(loc)
	rule := d.RuleID
	if rule == "" {
		rule = "-"
	}
	message := strings.TrimSpace(d.Message.Plain)
	if message == "" {
		message = "(no message)"
	}
	head := fmt.Sprintf("%s: %s %s: %s",
		pal.path.Sprint(where),
		pal.severity(d.Severity).Sprint(d.Severity.String()),
		rule,
		firstLine(message))
	fmt.Fprintln(w, fitWidth(head, widthFor(opts, pal)))

	if f := artifactFile(fs, loc); f != nil {
		writeContext(w, f, loc, opts, pal)
	}

	if len(d.Locations) > 0 && !d.Locations[0].Mapped && d.Locations[0].URI != "" {
		fmt.Fprintf(w, "  %s artifact not found: %s\n", pal.note.Sprint("note:"), d.Locations[0].URI)
	}
	if !opts.ShowNotes {
		return
	}
	for _, rel := range d.RelatedLocations {
		text := "related location"
		if rel.Message != nil && strings.TrimSpace(rel.Message.Plain) != "" {
			text = firstLine(rel.Message.Plain)
		}
		target := formatPath(rel.URI, opts.PathMode, opts.BaseDir) + ":" + position(rel)
		if !rel.Mapped {
			target += " (not found)"
		}
		fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"), target, text)
	}
	if !d.InLog() {
		fmt.Fprintf(w, "  %s reported at %s:%s\n", pal.note.Sprint("note:"),
			formatPath(d.LocationInSarifFile.URI, opts.PathMode, opts.BaseDir), position(d.LocationInSarifFile))
	}
	var extra []string
	if d.CodeFlowSteps > 0 {
		extra = append(extra, strconv.Itoa(d.CodeFlowSteps)+" code flow steps")
	}
	if d.Fixes > 0 {
		extra = append(extra, strconv.Itoa(d.Fixes)+" fixes")
	}
	if len(extra) > 0 {
		fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), strings.Join(extra, ", "))
	}
}

func writeContext(w io.Writer, f *source.File, loc nav.Location, opts PrettyOpts, pal palette) {
	line := loc.Range.StartLine
	lines, err := previewLines(f, line, max(opts.Context, 0))
	if err != nil {
		return
	}
	gutter := len(strconv.Itoa(lines[len(lines)-1].number))
	for _, l := range lines {
		num := fmt.Sprintf("%*d", gutter, l.number)
		fmt.Fprintf(w, "  %s %s %s\n", pal.gutter.Sprint(num), pal.gutter.Sprint("|"), l.text)
		if l.number != line+1 {
			continue
		}
		endCol := loc.Range.EndCol
		if loc.Range.EndLine > loc.Range.StartLine || loc.EndOfLine {
			endCol = source.UTF16LenString(l.text)
		}
		fmt.Fprintf(w, "  %s %s %s\n", strings.Repeat(" ", gutter), pal.gutter.Sprint("|"),
			pal.mark.Sprint(underline(l.text, loc.Range.StartCol, endCol)))
	}
}

func position(loc nav.Location) string {
	return strconv.Itoa(loc.Range.StartLine+1) + ":" + strconv.Itoa(loc.Range.StartCol+1)
}

func firstLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}

// widthFor disables truncation when colors are on: escape codes would be
// counted as cells.
func widthFor(opts PrettyOpts, pal palette) int {
	if pal.enabled {
		return 0
	}
	return opts.Width
}
