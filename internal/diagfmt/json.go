package diagfmt

import (
	"encoding/json"
	"io"

	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
)

// LocationJSON представляет местоположение для JSON. Строки и колонки
// начинаются с 1, колонки в единицах UTF-16.
type LocationJSON struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	Mapped    bool   `json:"mapped"`
}

// NoteJSON представляет связанное место для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity      string        `json:"severity"`
	Rule          string        `json:"rule,omitempty"`
	RuleName      string        `json:"rule_name,omitempty"`
	Tool          string        `json:"tool,omitempty"`
	Message       string        `json:"message"`
	Location      LocationJSON  `json:"location"`
	Log           *LocationJSON `json:"log,omitempty"`
	Document      string        `json:"document"`
	Run           int           `json:"run"`
	Result        int           `json:"result"`
	BaselineState string        `json:"baseline_state,omitempty"`
	Related       []NoteJSON    `json:"related,omitempty"`
	CodeFlowSteps int           `json:"code_flow_steps,omitempty"`
	Fixes         int           `json:"fixes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Total       int              `json:"total"`
}

func makeLocation(loc nav.Location, opts JSONOpts) LocationJSON {
	return LocationJSON{
		File:      formatPath(loc.URI, opts.PathMode, opts.BaseDir),
		StartLine: loc.Range.StartLine + 1,
		StartCol:  loc.Range.StartCol + 1,
		EndLine:   loc.Range.EndLine + 1,
		EndCol:    loc.Range.EndCol + 1,
		Mapped:    loc.Mapped,
	}
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(items []diag.Diagnostic, opts JSONOpts) DiagnosticsOutput {
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	diagnostics := make([]DiagnosticJSON, 0, n)
	for i := range n {
		d := &items[i]
		out := DiagnosticJSON{
			Severity:      d.Severity.Label(),
			Rule:          d.RuleID,
			RuleName:      d.RuleName,
			Tool:          d.Tool,
			Message:       d.Message.Plain,
			Location:      makeLocation(d.Location, opts),
			Document:      formatPath(d.Document, opts.PathMode, opts.BaseDir),
			Run:           d.RunIndex,
			Result:        d.ResultIndex,
			BaselineState: d.BaselineState,
			CodeFlowSteps: d.CodeFlowSteps,
			Fixes:         d.Fixes,
		}
		if opts.IncludeLog {
			log := makeLocation(d.LocationInSarifFile, opts)
			out.Log = &log
		}
		if opts.IncludeRelated && len(d.RelatedLocations) > 0 {
			out.Related = make([]NoteJSON, len(d.RelatedLocations))
			for j, rel := range d.RelatedLocations {
				note := NoteJSON{Location: makeLocation(rel, opts)}
				if rel.Message != nil {
					note.Message = rel.Message.Plain
				}
				out.Related[j] = note
			}
		}
		diagnostics = append(diagnostics, out)
	}
	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       len(diagnostics),
		Total:       len(items),
	}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, items []diag.Diagnostic, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(items, opts))
}
