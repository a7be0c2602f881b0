package lsp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sarifnav/internal/diag"
	"sarifnav/internal/sourcemap"
)

func (s *Server) handleHover(msg *rpcMessage) error {
	var params hoverParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	uri := canonicalURI(params.TextDocument.URI)
	d, ok := s.diagnosticAt(uri, params.Position)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	return s.sendResponse(msg.ID, buildHover(&d, s.resultRange(uri, d.Key)))
}

// resultAt finds the result whose node in the log contains pos. Results of
// a run follow each other in the text, so a binary search per run suffices.
func (s *Server) resultAt(uri string, pos position) (resultRef, bool) {
	ix, ok := s.engine.SourceMaps().Get(uri)
	if !ok {
		return resultRef{}, false
	}
	tree := ix.Tree()
	for i := range tree.Runs {
		results := tree.Runs[i].Results
		if len(results) == 0 {
			continue
		}
		runEntry, err := ix.Lookup(sourcemap.RunPath(i))
		if err != nil || !contains(entryRange(runEntry), pos) {
			continue
		}
		j := sort.Search(len(results), func(j int) bool {
			e, err := ix.Lookup(sourcemap.ResultNodePath(i, j))
			return err == nil && before(pos, entryRange(e).End)
		})
		if j == len(results) {
			continue
		}
		e, err := ix.Lookup(sourcemap.ResultNodePath(i, j))
		if err == nil && contains(entryRange(e), pos) {
			return resultRef{URI: uri, Run: i, Result: j}, true
		}
	}
	return resultRef{}, false
}

func (s *Server) resultRange(uri string, key diag.Key) *lspRange {
	ix, ok := s.engine.SourceMaps().Get(uri)
	if !ok {
		return nil
	}
	e, err := ix.Lookup(sourcemap.ResultNodePath(key.RunIndex, key.ResultIndex))
	if err != nil {
		return nil
	}
	r := entryRange(e)
	return &r
}

func buildHover(d *diag.Diagnostic, rng *lspRange) *hover {
	lines := make([]string, 0, 4)

	head := "**" + d.Severity.Label() + "**"
	if d.RuleID != "" {
		head += " `" + d.RuleID + "`"
	}
	if d.RuleName != "" {
		head += " " + d.RuleName
	}
	if d.Tool != "" {
		head += " · " + d.Tool
	}
	lines = append(lines, head)

	if msg := strings.TrimSpace(d.Message.Markdown); msg != "" {
		lines = append(lines, msg)
	}

	switch {
	case len(d.Locations) == 0:
		lines = append(lines, "_no location_")
	case d.Locations[0].Mapped:
		loc := d.Locations[0]
		lines = append(lines, fmt.Sprintf("[%s:%d:%d](%s)", loc.FileName, loc.Range.StartLine+1, loc.Range.StartCol+1, loc.URI))
	default:
		lines = append(lines, "not mapped: `"+d.Locations[0].URI+"`")
	}

	var extra []string
	if d.CodeFlowSteps > 0 {
		extra = append(extra, fmt.Sprintf("%d code flow steps", d.CodeFlowSteps))
	}
	if d.Fixes > 0 {
		extra = append(extra, fmt.Sprintf("%d fixes", d.Fixes))
	}
	if len(extra) > 0 {
		lines = append(lines, strings.Join(extra, ", "))
	}

	return &hover{
		Contents: markupContent{Kind: "markdown", Value: strings.Join(lines, "\n\n")},
		Range:    rng,
	}
}
