package lsp

import (
	"encoding/json"
	"sort"

	"sarifnav/internal/sourcemap"
)

func (s *Server) handleFoldingRange(msg *rpcMessage) error {
	var params foldingRangeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	ix, ok := s.engine.SourceMaps().Get(canonicalURI(params.TextDocument.URI))
	if !ok {
		return s.sendResponse(msg.ID, []foldingRange{})
	}
	return s.sendResponse(msg.ID, buildFoldingRanges(ix))
}

// buildFoldingRanges folds every run and every multi-line result.
func buildFoldingRanges(ix *sourcemap.Index) []foldingRange {
	tree := ix.Tree()
	ranges := make([]foldingRange, 0, 8)
	add := func(path string) {
		e, err := ix.Lookup(path)
		if err != nil || e.Value.Line >= e.ValueEnd.Line {
			return
		}
		ranges = append(ranges, foldingRange{StartLine: e.Value.Line, EndLine: e.ValueEnd.Line, Kind: "region"})
	}
	for i := range tree.Runs {
		add(sourcemap.RunPath(i))
		for j := range tree.Runs[i].Results {
			add(sourcemap.ResultNodePath(i, j))
		}
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].StartLine == ranges[j].StartLine {
			return ranges[i].EndLine < ranges[j].EndLine
		}
		return ranges[i].StartLine < ranges[j].StartLine
	})
	return ranges
}
