package lsp

import (
	"encoding/json"

	"sarifnav/internal/diag"
)

// handleDefinition jumps from a result in the log to its locations in the
// analyzed files.
func (s *Server) handleDefinition(msg *rpcMessage) error {
	var params definitionParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	d, ok := s.diagnosticAt(canonicalURI(params.TextDocument.URI), params.Position)
	if !ok {
		return s.sendResponse(msg.ID, []location{})
	}
	return s.sendResponse(msg.ID, buildDefinition(&d))
}

func buildDefinition(d *diag.Diagnostic) []location {
	out := make([]location, 0, len(d.Locations))
	for _, loc := range d.Locations {
		if loc.Mapped {
			out = append(out, toLSPLocation(loc))
		}
	}
	return out
}
