package lsp

import (
	"encoding/json"
	"errors"

	"sarifnav/internal/diag"
	"sarifnav/internal/ingest"
)

// handleLocate answers sarif/locate: where a result lives in its artifact
// and in the log.
func (s *Server) handleLocate(msg *rpcMessage) error {
	var params locateParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.URI == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	key := diag.Key{Document: canonicalURI(params.URI), RunIndex: params.Run, ResultIndex: params.Result}
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	located, err := s.engine.Locate(ctx, key, params.Prompt)
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownResult) {
			return s.sendError(msg.ID, codeUnknownResult, err.Error())
		}
		return s.sendError(msg.ID, codeInternalError, err.Error())
	}
	return s.sendResponse(msg.ID, locateResult{
		Artifact: toLSPLocation(located.Artifact),
		Mapped:   located.Artifact.Mapped,
		Log:      toLSPLocation(located.Log),
	})
}
