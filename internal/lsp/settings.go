package lsp

import "encoding/json"

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if s.applySettings(params.Settings) {
		s.republish()
	}
	return nil
}

// applySettings reports whether published diagnostics need a refresh.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.Sarifnav.LSP.Trace != nil {
		s.traceLSP = *settings.Sarifnav.LSP.Trace
	}
	if n := settings.Sarifnav.MaxDiagnostics; n != nil && *n > 0 && *n != s.maxDiagnostics {
		s.maxDiagnostics = *n
		return true
	}
	return false
}
