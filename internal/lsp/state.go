package lsp

func (s *Server) currentMaxDiagnostics() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxDiagnostics
}

func (s *Server) currentTrace() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.traceLSP
}

func (s *Server) isOpen(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.openDocs[uri]
	return ok
}
