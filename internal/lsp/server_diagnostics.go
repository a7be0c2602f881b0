package lsp

import (
	"sort"
	"time"

	"sarifnav/internal/diag"
	"sarifnav/internal/ingest"
)

func (s *Server) scheduleIngest(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[uri]; ok {
		t.Stop()
	}
	s.timers[uri] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.timers, uri)
		s.mu.Unlock()
		s.ingest(uri)
	})
}

// ingest runs one attempt for the current text of uri. Failures reach the
// client through the engine's notifier.
func (s *Server) ingest(uri string) {
	s.mu.Lock()
	text, ok := s.openDocs[uri]
	version := s.versions[uri]
	ctx := s.baseCtx
	s.mu.Unlock()
	if !ok {
		return
	}
	report, err := s.engine.Open(ctx, uri, []byte(text))
	if err != nil {
		return
	}
	if report.State == ingest.StateUpgrading {
		s.logf("%s: %v", uri, report.Reason)
		return
	}
	if s.currentTrace() {
		s.logf("ingested %s v%d: runs=%d results=%d unmapped=%d invalidRegions=%d",
			uri, version, report.Runs, report.Results, report.Unmapped, report.InvalidRegions)
	}
}

// publishURI is where a diagnostic is shown: its artifact when mapped,
// otherwise the log it came from.
func publishURI(d *diag.Diagnostic) string {
	if d.Location.Mapped && d.Location.URI != "" {
		return d.Location.URI
	}
	return d.Document
}

// publishSnapshot sends snap unless a newer one was already published.
// Subscribers run outside the store lock, so snapshots may arrive out of
// order.
func (s *Server) publishSnapshot(snap diag.Snapshot) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if snap.Version < s.lastPublished {
		return
	}
	s.lastPublished = snap.Version

	items := make([]diag.Diagnostic, len(snap.Items))
	copy(items, snap.Items)
	diag.Sort(items)

	limit := s.currentMaxDiagnostics()
	groups := make(map[string][]lspDiagnostic)
	for i := range items {
		uri := publishURI(&items[i])
		if len(groups[uri]) >= limit {
			continue
		}
		groups[uri] = append(groups[uri], toLSPDiagnostic(&items[i]))
	}

	s.mu.Lock()
	prev := s.published
	s.published = make(map[string]struct{}, len(groups))
	for uri := range groups {
		s.published[uri] = struct{}{}
	}
	s.mu.Unlock()

	uris := make([]string, 0, len(groups))
	for uri := range groups {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, groups[uri]); err != nil {
			s.logf("failed to publish diagnostics: %v", err)
		}
	}

	stale := make([]string, 0, len(prev))
	for uri := range prev {
		if _, ok := groups[uri]; !ok {
			stale = append(stale, uri)
		}
	}
	sort.Strings(stale)
	for _, uri := range stale {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

func (s *Server) republish() {
	s.publishSnapshot(s.engine.Diagnostics().Snapshot())
}

func (s *Server) clearPublishedDiagnostics() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	uris := make([]string, 0, len(s.published))
	for uri := range s.published {
		uris = append(uris, uri)
	}
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	sort.Strings(uris)
	for _, uri := range uris {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	default:
		return 3
	}
}

func toLSPDiagnostic(d *diag.Diagnostic) lspDiagnostic {
	message := d.Message.Plain
	if message == "" {
		message = "(no message)"
	}
	source := d.Tool
	if source == "" {
		source = "sarif"
	}
	out := lspDiagnostic{
		Range:    toLSPRange(d.Location.Range),
		Severity: lspSeverity(d.Severity),
		Code:     d.RuleID,
		Source:   source,
		Message:  message,
		Data:     &resultRef{URI: d.Document, Run: d.RunIndex, Result: d.ResultIndex},
	}
	for _, rel := range d.RelatedLocations {
		if !rel.Mapped {
			continue
		}
		info := diagnosticRelatedInformation{Location: toLSPLocation(rel), Message: "related location"}
		if rel.Message != nil && rel.Message.Plain != "" {
			info.Message = rel.Message.Plain
		}
		out.RelatedInformation = append(out.RelatedInformation, info)
	}
	if !d.InLog() {
		out.RelatedInformation = append(out.RelatedInformation, diagnosticRelatedInformation{
			Location: toLSPLocation(d.LocationInSarifFile),
			Message:  "reported here",
		})
	}
	return out
}
