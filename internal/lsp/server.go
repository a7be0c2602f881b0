package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"sarifnav/internal/diag"
	"sarifnav/internal/ingest"
	"sarifnav/internal/version"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Ingest configures the engine the server owns. A nil Notifier reports
	// through window/showMessage.
	Ingest         ingest.Options
	Debounce       time.Duration
	MaxDiagnostics int
}

// Server serves SARIF logs over stdio JSON-RPC: open logs are ingested and
// their results published as diagnostics on the analyzed files.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	engine *ingest.Engine
	unsub  func()

	// pubMu orders publishes; lastPublished is the newest store version sent.
	pubMu         sync.Mutex
	lastPublished uint64

	mu                sync.Mutex
	openDocs          map[string]string
	versions          map[string]int
	timers            map[string]*time.Timer
	published         map[string]struct{}
	workspaceRoot     string
	shutdownRequested bool
	debounce          time.Duration
	maxDiagnostics    int
	baseCtx           context.Context
	traceLSP          bool
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) (*Server, error) {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = 500
	}
	s := &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		openDocs:       make(map[string]string),
		versions:       make(map[string]int),
		timers:         make(map[string]*time.Timer),
		published:      make(map[string]struct{}),
		debounce:       debounce,
		maxDiagnostics: maxDiagnostics,
		baseCtx:        context.Background(),
	}
	if opts.Ingest.Notifier == nil {
		opts.Ingest.Notifier = s
	}
	engine, err := ingest.New(opts.Ingest)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.unsub = engine.Diagnostics().Subscribe(s.publishSnapshot)
	return s, nil
}

// Engine returns the engine behind the server.
func (s *Server) Engine() *ingest.Engine { return s.engine }

// Run serves LSP requests until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer s.close()
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) close() {
	s.mu.Lock()
	for uri, t := range s.timers {
		t.Stop()
		delete(s.timers, uri)
	}
	s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
	}
	s.engine.Shutdown()
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/foldingRange":
		return s.handleFoldingRange(msg)
	case "sarif/locate":
		return s.handleLocate(msg)
	case "sarif/remember":
		return s.handleRemember(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

type searchRootAdder interface {
	AddSearchRoot(dir string)
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	root := workspaceRoot(params)
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()
	if adder, ok := s.engine.Artifacts().(searchRootAdder); ok && root != "" {
		adder.AddSearchRoot(root)
	}

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			HoverProvider:        true,
			DefinitionProvider:   true,
			FoldingRangeProvider: true,
		},
		ServerInfo: serverInfo{Name: "sarifnav", Version: version.Version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

// isSarif reports whether a document is handled by the server.
func isSarif(uri, languageID string) bool {
	if strings.EqualFold(languageID, "sarif") {
		return true
	}
	lower := strings.ToLower(uri)
	return strings.HasSuffix(lower, ".sarif") || strings.HasSuffix(lower, ".sarif.json")
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" || !isSarif(uri, params.TextDocument.LanguageID) {
		return nil
	}
	s.mu.Lock()
	s.openDocs[uri] = params.TextDocument.Text
	s.versions[uri] = params.TextDocument.Version
	s.mu.Unlock()
	s.ingest(uri)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	text, ok := s.openDocs[uri]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.openDocs[uri] = applyChanges(text, params.ContentChanges)
	s.versions[uri] = params.TextDocument.Version
	trace := s.traceLSP
	s.mu.Unlock()
	if trace {
		s.logf("didChange: uri=%s version=%d", uri, params.TextDocument.Version)
	}
	s.scheduleIngest(uri)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	if _, ok := s.openDocs[uri]; !ok {
		s.mu.Unlock()
		return nil
	}
	if params.Text != nil {
		s.openDocs[uri] = *params.Text
	}
	s.mu.Unlock()
	s.scheduleIngest(uri)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	s.mu.Lock()
	_, ok := s.openDocs[uri]
	delete(s.openDocs, uri)
	delete(s.versions, uri)
	if t, ok := s.timers[uri]; ok {
		t.Stop()
		delete(s.timers, uri)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	// Close syncs the store; publishSnapshot clears what disappeared.
	s.engine.Close(uri)
	return nil
}

func (s *Server) handleRemember(msg *rpcMessage) error {
	var params rememberParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || params.URI == "" || params.Target == "" {
		return s.replyError(msg, codeInvalidParams, "invalid params")
	}
	rem, ok := s.engine.Artifacts().(interface {
		Remember(combined, uriBase, target string) error
	})
	if !ok {
		return s.replyError(msg, codeMethodNotFound, "artifact resolver cannot remember choices")
	}
	target := params.Target
	if p := uriToPath(target); p != "" {
		target = pathToURI(p)
	}
	if err := rem.Remember(params.URI, params.URIBase, target); err != nil {
		return s.replyError(msg, codeInternalError, err.Error())
	}
	if len(msg.ID) > 0 {
		return s.sendResponse(msg.ID, nil)
	}
	return nil
}

// replyError answers requests and logs failed notifications.
func (s *Server) replyError(msg *rpcMessage, code int, message string) error {
	if len(msg.ID) == 0 {
		s.logf("%s: %s", msg.Method, message)
		return nil
	}
	return s.sendError(msg.ID, code, message)
}

// Error implements ingest.Notifier.
func (s *Server) Error(uri string, err error) {
	s.logf("%v", err)
	if sendErr := s.sendNotification("window/showMessage", showMessageParams{Type: 1, Message: err.Error()}); sendErr != nil {
		s.logf("failed to show message for %s: %v", uri, sendErr)
	}
}

// Progress implements ingest.Notifier.
func (s *Server) Progress(uri string, runIndex, processed, total int) {
	if s.currentTrace() {
		s.logf("ingest %s: run %d %d/%d", uri, runIndex, processed, total)
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	return s.send(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: list,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}

func (s *Server) diagnosticAt(uri string, pos position) (diag.Diagnostic, bool) {
	ref, ok := s.resultAt(uri, pos)
	if !ok {
		return diag.Diagnostic{}, false
	}
	return s.engine.Diagnostics().Get(diag.Key{Document: uri, RunIndex: ref.Run, ResultIndex: ref.Result})
}
