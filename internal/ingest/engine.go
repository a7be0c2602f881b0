package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"sync"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
	"sarifnav/internal/observ"
	"sarifnav/internal/resolve"
	"sarifnav/internal/sarif"
	"sarifnav/internal/source"
	"sarifnav/internal/sourcemap"
	"sarifnav/internal/trace"
)

// ErrUnknownResult is returned by Locate for keys with no diagnostic.
var ErrUnknownResult = errors.New("unknown result")

// Options configures an Engine. Nil collaborators get the defaults of this
// package.
type Options struct {
	Artifacts   artifact.Resolver
	Diagnostics *diag.Store
	SourceMaps  *sourcemap.Store
	Upgrader    Upgrader
	RunInfo     RunInfoBuilder
	ThreadFlows ThreadFlowMapper
	ResultInfo  ResultInfoBuilder
	Builder     DiagnosticBuilder
	Notifier    Notifier
	// URIBases are used for uriBaseIds a log does not define.
	URIBases map[string]string
	// Strict fails an attempt on the first invalid region.
	Strict bool
	Tracer trace.Tracer
}

// Report summarizes one ingestion attempt.
type Report struct {
	URI            string
	State          State
	Version        string
	Runs           int
	Results        int
	InvalidRegions int
	// Unmapped counts results shown inside the log because no artifact
	// location could be mapped.
	Unmapped int
	// Reason is set when the attempt stopped without an error, e.g. on
	// ErrUnsupportedSchema.
	Reason  error
	Timings observ.Report
}

// Located is the pair of places a result can be shown at.
type Located struct {
	Diagnostic diag.Diagnostic
	Artifact   nav.Location
	Log        nav.Location
}

type document struct {
	state  State
	runIDs []int
	file   *source.File
	report *Report
}

// Engine ingests SARIF documents into a diagnostics store.
type Engine struct {
	opts     Options
	tracer   trace.Tracer
	resolver *resolve.Resolver
	files    *source.FileSet
	unsub    func()

	mu        sync.Mutex
	docs      map[string]*document
	runs      map[int]RunInfo
	invalid   map[int]int
	nextRunID int
}

// New creates an engine, filling in default collaborators.
func New(opts Options) (*Engine, error) {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diag.NewStore()
	}
	if opts.SourceMaps == nil {
		store, err := sourcemap.NewStore(sourcemap.StoreOptions{RetainOnClose: true})
		if err != nil {
			return nil, err
		}
		opts.SourceMaps = store
	}
	if opts.Artifacts == nil {
		opts.Artifacts = artifact.NewFSResolver(artifact.FSOptions{})
	}

	e := &Engine{
		tracer:  opts.Tracer,
		files:   source.NewFileSet(),
		docs:    make(map[string]*document),
		runs:    make(map[int]RunInfo),
		invalid: make(map[int]int),
	}
	e.resolver = &resolve.Resolver{
		Artifacts: opts.Artifacts,
		Bases:     e,
		Strict:    opts.Strict,
		Tracer:    opts.Tracer,
		OnInvalid: e.countInvalid,
	}

	if opts.Upgrader == nil {
		opts.Upgrader = &NopUpgrader{}
	}
	if opts.RunInfo == nil {
		opts.RunInfo = DefaultRunInfo{Fallback: opts.URIBases}
	}
	if opts.ThreadFlows == nil {
		opts.ThreadFlows = &DefaultThreadFlows{Resolver: e.resolver}
	}
	if opts.ResultInfo == nil {
		opts.ResultInfo = DefaultResultInfo{Resolver: e.resolver}
	}
	if opts.Builder == nil {
		opts.Builder = DefaultBuilder{}
	}
	if opts.Notifier == nil {
		opts.Notifier = TraceNotifier{Tracer: opts.Tracer}
	}
	e.opts = opts

	e.unsub = opts.Artifacts.OnMappingChanged(func(ch artifact.MappingChange) {
		n := e.opts.Diagnostics.Refresh(context.Background(), e.Remap)
		trace.Point(e.tracer, trace.ScopeSession, "mapping.changed", 0, ch.Key,
			"target", ch.Target, "refreshed", strconv.Itoa(n))
	})
	return e, nil
}

// Shutdown detaches the engine from the artifact resolver.
func (e *Engine) Shutdown() {
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
}

func (e *Engine) Diagnostics() *diag.Store { return e.opts.Diagnostics }
func (e *Engine) SourceMaps() *sourcemap.Store { return e.opts.SourceMaps }
func (e *Engine) Artifacts() artifact.Resolver { return e.opts.Artifacts }
func (e *Engine) Resolver() *resolve.Resolver { return e.resolver }
func (e *Engine) ThreadFlows() ThreadFlowMapper { return e.opts.ThreadFlows }

// URIBase implements resolve.BaseLookup.
func (e *Engine) URIBase(runID int, id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info, ok := e.runs[runID]; ok {
		if base, ok := info.URIBases[id]; ok {
			return base
		}
	}
	return e.opts.URIBases[id]
}

func (e *Engine) countInvalid(runID int, _ error) {
	e.mu.Lock()
	e.invalid[runID]++
	e.mu.Unlock()
}

// Open ingests text as the new content of uri.
func (e *Engine) Open(ctx context.Context, uri string, text []byte) (*Report, error) {
	content, hadBOM := source.StripBOM(text)
	flags := source.FileVirtual
	if hadBOM {
		flags |= source.FileHadBOM
	}
	return e.attempt(ctx, uri, source.NewFile(uri, content, flags))
}

// Read ingests uri from disk. Documents that are not on disk are re-read
// from the text they were last opened with.
func (e *Engine) Read(ctx context.Context, uri string) (*Report, error) {
	var file *source.File
	var loadErr error
	if p, ok := artifact.LocalPath(uri); ok {
		id, err := e.files.Load(p)
		if err == nil {
			file = e.files.Get(id)
		} else {
			loadErr = err
		}
	}
	if file == nil {
		e.mu.Lock()
		if doc, ok := e.docs[uri]; ok {
			file = doc.file
		}
		e.mu.Unlock()
	}
	if file == nil {
		if loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", uri, loadErr)
		}
		return nil, fmt.Errorf("read %s: %w", uri, ErrUnknownDocument)
	}
	return e.attempt(ctx, uri, file)
}

func (e *Engine) attempt(ctx context.Context, uri string, file *source.File) (*Report, error) {
	unlock := e.opts.SourceMaps.Lock(uri)
	defer unlock()

	timer := observ.NewTimer()
	span := trace.BeginDocument(e.tracer, "ingest", uri, trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID(), Document: uri})

	report := &Report{URI: uri, State: StateParsing}
	defer func() {
		report.Timings = timer.Report()
		span.WithExtra("results", strconv.Itoa(report.Results)).End(report.State.String())
	}()

	e.begin(uri, file)

	parsed := timer.Track("parse")
	ix, err := sourcemap.ParseFile(uri, file)
	if err != nil {
		parsed("failed")
		return report, e.fail(uri, report, nil, err)
	}
	parsed(strconv.Itoa(ix.Len()) + " nodes")

	tree := ix.Tree()
	report.Version = tree.SchemaVersion()
	if !sarif.IsSupported(report.Version) {
		report.State = StateUpgrading
		report.Reason = fmt.Errorf("%w: %q", ErrUnsupportedSchema, report.Version)
		span.Point(trace.ScopeDocument, "ingest.upgrade", report.Reason.Error())
		if err := e.opts.Upgrader.Upgrade(ctx, uri, report.Version); err != nil {
			e.opts.Notifier.Error(uri, fmt.Errorf("upgrade %s: %w", uri, err))
		}
		e.finish(uri, report, nil)
		return report, nil
	}

	e.setState(uri, StateProcessingRuns)
	processed := timer.Track("runs")
	pending, runIDs, err := e.processRuns(ctx, uri, ix, report, span)
	report.InvalidRegions = e.invalidOf(runIDs)
	if err != nil {
		processed("failed")
		return report, e.fail(uri, report, runIDs, err)
	}
	processed(strconv.Itoa(report.Results) + " results")

	committed := timer.Track("commit")
	report.State = StateDone
	old := e.finish(uri, report, runIDs)
	e.opts.SourceMaps.Put(uri, ix)
	e.opts.Diagnostics.RemoveRuns(old...)
	for i := range pending {
		e.opts.Diagnostics.Add(pending[i])
	}
	e.forgetRuns(old)
	e.opts.Diagnostics.Sync()
	committed("")
	return report, nil
}

// fail ends an attempt in StateFailed. Runs registered by the attempt are
// dropped; the previous state of the document stays committed.
func (e *Engine) fail(uri string, report *Report, runIDs []int, cause error) error {
	report.State = StateFailed
	e.finish(uri, report, nil)
	e.forgetRuns(runIDs)
	err := fmt.Errorf("ingest %s: %w", uri, cause)
	e.opts.Notifier.Error(uri, err)
	return err
}

func (e *Engine) begin(uri string, file *source.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		doc = &document{}
		e.docs[uri] = doc
	}
	doc.file = file
	doc.state = StateParsing
}

func (e *Engine) setState(uri string, s State) {
	e.mu.Lock()
	if doc, ok := e.docs[uri]; ok {
		doc.state = s
	}
	e.mu.Unlock()
}

// finish records the outcome of an attempt. With committed run ids they
// replace the document's runs and the previous ids are returned.
func (e *Engine) finish(uri string, report *Report, runIDs []int) (previous []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return nil
	}
	doc.state = report.State
	doc.report = report
	if report.State == StateDone {
		previous = doc.runIDs
		doc.runIDs = runIDs
	}
	return previous
}

func (e *Engine) processRuns(ctx context.Context, uri string, ix *sourcemap.Index, report *Report, parent *trace.Span) ([]diag.Diagnostic, []int, error) {
	tree := ix.Tree()
	var pending []diag.Diagnostic
	var runIDs []int

	for i := range tree.Runs {
		run := &tree.Runs[i]
		info := e.registerRun(e.opts.RunInfo.Build(uri, i, run))
		runIDs = append(runIDs, info.RunID)

		runSpan := parent.Child(trace.ScopeRun, "run:"+info.ToolName).
			WithExtra("run", strconv.Itoa(i)).
			WithExtra("results", strconv.Itoa(len(run.Results)))

		ctx := ctx
		if runSpan.ID() != 0 {
			ctx = trace.WithSpanContext(ctx, runSpan.Context())
		}
		if err := e.opts.ThreadFlows.Map(ctx, info.RunID, run); err != nil {
			runSpan.End("failed")
			return pending, runIDs, fmt.Errorf("runs[%d]: %w", i, err)
		}
		e.opts.Artifacts.ResolveRunArtifacts(ctx, info.RunID, run.Artifacts, info.URIBases)

		prog := newProgress(len(run.Results))
		for j := range run.Results {
			d, err := e.processResult(ctx, uri, ix, &info, i, j)
			if err != nil {
				runSpan.End("failed")
				return pending, runIDs, fmt.Errorf("runs[%d].results[%d]: %w", i, j, err)
			}
			pending = append(pending, d)
			report.Results++
			if d.InLog() {
				report.Unmapped++
			}
			if prog.step(j + 1) {
				e.opts.Notifier.Progress(uri, i, j+1, len(run.Results))
			}
		}
		report.Runs++
		runSpan.End("")
	}
	return pending, runIDs, nil
}

func (e *Engine) processResult(ctx context.Context, uri string, ix *sourcemap.Index, run *RunInfo, runIndex, resultIndex int) (diag.Diagnostic, error) {
	tree := ix.Tree()
	result := &tree.Runs[runIndex].Results[resultIndex]

	info, err := e.opts.ResultInfo.Build(ctx, run, result)
	if err != nil {
		return diag.Diagnostic{}, err
	}

	node := sourcemap.ResultNodePath(runIndex, resultIndex)
	inLog := mustLocate(ix, node, true)

	var assigned nav.Location
	if len(info.Locations) > 0 && info.Locations[0].Mapped {
		assigned = info.Locations[0]
	} else {
		assigned = mustLocate(ix, sourcemap.ResultPath(runIndex, resultIndex, tree), false)
	}

	return e.opts.Builder.Build(BuildInput{
		Document:    uri,
		RunIndex:    runIndex,
		ResultIndex: resultIndex,
		Run:         run,
		Info:        info,
		Assigned:    assigned,
		InLog:       inLog,
		Node:        node,
	}), nil
}

// mustLocate looks up a path derived from the tree parsed from the same
// text; a miss is a bug in the source map, not bad input.
func mustLocate(ix *sourcemap.Index, path string, insertion bool) nav.Location {
	loc, err := ix.LocationOf(path, insertion)
	if err != nil {
		panic(fmt.Errorf("ingest: %w", err))
	}
	return loc
}

func (e *Engine) registerRun(info RunInfo) RunInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	info.RunID = e.nextRunID
	e.nextRunID++
	e.runs[info.RunID] = info
	return info
}

func (e *Engine) invalidOf(runIDs []int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, id := range runIDs {
		n += e.invalid[id]
	}
	return n
}

type runForgetter interface {
	ForgetRun(runID int)
}

func (e *Engine) forgetRuns(runIDs []int) {
	if len(runIDs) == 0 {
		return
	}
	e.mu.Lock()
	for _, id := range runIDs {
		delete(e.runs, id)
		delete(e.invalid, id)
	}
	e.mu.Unlock()
	for _, id := range runIDs {
		e.opts.ThreadFlows.Forget(id)
		if f, ok := e.opts.Artifacts.(runForgetter); ok {
			f.ForgetRun(id)
		}
	}
}

// Close drops the diagnostics of uri and forgets its state. It reports
// how many diagnostics were removed and whether the document was known.
func (e *Engine) Close(uri string) (removed int, ok bool) {
	unlock := e.opts.SourceMaps.Lock(uri)
	defer unlock()

	e.mu.Lock()
	doc, ok := e.docs[uri]
	delete(e.docs, uri)
	e.mu.Unlock()
	if !ok {
		return 0, false
	}

	removed = e.opts.Diagnostics.RemoveRuns(doc.runIDs...)
	e.forgetRuns(doc.runIDs)
	e.opts.SourceMaps.Release(uri)
	e.files.Forget(uri)
	e.opts.Diagnostics.Sync()
	trace.Point(e.tracer, trace.ScopeDocument, "close", 0, uri, "removed", strconv.Itoa(removed))
	return removed, true
}

// State returns the state of the latest attempt of uri.
func (e *Engine) State(uri string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if doc, ok := e.docs[uri]; ok {
		return doc.state
	}
	return StateIdle
}

// Report returns the report of the latest finished attempt of uri.
func (e *Engine) Report(uri string) (*Report, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok || doc.report == nil {
		return nil, false
	}
	return doc.report, true
}

// Documents returns the open documents in sorted order.
func (e *Engine) Documents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.docs))
	for uri := range e.docs {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// Runs returns the committed runs of uri in document order.
func (e *Engine) Runs(uri string) []RunInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	doc, ok := e.docs[uri]
	if !ok {
		return nil
	}
	out := make([]RunInfo, 0, len(doc.runIDs))
	for _, id := range doc.runIDs {
		if info, ok := e.runs[id]; ok {
			out = append(out, info)
		}
	}
	return out
}

// result returns the SARIF node of d from the retained source map.
func (e *Engine) result(d *diag.Diagnostic) (*sourcemap.Index, *sarif.Result, *RunInfo, bool) {
	ix, ok := e.opts.SourceMaps.Get(d.Document)
	if !ok {
		return nil, nil, nil, false
	}
	tree := ix.Tree()
	if d.RunIndex >= len(tree.Runs) || d.ResultIndex >= len(tree.Runs[d.RunIndex].Results) {
		return nil, nil, nil, false
	}
	e.mu.Lock()
	info, ok := e.runs[d.RunID]
	e.mu.Unlock()
	if !ok {
		return nil, nil, nil, false
	}
	return ix, &tree.Runs[d.RunIndex].Results[d.ResultIndex], &info, true
}

// Remap re-resolves the locations of d. It is the diag.Remapper used when
// an artifact mapping changes.
func (e *Engine) Remap(ctx context.Context, d *diag.Diagnostic) bool {
	_, result, run, ok := e.result(d)
	if !ok {
		return false
	}
	locs, err := e.resolver.LocationsOf(ctx, result.Locations, run.RunID)
	if err != nil || len(locs) == 0 || !locs[0].Mapped {
		return false
	}
	if locs[0].URI == d.Location.URI && locs[0].Range == d.Location.Range {
		return false
	}
	d.Locations = locs
	d.Location = locs[0]
	return true
}

// Locate returns where the result under key is shown in its artifact and
// in the log. With prompt set, an unmapped artifact is offered to the
// artifact resolver for a user choice first.
func (e *Engine) Locate(ctx context.Context, key diag.Key, prompt bool) (Located, error) {
	d, ok := e.opts.Diagnostics.Get(key)
	if !ok {
		return Located{}, fmt.Errorf("%w: %s runs[%d].results[%d]", ErrUnknownResult, key.Document, key.RunIndex, key.ResultIndex)
	}
	out := Located{Diagnostic: d, Artifact: d.Location, Log: d.LocationInSarifFile}
	if len(d.Locations) > 0 {
		out.Artifact = d.Locations[0]
	}

	ix, result, run, ok := e.result(&d)
	if !ok {
		return out, nil
	}
	if loc, err := ix.LocationOf(sourcemap.ResultPath(d.RunIndex, d.ResultIndex, ix.Tree()), false); err == nil {
		out.Log = loc
	}
	if prompt && !out.Artifact.Mapped && len(result.Locations) > 0 {
		existing := out.Artifact
		loc, err := e.resolver.Reresolve(ctx, &existing, &result.Locations[0], run.RunID)
		if err != nil {
			return out, err
		}
		out.Artifact = loc
		if refreshed, ok := e.opts.Diagnostics.Get(key); ok {
			out.Diagnostic = refreshed
		}
	}
	return out, nil
}
