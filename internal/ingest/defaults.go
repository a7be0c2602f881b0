package ingest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
	"sarifnav/internal/resolve"
	"sarifnav/internal/sarif"
	"sarifnav/internal/trace"
)

// DefaultRunInfo reads tool metadata and the uriBaseId table of a run.
// Fallback supplies bases the log does not declare (or declares without a URI).
type DefaultRunInfo struct {
	Fallback map[string]string
}

func (d DefaultRunInfo) Build(document string, runIndex int, run *sarif.Run) RunInfo {
	info := RunInfo{Document: document, RunIndex: runIndex}
	if run == nil {
		info.URIBases = copyBases(d.Fallback)
		return info
	}
	info.ToolName = run.Tool.Driver.Name
	info.ToolVersion = run.Tool.Driver.Version
	if info.ToolVersion == "" {
		info.ToolVersion = run.Tool.Driver.SemanticVersion
	}
	info.Rules = run.Tool.Driver.Rules
	info.Results = len(run.Results)
	info.URIBases = resolveBases(run.OriginalURIBaseIDs, d.Fallback)
	return info
}

func copyBases(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// resolveBases flattens nested uriBaseIds (a base relative to another base).
func resolveBases(declared map[string]sarif.ArtifactLocation, fallback map[string]string) map[string]string {
	out := copyBases(fallback)
	visiting := make(map[string]bool)
	var resolveID func(id string) string
	resolveID = func(id string) string {
		loc, ok := declared[id]
		if !ok || loc.URI == "" {
			return fallback[id]
		}
		if visiting[id] {
			// цикл в uriBaseIds, берём как есть
			return loc.URI
		}
		visiting[id] = true
		defer delete(visiting, id)
		if loc.URIBaseID == "" {
			return loc.URI
		}
		return artifact.Combine(resolveID(loc.URIBaseID), loc.URI)
	}
	for id := range declared {
		if v := resolveID(id); v != "" {
			out[id] = v
		}
	}
	return out
}

// FlowStep is one resolved thread-flow location. ResultIndex is -1 for the
// run-level shared threadFlowLocations table.
type FlowStep struct {
	ResultIndex  int
	CodeFlow     int
	ThreadFlow   int
	Step         int
	Location     nav.Location
	Kinds        []string
	NestingLevel int
	Importance   string
}

// DefaultThreadFlows resolves every code-flow step of a run and keeps the
// steps for lookup until the run is forgotten.
type DefaultThreadFlows struct {
	Resolver *resolve.Resolver

	mu    sync.RWMutex
	steps map[int][]FlowStep
}

func (d *DefaultThreadFlows) Map(ctx context.Context, runID int, run *sarif.Run) error {
	if run == nil {
		return nil
	}
	var steps []FlowStep
	for i := range run.ThreadFlowLocations {
		step, err := d.step(ctx, runID, run, &run.ThreadFlowLocations[i])
		if err != nil {
			return fmt.Errorf("threadFlowLocations[%d]: %w", i, err)
		}
		step.ResultIndex, step.Step = -1, i
		steps = append(steps, step)
	}
	for r := range run.Results {
		for c, cf := range run.Results[r].CodeFlows {
			for t, tf := range cf.ThreadFlows {
				for s := range tf.Locations {
					step, err := d.step(ctx, runID, run, &tf.Locations[s])
					if err != nil {
						return fmt.Errorf("results[%d].codeFlows[%d]: %w", r, c, err)
					}
					step.ResultIndex, step.CodeFlow, step.ThreadFlow, step.Step = r, c, t, s
					steps = append(steps, step)
				}
			}
		}
	}

	d.mu.Lock()
	if d.steps == nil {
		d.steps = make(map[int][]FlowStep)
	}
	d.steps[runID] = steps
	d.mu.Unlock()
	return nil
}

func (d *DefaultThreadFlows) step(ctx context.Context, runID int, run *sarif.Run, tfl *sarif.ThreadFlowLocation) (FlowStep, error) {
	step := FlowStep{Kinds: tfl.Kinds, Importance: tfl.Importance}
	if tfl.NestingLevel != nil {
		step.NestingLevel = *tfl.NestingLevel
	}
	node := tfl.Location
	if node == nil && tfl.Index != nil && *tfl.Index >= 0 && *tfl.Index < len(run.ThreadFlowLocations) {
		node = run.ThreadFlowLocations[*tfl.Index].Location
	}
	if d.Resolver == nil {
		step.Location = nav.Default()
		return step, nil
	}
	loc, err := d.Resolver.Resolve(ctx, node, runID)
	step.Location = loc
	return step, err
}

// Steps returns the steps of one result of a run, in document order.
func (d *DefaultThreadFlows) Steps(runID, resultIndex int) []FlowStep {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []FlowStep
	for _, s := range d.steps[runID] {
		if s.ResultIndex == resultIndex {
			out = append(out, s)
		}
	}
	return out
}

func (d *DefaultThreadFlows) Forget(runID int) {
	d.mu.Lock()
	delete(d.steps, runID)
	d.mu.Unlock()
}

// DefaultResultInfo extracts rule, level and message of a result and
// resolves its locations.
type DefaultResultInfo struct {
	Resolver *resolve.Resolver
}

func (d DefaultResultInfo) Build(ctx context.Context, run *RunInfo, result *sarif.Result) (ResultInfo, error) {
	info := ResultInfo{
		RuleID:        result.RuleID,
		Kind:          result.Kind,
		BaselineState: result.BaselineState,
		Level:         result.Level,
		Message:       result.Message.Rich(),
		Fixes:         len(result.Fixes),
	}

	rule := run.Rule(result.RuleID, result.RuleIndex)
	if rule != nil {
		if info.RuleID == "" {
			info.RuleID = rule.ID
		}
		info.RuleName = rule.Name
		if info.Level == "" && rule.DefaultConfiguration != nil {
			info.Level = rule.DefaultConfiguration.Level
		}
		if info.Message.Empty() && rule.ShortDescription != nil {
			info.Message = rule.ShortDescription.Rich()
		}
	}
	if info.Level == "" {
		info.Level = "warning"
	}
	if info.RuleID == "" && result.RuleIndex != nil {
		info.RuleID = "#" + strconv.Itoa(*result.RuleIndex)
	}

	for _, cf := range result.CodeFlows {
		for _, tf := range cf.ThreadFlows {
			info.CodeFlowSteps += len(tf.Locations)
		}
	}

	if d.Resolver == nil {
		return info, nil
	}
	runID := 0
	if run != nil {
		runID = run.RunID
	}
	var err error
	if info.Locations, err = d.Resolver.LocationsOf(ctx, result.Locations, runID); err != nil {
		return info, fmt.Errorf("locations: %w", err)
	}
	if info.RelatedLocations, err = d.Resolver.LocationsOf(ctx, result.RelatedLocations, runID); err != nil {
		return info, fmt.Errorf("relatedLocations: %w", err)
	}
	return info, nil
}

// DefaultBuilder maps a located result onto diag.Diagnostic.
type DefaultBuilder struct{}

func (DefaultBuilder) Build(in BuildInput) diag.Diagnostic {
	d := diag.Diagnostic{
		Key: diag.Key{
			Document:    in.Document,
			RunIndex:    in.RunIndex,
			ResultIndex: in.ResultIndex,
		},
		Severity:            diag.FromLevel(in.Info.Level),
		RuleID:              in.Info.RuleID,
		RuleName:            in.Info.RuleName,
		Kind:                in.Info.Kind,
		BaselineState:       in.Info.BaselineState,
		Message:             in.Info.Message,
		Location:            in.Assigned,
		LocationInSarifFile: in.InLog,
		Locations:           in.Info.Locations,
		RelatedLocations:    in.Info.RelatedLocations,
		CodeFlowSteps:       in.Info.CodeFlowSteps,
		Fixes:               in.Info.Fixes,
		Node:                in.Node,
	}
	if in.Run != nil {
		d.RunID = in.Run.RunID
		d.Tool = in.Run.ToolName
	}
	return d
}

// UpgradeRequest records one call of NopUpgrader.
type UpgradeRequest struct {
	URI     string
	Version string
}

// NopUpgrader accepts upgrade requests and only records them.
type NopUpgrader struct {
	mu       sync.Mutex
	requests []UpgradeRequest
}

func (u *NopUpgrader) Upgrade(_ context.Context, uri, version string) error {
	u.mu.Lock()
	u.requests = append(u.requests, UpgradeRequest{URI: uri, Version: version})
	u.mu.Unlock()
	return nil
}

func (u *NopUpgrader) Requests() []UpgradeRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]UpgradeRequest(nil), u.requests...)
}

// TraceNotifier reports through the tracer only.
type TraceNotifier struct {
	Tracer trace.Tracer
}

func (n TraceNotifier) Error(uri string, err error) {
	trace.Point(n.Tracer, trace.ScopeSession, "ingest.error", 0, err.Error(), "uri", uri)
}

func (n TraceNotifier) Progress(uri string, runIndex, processed, total int) {
	trace.Point(n.Tracer, trace.ScopeRun, "ingest.progress", 0, "",
		"uri", uri,
		"run", strconv.Itoa(runIndex),
		"processed", strconv.Itoa(processed),
		"total", strconv.Itoa(total))
}
