package ingest

import (
	"context"

	"sarifnav/internal/diag"
	"sarifnav/internal/nav"
	"sarifnav/internal/sarif"
)

// RunInfo describes one registered run.
type RunInfo struct {
	RunID       int
	Document    string
	RunIndex    int
	ToolName    string
	ToolVersion string
	// URIBases maps uriBaseIds to absolute base URIs.
	URIBases map[string]string
	Rules    []sarif.ReportingDescriptor
	Results  int
}

// Rule returns the descriptor of a result rule, by index first, then by id.
func (ri *RunInfo) Rule(ruleID string, index *int) *sarif.ReportingDescriptor {
	if ri == nil {
		return nil
	}
	if index != nil && *index >= 0 && *index < len(ri.Rules) {
		return &ri.Rules[*index]
	}
	if ruleID == "" {
		return nil
	}
	for i := range ri.Rules {
		if ri.Rules[i].ID == ruleID {
			return &ri.Rules[i]
		}
	}
	return nil
}

// RunInfoBuilder extracts run metadata. RunID is assigned by the engine.
type RunInfoBuilder interface {
	Build(document string, runIndex int, run *sarif.Run) RunInfo
}

// ThreadFlowMapper resolves the thread-flow locations of a run.
type ThreadFlowMapper interface {
	Map(ctx context.Context, runID int, run *sarif.Run) error
	Forget(runID int)
}

// ResultInfo is the per-result metadata extracted before a diagnostic is built.
type ResultInfo struct {
	RuleID           string
	RuleName         string
	Level            string
	Kind             string
	BaselineState    string
	Message          sarif.RichText
	Locations        []nav.Location
	RelatedLocations []nav.Location
	CodeFlowSteps    int
	Fixes            int
}

// ResultInfoBuilder extracts result metadata and resolves its locations.
type ResultInfoBuilder interface {
	Build(ctx context.Context, run *RunInfo, result *sarif.Result) (ResultInfo, error)
}

// BuildInput carries everything known about a result once it is located.
type BuildInput struct {
	Document    string
	RunIndex    int
	ResultIndex int
	Run         *RunInfo
	Info        ResultInfo
	// Assigned is where the result is shown; InLog is the insertion point
	// of the result node in the log.
	Assigned nav.Location
	InLog    nav.Location
	Node     string
}

// DiagnosticBuilder turns a located result into a diagnostic.
type DiagnosticBuilder interface {
	Build(in BuildInput) diag.Diagnostic
}

// Upgrader receives logs that need a schema upgrade. An upgraded document
// re-enters through Engine.Open.
type Upgrader interface {
	Upgrade(ctx context.Context, uri, version string) error
}

// Notifier receives user-visible events of ingestion attempts.
type Notifier interface {
	Error(uri string, err error)
	Progress(uri string, runIndex, processed, total int)
}
