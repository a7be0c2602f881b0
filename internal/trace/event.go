package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat // periodic liveness signal
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	ScopeSession  Scope = iota + 1 // CLI command or server session
	ScopeDocument                  // one ingestion attempt of one log
	ScopeRun                       // one run of a log
	ScopeResult                    // one result
)

var scopeNames = [...]string{
	ScopeSession:  "session",
	ScopeDocument: "document",
	ScopeRun:      "run",
	ScopeResult:   "result",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is a single trace record. Document is the URI of the log the event
// belongs to, empty for session-wide events.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	Document string
	Name     string // e.g. "ingest", "run:codeql", "region.invalid"
	Detail   string
	Extra    map[string]string
}

// Lane groups events of one document. Events without a document share lane 0.
func (ev *Event) Lane() uint64 {
	if ev.Document == "" {
		return 0
	}
	return laneOf(ev.Document)
}
