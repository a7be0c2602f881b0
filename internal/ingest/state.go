package ingest

import "errors"

// State of the latest ingestion attempt of a document.
type State uint8

const (
	StateIdle State = iota
	StateParsing
	StateUpgrading
	StateProcessingRuns
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateUpgrading:
		return "upgrading"
	case StateProcessingRuns:
		return "processing-runs"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether an attempt in state s is over.
func (s State) Terminal() bool {
	return s == StateUpgrading || s == StateDone || s == StateFailed
}

var (
	// ErrUnsupportedSchema marks a log whose version needs an upgrade before
	// it can be ingested. It is not reported to the user as an error.
	ErrUnsupportedSchema = errors.New("unsupported sarif schema version")
	// ErrUnknownDocument is returned for documents that were never opened.
	ErrUnknownDocument = errors.New("unknown document")
)
