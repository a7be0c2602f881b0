package ui

// Status is the ingestion phase of one document.
type Status uint8

const (
	StatusQueued Status = iota
	StatusParsing
	StatusRuns
	StatusDone
	StatusError
)

// Event reports progress of one document. Processed and Total count the
// results of the run being processed.
type Event struct {
	Document  string
	Status    Status
	Processed int
	Total     int
	Err       error
}
