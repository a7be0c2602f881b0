package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"sarifnav/internal/ui"
)

// cliNotifier collects ingestion errors for printing after the run and
// forwards progress to the TUI when one is shown.
type cliNotifier struct {
	mu     sync.Mutex
	errs   []error
	events chan<- ui.Event
	names  map[string]string
}

func newCLINotifier(names map[string]string, events chan<- ui.Event) *cliNotifier {
	return &cliNotifier{names: names, events: events}
}

func (n *cliNotifier) Error(_ string, err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *cliNotifier) Progress(uri string, _ int, processed, total int) {
	n.emit(ui.Event{Document: n.name(uri), Status: ui.StatusRuns, Processed: processed, Total: total})
}

func (n *cliNotifier) status(uri string, status ui.Status, err error) {
	n.emit(ui.Event{Document: n.name(uri), Status: status, Err: err})
}

func (n *cliNotifier) emit(ev ui.Event) {
	if n.events != nil {
		n.events <- ev
	}
}

func (n *cliNotifier) name(uri string) string {
	if name, ok := n.names[uri]; ok {
		return name
	}
	return uri
}

// flush prints the collected errors and reports how many there were.
func (n *cliNotifier) flush(w io.Writer) int {
	n.mu.Lock()
	errs := n.errs
	n.errs = nil
	n.mu.Unlock()
	for _, err := range errs {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return len(errs)
}

// ingestProgress counts finished logs of the running ingest command for the
// trace heartbeat.
var ingestProgress struct {
	done, total atomic.Int64
}

func ingestStatus() string {
	total := ingestProgress.total.Load()
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d logs", ingestProgress.done.Load(), total)
}
