package trace

import (
	"fmt"
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer keeps the most recent events in memory for a dump after a
// failure or a crash.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	total  uint64 // events ever stored
	level  Level
}

// NewRingTracer creates a ring holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	t.mu.Lock()
	stored.Seq = NextSeq()
	t.events[t.total%uint64(len(t.events))] = stored
	t.total++
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.collect(func(*Event) bool { return true })
}

// ForDocument returns the stored events of one log, oldest first.
func (t *RingTracer) ForDocument(uri string) []Event {
	return t.collect(func(ev *Event) bool { return ev.Document == uri })
}

func (t *RingTracer) collect(keep func(*Event) bool) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	size := uint64(len(t.events))
	first := uint64(0)
	if t.total > size {
		first = t.total - size
	}
	out := make([]Event, 0, t.total-first)
	for i := first; i < t.total; i++ {
		ev := &t.events[i%size]
		if keep(ev) {
			out = append(out, *ev)
		}
	}
	return out
}

// Dropped reports how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if size := uint64(len(t.events)); t.total > size {
		return t.total - size
	}
	return 0
}

// Dump writes the stored events to w, preceded by a note about dropped ones.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	if n := t.Dropped(); n > 0 && format == FormatText {
		if _, err := fmt.Fprintf(w, "(%d earlier events dropped)\n", n); err != nil {
			return err
		}
	}
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
