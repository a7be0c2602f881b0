package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a liveness event every interval. A run of heartbeats with
// no span ends in between usually means an artifact prompt or a huge run is
// holding the pipeline; the status text says what is in flight.
type Heartbeat struct {
	tracer Tracer
	status func() string
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// StartHeartbeat starts the ticker goroutine. It returns nil when tracing is
// off or interval is not positive; Stop on nil is a no-op. status may be nil.
func StartHeartbeat(tracer Tracer, interval time.Duration, status func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, status: status, done: make(chan struct{})}
	h.wg.Add(1)
	go h.loop(interval)
	return h
}

func (h *Heartbeat) loop(interval time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for beat := 1; ; beat++ {
		select {
		case <-h.done:
			return
		case now := <-ticker.C:
			detail := fmt.Sprintf("#%d", beat)
			if h.status != nil {
				if s := h.status(); s != "" {
					detail += " " + s
				}
			}
			h.tracer.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeSession,
				Name:   "heartbeat",
				Detail: detail,
			})
		}
	}
}

// Stop ends the goroutine and waits for it. Safe to call more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
}
