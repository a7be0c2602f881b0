package diag

import (
	"context"
	"sort"
	"sync"
)

// Snapshot is the externally visible state after a Sync.
type Snapshot struct {
	Version uint64
	Items   []Diagnostic
}

// Store collects diagnostics of all open documents.
type Store struct {
	mu      sync.RWMutex
	items   []Diagnostic
	index   map[Key]int
	version uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func NewStore() *Store {
	return &Store{
		index: make(map[Key]int),
		subs:  make(map[int]func(Snapshot)),
	}
}

// Add appends d. A diagnostic with the same Key replaces the old one in place.
func (s *Store) Add(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[d.Key]; ok {
		s.items[i] = d
		return
	}
	s.index[d.Key] = len(s.items)
	s.items = append(s.items, d)
}

// RemoveRuns drops every diagnostic of the given runs and returns how many
// were removed. Subscribers see the change on the next Sync.
func (s *Store) RemoveRuns(runIDs ...int) int {
	if len(runIDs) == 0 {
		return 0
	}
	drop := make(map[int]struct{}, len(runIDs))
	for _, id := range runIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	removed := 0
	for _, d := range s.items {
		if _, ok := drop[d.RunID]; ok {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	// хвост обнуляем, чтобы не держать локации
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = Diagnostic{}
	}
	s.items = kept
	s.reindexLocked()
	return removed
}

func (s *Store) reindexLocked() {
	s.index = make(map[Key]int, len(s.items))
	for i := range s.items {
		s.index[s.items[i].Key] = i
	}
}

// Sync publishes the current state to subscribers.
func (s *Store) Sync() {
	s.mu.Lock()
	s.version++
	snap := Snapshot{Version: s.version, Items: s.copyLocked()}
	s.mu.Unlock()

	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Subscribe registers fn for every Sync and returns the func that removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns the current diagnostics together with their version.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Version: s.version, Items: s.copyLocked()}
}

// Items returns a copy of all diagnostics in insertion order.
func (s *Store) Items() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) copyLocked() []Diagnostic {
	out := make([]Diagnostic, len(s.items))
	copy(out, s.items)
	return out
}

// ForDocument returns the diagnostics ingested from one log.
func (s *Store) ForDocument(uri string) []Diagnostic {
	return s.filter(func(d *Diagnostic) bool { return d.Document == uri })
}

// ForURI returns the diagnostics whose assigned location is uri.
func (s *Store) ForURI(uri string) []Diagnostic {
	return s.filter(func(d *Diagnostic) bool { return d.Location.URI == uri })
}

// Get returns the diagnostic stored under k.
func (s *Store) Get(k Key) (Diagnostic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[k]
	if !ok {
		return Diagnostic{}, false
	}
	return s.items[i], true
}

func (s *Store) filter(keep func(*Diagnostic) bool) []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Diagnostic
	for i := range s.items {
		if keep(&s.items[i]) {
			out = append(out, s.items[i])
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version returns the number of Syncs so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (s *Store) HasErrors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Counts returns the number of diagnostics per severity.
func (s *Store) Counts() map[Severity]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Severity]int, 3)
	for i := range s.items {
		out[s.items[i].Severity]++
	}
	return out
}

// Remapper re-resolves the locations of d and reports whether it changed d.
type Remapper func(ctx context.Context, d *Diagnostic) bool

// Refresh calls remap for every diagnostic whose assigned location is not a
// mapped artifact and syncs when anything changed. It returns the number of
// changed diagnostics.
func (s *Store) Refresh(ctx context.Context, remap Remapper) int {
	if remap == nil {
		return 0
	}
	candidates := s.filter(func(d *Diagnostic) bool { return !d.Location.Mapped || d.InLog() })

	changed := 0
	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		d := candidates[i]
		if !remap(ctx, &d) {
			continue
		}
		s.mu.Lock()
		if idx, ok := s.index[d.Key]; ok && s.items[idx].RunID == d.RunID {
			s.items[idx] = d
			changed++
		}
		s.mu.Unlock()
	}
	if changed > 0 {
		s.Sync()
	}
	return changed
}

// Sort orders diagnostics by location, severity (desc) and rule id, giving
// output a stable order independent of ingestion order.
func Sort(items []Diagnostic) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := &items[i], &items[j]
		// сначала по файлу
		if di.Location.URI != dj.Location.URI {
			return di.Location.URI < dj.Location.URI
		}
		// затем по старту
		ri, rj := di.Location.Range, dj.Location.Range
		if ri.StartLine != rj.StartLine {
			return ri.StartLine < rj.StartLine
		}
		if ri.StartCol != rj.StartCol {
			return ri.StartCol < rj.StartCol
		}
		// затем по severity (по убыванию)
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.RuleID < dj.RuleID
	})
}
