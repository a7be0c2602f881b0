package diag

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sarifnav/internal/nav"
	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
)

func mkDiag(doc string, runID, run, res int, uri string, line int) Diagnostic {
	loc := nav.Location{Range: region.Range{StartLine: line, EndLine: line, EndCol: 1}, Mapped: true}
	loc.SetURI(uri)
	return Diagnostic{
		Key:      Key{Document: doc, RunIndex: run, ResultIndex: res},
		RunID:    runID,
		Severity: SevWarning,
		RuleID:   "R1",
		Message:  sarif.RichText{Plain: "m"},
		Location: loc,
	}
}

func TestStoreAddReplacesSameKey(t *testing.T) {
	s := NewStore()
	s.Add(mkDiag("a.sarif", 0, 0, 0, "file:///x.go", 1))
	d := mkDiag("a.sarif", 0, 0, 0, "file:///x.go", 7)
	s.Add(d)
	s.Add(mkDiag("a.sarif", 0, 0, 1, "file:///x.go", 2))

	require.Equal(t, 2, s.Len())
	got, ok := s.Get(d.Key)
	require.True(t, ok)
	require.Equal(t, 7, got.Location.Range.StartLine)
}

func TestStoreRemoveRuns(t *testing.T) {
	s := NewStore()
	s.Add(mkDiag("a.sarif", 1, 0, 0, "file:///x.go", 1))
	s.Add(mkDiag("a.sarif", 1, 0, 1, "file:///x.go", 2))
	s.Add(mkDiag("b.sarif", 2, 0, 0, "file:///y.go", 3))

	require.Equal(t, 2, s.RemoveRuns(1))
	require.Equal(t, 0, s.RemoveRuns())
	require.Equal(t, 0, s.RemoveRuns(42))

	items := s.Items()
	require.Len(t, items, 1)
	require.Equal(t, "b.sarif", items[0].Document)
	_, ok := s.Get(Key{Document: "a.sarif"})
	require.False(t, ok)
	_, ok = s.Get(items[0].Key)
	require.True(t, ok)
}

func TestStoreSyncNotifiesSubscribers(t *testing.T) {
	s := NewStore()
	var got []Snapshot
	unsub := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	s.Add(mkDiag("a.sarif", 0, 0, 0, "file:///x.go", 1))
	require.Empty(t, got, "Add alone must not notify")

	s.Sync()
	require.Len(t, got, 1)
	require.Equal(t, uint64(1), got[0].Version)
	require.Len(t, got[0].Items, 1)

	unsub()
	s.Sync()
	require.Len(t, got, 1)
	require.Equal(t, uint64(2), s.Version())
}

func TestStoreFilters(t *testing.T) {
	s := NewStore()
	s.Add(mkDiag("a.sarif", 0, 0, 0, "file:///x.go", 1))
	s.Add(mkDiag("a.sarif", 0, 0, 1, "file:///y.go", 1))
	e := mkDiag("b.sarif", 1, 0, 0, "file:///x.go", 4)
	e.Severity = SevError
	s.Add(e)

	require.Len(t, s.ForURI("file:///x.go"), 2)
	require.Len(t, s.ForDocument("a.sarif"), 2)
	require.True(t, s.HasErrors())
	counts := s.Counts()
	require.Equal(t, 2, counts[SevWarning])
	require.Equal(t, 1, counts[SevError])
}

func TestStoreRefresh(t *testing.T) {
	s := NewStore()
	unmapped := mkDiag("a.sarif", 3, 0, 0, "a.sarif", 10)
	s.Add(unmapped)
	s.Add(mkDiag("a.sarif", 3, 0, 1, "file:///x.go", 1))

	var syncs int
	s.Subscribe(func(Snapshot) { syncs++ })

	var seen int
	n := s.Refresh(context.Background(), func(_ context.Context, d *Diagnostic) bool {
		seen++
		d.Location.SetURI("file:///found.go")
		return true
	})
	require.Equal(t, 1, seen, "only log-backed locations are re-resolved")
	require.Equal(t, 1, n)
	require.Equal(t, 1, syncs)
	require.Len(t, s.ForURI("file:///found.go"), 1)

	require.Equal(t, 0, s.Refresh(context.Background(), nil))
}

func TestStoreRefreshSkipsRemovedRun(t *testing.T) {
	s := NewStore()
	s.Add(mkDiag("a.sarif", 3, 0, 0, "a.sarif", 10))
	n := s.Refresh(context.Background(), func(_ context.Context, d *Diagnostic) bool {
		s.RemoveRuns(3)
		return true
	})
	require.Equal(t, 0, n)
	require.Equal(t, 0, s.Len())
}

func TestStoreConcurrentAdd(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Add(mkDiag("a.sarif", w, w, i, "file:///x.go", i))
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, 800, s.Len())
}

func TestSortOrdersByLocationThenSeverity(t *testing.T) {
	a := mkDiag("d", 0, 0, 0, "file:///b.go", 1)
	b := mkDiag("d", 0, 0, 1, "file:///a.go", 5)
	c := mkDiag("d", 0, 0, 2, "file:///a.go", 5)
	c.Severity = SevError
	items := []Diagnostic{a, b, c}
	Sort(items)
	require.Equal(t, 2, items[0].ResultIndex)
	require.Equal(t, 1, items[1].ResultIndex)
	require.Equal(t, 0, items[2].ResultIndex)
}

func TestFromLevel(t *testing.T) {
	require.Equal(t, SevError, FromLevel("error"))
	require.Equal(t, SevWarning, FromLevel(""))
	require.Equal(t, SevWarning, FromLevel("warning"))
	require.Equal(t, SevInfo, FromLevel("Note"))
	require.Equal(t, SevInfo, FromLevel("none"))
	require.Equal(t, "warning", SevWarning.Label())
	require.Equal(t, "ERROR", SevError.String())
}
