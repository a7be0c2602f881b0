package sourcemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, uri string) *Index {
	t.Helper()
	ix, err := Parse(uri, []byte(`{"version":"2.1.0","runs":[]}`))
	require.NoError(t, err)
	return ix
}

func TestStoreCapacity(t *testing.T) {
	s, err := NewStore(StoreOptions{Capacity: 2})
	require.NoError(t, err)
	s.Put("a", mustParse(t, "a"))
	s.Put("b", mustParse(t, "b"))
	s.Put("c", mustParse(t, "c"))
	require.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	require.False(t, ok, "least recently used index must be evicted")
}

func TestStoreReplaceWholesale(t *testing.T) {
	s, err := NewStore(StoreOptions{})
	require.NoError(t, err)
	first := mustParse(t, "a")
	second := mustParse(t, "a")
	s.Put("a", first)
	s.Put("a", second)
	got, ok := s.Get("a")
	require.True(t, ok)
	require.Same(t, second, got)
	require.Equal(t, DefaultCapacity, s.Options().Capacity)
}

func TestStoreRelease(t *testing.T) {
	retain, err := NewStore(StoreOptions{RetainOnClose: true})
	require.NoError(t, err)
	retain.Put("a", mustParse(t, "a"))
	retain.Release("a")
	_, ok := retain.Get("a")
	require.True(t, ok, "retaining store keeps the index after close")

	evict, err := NewStore(StoreOptions{})
	require.NoError(t, err)
	evict.Put("a", mustParse(t, "a"))
	evict.Release("a")
	_, ok = evict.Get("a")
	require.False(t, ok)
}

func TestStoreLockSerializesWriters(t *testing.T) {
	s, err := NewStore(StoreOptions{})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("doc")
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)

	// different documents do not block each other
	unlockA := s.Lock("a")
	unlockB := s.Lock("b")
	unlockB()
	unlockA()
}
