package sourcemap

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCapacity = 256

// StoreOptions configures a Store.
type StoreOptions struct {
	// Capacity bounds the number of retained indexes; the least recently used
	// one is evicted first. Zero means DefaultCapacity.
	Capacity int
	// RetainOnClose keeps a document's index after Release, so stale results
	// of a closed log stay navigable until the cache evicts them.
	RetainOnClose bool
}

// Store holds the latest Index per document URI. Writers of one document are
// serialized through Lock; different documents never block each other.
type Store struct {
	opts  StoreOptions
	cache *lru.Cache[string, *Index]

	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates an empty store.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	cache, err := lru.New[string, *Index](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("source map cache: %w", err)
	}
	return &Store{
		opts:  opts,
		cache: cache,
		locks: make(map[string]*docLock),
	}, nil
}

// Options returns the effective options.
func (s *Store) Options() StoreOptions { return s.opts }

// Put replaces the index of uri wholesale.
func (s *Store) Put(uri string, ix *Index) {
	s.cache.Add(uri, ix)
}

// Get returns the latest index of uri.
func (s *Store) Get(uri string) (*Index, bool) {
	return s.cache.Get(uri)
}

// Evict drops the index of uri.
func (s *Store) Evict(uri string) {
	s.cache.Remove(uri)
}

// Release is called when a document is closed; it evicts the index unless
// the store retains indexes on close.
func (s *Store) Release(uri string) {
	if s.opts.RetainOnClose {
		return
	}
	s.Evict(uri)
}

func (s *Store) Len() int {
	return s.cache.Len()
}

// Lock acquires the writer lock of uri and returns its release func.
func (s *Store) Lock(uri string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[uri]
	if !ok {
		l = &docLock{}
		s.locks[uri] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, uri)
		}
		s.mu.Unlock()
	}
}
