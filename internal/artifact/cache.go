package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// bump when choicePayload changes shape
const choiceCacheSchemaVersion uint16 = 1

const choiceCacheFile = "choices.mp"

// ChoiceCache remembers which file a user picked for an unresolved URI.
// Keys are folded combined URIs. The cache is persisted as a single msgpack
// file replaced atomically on every change; an empty dir keeps it in memory.
type ChoiceCache struct {
	mu      sync.RWMutex
	dir     string
	choices map[string]Choice
}

// Choice is one remembered answer.
type Choice struct {
	Target  string
	URIBase string
	Chosen  time.Time
}

type choicePayload struct {
	Schema  uint16
	Choices map[string]Choice
}

// NewMemoryChoiceCache returns an empty cache that is never persisted.
func NewMemoryChoiceCache() *ChoiceCache {
	return &ChoiceCache{choices: make(map[string]Choice)}
}

// OpenChoiceCache loads the cache stored in dir. A missing or outdated file
// yields an empty cache.
func OpenChoiceCache(dir string) (*ChoiceCache, error) {
	if dir == "" {
		return NewMemoryChoiceCache(), nil
	}
	c := &ChoiceCache{dir: dir, choices: make(map[string]Choice)}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.Open(c.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	var payload choicePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("choice cache %s: %w", c.path(), err)
	}
	if payload.Schema != choiceCacheSchemaVersion {
		// старый формат просто игнорируем
		return c, nil
	}
	for k, v := range payload.Choices {
		c.choices[k] = v
	}
	return c, nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

func (c *ChoiceCache) path() string {
	return filepath.Join(c.dir, choiceCacheFile)
}

// Get returns the remembered choice for key.
func (c *ChoiceCache) Get(key string) (Choice, bool) {
	if c == nil {
		return Choice{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.choices[key]
	return ch, ok
}

// Put remembers a choice and persists the cache.
func (c *ChoiceCache) Put(key string, ch Choice) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.choices[key] = ch
	return c.saveLocked()
}

// Len returns the number of remembered choices.
func (c *ChoiceCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.choices)
}

// Clear forgets every choice.
func (c *ChoiceCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.choices = make(map[string]Choice)
	return c.saveLocked()
}

func (c *ChoiceCache) saveLocked() error {
	if c.dir == "" {
		return nil
	}
	p := c.path()
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		// после Rename файла уже нет
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to remove temp file: %v\n", rmErr)
		}
	}()

	payload := choicePayload{Schema: choiceCacheSchemaVersion, Choices: c.choices}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), p)
}
