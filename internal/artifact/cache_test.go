package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestChoiceCachePersists(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenChoiceCache(dir)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())

	now := time.Now()
	require.NoError(t, c.Put("file:///src/a.c", Choice{Target: "file:///work/a.c", Chosen: now}))

	reopened, err := OpenChoiceCache(dir)
	require.NoError(t, err)
	got, ok := reopened.Get("file:///src/a.c")
	require.True(t, ok)
	require.Equal(t, "file:///work/a.c", got.Target)
	require.WithinDuration(t, now, got.Chosen, time.Millisecond)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, choiceCacheFile, entries[0].Name())
}

func TestChoiceCacheIgnoresOtherSchema(t *testing.T) {
	dir := t.TempDir()
	data, err := msgpack.Marshal(&choicePayload{Schema: choiceCacheSchemaVersion + 1, Choices: map[string]Choice{"k": {Target: "t"}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, choiceCacheFile), data, 0o600))

	c, err := OpenChoiceCache(dir)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())
}

func TestChoiceCacheCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, choiceCacheFile), []byte{0xc1}, 0o600))
	_, err := OpenChoiceCache(dir)
	require.Error(t, err)
}

func TestChoiceCacheInMemoryAndNil(t *testing.T) {
	c, err := OpenChoiceCache("")
	require.NoError(t, err)
	require.NoError(t, c.Put("k", Choice{Target: "t"}))
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.Clear())
	require.Equal(t, 0, c.Len())

	var none *ChoiceCache
	_, ok := none.Get("k")
	require.False(t, ok)
	require.NoError(t, none.Put("k", Choice{}))
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/var/cache/x")
	dir, err := DefaultCacheDir("sarifnav")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/var/cache/x", "sarifnav"), dir)
}

func TestNewMemoryChoiceCache(t *testing.T) {
	c := NewMemoryChoiceCache()
	require.NoError(t, c.Put("k", Choice{Target: "t"}))
	ch, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "t", ch.Target)
}
