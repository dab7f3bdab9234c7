package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ConfigDirName, "config.toml"), store.Path())
}

func TestNewConfigStore_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("llm = [unclosed"), 0600))

	_, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "groq"))

	val, ok := store.Get("llm.provider")
	assert.True(t, ok)
	assert.Equal(t, "groq", val)
	assert.Equal(t, "groq", store.GetString("llm.provider"))

	_, ok = store.Get("nonexistent")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("retrieval.top_k", 8))
	require.NoError(t, store.Set("chunking.size", "900"))
	require.NoError(t, store.Set("retrieval.diversify", true))
	require.NoError(t, store.Set("router.use_llm", "false"))
	require.NoError(t, store.Set("tags", []string{"a", "b"}))
	require.NoError(t, store.Set("csv", "x, y,,z"))
	require.NoError(t, store.Set("bad_int", "not an int"))

	assert.Equal(t, 8, store.GetInt("retrieval.top_k"))
	assert.Equal(t, 900, store.GetInt("chunking.size"))
	assert.Equal(t, 0, store.GetInt("bad_int"))
	assert.Equal(t, 0, store.GetInt("nonexistent"))

	assert.True(t, store.GetBool("retrieval.diversify"))
	assert.False(t, store.GetBool("router.use_llm"))
	assert.False(t, store.GetBool("nonexistent"))

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))
	assert.Equal(t, []string{"x", "y", "z"}, store.GetStringSlice("csv"))
	assert.Nil(t, store.GetStringSlice("nonexistent"))

	assert.Equal(t, "", store.GetString("retrieval.top_k"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("llm.provider", "openai"))
	require.NoError(t, store1.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, store1.Set("retrieval.top_k", 6))
	require.NoError(t, store1.Set("retrieval.diversify", true))

	raw, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[llm]")
	assert.Contains(t, string(raw), "[retrieval]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "openai", store2.GetString("llm.provider"))
	assert.Equal(t, "gpt-4o-mini", store2.GetString("llm.model"))
	assert.Equal(t, 6, store2.GetInt("retrieval.top_k"))
	assert.True(t, store2.GetBool("retrieval.diversify"))
}

func TestConfigStore_LoadHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[vector]
backend = "qdrant"
qdrant_url = "http://qdrant:6333"

[chunking]
strategy = "structure_aware"
size = 900
overlap = 120
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "qdrant", store.GetString("vector.backend"))
	assert.Equal(t, "http://qdrant:6333", store.GetString("vector.qdrant_url"))
	assert.Equal(t, "structure_aware", store.GetString("chunking.strategy"))
	assert.Equal(t, 120, store.GetInt("chunking.overlap"))
}

func TestConfigStore_SaveAndReload(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("log.file", "/tmp/events.jsonl"))
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	assert.Equal(t, "/tmp/events.jsonl", store.GetString("log.file"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"llm.provider":    "openai",
		"llm.model":       "m",
		"debug":           true,
		"a":               1,
		"a.b":             2,
		"vector.qdrant.x": "deep",
	})

	assert.Equal(t, map[string]any{"provider": "openai", "model": "m"}, got["llm"])
	assert.Equal(t, true, got["debug"])
	// "a" sorts first and wins over the "a.b" table.
	assert.Equal(t, 1, got["a"])
	assert.Equal(t, map[string]any{"qdrant": map[string]any{"x": "deep"}}, got["vector"])

	assert.Equal(t, map[string]any{
		"llm.provider":    "openai",
		"llm.model":       "m",
		"debug":           true,
		"a":               1,
		"vector.qdrant.x": "deep",
	}, flattenMap(got, ""))
}
