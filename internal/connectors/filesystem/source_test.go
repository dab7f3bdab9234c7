package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-rag/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl",
		`{"question": "What about margins?", "answer": "Up.", "transcript": "CFO: Margins rose.", "ticker": "AAPL"}`+"\n\n"+
			`{"question": "Guidance?", "answer": "Flat.", "text": "CEO: Guidance is flat.", "id": 3}`+"\n")
	writeFile(t, dir, "b.txt", "Operator: Welcome.\n\nCFO: Revenue grew.")
	writeFile(t, dir, "c.md", "# Call\n\n**CFO**: Revenue grew.")
	writeFile(t, dir, "d.json", `[{"query": "Q?", "response": "R.", "context": "Analyst: question"}]`)
	writeFile(t, dir, ".hidden/e.txt", "hidden")
	writeFile(t, dir, ".f.txt", "hidden")
	writeFile(t, dir, "g.pdf", "binary")
	writeFile(t, dir, "empty.txt", "   ")

	records, err := New(dir).Load(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "What about margins?", records[0].Question)
	assert.Equal(t, "CFO: Margins rose.", records[0].Text)
	assert.Equal(t, "a.jsonl", records[0].Metadata[domain.MetaSource])
	assert.Equal(t, DatasetName, records[0].Metadata["source_dataset"])
	assert.Equal(t, 1, records[1].Metadata["row_index"])
	assert.Equal(t, int64(3), records[1].Metadata["id"])

	assert.Equal(t, "Operator: Welcome.\n\nCFO: Revenue grew.", records[2].Text)
	assert.Equal(t, "b", records[2].Metadata["title"])

	assert.NotContains(t, records[3].Text, "**")
	assert.Contains(t, records[3].Text, "CFO: Revenue grew.")

	assert.Equal(t, "Q?", records[4].Question)
	assert.Equal(t, "R.", records[4].Answer)
}

func TestSource_LoadDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "CFO: one")
	writeFile(t, dir, "two.txt", "CFO: two")

	first, err := New(dir).Load(context.Background(), 0)
	require.NoError(t, err)
	second, err := New(dir).Load(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].DocID, second[0].DocID)
	assert.Equal(t, first[1].DocID, second[1].DocID)
	assert.NotEqual(t, first[0].DocID, first[1].DocID)
}

func TestSource_LoadLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rows.jsonl", "{\"text\": \"a\"}\n{\"text\": \"b\"}\n{\"text\": \"c\"}\n")
	writeFile(t, dir, "z.txt", "later")

	records, err := New(dir).Load(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSource_LoadErrors(t *testing.T) {
	_, err := New("/non/existent/path").Load(context.Background(), 0)
	assert.ErrorContains(t, err, "root path error")

	file := writeFile(t, t.TempDir(), "x.txt", "x")
	_, err = New(file).Load(context.Background(), 0)
	assert.ErrorContains(t, err, "not a directory")
}

func TestSource_LoadSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.jsonl", "{not json}\n")
	writeFile(t, dir, "good.txt", "CFO: fine")

	records, err := New(dir).Load(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CFO: fine", records[0].Text)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "call.txt", "Operator: Welcome.\n\nCFO: Revenue grew.")

	records, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "Revenue grew.")
	assert.Equal(t, "call.txt", records[0].Metadata["source"])

	_, err = LoadFile(writeFile(t, dir, "scan.pdf", "binary"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSource_Watch(t *testing.T) {
	t.Run("emits records for new files", func(t *testing.T) {
		dir := t.TempDir()
		src := New(dir, WithDebounce(30*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch, err := src.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(filepath.Join(dir, "new.txt"), []byte("CFO: new call"), 0o644)
		}()

		select {
		case recs := <-ch:
			require.Len(t, recs, 1)
			assert.Equal(t, "CFO: new call", recs[0].Text)
			assert.Equal(t, "new.txt", recs[0].Metadata[domain.MetaSource])
		case <-time.After(3 * time.Second):
			t.Fatal("timeout waiting for records")
		}

		cancel()
		_ = src.Close()
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		src := New(t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())

		ch, err := src.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		ch, err := New("/non/existent/path").Watch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, ch)
	})

	t.Run("returns error when closed", func(t *testing.T) {
		src := New(t.TempDir())
		require.NoError(t, src.Close())

		ch, err := src.Watch(context.Background())
		assert.ErrorContains(t, err, "closed")
		assert.Nil(t, ch)
	})
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "call.txt", "CFO: x")
	hidden := writeFile(t, dir, ".call.txt", "CFO: x")
	other := writeFile(t, dir, "call.pdf", "x")
	sub := filepath.Join(dir, "sub.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	src := New(dir)
	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected string
	}{
		{"create", file, fsnotify.Create, file},
		{"write", file, fsnotify.Write, file},
		{"write and chmod", file, fsnotify.Write | fsnotify.Chmod, file},
		{"chmod only", file, fsnotify.Chmod, ""},
		{"remove", filepath.Join(dir, "gone.txt"), fsnotify.Remove, ""},
		{"rename", file, fsnotify.Rename, ""},
		{"hidden", hidden, fsnotify.Write, ""},
		{"unsupported", other, fsnotify.Write, ""},
		{"directory", sub, fsnotify.Create, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := src.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".git"))
	assert.True(t, isHidden(".env"))
	assert.False(t, isHidden("."))
	assert.False(t, isHidden(".."))
	assert.False(t, isHidden("file.txt"))
	assert.False(t, isHidden(""))
}

func TestSource_Name(t *testing.T) {
	src := New("/tmp/calls")
	assert.Equal(t, "filesystem", src.Name())
	assert.Equal(t, "/tmp/calls", src.Root())
}
