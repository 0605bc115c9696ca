package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, Options{Debounce: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitForBatch(t *testing.T, w *Watcher) Batch {
	t.Helper()
	select {
	case batch, ok := <-w.Batches():
		require.True(t, ok, "batch channel closed")
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcher_EmitsCreateBatch(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "req.md"), []byte("# one"), 0644))

	batch := waitForBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "req.md", batch[0].Path)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestWatcher_IgnoresUnwatchedExtensions(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	// The .log write must not appear; the .go write anchors the batch.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noise.log"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))

	batch := waitForBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "main.go", batch[0].Path)
}

func TestWatcher_EmitsDeleteBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.md")
	require.NoError(t, os.WriteFile(path, []byte("# one"), 0644))

	w := startWatcher(t, dir)
	require.NoError(t, os.Remove(path))

	batch := waitForBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestWatcher_BatchesAreSorted(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0644))

	// Both writes land inside one debounce window in practice, but a split
	// into two batches is still valid output.
	var paths []string
	deadline := time.After(5 * time.Second)
	for len(paths) < 2 {
		select {
		case batch := <-w.Batches():
			for _, c := range batch {
				paths = append(paths, c.Path)
			}
		case <-deadline:
			t.Fatal("timed out collecting changes")
		}
	}
	assert.Contains(t, paths, "a.md")
	assert.Contains(t, paths, "b.md")
}
