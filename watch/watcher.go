// Package watch provides filesystem watching for continuous report
// regeneration. Changes are debounced and delivered as batches so a burst
// of edits triggers a single rebuild.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// batchChannelBuffer is the size of the rebuild batch channel.
	batchChannelBuffer = 16
)

// Change describes a single file change inside a rebuild batch.
type Change struct {
	// Path is the file path relative to the watched root.
	Path string

	// AbsPath is the absolute file path.
	AbsPath string

	// Operation is the type of change.
	Operation Operation
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Batch is one debounce window's worth of changes, sorted by path.
type Batch []Change

// Watcher watches a directory tree and emits debounced change batches.
type Watcher struct {
	root       string
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before emitting a batch
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	batches chan Batch

	droppedBatches atomic.Int64
}

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for more changes before emitting a batch.
	Debounce time.Duration

	// Extensions lists file extensions to watch (e.g., [".md", ".go"]).
	Extensions []string

	// ExcludeDirs lists directory names to skip (e.g., [".git", "vendor"]).
	ExcludeDirs []string
}

// NewWatcher creates a watcher over root.
func NewWatcher(root string, opts Options, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	extensions := make(map[string]bool)
	if len(opts.Extensions) == 0 {
		extensions[".md"] = true
		extensions[".go"] = true
		extensions[".py"] = true
	} else {
		for _, ext := range opts.Extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extensions[strings.ToLower(ext)] = true
		}
	}

	excludes := make(map[string]bool)
	if len(opts.ExcludeDirs) == 0 {
		excludes[".git"] = true
		excludes["node_modules"] = true
		excludes["vendor"] = true
	} else {
		for _, dir := range opts.ExcludeDirs {
			excludes[dir] = true
		}
	}

	return &Watcher{
		root:       root,
		debounce:   debounce,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		batches:    make(chan Batch, batchChannelBuffer),
	}, nil
}

// Batches returns the channel of debounced change batches.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Start begins watching the root for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Watcher started",
		slog.String("root", w.root),
		slog.Duration("debounce", w.debounce))

	return nil
}

// Stop stops the watcher.
// The batch channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedBatches returns the number of batches dropped due to channel overflow.
func (w *Watcher) DroppedBatches() int64 {
	return w.droppedBatches.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if path != root && (w.excludes[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
		} else {
			w.logger.Debug("Watching directory", slog.String("path", path))
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.batches)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		// Handle directory creation so new subtrees get watched.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	relPath, _ := filepath.Rel(w.root, path)
	for excludeDir := range w.excludes {
		if strings.Contains(relPath, excludeDir+string(filepath.Separator)) {
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Change detected",
		slog.String("path", relPath),
		slog.String("op", event.Op.String()))
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			slog.String("path", path),
			slog.String("error", err.Error()))
	} else {
		w.logger.Debug("Added watch for new directory", slog.String("path", path))
	}
}

// flushPending turns accumulated changes into a batch and emits it.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := make(map[string]fsnotify.Op, len(w.pending))
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch Batch
	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if change, ok := w.classify(path, op); ok {
			batch = append(batch, change)
		}
	}

	if len(batch) == 0 {
		return
	}

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	w.sendBatch(batch)
}

// classify maps one pending fsnotify op onto a Change, filtering out
// no-op writes via the content hash cache.
func (w *Watcher) classify(path string, op fsnotify.Op) (Change, bool) {
	relPath, _ := filepath.Rel(w.root, path)
	change := Change{Path: relPath, AbsPath: path}

	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		change.Operation = OpDelete
		w.hashMu.Lock()
		delete(w.hashes, relPath)
		w.hashMu.Unlock()
		return change, true
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		change.Operation = OpDelete
		return change, true
	}

	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("Failed to read changed file",
			slog.String("path", relPath),
			slog.String("error", err.Error()))
		return Change{}, false
	}

	sum := sha256.Sum256(content)
	newHash := hex.EncodeToString(sum[:])

	w.hashMu.RLock()
	oldHash, hadHash := w.hashes[relPath]
	w.hashMu.RUnlock()
	if hadHash && oldHash == newHash {
		// Content unchanged, skip
		return Change{}, false
	}

	w.hashMu.Lock()
	w.hashes[relPath] = newHash
	w.hashMu.Unlock()

	if op.Has(fsnotify.Create) || !hadHash {
		change.Operation = OpCreate
	} else {
		change.Operation = OpModify
	}
	return change, true
}

// sendBatch delivers a batch without blocking the event loop.
func (w *Watcher) sendBatch(batch Batch) {
	select {
	case w.batches <- batch:
		w.logger.Debug("Emitted change batch", slog.Int("changes", len(batch)))
	default:
		dropped := w.droppedBatches.Add(1)
		w.logger.Warn("Batch channel full, dropping batch",
			slog.Int("changes", len(batch)),
			slog.Int64("total_dropped", dropped))
	}
}
