package manager

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/semgraph/source"
)

// Watcher re-ingests source files when they change on disk. Changes are
// debounced so a burst of writes to the same file triggers one load.
type Watcher struct {
	manager    *Manager
	sourcesDir string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	debounce   time.Duration

	// Debouncing: collect changed paths before processing
	pendingMu sync.Mutex
	pending   map[string]struct{}

	done chan struct{}
}

// NewWatcher creates a watcher over the manager's configured sources
// directory.
func NewWatcher(m *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		manager:    m,
		sourcesDir: m.cfg.Sources.Dir,
		watcher:    fsw,
		logger:     m.logger,
		debounce:   m.cfg.Watch.GetDebounceDelay(),
		pending:    make(map[string]struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once watches are registered; events
// are processed on a background goroutine until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.sourcesDir, 0o755); err != nil {
		return err
	}

	if err := w.addWatchesRecursive(w.sourcesDir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Source watcher started",
		"sources_dir", w.sourcesDir,
		"debounce", w.debounce)

	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
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
		if strings.HasPrefix(base, ".") && base != "." {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
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
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent records a single fsnotify event for the next flush.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if source.KindForFile(path) == source.KindUnknown {
		// Watch newly created directories so files added later are seen.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	// Deletes and renames have nothing to re-ingest.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Source change detected",
		"path", path,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	}
}

// flushPending re-ingests the accumulated changed files in one batch.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sortPaths(paths)

	report, err := w.manager.LoadFiles(paths...)
	if err != nil {
		w.logger.Error("Watched reload failed", "error", err)
		return
	}

	w.logger.Info("Watched reload complete",
		"files", len(paths),
		"skipped", len(report.Skipped),
		"warnings", report.Warnings())
}
