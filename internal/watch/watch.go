package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Runner executes one sync pass
type Runner func(ctx context.Context) error

// Watcher watches the source file and triggers debounced sync runs
type Watcher struct {
	source      string
	logger      *slog.Logger
	run         Runner
	syncMu      sync.Mutex // guards syncRunning and syncPending
	syncRunning bool       // whether a sync is currently in progress
	syncPending bool       // whether another sync is needed after the current one
	debounce    *debouncer
}

// debouncer collapses bursts of file events into a single trigger
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

// New creates a watcher for the given source file
func New(source string, delay time.Duration, run Runner, logger *slog.Logger) *Watcher {
	return &Watcher{
		source:   filepath.Clean(source),
		logger:   logger,
		run:      run,
		debounce: &debouncer{delay: delay},
	}
}

// Start performs an initial sync and then watches the source file's parent
// directory until the context is cancelled. The parent is watched rather
// than the file itself: editors replace files by writing a temp file and
// renaming it over the original, which breaks a watch on the old inode.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("performing initial sync before watching")
	w.performSync(ctx)

	dir := filepath.Dir(w.source)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("source directory not watchable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching for changes", "source", w.source, "debounce", w.debounce.delay)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			w.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			// Keep watching; a transient error should not stop the daemon.
			w.logger.Warn("watch error", "error", err)

		case <-ctx.Done():
			w.logger.Info("shutting down watcher")
			return ctx.Err()
		}
	}
}

// handleEvent triggers a debounced sync for events touching the source file
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.source {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("change detected", "op", event.Op.String(), "file", event.Name)
	w.debounce.trigger(func() {
		w.performSync(ctx)
	})
}

// performSync executes the sync operation with single-flight semantics.
// If a sync is already in progress, at most one additional run is queued;
// further concurrent triggers are dropped to avoid unbounded pile-up.
func (w *Watcher) performSync(ctx context.Context) {
	w.syncMu.Lock()
	if w.syncRunning {
		w.syncPending = true
		w.syncMu.Unlock()
		w.logger.Info("sync already in progress, queuing pending re-run")
		return
	}
	w.syncRunning = true
	w.syncMu.Unlock()

	for {
		if err := w.run(ctx); err != nil {
			w.logger.Error("sync run failed", "error", err)
		}

		// Atomically check whether another sync was requested while we were
		// running. If not, release the running slot and stop; if yes, clear
		// the flag and loop to service that one pending request.
		w.syncMu.Lock()
		if !w.syncPending {
			w.syncRunning = false
			w.syncMu.Unlock()
			break
		}
		w.syncPending = false
		w.syncMu.Unlock()

		w.logger.Info("re-running sync due to pending request")
	}
}

// trigger schedules the callback to run after the debounce delay
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}
