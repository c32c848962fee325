package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"dubshorts/internal/logging"
	"dubshorts/internal/workflow"
)

const defaultDebounce = 2 * time.Second

// BacklogWatcher fires the target when the backlog file is written. Bursts of
// events within the debounce window collapse into one trigger.
type BacklogWatcher struct {
	path     string
	target   Target
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewBacklogWatcher watches path.
func NewBacklogWatcher(path string, target Target, logger *slog.Logger) *BacklogWatcher {
	return &BacklogWatcher{
		path:     filepath.Clean(path),
		target:   target,
		logger:   logging.NewComponentLogger(logger, "trigger"),
		debounce: defaultDebounce,
	}
}

// SetDebounce sets the debounce duration for batching file changes.
func (w *BacklogWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Run watches until ctx is done. The parent directory is watched so editors
// that replace the file by rename are still seen.
func (w *BacklogWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching backlog", logging.String("path", w.path))

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "backlog watcher error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a backlog change may be missed until the next scheduled run"),
			)
		}
	}
}

func (w *BacklogWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *BacklogWatcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result := w.target.Trigger(ctx, workflow.SourceWatcher)
	w.logger.Info("backlog changed",
		logging.Bool("run_started", result.Started),
		logging.String("reason", result.Reason),
	)
}

func (w *BacklogWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
