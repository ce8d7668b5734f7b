package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the local dataset file and invokes onChange after edits
// settle. It watches the parent directory so atomic rename-replace writes
// are seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	onChange  func()
	logger    *slog.Logger
	stop      chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
	closed   bool
}

const watchDebounce = 200 * time.Millisecond

// NewWatcher starts watching path. onChange fires on a background goroutine
// once per settled burst of writes.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating dataset watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("creating dataset dir: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching dataset dir %s: %w", dir, err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		path:      filepath.Clean(path),
		onChange:  onChange,
		logger:    slog.Default().With("component", "dataset-watcher"),
		stop:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("dataset watch error", "error", err)
		}
	}
}

// schedule arms the debounce timer, resetting it if a burst is in progress.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.logger.Debug("dataset file changed, reloading", "path", w.path)
		w.onChange()
	})
}

// Stop halts event delivery. No onChange calls are made after Stop returns
// unless one is already in flight.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	close(w.stop)
	w.fsWatcher.Close()
}
