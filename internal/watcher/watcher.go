// Package watcher reloads the gallery when its label list or embedding file changes on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches a fixed set of files and invokes onChange once per burst of changes.
// Parent directories are watched, so files replaced by rename are still seen.
type Watcher struct {
	files    []string
	onChange func(changed []string)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	pending  map[string]struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long the watcher waits after the last event before calling onChange.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for files. onChange receives the sorted changed paths.
func NewWatcher(files []string, onChange func(changed []string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		onChange: onChange,
		debounce: defaultDebounce,
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		w.files = append(w.files, filepath.Clean(f))
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Files returns the watched file paths.
func (w *Watcher) Files() []string {
	return slices.Clone(w.files)
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// A parent directory that does not exist yet is created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range w.dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.watcher = fsw
	w.started = true
	w.logger.Debug("watcher starting", zap.Strings("files", w.files), zap.Duration("debounce", w.debounce))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) dirs() []string {
	var out []string
	for _, f := range w.files {
		d := filepath.Dir(f)
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !slices.Contains(w.files, path) {
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	w.schedule(path)
}

// schedule records path and restarts the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.timer = nil
	started := w.started
	w.mu.Unlock()

	if !started || len(changed) == 0 || w.onChange == nil {
		return
	}
	slices.Sort(changed)
	w.logger.Debug("watcher reloading (debounced)", zap.Strings("changed", changed))
	w.onChange(changed)
}

// Stop stops the watcher and drops pending changes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	clear(w.pending)
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
