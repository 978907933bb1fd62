package confloader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of writes must go quiet before the
// change is reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to a set of files. It watches their parent
// directories so editors and cert tooling that save by rename are still
// seen.
type Watcher struct {
	paths    map[string]bool
	onChange func(path string)
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher starts watching paths. onChange runs on the Run goroutine
// once per burst of writes, with the last path written in the burst.
func NewWatcher(paths []string, onChange func(path string), opts ...WatcherOption) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		paths:    make(map[string]bool, len(paths)),
		onChange: onChange,
		fs:       fs,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		w.paths[p] = true
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run delivers changes until ctx is done or the watcher is closed, then
// closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.Close()
	w.logger.Debug("file watcher started", "files", len(w.paths))

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if !w.paths[name] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
			changed = name

		case <-fire:
			fire = nil
			w.logger.Debug("watched file changed", "path", changed)
			w.onChange(changed)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops the watcher. It is safe to call more than once and makes a
// running Run return.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fs.Close()
	})
	return w.closeErr
}
