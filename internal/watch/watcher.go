// Package watch keeps the corpus indices current while the service
// runs: a filesystem watcher refreshes an index when its source file
// changes, and an optional cron schedule forces periodic rebuilds.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write event
// before a refresh fires. Editors and atomic writers produce bursts
// of events per save.
const DefaultDebounce = 500 * time.Millisecond

// Refresher rebuilds an index if its source content changed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Watcher triggers index refreshes on corpus file changes. The parent
// directory is watched, not the file itself, so atomic replace
// (write temp, rename over) is observed.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	// file path (cleaned) -> refreshers interested in it
	targets map[string][]Refresher
	dirs    map[string]bool
}

// New creates a Watcher. debounce <= 0 selects DefaultDebounce.
func New(debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:       fs,
		debounce: debounce,
		logger:   logger,
		targets:  make(map[string][]Refresher),
		dirs:     make(map[string]bool),
	}, nil
}

// Add registers a corpus file and the refresher to run when it changes.
func (w *Watcher) Add(path string, r Refresher) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %q: %w", dir, err)
		}
		w.dirs[dir] = true
	}

	w.targets[abs] = append(w.targets[abs], r)
	return nil
}

// Run processes filesystem events until ctx is canceled. Changes are
// debounced per run, not per file: one quiet period after the last
// relevant event, then every dirty file's refreshers run once.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Corpus watcher started",
		zap.Int("files", len(w.targets)),
		zap.Duration("debounce", w.debounce),
	)

	dirty := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return w.fs.Close()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if _, watched := w.targets[path]; !watched {
				continue
			}
			dirty[path] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			timer = nil
			for path := range dirty {
				w.refresh(ctx, path)
			}
			dirty = make(map[string]bool)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, path string) {
	w.logger.Info("Corpus file changed, refreshing", zap.String("path", path))
	for _, r := range w.targets[path] {
		if err := r.Refresh(ctx); err != nil {
			w.logger.Error("Index refresh failed",
				zap.String("path", path), zap.Error(err))
		}
	}
}
