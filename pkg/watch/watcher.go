// Package watch reports batches of changed source files under a directory.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay unchanged before it is reported.
const DefaultDebounce = 500 * time.Millisecond

const tickInterval = 100 * time.Millisecond

// IncludeFunc reports whether a path should be watched (directories) or
// reported (files).
type IncludeFunc func(path string, isDir bool) bool

// ChangeFunc receives the files that settled since the last call, sorted.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher monitors a directory tree and reports changed files in batches.
// Callbacks run one at a time on the watcher's goroutine.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	include   IncludeFunc
	debounce  time.Duration
	onChange  ChangeFunc
	onError   func(error)
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for root. A nil include watches everything.
func New(root string, include IncludeFunc, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if include == nil {
		include = func(string, bool) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		root:      root,
		include:   include,
		debounce:  debounce,
		now:       time.Now,
		pending:   make(map[string]time.Time),
	}, nil
}

// OnChange sets the function called with every settled batch.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.onChange = fn
}

// OnError sets the function called with errors from the file system watcher.
func (w *Watcher) OnError(fn func(error)) {
	w.onError = fn
}

// Start watches until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}

		case <-ticker.C:
			if ready := w.settled(); len(ready) > 0 && w.onChange != nil {
				w.onChange(ctx, ready)
			}
		}
	}
}

// addTree watches dir and every included directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && !w.include(path, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// handleEvent queues written or created files and starts watching new directories.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) && isDir(event.Name) {
		if w.include(event.Name, true) {
			if err := w.addTree(event.Name); err != nil && w.onError != nil && !errors.Is(err, fs.ErrNotExist) {
				w.onError(err)
			}
		}
		return
	}

	if !w.include(event.Name, false) {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = w.now()
	w.mu.Unlock()
}

// settled removes and returns the files unchanged for the debounce period.
func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	sort.Strings(ready)
	return ready
}

// Stop releases the file system watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.fsWatcher.WatchList()
	sort.Strings(dirs)
	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
