package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/decomplex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onlyPython(path string, isDir bool) bool {
	if isDir {
		return filepath.Base(path) != "vendor"
	}
	return strings.HasSuffix(path, ".py")
}

func newWatcher(t *testing.T, root string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := New(root, onlyPython, debounce)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewDefaults(t *testing.T) {
	w, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.True(t, w.include("anything.txt", false))
}

func TestAddTreeSkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.py":          "x = 1\n",
		"pkg/b.py":      "x = 2\n",
		"vendor/c.py":   "x = 3\n",
		"pkg/sub/d.txt": "notes\n",
	})

	w := newWatcher(t, root, time.Second)
	require.NoError(t, w.addTree(root))

	assert.Equal(t, []string{
		root,
		filepath.Join(root, "pkg"),
		filepath.Join(root, "pkg", "sub"),
	}, w.WatchedDirs())
}

func TestAddTreeMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	w := newWatcher(t, t.TempDir(), time.Second)
	assert.True(t, errors.Is(w.addTree(root), os.ErrNotExist))
}

func TestHandleEventDebounces(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root, time.Second)

	now := time.Date(2018, 8, 2, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	a := filepath.Join(root, "a.py")
	b := filepath.Join(root, "b.py")
	w.handleEvent(fsnotify.Event{Name: b, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "gone.py"), Op: fsnotify.Remove})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "c.py"), Op: fsnotify.Chmod})

	assert.Empty(t, w.settled(), "nothing settles before the debounce period")

	now = now.Add(500 * time.Millisecond)
	w.handleEvent(fsnotify.Event{Name: b, Op: fsnotify.Write})

	now = now.Add(600 * time.Millisecond)
	assert.Equal(t, []string{a}, w.settled())

	now = now.Add(time.Second)
	assert.Equal(t, []string{b}, w.settled())
	assert.Empty(t, w.settled())
}

func TestHandleEventWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root, time.Second)
	require.NoError(t, w.addTree(root))

	sub := filepath.Join(root, "sub")
	vendor := filepath.Join(root, "vendor")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.Mkdir(vendor, 0o755))

	w.handleEvent(fsnotify.Event{Name: sub, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: vendor, Op: fsnotify.Create})

	assert.Equal(t, []string{root, sub}, w.WatchedDirs())
	assert.Empty(t, w.pending)
}

func TestStartReportsChanges(t *testing.T) {
	root := t.TempDir()
	w := newWatcher(t, root, 50*time.Millisecond)

	var mu sync.Mutex
	var batches [][]string
	w.OnChange(func(_ context.Context, paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	path := filepath.Join(root, "app.py")
	require.Eventually(t, func() bool {
		// Rewrite until the watcher has registered the root and reported it.
		_ = os.WriteFile(path, []byte("def f(): pass\n"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{path}, batches[0])
}
