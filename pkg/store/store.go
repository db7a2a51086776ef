// Package store persists per-file complexity history.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/decomplex/pkg/models"
)

// Store loads and saves the history of individual source files.
type Store interface {
	// LoadPreviousScores returns the stored history of path, or an empty
	// history when nothing has been recorded for it.
	LoadPreviousScores(ctx context.Context, path string) (models.FileHistory, error)

	// SaveScores replaces the stored history of path.
	SaveScores(ctx context.Context, path string, history models.FileHistory) error

	// Close releases resources held by the store.
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendDir    Backend = "dir"
	BackendSQLite Backend = "sqlite"
)

// Backends lists the supported backends.
var Backends = []Backend{BackendJSON, BackendDir, BackendSQLite}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Open creates the store for backend at path. For the json backend path is
// the document file, for dir a directory, for sqlite the database file.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSON(path)
	case BackendDir:
		return NewDir(path)
	case BackendSQLite:
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// LoadAll reads the history of every path from s.
func LoadAll(ctx context.Context, s Store, paths []string) (models.Scores, error) {
	scores := make(models.Scores, len(paths))
	for _, path := range paths {
		history, err := s.LoadPreviousScores(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if len(history) > 0 {
			scores[path] = history
		}
	}
	return scores, nil
}

// Lister is implemented by stores that can enumerate the paths they hold.
type Lister interface {
	Paths(ctx context.Context) ([]string, error)
}

// Select loads the stored histories matching filters. A filter matches a
// path equal to it or below it as a directory; no filters match everything.
// Stores that cannot list their paths only serve exact matches.
func Select(ctx context.Context, s Store, filters []string) (models.Scores, error) {
	l, ok := s.(Lister)
	if !ok {
		return LoadAll(ctx, s, filters)
	}

	all, err := l.Paths(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range all {
		if matches(p, filters) {
			paths = append(paths, p)
		}
	}
	return LoadAll(ctx, s, paths)
}

func matches(path string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	path = filepath.Clean(path)
	for _, f := range filters {
		f = filepath.Clean(f)
		if f == "." || path == f || strings.HasPrefix(path, f+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
