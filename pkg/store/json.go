package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/panbanda/decomplex/pkg/models"
)

// JSONStore keeps the history of every file in a single JSON document.
// It is safe for concurrent use within one process.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

var (
	_ Store  = (*JSONStore)(nil)
	_ Lister = (*JSONStore)(nil)
)

// NewJSON creates a store backed by the document at path. The file is
// created on the first save.
func NewJSON(path string) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("json store: empty path")
	}
	return &JSONStore{path: path}, nil
}

func (s *JSONStore) load() (models.Scores, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Scores{}, nil
	}
	if err != nil {
		return nil, err
	}
	scores, err := decodeScores(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return scores, nil
}

// LoadPreviousScores implements Store.
func (s *JSONStore) LoadPreviousScores(ctx context.Context, path string) (models.FileHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scores, err := s.load()
	if err != nil {
		return nil, err
	}
	if history, ok := scores[path]; ok {
		return history, nil
	}
	return models.FileHistory{}, nil
}

// SaveScores implements Store. The document is rewritten atomically.
func (s *JSONStore) SaveScores(ctx context.Context, path string, history models.FileHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scores, err := s.load()
	if err != nil {
		return err
	}
	scores[path] = history

	data, err := encodeScores(scores)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	return writeFileAtomic(s.path, data)
}

// Paths implements Lister.
func (s *JSONStore) Paths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scores, err := s.load()
	if err != nil {
		return nil, err
	}
	return scores.Paths(), nil
}

// Close implements Store.
func (s *JSONStore) Close() error {
	return nil
}
