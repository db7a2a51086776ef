package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/decomplex/pkg/models"
	"github.com/zeebo/blake3"
)

// DirStore keeps one JSON document per source file in a directory. Documents
// are named after the BLAKE3 hash of the source path and hold the same
// {path: history} layout as the json backend.
type DirStore struct {
	dir string
}

var (
	_ Store  = (*DirStore)(nil)
	_ Lister = (*DirStore)(nil)
)

// NewDir creates a store rooted at dir, creating the directory if needed.
func NewDir(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, errors.New("dir store: empty path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir}, nil
}

// keyPath converts a source path to its document path.
func (s *DirStore) keyPath(path string) string {
	hash := blake3.Sum256([]byte(path))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}

func (s *DirStore) read(file string) (models.Scores, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	scores, err := decodeScores(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return scores, nil
}

// LoadPreviousScores implements Store.
func (s *DirStore) LoadPreviousScores(ctx context.Context, path string) (models.FileHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores, err := s.read(s.keyPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return models.FileHistory{}, nil
	}
	if err != nil {
		return nil, err
	}
	if history, ok := scores[path]; ok {
		return history, nil
	}
	return models.FileHistory{}, nil
}

// SaveScores implements Store.
func (s *DirStore) SaveScores(ctx context.Context, path string, history models.FileHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeScores(models.Scores{path: history})
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFileAtomic(s.keyPath(path), data)
}

// Paths implements Lister.
func (s *DirStore) Paths(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	all := models.Scores{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		scores, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		for path := range scores {
			all[path] = nil
		}
	}
	return all.Paths(), nil
}

// Close implements Store.
func (s *DirStore) Close() error {
	return nil
}
