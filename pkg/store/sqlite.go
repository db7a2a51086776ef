package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/panbanda/decomplex/pkg/models"
	_ "modernc.org/sqlite"
)

// Table names for score history.
const (
	runsTable  = "decomplex_runs"
	nodesTable = "decomplex_node_scores"
)

// SQLiteStore keeps score history in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Lister = (*SQLiteStore)(nil)
)

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database at %q: %w", path, err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database at %q: %w", path, err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create score tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []struct {
		name  string
		query string
	}{
		{runsTable, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				file_path TEXT NOT NULL,
				run_time TEXT NOT NULL,
				PRIMARY KEY (file_path, run_time)
			);
		`, runsTable)},
		{nodesTable, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				file_path TEXT NOT NULL,
				run_time TEXT NOT NULL,
				node_name TEXT NOT NULL,
				cyclomatic INTEGER NOT NULL,
				cognitive INTEGER NOT NULL,
				PRIMARY KEY (file_path, run_time, node_name)
			);
		`, nodesTable)},
	}
	for _, q := range queries {
		if _, err := db.Exec(q.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", q.name, err)
		}
	}
	return nil
}

// LoadPreviousScores implements Store.
func (s *SQLiteStore) LoadPreviousScores(ctx context.Context, path string) (models.FileHistory, error) {
	history := models.FileHistory{}

	runs, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT run_time FROM %s WHERE file_path = ?`, runsTable), path)
	if err != nil {
		return nil, fmt.Errorf("query runs for %s: %w", path, err)
	}
	for runs.Next() {
		var ts string
		if err := runs.Scan(&ts); err != nil {
			runs.Close()
			return nil, err
		}
		history[ts] = models.RunScores{}
	}
	if err := runs.Close(); err != nil {
		return nil, err
	}
	if err := runs.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT run_time, node_name, cyclomatic, cognitive FROM %s WHERE file_path = ?`, nodesTable), path)
	if err != nil {
		return nil, fmt.Errorf("query scores for %s: %w", path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts string
		var nc models.NodeComplexity
		if err := rows.Scan(&ts, &nc.Name, &nc.Cyclomatic, &nc.Cognitive); err != nil {
			return nil, err
		}
		run, ok := history[ts]
		if !ok {
			run = models.RunScores{}
			history[ts] = run
		}
		run[nc.Name] = nc
	}
	return history, rows.Err()
}

// SaveScores implements Store. The history of path is replaced in one transaction.
func (s *SQLiteStore) SaveScores(ctx context.Context, path string, history models.FileHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{nodesTable, runsTable} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_path = ?`, table), path); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, path, err)
		}
	}

	insertRun, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (file_path, run_time) VALUES (?, ?)`, runsTable))
	if err != nil {
		return err
	}
	defer insertRun.Close()
	insertNode, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (file_path, run_time, node_name, cyclomatic, cognitive) VALUES (?, ?, ?, ?, ?)`, nodesTable))
	if err != nil {
		return err
	}
	defer insertNode.Close()

	for _, ts := range history.Timestamps() {
		if _, err := insertRun.ExecContext(ctx, path, ts); err != nil {
			return fmt.Errorf("insert run %s for %s: %w", ts, path, err)
		}
		run := history[ts]
		for _, name := range run.Names() {
			nc := run[name]
			if _, err := insertNode.ExecContext(ctx, path, ts, name, nc.Cyclomatic, nc.Cognitive); err != nil {
				return fmt.Errorf("insert %s for %s: %w", name, path, err)
			}
		}
	}
	return tx.Commit()
}

// Paths implements Lister.
func (s *SQLiteStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT file_path FROM %s ORDER BY file_path`, runsTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
