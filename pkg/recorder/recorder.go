// Package recorder runs complexity analysis passes and records their results
// as timestamped runs ready to be merged into stored history.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/panbanda/decomplex/pkg/analyzer/complexity"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/source"
	"github.com/panbanda/decomplex/pkg/store"
)

var (
	// ErrFileNotFound is returned when a source path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrNoFiles is returned by Analyze when no path was given or queued.
	ErrNoFiles = errors.New("no files to analyze")
	// ErrNoStore is returned by Persist when data exists but no store is configured.
	ErrNoStore = errors.New("no score store configured")
)

// Recorder accumulates the scores of one analysis run over one or more files.
// A Recorder is not safe for concurrent use.
type Recorder struct {
	files       []string
	queued      map[string]bool
	src         source.ContentSource
	store       store.Store
	now         func() time.Time
	workers     int
	maxFileSize int64
	progress    analyzer.ProgressFunc

	runs    map[string]models.RunScores
	summary models.Scores // nil until Summary stamps the run
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithFiles queues files for Analyze("").
func WithFiles(paths ...string) Option {
	return func(r *Recorder) {
		r.AddFiles(paths...)
	}
}

// WithSource sets where file content is read from. Defaults to the filesystem.
func WithSource(src source.ContentSource) Option {
	return func(r *Recorder) {
		r.src = src
	}
}

// WithStore sets the store used by Persist.
func WithStore(s store.Store) Option {
	return func(r *Recorder) {
		r.store = s
	}
}

// WithClock sets the time source used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithWorkers sets how many files are analyzed concurrently (default 1).
func WithWorkers(n int) Option {
	return func(r *Recorder) {
		r.workers = n
	}
}

// WithMaxFileSize skips files larger than n bytes with an error (0 = no limit).
func WithMaxFileSize(n int64) Option {
	return func(r *Recorder) {
		r.maxFileSize = n
	}
}

// WithProgress reports each finished file to fn.
func WithProgress(fn analyzer.ProgressFunc) Option {
	return func(r *Recorder) {
		r.progress = fn
	}
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		queued:  make(map[string]bool),
		src:     source.NewFilesystem(),
		now:     time.Now,
		workers: 1,
		runs:    make(map[string]models.RunScores),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddFiles queues paths for group analysis. Duplicates are ignored and
// queue order is preserved.
func (r *Recorder) AddFiles(paths ...string) {
	for _, p := range paths {
		if p == "" || r.queued[p] {
			continue
		}
		r.queued[p] = true
		r.files = append(r.files, p)
	}
}

// Files returns the queued paths.
func (r *Recorder) Files() []string {
	return append([]string(nil), r.files...)
}

// Analyze scores path, or every queued file when path is empty, and records
// the results. A file that fails leaves no record. With one file its error is
// returned as is; with several, failures are collected in a
// *fileproc.ProcessingErrors and the other files are still recorded.
func (r *Recorder) Analyze(ctx context.Context, path string) error {
	files := r.files
	if path != "" {
		files = []string{path}
	}
	if len(files) == 0 {
		return ErrNoFiles
	}

	if r.progress != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(r.progress))
	}

	a := complexity.New(
		complexity.WithWorkers(r.workers),
		complexity.WithMaxFileSize(r.maxFileSize),
	)
	defer a.Close()

	analysis, err := a.AnalyzeProjectFromSource(ctx, files, notFoundSource{r.src})

	r.summary = nil
	for p, fr := range analysis.Files {
		r.runs[p] = fr.Functions
	}

	var perrs *fileproc.ProcessingErrors
	if len(files) == 1 && errors.As(err, &perrs) && len(perrs.Errors) == 1 {
		return perrs.Errors[0].Err
	}
	return err
}

// HasData reports whether any file has been recorded.
func (r *Recorder) HasData() bool {
	return len(r.runs) > 0
}

// Summary returns the recorded runs as {path: {timestamp: scores}}. The
// timestamp is taken on the first call after Analyze and reused until the
// next Analyze or Reset. The returned value must not be modified.
func (r *Recorder) Summary() models.Scores {
	if r.summary != nil {
		return r.summary
	}
	if !r.HasData() {
		return models.Scores{}
	}

	ts := models.FormatTimestamp(r.now())
	summary := make(models.Scores, len(r.runs))
	for path, run := range r.runs {
		summary[path] = models.FileHistory{ts: run}
	}
	r.summary = summary
	return summary
}

// Persist merges the summary into the store: for each recorded file the
// previous history is loaded, the new run added, and the result saved once.
// Without recorded data it does nothing.
func (r *Recorder) Persist(ctx context.Context) error {
	if !r.HasData() {
		return nil
	}
	if r.store == nil {
		return ErrNoStore
	}

	summary := r.Summary()
	for _, path := range summary.Paths() {
		previous, err := r.store.LoadPreviousScores(ctx, path)
		if err != nil {
			return fmt.Errorf("load scores for %s: %w", path, err)
		}
		if err := r.store.SaveScores(ctx, path, previous.Merge(summary[path])); err != nil {
			return fmt.Errorf("save scores for %s: %w", path, err)
		}
	}
	return nil
}

// Reset drops recorded data and the cached summary. Queued files are kept.
func (r *Recorder) Reset() {
	r.runs = make(map[string]models.RunScores)
	r.summary = nil
}

// notFoundSource marks missing files with ErrFileNotFound.
type notFoundSource struct {
	source.ContentSource
}

func (s notFoundSource) Read(path string) ([]byte, error) {
	content, err := s.ContentSource.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}
	return content, err
}
