// Package fileproc analyzes source files in parallel, one parser per worker.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/panbanda/decomplex/pkg/parser"
	"github.com/panbanda/decomplex/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError is the failure of a single file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects the failures of a parallel pass. Add is safe for
// concurrent use.
type ProcessingErrors struct {
	mu     sync.Mutex
	Errors []ProcessingError
}

// Add records the failure of path.
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
}

// HasErrors reports whether any failure was recorded.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sort orders the failures by path.
func (e *ProcessingErrors) Sort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	slices.SortStableFunc(e.Errors, func(a, b ProcessingError) int {
		return strings.Compare(a.Path, b.Path)
	})
}

func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every file error to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, 0, len(e.Errors))
	for _, pe := range e.Errors {
		errs = append(errs, pe)
	}
	return errs
}

// DefaultWorkerMultiplier scales NumCPU when no worker count is configured.
const DefaultWorkerMultiplier = 2

// Workers returns n, or NumCPU * DefaultWorkerMultiplier when n <= 0.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// parsers hands out one tree-sitter parser per running worker.
type parsers chan *parser.Parser

func newParsers(n int) parsers {
	p := make(parsers, n)
	for range n {
		p <- parser.New()
	}
	return p
}

func (p parsers) with(fn func(*parser.Parser)) {
	psr := <-p
	defer func() { p <- psr }()
	fn(psr)
}

func (p parsers) close() {
	close(p)
	for psr := range p {
		psr.Close()
	}
}

// MapSourceFiles reads every file from src and calls fn with its content on
// up to workers goroutines. Results are keyed by path. Failed files are left
// out of the results and reported in the returned *ProcessingErrors, sorted
// by path, which is nil when every file succeeded. Each finished file ticks
// the analyzer.Tracker carried by ctx.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	workers int,
	fn func(*parser.Parser, string, []byte) (T, error),
) (map[string]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	workers = min(Workers(workers), len(files))
	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	psrs := newParsers(workers)
	defer psrs.close()

	var mu sync.Mutex
	results := make(map[string]T, len(files))
	errs := &ProcessingErrors{}

	process := func(path string) error {
		content, err := src.Read(path)
		if err != nil {
			return err
		}
		var result T
		psrs.with(func(psr *parser.Parser) {
			result, err = fn(psr, path, content)
		})
		if err != nil {
			return err
		}
		mu.Lock()
		results[path] = result
		mu.Unlock()
		return nil
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for _, path := range files {
		p.Go(func(ctx context.Context) error {
			if tracker != nil {
				defer tracker.Tick(path)
			}
			err := ctx.Err()
			if err == nil {
				err = process(path)
			}
			if err != nil {
				// A failed file never stops the others.
				errs.Add(path, err)
			}
			return nil
		})
	}
	_ = p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	errs.Sort()
	return results, errs
}
