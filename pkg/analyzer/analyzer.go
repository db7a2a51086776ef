// Package analyzer holds the contracts shared by the file analyzers and the
// progress plumbing that travels with their context.
package analyzer

import "context"

// FileAnalyzer analyzes a set of files in one pass.
type FileAnalyzer[T any] interface {
	// Analyze processes files and returns the aggregate result. Cancelling
	// ctx stops work on files that have not started.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
