package complexity

import (
	"maps"
	"slices"

	"github.com/panbanda/decomplex/pkg/models"
)

// FileResult holds the scores of every function-like node in one file.
type FileResult struct {
	Path      string           `json:"path"`
	Language  string           `json:"language"`
	Functions models.RunScores `json:"functions"`
}

// Totals sums the scores of all functions in the file.
func (r *FileResult) Totals() (cyclomatic, cognitive int) {
	return r.Functions.Totals()
}

// Analysis is the result of analyzing a set of files, keyed by path.
type Analysis struct {
	Files map[string]*FileResult `json:"files"`
}

// Paths returns the analyzed paths sorted ascending.
func (a *Analysis) Paths() []string {
	return slices.Sorted(maps.Keys(a.Files))
}
