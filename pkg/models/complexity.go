package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the fixed-width UTC layout used to key analysis runs.
// Lexical order of formatted timestamps equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NodeComplexity holds the scores of one function-like node in one run.
type NodeComplexity struct {
	Name       string `json:"name" yaml:"name" toon:"name"`
	Cyclomatic int    `json:"cyclomatic" yaml:"cyclomatic" toon:"cyclomatic"`
	Cognitive  int    `json:"cognitive" yaml:"cognitive" toon:"cognitive"`
}

// MarshalJSON encodes the node as the persisted [cyclomatic, cognitive, name] triple.
func (n NodeComplexity) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{n.Cyclomatic, n.Cognitive, n.Name})
}

// UnmarshalJSON accepts the [cyclomatic, cognitive, name] triple or an object.
func (n *NodeComplexity) UnmarshalJSON(data []byte) error {
	var triple []json.RawMessage
	if err := json.Unmarshal(data, &triple); err != nil {
		type plain NodeComplexity
		var obj plain
		if objErr := json.Unmarshal(data, &obj); objErr != nil {
			return fmt.Errorf("node complexity: %w", err)
		}
		*n = NodeComplexity(obj)
		return nil
	}
	if len(triple) != 3 {
		return fmt.Errorf("node complexity: expected 3 elements, got %d", len(triple))
	}
	if err := json.Unmarshal(triple[0], &n.Cyclomatic); err != nil {
		return fmt.Errorf("node complexity cyclomatic: %w", err)
	}
	if err := json.Unmarshal(triple[1], &n.Cognitive); err != nil {
		return fmt.Errorf("node complexity cognitive: %w", err)
	}
	if err := json.Unmarshal(triple[2], &n.Name); err != nil {
		return fmt.Errorf("node complexity name: %w", err)
	}
	return nil
}

// ComplexityChange is the difference between two runs for the same node name.
type ComplexityChange struct {
	Cyclomatic int `json:"cyclomatic" yaml:"cyclomatic" toon:"cyclomatic"`
	Cognitive  int `json:"cognitive" yaml:"cognitive" toon:"cognitive"`
}

// RunScores maps qualified node names to their scores for one file in one run.
type RunScores map[string]NodeComplexity

// Names returns the node names sorted ascending.
func (r RunScores) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Totals sums cyclomatic and cognitive scores over all nodes.
func (r RunScores) Totals() (cyclomatic, cognitive int) {
	for _, n := range r {
		cyclomatic += n.Cyclomatic
		cognitive += n.Cognitive
	}
	return cyclomatic, cognitive
}

// Change computes the delta of node name between latest and previous.
// A nil previous run, or a node absent from it, counts as 0/0.
func Change(latest, previous RunScores, name string) ComplexityChange {
	prev, ok := previous[name]
	if !ok {
		return ComplexityChange{}
	}
	cur := latest[name]
	return ComplexityChange{
		Cyclomatic: cur.Cyclomatic - prev.Cyclomatic,
		Cognitive:  cur.Cognitive - prev.Cognitive,
	}
}

// FileHistory maps run timestamps to the scores recorded for one file.
type FileHistory map[string]RunScores

// Timestamps returns the run timestamps sorted oldest first.
func (h FileHistory) Timestamps() []string {
	ts := make([]string, 0, len(h))
	for t := range h {
		ts = append(ts, t)
	}
	sort.Strings(ts)
	return ts
}

// Latest returns the most recent run.
func (h FileHistory) Latest() (string, RunScores, bool) {
	ts := h.Timestamps()
	if len(ts) == 0 {
		return "", nil, false
	}
	last := ts[len(ts)-1]
	return last, h[last], true
}

// Previous returns the second most recent run.
func (h FileHistory) Previous() (string, RunScores, bool) {
	ts := h.Timestamps()
	if len(ts) < 2 {
		return "", nil, false
	}
	prev := ts[len(ts)-2]
	return prev, h[prev], true
}

// Merge returns a new history holding the runs of h plus those of other.
// Runs already present in h are kept unchanged.
func (h FileHistory) Merge(other FileHistory) FileHistory {
	merged := make(FileHistory, len(h)+len(other))
	for ts, run := range h {
		merged[ts] = run
	}
	for ts, run := range other {
		if _, exists := merged[ts]; exists {
			continue
		}
		merged[ts] = run
	}
	return merged
}

// Scores maps file paths to their history.
type Scores map[string]FileHistory

// Paths returns the file paths sorted ascending.
func (s Scores) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Merge returns a new Scores with the histories of other merged into s.
func (s Scores) Merge(other Scores) Scores {
	merged := make(Scores, len(s)+len(other))
	for path, h := range s {
		merged[path] = h
	}
	for path, h := range other {
		merged[path] = merged[path].Merge(h)
	}
	return merged
}

// Thresholds defines the limits above which a node is flagged in reports.
type Thresholds struct {
	MaxCyclomatic int `json:"max_cyclomatic"`
	MaxCognitive  int `json:"max_cognitive"`
}

// DefaultThresholds returns sensible defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxCyclomatic: 10,
		MaxCognitive:  15,
	}
}

// Exceeds reports whether n is above either limit. Zero limits are disabled.
func (t Thresholds) Exceeds(n NodeComplexity) bool {
	return (t.MaxCyclomatic > 0 && n.Cyclomatic > t.MaxCyclomatic) ||
		(t.MaxCognitive > 0 && n.Cognitive > t.MaxCognitive)
}
