// Package report renders stored complexity histories.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/pkg/models"
)

const (
	simpleFormat     = "%44s cyclomatic: %2d; cognitive: %2d"
	continuousFormat = "%44s cyclomatic: %2d (%+d); cognitive: %2d (%+d)"
	totalName        = "Total"
)

// NodeReport is one node line of a file report.
type NodeReport struct {
	Name       string                   `json:"name" yaml:"name" toon:"name"`
	Cyclomatic int                      `json:"cyclomatic" yaml:"cyclomatic" toon:"cyclomatic"`
	Cognitive  int                      `json:"cognitive" yaml:"cognitive" toon:"cognitive"`
	Change     *models.ComplexityChange `json:"change,omitempty" yaml:"change,omitempty" toon:"change,omitempty"`
}

// FileReport holds the latest run of one file.
type FileReport struct {
	Path       string       `json:"path" yaml:"path" toon:"path"`
	Timestamp  string       `json:"timestamp" yaml:"timestamp" toon:"timestamp"`
	Previous   string       `json:"previous,omitempty" yaml:"previous,omitempty" toon:"previous,omitempty"`
	Nodes      []NodeReport `json:"nodes" yaml:"nodes" toon:"nodes"`
	Cyclomatic int          `json:"total_cyclomatic" yaml:"total_cyclomatic" toon:"total_cyclomatic"`
	Cognitive  int          `json:"total_cognitive" yaml:"total_cognitive" toon:"total_cognitive"`
}

// Reporter formats the latest runs of a set of file histories.
type Reporter struct {
	scores models.Scores
}

// New creates a reporter over scores.
func New(scores models.Scores) *Reporter {
	return &Reporter{scores: scores}
}

// Files returns one FileReport per file with a non-empty latest run, sorted
// by path. In continuous mode every node carries its change against the
// second most recent run.
func (r *Reporter) Files(continuous bool) []FileReport {
	var files []FileReport
	for _, path := range r.scores.Paths() {
		history := r.scores[path]
		ts, latest, ok := history.Latest()
		if !ok || len(latest) == 0 {
			continue
		}
		prevTS, previous, _ := history.Previous()

		fr := FileReport{Path: path, Timestamp: ts}
		if continuous {
			fr.Previous = prevTS
		}
		for _, name := range latest.Names() {
			nc := latest[name]
			node := NodeReport{Name: name, Cyclomatic: nc.Cyclomatic, Cognitive: nc.Cognitive}
			if continuous {
				change := models.Change(latest, previous, name)
				node.Change = &change
			}
			fr.Nodes = append(fr.Nodes, node)
			fr.Cyclomatic += nc.Cyclomatic
			fr.Cognitive += nc.Cognitive
		}
		files = append(files, fr)
	}
	return files
}

// Lines returns the plain text report, one entry per line. Each file block
// starts with a blank line, the file name and an underline.
func (r *Reporter) Lines(continuous bool) []string {
	var lines []string
	for _, fr := range r.Files(continuous) {
		lines = append(lines, fileLines(fr, continuous)...)
	}
	return lines
}

func fileLines(fr FileReport, continuous bool) []string {
	underline := strings.Repeat("=", len([]rune(fr.Path)))
	lines := []string{"", fr.Path, underline}
	for _, n := range fr.Nodes {
		if continuous {
			lines = append(lines, fmt.Sprintf(continuousFormat,
				n.Name, n.Cyclomatic, n.Change.Cyclomatic, n.Cognitive, n.Change.Cognitive))
			continue
		}
		lines = append(lines, fmt.Sprintf(simpleFormat, n.Name, n.Cyclomatic, n.Cognitive))
	}
	if !continuous {
		lines = append(lines, underline, fmt.Sprintf(simpleFormat, totalName, fr.Cyclomatic, fr.Cognitive))
	}
	return lines
}

// Document returns a Renderable for the report.
func (r *Reporter) Document(continuous bool, thresholds models.Thresholds) *Document {
	return &Document{
		Continuous: continuous,
		Files:      r.Files(continuous),
		thresholds: thresholds,
	}
}

// Document is the Renderable form of a report.
type Document struct {
	Continuous bool         `json:"continuous" yaml:"continuous" toon:"continuous"`
	Files      []FileReport `json:"files" yaml:"files" toon:"files"`
	thresholds models.Thresholds
}

var (
	_ output.Renderable      = (*Document)(nil)
	_ output.TableRenderable = (*Document)(nil)
)

// RenderText writes the plain report lines. Color only highlights nodes over
// the thresholds; the text stays identical.
func (d *Document) RenderText(w io.Writer, colored bool) error {
	for _, fr := range d.Files {
		for i, line := range fileLines(fr, d.Continuous) {
			if colored && i >= 3 && i-3 < len(fr.Nodes) && d.exceeds(fr.Nodes[i-3]) {
				line = color.RedString(line)
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderMarkdown writes one table per file.
func (d *Document) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Complexity Report")
	fmt.Fprintln(w)
	for _, t := range d.tables(false) {
		if err := t.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable writes one aligned table per file with colored deltas.
func (d *Document) RenderTable(w io.Writer, colored bool) error {
	rep := &output.Report{}
	for _, t := range d.tables(colored) {
		rep.Sections = append(rep.Sections, t)
	}
	return rep.RenderText(w, colored)
}

// RenderData returns the document itself for json, yaml and toon output.
func (d *Document) RenderData() any {
	return d
}

func (d *Document) exceeds(n NodeReport) bool {
	return d.thresholds.Exceeds(models.NodeComplexity{Name: n.Name, Cyclomatic: n.Cyclomatic, Cognitive: n.Cognitive})
}

func (d *Document) tables(colored bool) []*output.Table {
	tables := make([]*output.Table, 0, len(d.Files))
	for _, fr := range d.Files {
		headers := []string{"Node", "Cyclomatic", "Cognitive"}
		if d.Continuous {
			headers = []string{"Node", "Cyclomatic", "Δ", "Cognitive", "Δ"}
		}

		rows := make([][]string, 0, len(fr.Nodes))
		for _, n := range fr.Nodes {
			name := n.Name
			if colored && d.exceeds(n) {
				name = color.RedString(name)
			}
			row := []string{name, strconv.Itoa(n.Cyclomatic), strconv.Itoa(n.Cognitive)}
			if d.Continuous {
				row = []string{
					name,
					strconv.Itoa(n.Cyclomatic), delta(n.Change.Cyclomatic, colored),
					strconv.Itoa(n.Cognitive), delta(n.Change.Cognitive, colored),
				}
			}
			rows = append(rows, row)
		}

		var footer []string
		if !d.Continuous {
			footer = []string{totalName, strconv.Itoa(fr.Cyclomatic), strconv.Itoa(fr.Cognitive)}
		}
		tables = append(tables, output.NewTable(fr.Path, headers, rows, footer, fr))
	}
	return tables
}

func delta(v int, colored bool) string {
	text := fmt.Sprintf("%+d", v)
	if !colored {
		return text
	}
	return output.DeltaColor(v, text)
}
