package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// TrendPoint is the file total of one run.
type TrendPoint struct {
	Timestamp  string `json:"timestamp" yaml:"timestamp" toon:"timestamp"`
	Nodes      int    `json:"nodes" yaml:"nodes" toon:"nodes"`
	Cyclomatic int    `json:"cyclomatic" yaml:"cyclomatic" toon:"cyclomatic"`
	Cognitive  int    `json:"cognitive" yaml:"cognitive" toon:"cognitive"`
}

// TrendStats holds least-squares statistics of one metric over run index.
type TrendStats struct {
	Slope     float64 `json:"slope" yaml:"slope" toon:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept" toon:"intercept"`
	RSquared  float64 `json:"r_squared" yaml:"r_squared" toon:"r_squared"`
}

// FileTrend is the run-by-run evolution of one file.
type FileTrend struct {
	Path       string       `json:"path" yaml:"path" toon:"path"`
	Points     []TrendPoint `json:"points" yaml:"points" toon:"points"`
	Cyclomatic TrendStats   `json:"cyclomatic" yaml:"cyclomatic" toon:"cyclomatic"`
	Cognitive  TrendStats   `json:"cognitive" yaml:"cognitive" toon:"cognitive"`
}

// TrendReport is the Renderable trend of a set of files.
type TrendReport struct {
	Files []FileTrend `json:"files" yaml:"files" toon:"files"`
}

var (
	_ output.Renderable      = (*TrendReport)(nil)
	_ output.TableRenderable = (*TrendReport)(nil)
)

// Trend computes per-run totals and their regression for one history.
func Trend(path string, history models.FileHistory) FileTrend {
	ft := FileTrend{Path: path}
	for _, ts := range history.Timestamps() {
		run := history[ts]
		cyc, cog := run.Totals()
		ft.Points = append(ft.Points, TrendPoint{
			Timestamp:  ts,
			Nodes:      len(run),
			Cyclomatic: cyc,
			Cognitive:  cog,
		})
	}
	ft.Cyclomatic = computeStats(ft.Points, func(p TrendPoint) int { return p.Cyclomatic })
	ft.Cognitive = computeStats(ft.Points, func(p TrendPoint) int { return p.Cognitive })
	return ft
}

// Trends computes the trend of every file with at least one run, sorted by path.
func Trends(scores models.Scores) *TrendReport {
	rep := &TrendReport{Files: []FileTrend{}}
	for _, path := range scores.Paths() {
		if len(scores[path]) == 0 {
			continue
		}
		rep.Files = append(rep.Files, Trend(path, scores[path]))
	}
	return rep
}

// computeStats regresses the metric against the run index. Fewer than two
// points, or a constant series, give a zero fit.
func computeStats(points []TrendPoint, metric func(TrendPoint) int) TrendStats {
	n := len(points)
	if n < 2 {
		return TrendStats{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = float64(metric(p))
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	rSquared := stat.RSquared(xs, ys, nil, intercept, slope)

	return TrendStats{
		Slope:     finite(slope),
		Intercept: finite(intercept),
		RSquared:  finite(rSquared),
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (r *TrendReport) RenderData() any {
	return r
}

func (r *TrendReport) RenderText(w io.Writer, colored bool) error {
	for _, ft := range r.Files {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ft.Path)
		for _, p := range ft.Points {
			fmt.Fprintf(w, "%28s cyclomatic: %3d; cognitive: %3d; nodes: %d\n",
				p.Timestamp, p.Cyclomatic, p.Cognitive, p.Nodes)
		}
		fmt.Fprintf(w, "%28s cyclomatic: %s; cognitive: %s\n", "slope/run",
			slopeText(ft.Cyclomatic.Slope, colored), slopeText(ft.Cognitive.Slope, colored))
	}
	return nil
}

func (r *TrendReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintln(w, "# Complexity Trend")
	fmt.Fprintln(w)
	for _, t := range r.tables(false) {
		if err := t.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

func (r *TrendReport) RenderTable(w io.Writer, colored bool) error {
	rep := &output.Report{}
	for _, t := range r.tables(colored) {
		rep.Sections = append(rep.Sections, t)
	}
	return rep.RenderText(w, colored)
}

func (r *TrendReport) tables(colored bool) []*output.Table {
	tables := make([]*output.Table, 0, len(r.Files))
	for _, ft := range r.Files {
		rows := make([][]string, 0, len(ft.Points))
		for _, p := range ft.Points {
			rows = append(rows, []string{
				p.Timestamp,
				strconv.Itoa(p.Nodes),
				strconv.Itoa(p.Cyclomatic),
				strconv.Itoa(p.Cognitive),
			})
		}
		footer := []string{
			"Slope (R²)",
			"",
			fmt.Sprintf("%s (%.2f)", slopeText(ft.Cyclomatic.Slope, colored), ft.Cyclomatic.RSquared),
			fmt.Sprintf("%s (%.2f)", slopeText(ft.Cognitive.Slope, colored), ft.Cognitive.RSquared),
		}
		tables = append(tables, output.NewTable(ft.Path,
			[]string{"Run", "Nodes", "Cyclomatic", "Cognitive"}, rows, footer, ft))
	}
	return tables
}

func slopeText(slope float64, colored bool) string {
	text := fmt.Sprintf("%+.2f", slope)
	if !colored {
		return text
	}
	switch {
	case slope > 0:
		return output.DeltaColor(1, text)
	case slope < 0:
		return output.DeltaColor(-1, text)
	default:
		return text
	}
}
