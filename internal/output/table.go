package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Table is a titled grid of cells. Data, when set, replaces the cells in
// structured output.
type Table struct {
	Title   string     `json:"-"`
	Headers []string   `json:"-"`
	Rows    [][]string `json:"-"`
	Footer  []string   `json:"-"`
	Data    any        `json:"data,omitempty"`
}

var (
	_ Renderable      = (*Table)(nil)
	_ TableRenderable = (*Table)(nil)
)

// NewTable creates a table.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Footer: footer, Data: data}
}

// RenderData returns Data, or one header-keyed map per row.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, cell := range row {
			if i < len(t.Headers) {
				rec[t.Headers[i]] = cell
			}
		}
		records = append(records, rec)
	}
	return records
}

// RenderText draws the title, underlined, above a borderless aligned grid.
func (t *Table) RenderText(w io.Writer, colored bool) error {
	writeTitle(w, t.Title, colored, color.Bold)

	grid := newGrid(w)
	grid.Header(t.Headers)
	if err := grid.Bulk(t.Rows); err != nil {
		return err
	}
	if len(t.Footer) > 0 {
		cells := make([]any, len(t.Footer))
		for i, c := range t.Footer {
			cells[i] = c
		}
		grid.Footer(cells...)
	}
	if err := grid.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// RenderTable implements TableRenderable.
func (t *Table) RenderTable(w io.Writer, colored bool) error {
	return t.RenderText(w, colored)
}

// RenderMarkdown writes a level two heading and a pipe table.
func (t *Table) RenderMarkdown(w io.Writer) error {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "## %s\n\n", t.Title)
	}
	writeMarkdownRow(&b, t.Headers)
	writeMarkdownRow(&b, repeat("---", len(t.Headers)))
	for _, row := range t.Rows {
		writeMarkdownRow(&b, row)
	}
	if len(t.Footer) > 0 {
		writeMarkdownRow(&b, t.Footer)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Report is a titled sequence of Renderables.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

var (
	_ Renderable      = (*Report)(nil)
	_ TableRenderable = (*Report)(nil)
)

// RenderData returns Data, or the title with the data of every section.
func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	sections := make([]any, 0, len(r.Sections))
	for _, s := range r.Sections {
		sections = append(sections, s.RenderData())
	}
	return map[string]any{"title": r.Title, "sections": sections}
}

// RenderText writes the title and the sections separated by blank lines.
func (r *Report) RenderText(w io.Writer, colored bool) error {
	writeTitle(w, r.Title, colored, color.Bold, color.FgCyan)
	for i, s := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

// RenderTable implements TableRenderable.
func (r *Report) RenderTable(w io.Writer, colored bool) error {
	return r.RenderText(w, colored)
}

// RenderMarkdown writes the title as a level one heading followed by the sections.
func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// writeTitle writes title, an "=" underline of the same width and a blank line.
func writeTitle(w io.Writer, title string, colored bool, attrs ...color.Attribute) {
	if title == "" {
		return
	}
	if colored {
		color.New(attrs...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len([]rune(title))))
}

// newGrid returns a left-aligned tablewriter without borders or column separators.
func newGrid(w io.Writer) *tablewriter.Table {
	left := tw.CellAlignment{Global: tw.AlignLeft}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  left,
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: left},
			Footer: tw.CellConfig{Alignment: left},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
