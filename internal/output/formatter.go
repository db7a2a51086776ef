// Package output writes reports as text, tables, markdown or structured data.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTOON     Format = "toon"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format name.
var Formats = []Format{FormatText, FormatTable, FormatJSON, FormatYAML, FormatTOON, FormatMarkdown}

var formatAliases = map[string]Format{
	"yml": FormatYAML,
	"md":  FormatMarkdown,
}

// ParseFormat maps a user supplied name to a Format. Unknown names are text.
func ParseFormat(s string) Format {
	name := strings.ToLower(strings.TrimSpace(s))
	if f, ok := formatAliases[name]; ok {
		return f
	}
	for _, f := range Formats {
		if string(f) == name {
			return f
		}
	}
	return FormatText
}

// structured reports whether f serializes RenderData instead of drawing text.
func (f Format) structured() bool {
	return f == FormatJSON || f == FormatYAML || f == FormatTOON
}

// Renderable is implemented by results that know how to draw themselves.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the value serialized for json, yaml and toon.
	RenderData() any
}

// TableRenderable is implemented by Renderables with an aligned table view.
// Others fall back to RenderText for FormatTable.
type TableRenderable interface {
	RenderTable(w io.Writer, colored bool) error
}

// Formatter writes results in one format. Results go to the output stream,
// status messages to a separate message stream.
type Formatter struct {
	format  Format
	out     io.Writer
	msgs    io.Writer
	file    *os.File
	colored bool
}

// NewFormatter writes results to the file at path, or to stdout when path is
// empty. File output is never colored. Messages go to stderr.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	f := &Formatter{format: format, out: os.Stdout, msgs: os.Stderr, colored: colored}
	if path == "" {
		return f, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	f.out, f.file, f.colored = file, file, false
	return f, nil
}

// NewWriterFormatter writes both results and messages to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, out: w, msgs: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Writer returns the output stream.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// Format returns the configured format.
func (f *Formatter) Format() Format {
	return f.format
}

// Colored reports whether ANSI colors are written.
func (f *Formatter) Colored() bool {
	return f.colored
}

// Output writes v. Renderables choose their own layout for text, table and
// markdown; any other value is encoded, as fenced JSON for markdown and
// plain JSON for text.
func (f *Formatter) Output(v any) error {
	r, ok := v.(Renderable)
	if !ok {
		return f.encodeValue(v)
	}

	switch {
	case f.format.structured():
		return f.encode(r.RenderData())
	case f.format == FormatMarkdown:
		return r.RenderMarkdown(f.out)
	case f.format == FormatTable:
		if t, ok := r.(TableRenderable); ok {
			return t.RenderTable(f.out, f.colored)
		}
	}
	return r.RenderText(f.out, f.colored)
}

func (f *Formatter) encodeValue(v any) error {
	if f.format != FormatMarkdown {
		return f.encode(v)
	}
	if _, err := io.WriteString(f.out, "```json\n"); err != nil {
		return err
	}
	if err := writeJSON(f.out, v); err != nil {
		return err
	}
	_, err := io.WriteString(f.out, "```\n")
	return err
}

// encode serializes v in the structured format; every other format uses JSON.
func (f *Formatter) encode(v any) error {
	switch f.format {
	case FormatYAML:
		enc := yaml.NewEncoder(f.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOON:
		data, err := toon.Marshal(v, toon.WithIndent(2))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(f.out, "%s\n", data)
		return err
	default:
		return writeJSON(f.out, v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Success prints a status line in green.
func (f *Formatter) Success(format string, args ...any) {
	f.message(color.FgGreen, "", format, args...)
}

// Warning prints a non-fatal problem in yellow, or with a WARNING prefix.
func (f *Formatter) Warning(format string, args ...any) {
	f.message(color.FgYellow, "WARNING: ", format, args...)
}

// Error prints a failure in red, or with an ERROR prefix.
func (f *Formatter) Error(format string, args ...any) {
	f.message(color.FgRed, "ERROR: ", format, args...)
}

// Info prints a status line in cyan.
func (f *Formatter) Info(format string, args ...any) {
	f.message(color.FgCyan, "", format, args...)
}

func (f *Formatter) message(attr color.Attribute, prefix, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if f.colored {
		color.New(attr).Fprintln(f.msgs, line)
		return
	}
	fmt.Fprintln(f.msgs, prefix+line)
}

// DeltaColor colors the text of a signed change: increases red, decreases green.
func DeltaColor(delta int, text string) string {
	switch {
	case delta > 0:
		return color.RedString(text)
	case delta < 0:
		return color.GreenString(text)
	}
	return text
}
