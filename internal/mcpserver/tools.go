package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/internal/scanner"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/recorder"
	"github.com/panbanda/decomplex/pkg/report"
	"github.com/panbanda/decomplex/pkg/store"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories. Defaults to the current directory for analysis and to every stored file for history tools."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, markdown or text."`
}

// HistoryInput selects stored history.
type HistoryInput struct {
	AnalyzeInput
	Store string `json:"store,omitempty" jsonschema:"Score store location. Defaults to the configured store."`
}

// ReportInput adds report options.
type ReportInput struct {
	HistoryInput
	Continuous bool `json:"continuous,omitempty" jsonschema:"Show the change of every function against the previous run."`
}

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	if input.Format == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(input.Format)
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

var errNoHistory = errors.New("no stored scores found; run decomplex analyze first")

// fileError is a file that could not be analyzed.
type fileError struct {
	Path  string `json:"path" yaml:"path" toon:"path"`
	Error string `json:"error" yaml:"error" toon:"error"`
}

// analysisOutput is a report of one analysis run plus the files that failed.
type analysisOutput struct {
	*report.Document
	Errors []fileError
}

func (a *analysisOutput) RenderData() any {
	return struct {
		Files  []report.FileReport `json:"files" yaml:"files" toon:"files"`
		Errors []fileError         `json:"errors,omitempty" yaml:"errors,omitempty" toon:"errors,omitempty"`
	}{a.Files, a.Errors}
}

func (a *analysisOutput) RenderText(w io.Writer, colored bool) error {
	if err := a.Document.RenderText(w, colored); err != nil {
		return err
	}
	for _, e := range a.Errors {
		fmt.Fprintf(w, "error: %s: %s\n", e.Path, e.Error)
	}
	return nil
}

func (a *analysisOutput) RenderMarkdown(w io.Writer) error {
	if err := a.Document.RenderMarkdown(w); err != nil {
		return err
	}
	if len(a.Errors) > 0 {
		t := &output.Table{Title: "Errors", Headers: []string{"Path", "Error"}}
		for _, e := range a.Errors {
			t.Rows = append(t.Rows, []string{e.Path, e.Error})
		}
		return t.RenderMarkdown(w)
	}
	return nil
}

func (s *Server) openStore(path string) (store.Store, error) {
	if path == "" {
		path = s.config.StorePath()
	}
	return store.Open(store.Backend(s.config.Store.Backend), path)
}

func (s *Server) loadHistory(ctx context.Context, input HistoryInput) (models.Scores, error) {
	st, err := s.openStore(input.Store)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	scores, err := store.Select(ctx, st, input.Paths)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, errNoHistory
	}
	return scores, nil
}

// Tool handlers

func (s *Server) handleAnalyzeComplexity(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	files, err := scanner.NewScanner(s.config).Expand(getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no source files found")
	}

	rec := recorder.New(
		recorder.WithFiles(files...),
		recorder.WithWorkers(s.config.Analysis.Workers),
		recorder.WithMaxFileSize(s.config.Analysis.MaxFileSize),
	)

	out := &analysisOutput{}
	var perrs *fileproc.ProcessingErrors
	if err := rec.Analyze(ctx, ""); err != nil {
		if !errors.As(err, &perrs) {
			return toolError(err.Error())
		}
		for _, pe := range perrs.Errors {
			out.Errors = append(out.Errors, fileError{Path: pe.Path, Error: pe.Err.Error()})
		}
	}

	out.Document = report.New(rec.Summary()).Document(false, s.config.Thresholds())
	return toolResult(out, getFormat(input))
}

func (s *Server) handleComplexityReport(ctx context.Context, req *mcp.CallToolRequest, input ReportInput) (*mcp.CallToolResult, any, error) {
	scores, err := s.loadHistory(ctx, input.HistoryInput)
	if err != nil {
		return toolError(err.Error())
	}
	doc := report.New(scores).Document(input.Continuous, s.config.Thresholds())
	return toolResult(doc, getFormat(input.AnalyzeInput))
}

func (s *Server) handleComplexityTrend(ctx context.Context, req *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, any, error) {
	scores, err := s.loadHistory(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.Trends(scores), getFormat(input.AnalyzeInput))
}
