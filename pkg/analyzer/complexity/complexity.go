package complexity

import (
	"context"
	"errors"
	"fmt"

	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/pkg/analyzer"
	"github.com/panbanda/decomplex/pkg/parser"
	"github.com/panbanda/decomplex/pkg/source"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// ErrFileTooLarge is returned for files above the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Analyzer computes cyclomatic and cognitive complexity for source files.
type Analyzer struct {
	parser      *parser.Parser
	collector   *Collector
	maxFileSize int64
	workers     int
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers sets the number of files analyzed concurrently by Analyze.
// Values <= 0 use 2x NumCPU.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a new complexity analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:    parser.New(),
		collector: NewCollector(nil),
		workers:   1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeSource scores the functions of content, detecting the language from path.
func (a *Analyzer) AnalyzeSource(content []byte, path string) (*FileResult, error) {
	return a.analyze(context.Background(), a.parser, path, content)
}

// AnalyzeFile analyzes complexity for a single file on disk.
func (a *Analyzer) AnalyzeFile(path string) (*FileResult, error) {
	return a.AnalyzeFileFromSource(source.NewFilesystem(), path)
}

// AnalyzeFileFromSource analyzes complexity for a file from a ContentSource.
func (a *Analyzer) AnalyzeFileFromSource(src source.ContentSource, path string) (*FileResult, error) {
	content, err := src.Read(path)
	if err != nil {
		return nil, err
	}
	return a.analyze(context.Background(), a.parser, path, content)
}

// Analyze analyzes files on disk. See AnalyzeProjectFromSource.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	return a.AnalyzeProjectFromSource(ctx, files, source.NewFilesystem())
}

// AnalyzeProjectFromSource analyzes files from src using up to the configured
// number of workers. Files that fail are left out of the analysis and reported
// through a *fileproc.ProcessingErrors; the analysis of the remaining files is
// still returned.
// Progress is tracked via context using analyzer.WithTracker.
func (a *Analyzer) AnalyzeProjectFromSource(ctx context.Context, files []string, src source.ContentSource) (*Analysis, error) {
	results, errs := fileproc.MapSourceFiles(ctx, files, src, a.workers, func(psr *parser.Parser, path string, content []byte) (*FileResult, error) {
		return a.analyze(ctx, psr, path, content)
	})

	analysis := &Analysis{Files: make(map[string]*FileResult, len(results))}
	for path, fr := range results {
		analysis.Files[path] = fr
	}
	if errs != nil {
		return analysis, errs
	}
	return analysis, nil
}

func (a *Analyzer) analyze(ctx context.Context, psr *parser.Parser, path string, content []byte) (*FileResult, error) {
	if a.maxFileSize > 0 && int64(len(content)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}

	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedLanguage, path)
	}

	result, err := psr.ParseContext(ctx, content, lang, path)
	if err != nil {
		return nil, err
	}
	defer result.Tree.Close()

	functions, err := a.collector.Collect(result)
	if err != nil {
		return nil, err
	}

	return &FileResult{
		Path:      path,
		Language:  string(lang),
		Functions: functions,
	}, nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}
