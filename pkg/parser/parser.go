// Package parser turns source files into tree-sitter syntax trees.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies a grammar.
type Language string

const (
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangUnknown    Language = "unknown"
)

var grammars = map[Language]func() *sitter.Language{
	LangPython:     python.GetLanguage,
	LangGo:         golang.GetLanguage,
	LangJavaScript: javascript.GetLanguage,
	LangTypeScript: typescript.GetLanguage,
	LangTSX:        tsx.GetLanguage,
}

// JSX is parsed with the TSX grammar.
var extensions = map[string]Language{
	".py":  LangPython,
	".pyw": LangPython,
	".pyi": LangPython,
	".go":  LangGo,
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangTSX,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// ErrUnsupportedLanguage is returned for files no grammar is registered for.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrParse is wrapped by every *ParseError.
var ErrParse = errors.New("syntax error")

// ParseError reports source text that is not syntactically valid.
type ParseError struct {
	Path   string
	Line   uint32
	Column uint32
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

// Unwrap lets callers match with errors.Is(err, ErrParse).
func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Parser wraps a tree-sitter parser. It is not safe for concurrent use;
// create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult is a syntax tree with the source it was built from.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the root node of the tree, or nil for an empty result.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.Tree == nil {
		return nil
	}
	return r.Tree.RootNode()
}

// New creates a parser.
func New() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Close releases the tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// Parse parses source as lang. path is only used in errors.
func (p *Parser) Parse(source []byte, lang Language, path string) (*ParseResult, error) {
	return p.ParseContext(context.Background(), source, lang, path)
}

// ParseContext is Parse that stops when ctx is cancelled. Trees containing
// ERROR or MISSING nodes are rejected with a *ParseError.
func (p *Parser) ParseContext(ctx context.Context, source []byte, lang Language, path string) (*ParseResult, error) {
	grammar, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(grammar)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if root := tree.RootNode(); root.HasError() {
		perr := syntaxError(root, source, path)
		tree.Close()
		return nil, perr
	}
	return &ParseResult{Tree: tree, Language: lang, Source: source, Path: path}, nil
}

// syntaxError locates the first ERROR or MISSING node below root.
func syntaxError(root *sitter.Node, source []byte, path string) *ParseError {
	perr := &ParseError{Path: path, Line: 1, Column: 1}
	var bad *sitter.Node
	Walk(root, source, func(n *sitter.Node, kind string, _ []byte) bool {
		if bad != nil {
			return false
		}
		if kind == "ERROR" || n.IsMissing() {
			bad = n
			return false
		}
		return n.HasError()
	})
	if bad != nil {
		start := bad.StartPoint()
		perr.Line, perr.Column = start.Row+1, start.Column+1
		perr.Near = snippet(Text(bad, source))
	}
	return perr
}

// snippet returns the first line of s, cut to 40 bytes.
func snippet(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

// GetTreeSitterLanguage returns the grammar registered for lang.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	get, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return get(), nil
}

// DetectLanguage maps a file extension to its Language, ignoring case.
func DetectLanguage(path string) Language {
	if lang, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangUnknown
}

// Supported reports whether path has a parseable extension.
func Supported(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// Visitor is called for every node with its type, read once per node.
// Returning false skips the node's children.
type Visitor func(node *sitter.Node, kind string, source []byte) bool

// Walk visits node and its descendants depth first.
func Walk(node *sitter.Node, source []byte, visit Visitor) {
	if node == nil || !visit(node, node.Type(), source) {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visit)
	}
}

// Text returns the source text spanned by node, or "" for a nil node or
// offsets outside source.
func Text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
