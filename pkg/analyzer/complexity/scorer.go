package complexity

import (
	"errors"
	"fmt"

	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrUnscorable is wrapped by every *UnscorableNodeError.
var ErrUnscorable = errors.New("unscorable node")

// UnscorableNodeError is returned when a node cannot be scored.
type UnscorableNodeError struct {
	Kind     string
	Language parser.Language
	Line     uint32
	Reason   string
}

func (e *UnscorableNodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("cannot score %s node: %s", e.Language, e.Reason)
	}
	return fmt.Sprintf("cannot score %s %s at line %d: %s", e.Language, e.Kind, e.Line, e.Reason)
}

func (e *UnscorableNodeError) Unwrap() error {
	return ErrUnscorable
}

// FunctionNode is a function-like syntax node ready to be scored.
type FunctionNode struct {
	Name     string
	Node     *sitter.Node
	Source   []byte
	Language parser.Language
}

// Scorer computes cyclomatic and cognitive complexity of one function-like node.
// It is stateless and safe for concurrent use.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score walks the body of fn and returns its complexity.
// Nested function-like nodes and class bodies are not entered.
func (s *Scorer) Score(fn FunctionNode) (models.NodeComplexity, error) {
	g := GrammarFor(fn.Language)
	if g == nil {
		return models.NodeComplexity{}, &UnscorableNodeError{Language: fn.Language, Reason: "unsupported language"}
	}
	if fn.Node == nil {
		return models.NodeComplexity{}, &UnscorableNodeError{Language: fn.Language, Reason: "nil node"}
	}

	kind := fn.Node.Type()
	if !g.IsFunction(kind) {
		return models.NodeComplexity{}, unscorable(fn, kind, "not a function-like node")
	}
	body := fn.Node.ChildByFieldName("body")
	if body == nil {
		if g.bodyless[kind] {
			// declared elsewhere, e.g. in assembly
			return models.NodeComplexity{Name: fn.Name, Cyclomatic: 1}, nil
		}
		return models.NodeComplexity{}, unscorable(fn, kind, "missing body")
	}

	w := &walker{grammar: g, source: fn.Source, cyclomatic: 1}
	w.visit(body, "body", fn.Node, 0)

	return models.NodeComplexity{
		Name:       fn.Name,
		Cyclomatic: w.cyclomatic,
		Cognitive:  w.cognitive,
	}, nil
}

func unscorable(fn FunctionNode, kind, reason string) *UnscorableNodeError {
	return &UnscorableNodeError{
		Kind:     kind,
		Language: fn.Language,
		Line:     fn.Node.StartPoint().Row + 1,
		Reason:   reason,
	}
}

// walker accumulates scores over one function body.
type walker struct {
	grammar    *Grammar
	source     []byte
	cyclomatic int
	cognitive  int
}

func (w *walker) visit(n *sitter.Node, field string, parent *sitter.Node, level int) {
	kind := n.Type()
	if w.grammar.IsFunction(kind) || w.grammar.IsScope(kind) {
		return
	}

	c := w.grammar.classify(n, kind, field, parent, w.source)
	t := c.traits()
	if t.cyclomatic {
		w.cyclomatic++
	}
	switch {
	case t.flat:
		w.cognitive++
	case c == BoolOp:
		if !w.continuesSequence(n, parent) {
			w.cognitive += 1 + level
		}
	case t.cognitive:
		w.cognitive += 1 + level
	}

	named := 0
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		childField := n.FieldNameForChild(i)
		childLevel := level
		if t.nests {
			childLevel = w.childLevel(child, childField, named, n, level)
		}
		named++
		w.visit(child, childField, n, childLevel)
	}
}

// childLevel returns the nesting level of a child of a nesting construct at level.
// Clauses and headers stay at the construct's level; everything else is one deeper.
// index is the child's position among the owner's named children.
func (w *walker) childLevel(child *sitter.Node, field string, index int, owner *sitter.Node, level int) int {
	g := w.grammar
	kind := child.Type()
	if g.clauses[kind] || g.headers[field] || g.headerKind[kind] {
		return level
	}
	if at, ok := g.headerAt[owner.Type()]; ok && at == index {
		return level
	}
	if g.classify(child, kind, field, owner, w.source).isClause() {
		return level
	}
	return level + 1
}

// continuesSequence reports whether a boolean operator extends its parent's
// sequence of the same operator. Parentheses do not break a sequence.
func (w *walker) continuesSequence(n, parent *sitter.Node) bool {
	for parent != nil && w.grammar.groups[parent.Type()] {
		parent = parent.Parent()
	}
	if parent == nil || w.grammar.constructs[parent.Type()] != BoolOp {
		return false
	}
	return operator(parent) == operator(n)
}
