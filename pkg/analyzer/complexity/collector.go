package complexity

import (
	"fmt"
	"strings"

	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Collector discovers the function-like nodes of a parsed file and scores them.
type Collector struct {
	scorer *Scorer
}

// NewCollector creates a collector backed by scorer. A nil scorer uses NewScorer().
func NewCollector(scorer *Scorer) *Collector {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Collector{scorer: scorer}
}

// Collect scores every function-like node of result, keyed by qualified name.
// The first scoring failure aborts the file.
func (c *Collector) Collect(result *parser.ParseResult) (models.RunScores, error) {
	scores := make(models.RunScores)
	root := result.Root()
	if root == nil {
		return scores, nil
	}

	g := GrammarFor(result.Language)
	if g == nil {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedLanguage, result.Language)
	}

	v := &collectVisitor{
		grammar: g,
		scorer:  c.scorer,
		result:  result,
		scores:  scores,
		seen:    make(map[string]int),
	}
	if err := v.walk(root); err != nil {
		return nil, err
	}
	return scores, nil
}

type collectVisitor struct {
	grammar *Grammar
	scorer  *Scorer
	result  *parser.ParseResult
	scores  models.RunScores
	seen    map[string]int
	scope   []string
}

func (v *collectVisitor) walk(n *sitter.Node) error {
	kind := n.Type()

	switch {
	case v.grammar.IsFunction(kind):
		name := v.qualify(v.grammar.name(n, v.result.Source))
		nc, err := v.scorer.Score(FunctionNode{
			Name:     name,
			Node:     n,
			Source:   v.result.Source,
			Language: v.result.Language,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		v.scores[name] = nc
		return v.within(name, n)

	case v.grammar.IsScope(kind):
		if name := v.grammar.scopeName(n, v.result.Source); name != "" {
			return v.within(name, n)
		}
	}

	return v.children(n)
}

// within walks the children of n with name pushed onto the scope. Qualified
// names of function nodes carry duplicate suffixes into their children.
func (v *collectVisitor) within(name string, n *sitter.Node) error {
	saved := v.scope
	if v.grammar.IsFunction(n.Type()) {
		v.scope = []string{name}
	} else {
		v.scope = append(append([]string(nil), v.scope...), name)
	}
	err := v.children(n)
	v.scope = saved
	return err
}

func (v *collectVisitor) children(n *sitter.Node) error {
	for i := range int(n.NamedChildCount()) {
		if err := v.walk(n.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

// qualify joins name onto the current scope and makes it unique in the file.
func (v *collectVisitor) qualify(name string) string {
	if len(v.scope) > 0 {
		name = strings.Join(v.scope, ".") + "." + name
	}
	v.seen[name]++
	if n := v.seen[name]; n > 1 {
		name = fmt.Sprintf("%s#%d", name, n)
		v.seen[name]++
	}
	return name
}
