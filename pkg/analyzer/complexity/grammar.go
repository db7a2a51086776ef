package complexity

import (
	"fmt"
	"strings"

	"github.com/panbanda/decomplex/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Grammar maps the node kinds of one tree-sitter grammar onto constructs
// and function-like nodes.
type Grammar struct {
	Language parser.Language

	functions  map[string]bool      // function-like node kinds
	scopes     map[string]bool      // class-like kinds that qualify nested names
	constructs map[string]Construct // node kind -> construct
	headers    map[string]bool      // field names scored at the owner's level
	headerKind map[string]bool      // unnamed header node kinds (Go for/range clauses)
	clauses    map[string]bool      // wrapper kinds that always continue their owner
	headerAt   map[string]int       // owner kind -> named child index scored at the owner's level
	groups     map[string]bool      // parenthesized kinds a boolean sequence is continued through
	bodyless   map[string]bool      // function kinds that may be declared without a body
	boolOps    map[string]bool      // operator tokens counted as boolean operators
	anonymous  string               // prefix for unnamed function-like nodes

	// refine adjusts the table lookup using the node's field in its parent.
	refine func(n *sitter.Node, field string, parent *sitter.Node, source []byte, c Construct) Construct
	// assignedName names an anonymous function after the variable it is bound to.
	assignedName func(n *sitter.Node, source []byte) string
	// functionName returns the declared name of a function-like node.
	functionName func(n *sitter.Node, source []byte) string
}

// IsFunction reports whether kind is a function-like node kind.
func (g *Grammar) IsFunction(kind string) bool {
	return g.functions[kind]
}

// IsScope reports whether kind is a class-like container.
func (g *Grammar) IsScope(kind string) bool {
	return g.scopes[kind]
}

// classify resolves the construct of n, given the field it occupies in parent.
func (g *Grammar) classify(n *sitter.Node, kind, field string, parent *sitter.Node, source []byte) Construct {
	c := g.constructs[kind]
	if c == BoolOp && !g.boolOps[operator(n)] {
		c = None
	}
	if g.refine != nil {
		c = g.refine(n, field, parent, source, c)
	}
	return c
}

// name returns the unqualified name of a function-like node.
func (g *Grammar) name(n *sitter.Node, source []byte) string {
	if g.functionName != nil {
		if name := g.functionName(n, source); name != "" {
			return name
		}
	}
	if g.assignedName != nil {
		if name := g.assignedName(n, source); name != "" {
			return name
		}
	}
	p := n.StartPoint()
	return fmt.Sprintf("<%s@%d:%d>", g.anonymous, p.Row+1, p.Column+1)
}

// scopeName returns the name a class-like node contributes to qualified names.
func (g *Grammar) scopeName(n *sitter.Node, source []byte) string {
	return fieldText(n, "name", source)
}

// operator returns the operator token of a binary node.
func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	if n == nil {
		return ""
	}
	return parser.Text(n.ChildByFieldName(field), source)
}

func set(items ...string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

var grammars = map[parser.Language]*Grammar{
	parser.LangPython:     pythonGrammar(),
	parser.LangGo:         goGrammar(),
	parser.LangJavaScript: javascriptGrammar(parser.LangJavaScript),
	parser.LangTypeScript: javascriptGrammar(parser.LangTypeScript),
	parser.LangTSX:        javascriptGrammar(parser.LangTSX),
}

// GrammarFor returns the grammar registered for lang, or nil.
func GrammarFor(lang parser.Language) *Grammar {
	return grammars[lang]
}

func pythonGrammar() *Grammar {
	return &Grammar{
		Language:  parser.LangPython,
		functions: set("function_definition", "lambda"),
		scopes:    set("class_definition"),
		constructs: map[string]Construct{
			"if_statement":           Branch,
			"elif_clause":            ElseIf,
			"else_clause":            Else,
			"for_statement":          Loop,
			"while_statement":        Loop,
			"except_clause":          Catch,
			"except_group_clause":    Catch,
			"conditional_expression": Ternary,
			"match_statement":        Switch,
			"case_clause":            Case,
			"boolean_operator":       BoolOp,
			"for_in_clause":          ComprehensionFor,
			"if_clause":              ComprehensionIf,
		},
		headers: set("condition", "left", "right", "subject"),
		// `a if cond else b` carries no field names
		headerAt:  map[string]int{"conditional_expression": 1},
		groups:    set("parenthesized_expression"),
		boolOps:   set("and", "or"),
		anonymous: "lambda",
		refine: func(n *sitter.Node, _ string, _ *sitter.Node, source []byte, c Construct) Construct {
			if c == Case && pythonWildcardCase(n, source) {
				return None
			}
			return c
		},
		functionName: func(n *sitter.Node, source []byte) string {
			return fieldText(n, "name", source)
		},
		assignedName: func(n *sitter.Node, source []byte) string {
			parent := n.Parent()
			if parent == nil || parent.Type() != "assignment" {
				return ""
			}
			left := parent.ChildByFieldName("left")
			if left == nil || left.Type() != "identifier" {
				return ""
			}
			return parser.Text(left, source)
		},
	}
}

// pythonWildcardCase reports whether a match arm is the unguarded `case _:`.
func pythonWildcardCase(n *sitter.Node, source []byte) bool {
	var patterns []*sitter.Node
	for i := range int(n.NamedChildCount()) {
		child := n.NamedChild(i)
		switch child.Type() {
		case "if_clause":
			return false
		case "block", "comment":
		default:
			patterns = append(patterns, child)
		}
	}
	return len(patterns) == 1 && strings.TrimSpace(parser.Text(patterns[0], source)) == "_"
}

func goGrammar() *Grammar {
	return &Grammar{
		Language:  parser.LangGo,
		functions: set("function_declaration", "method_declaration", "func_literal"),
		constructs: map[string]Construct{
			"if_statement":                Branch,
			"for_statement":               Loop,
			"expression_switch_statement": Switch,
			"type_switch_statement":       Switch,
			"select_statement":            Switch,
			"expression_case":             Case,
			"type_case":                   Case,
			"communication_case":          Case,
			"binary_expression":           BoolOp,
		},
		headers:    set("initializer", "condition", "update", "value", "alias"),
		headerKind: set("for_clause", "range_clause"),
		groups:     set("parenthesized_expression"),
		bodyless:   set("function_declaration", "method_declaration"),
		boolOps:    set("&&", "||"),
		anonymous:  "anonymous",
		refine: func(n *sitter.Node, field string, parent *sitter.Node, _ []byte, c Construct) Construct {
			if field != "alternative" || parent == nil || parent.Type() != "if_statement" {
				return c
			}
			if n.Type() == "if_statement" {
				return ElseIf
			}
			return Else
		},
		functionName: func(n *sitter.Node, source []byte) string {
			name := fieldText(n, "name", source)
			if name == "" || n.Type() != "method_declaration" {
				return name
			}
			if recv := goReceiverType(n.ChildByFieldName("receiver"), source); recv != "" {
				return recv + "." + name
			}
			return name
		},
		assignedName: goAssignedName,
	}
}

// goReceiverType returns the base type name of a method receiver list.
func goReceiverType(receiver *sitter.Node, source []byte) string {
	if receiver == nil {
		return ""
	}
	var name string
	parser.Walk(receiver, source, func(n *sitter.Node, kind string, src []byte) bool {
		if name != "" {
			return false
		}
		if kind == "type_identifier" {
			name = parser.Text(n, src)
			return false
		}
		return true
	})
	return name
}

// goAssignedName handles `name := func() {...}` and `var name = func() {...}`.
func goAssignedName(n *sitter.Node, source []byte) string {
	list := n.Parent()
	if list == nil || list.Type() != "expression_list" || list.NamedChildCount() != 1 {
		return ""
	}
	decl := list.Parent()
	if decl == nil {
		return ""
	}
	var left *sitter.Node
	switch decl.Type() {
	case "short_var_declaration", "assignment_statement":
		left = decl.ChildByFieldName("left")
	case "var_spec":
		left = decl.ChildByFieldName("name")
	default:
		return ""
	}
	if left == nil {
		return ""
	}
	if left.Type() == "expression_list" {
		if left.NamedChildCount() != 1 {
			return ""
		}
		left = left.NamedChild(0)
	}
	if left.Type() != "identifier" {
		return ""
	}
	return parser.Text(left, source)
}

func javascriptGrammar(lang parser.Language) *Grammar {
	return &Grammar{
		Language: lang,
		functions: set(
			"function_declaration", "generator_function_declaration",
			"function", "function_expression", "generator_function",
			"arrow_function", "method_definition",
		),
		scopes: set("class_declaration", "class", "abstract_class_declaration"),
		constructs: map[string]Construct{
			"if_statement":       Branch,
			"else_clause":        Else,
			"for_statement":      Loop,
			"for_in_statement":   Loop,
			"while_statement":    Loop,
			"do_statement":       Loop,
			"catch_clause":       Catch,
			"ternary_expression": Ternary,
			"switch_statement":   Switch,
			"switch_case":        Case,
			"binary_expression":  BoolOp,
		},
		headers:   set("condition", "initializer", "increment", "left", "right", "value", "parameter"),
		clauses:   set("else_clause"),
		groups:    set("parenthesized_expression"),
		boolOps:   set("&&", "||"),
		anonymous: "anonymous",
		refine: func(n *sitter.Node, _ string, parent *sitter.Node, _ []byte, c Construct) Construct {
			switch {
			case c == Else && jsElseIf(n) != nil:
				// `else if` is scored on the inner if statement
				return None
			case c == Branch && parent != nil && parent.Type() == "else_clause":
				return ElseIf
			}
			return c
		},
		functionName: func(n *sitter.Node, source []byte) string {
			return fieldText(n, "name", source)
		},
		assignedName: func(n *sitter.Node, source []byte) string {
			parent := n.Parent()
			if parent == nil {
				return ""
			}
			switch parent.Type() {
			case "variable_declarator":
				return fieldText(parent, "name", source)
			case "pair":
				return fieldText(parent, "key", source)
			case "field_definition":
				return fieldText(parent, "property", source)
			case "public_field_definition":
				return fieldText(parent, "name", source)
			}
			return ""
		},
	}
}

// jsElseIf returns the if statement wrapped by an else clause, if any.
func jsElseIf(elseClause *sitter.Node) *sitter.Node {
	if elseClause.NamedChildCount() != 1 {
		return nil
	}
	inner := elseClause.NamedChild(0)
	if inner.Type() != "if_statement" {
		return nil
	}
	return inner
}
