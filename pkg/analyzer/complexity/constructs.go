package complexity

// Construct is the closed set of control-flow shapes the scorer understands.
// Every syntax node kind of a grammar maps onto exactly one Construct.
type Construct uint8

const (
	None Construct = iota
	Branch
	ElseIf
	Else
	Loop
	Catch
	Ternary
	Switch
	Case
	BoolOp
	ComprehensionFor
	ComprehensionIf
)

var constructNames = [...]string{
	None:             "none",
	Branch:           "branch",
	ElseIf:           "else-if",
	Else:             "else",
	Loop:             "loop",
	Catch:            "catch",
	Ternary:          "ternary",
	Switch:           "switch",
	Case:             "case",
	BoolOp:           "bool-op",
	ComprehensionFor: "comprehension-for",
	ComprehensionIf:  "comprehension-if",
}

func (c Construct) String() string {
	if int(c) < len(constructNames) {
		return constructNames[c]
	}
	return "unknown"
}

// traits describes how a construct contributes to each metric.
type traits struct {
	cyclomatic bool // counts as a decision point
	cognitive  bool // adds 1 + nesting level
	flat       bool // adds 1 regardless of nesting level
	nests      bool // body children are one level deeper
}

var constructTraits = [...]traits{
	None:             {},
	Branch:           {cyclomatic: true, cognitive: true, nests: true},
	ElseIf:           {cyclomatic: true, flat: true, nests: true},
	Else:             {flat: true, nests: true},
	Loop:             {cyclomatic: true, cognitive: true, nests: true},
	Catch:            {cyclomatic: true, cognitive: true, nests: true},
	Ternary:          {cyclomatic: true, cognitive: true, nests: true},
	Switch:           {cognitive: true, nests: true},
	Case:             {cyclomatic: true},
	BoolOp:           {cyclomatic: true, cognitive: true},
	ComprehensionFor: {cyclomatic: true},
	ComprehensionIf:  {cyclomatic: true},
}

func (c Construct) traits() traits {
	if int(c) < len(constructTraits) {
		return constructTraits[c]
	}
	return traits{}
}

// isClause reports whether c continues an enclosing branch rather than
// opening a new one. Clauses are scored at the level of their owner.
func (c Construct) isClause() bool {
	return c == ElseIf || c == Else
}
