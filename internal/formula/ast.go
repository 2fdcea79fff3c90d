package formula

import "sort"

// DataType classifies a value in the formula type system.
type DataType string

const (
	TypeNumber  DataType = "number"
	TypeString  DataType = "string"
	TypeBoolean DataType = "boolean"
	// TypeAny is the wildcard type: it satisfies either side of an
	// equality comparison and any function parameter.
	TypeAny DataType = "any"
)

// Node is the interface implemented by all AST nodes. Nodes are immutable
// after construction; Pos and Len span the node's source text.
type Node interface {
	Kind() string
	Pos() int
	Len() int
}

// Operator identifies a binary or unary operator.
type Operator int

const (
	// Binary arithmetic
	OpAdd Operator = iota // +
	OpSub                 // -
	OpMul                 // *
	OpDiv                 // /
	OpMod                 // %
	OpPow                 // ^

	// Binary comparison
	OpGT  // >
	OpLT  // <
	OpGTE // >=
	OpLTE // <=
	OpEQ  // ==
	OpNEQ // !=

	// Binary logical
	OpAnd
	OpOr

	// Unary
	OpNeg // -
	OpNot // ! / not
)

// String returns the formula operator symbol.
func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "^"
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpGTE:
		return ">="
	case OpLTE:
		return "<="
	case OpEQ:
		return "=="
	case OpNEQ:
		return "!="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNeg:
		return "-"
	case OpNot:
		return "NOT"
	default:
		return "?"
	}
}

// IsArithmetic returns true for + - * / % ^.
func (op Operator) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
		return true
	}
	return false
}

// IsComparison returns true for > < >= <= == !=.
func (op Operator) IsComparison() bool {
	switch op {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ, OpNEQ:
		return true
	}
	return false
}

// IsLogical returns true for AND / OR.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsBinary returns true if op is a member of the fixed binary operator set.
func (op Operator) IsBinary() bool {
	return op.IsArithmetic() || op.IsComparison() || op.IsLogical()
}

// IsUnary returns true if op is a member of the fixed unary operator set.
func (op Operator) IsUnary() bool {
	return op == OpNeg || op == OpNot
}

// ── AST variants ────────────────────────────────────────────────────────────

// FunctionCall represents name(arg, ..., key=value, ...). NamedArgs keys
// are normalized to lowercase on storage and are never empty.
type FunctionCall struct {
	TokenPos  int
	Length    int
	Name      string
	Args      []Node
	NamedArgs map[string]Node
}

func (n *FunctionCall) Kind() string { return "FunctionCall" }
func (n *FunctionCall) Pos() int     { return n.TokenPos }
func (n *FunctionCall) Len() int     { return n.Length }

// BinaryOp represents left <op> right.
type BinaryOp struct {
	TokenPos int
	Length   int
	Op       Operator
	Left     Node
	Right    Node
}

func (n *BinaryOp) Kind() string { return "BinaryOp" }
func (n *BinaryOp) Pos() int     { return n.TokenPos }
func (n *BinaryOp) Len() int     { return n.Length }

// UnaryOp represents <op> operand.
type UnaryOp struct {
	TokenPos int
	Length   int
	Op       Operator
	Operand  Node
}

func (n *UnaryOp) Kind() string { return "UnaryOp" }
func (n *UnaryOp) Pos() int     { return n.TokenPos }
func (n *UnaryOp) Len() int     { return n.Length }

// FieldRef is an unquoted, possibly dotted reference to an event field.
type FieldRef struct {
	TokenPos int
	Length   int
	Field    string
}

func (n *FieldRef) Kind() string { return "FieldRef" }
func (n *FieldRef) Pos() int     { return n.TokenPos }
func (n *FieldRef) Len() int     { return n.Length }

// Literal is a number, string, or boolean constant. Raw holds the decoded
// source text; for numbers and booleans it is the canonical spelling.
type Literal struct {
	TokenPos int
	Length   int
	DataType DataType
	Raw      string
}

func (n *Literal) Kind() string { return "Literal" }
func (n *Literal) Pos() int     { return n.TokenPos }
func (n *Literal) Len() int     { return n.Length }

// Walk calls fn for node and every descendant in depth-first order.
// It is the shared read-only traversal used by the validator passes and
// the query builder; fn must not mutate the tree.
func Walk(node Node, fn func(Node)) {
	if node == nil {
		return
	}
	fn(node)
	switch n := node.(type) {
	case *FunctionCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
		for _, key := range sortedKeys(n.NamedArgs) {
			Walk(n.NamedArgs[key], fn)
		}
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryOp:
		Walk(n.Operand, fn)
	}
}

// sortedKeys returns map keys in sorted order so traversal is deterministic.
func sortedKeys(m map[string]Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
