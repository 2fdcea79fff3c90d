package validate

import (
	"fmt"

	"github.com/matthewbaird/formulac/internal/formula"
)

// securityPass enforces the configured size limits and scans string
// literals against the forbidden-pattern denylist. Every violated limit is
// one blocking error.
func (v *Validator) securityPass(ast formula.Node) []Issue {
	var issues []Issue

	if length := serializedLength(ast); length > v.limits.MaxFormulaLength {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeMaxLengthExceeded,
			Message: fmt.Sprintf("formula length %d exceeds the maximum of %d",
				length, v.limits.MaxFormulaLength),
			Pos: ast.Pos(),
		})
	}

	if depth := callDepth(ast); depth > v.limits.MaxNestingDepth {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeMaxNestingExceeded,
			Message: fmt.Sprintf("function nesting depth %d exceeds the maximum of %d",
				depth, v.limits.MaxNestingDepth),
			Pos: ast.Pos(),
		})
	}

	calls := 0
	formula.Walk(ast, func(n formula.Node) {
		if _, ok := n.(*formula.FunctionCall); ok {
			calls++
		}
	})
	if calls > v.limits.MaxFunctionCalls {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeMaxCallsExceeded,
			Message: fmt.Sprintf("%d function calls exceed the maximum of %d",
				calls, v.limits.MaxFunctionCalls),
			Pos: ast.Pos(),
		})
	}

	formula.Walk(ast, func(n formula.Node) {
		lit, ok := n.(*formula.Literal)
		if !ok || lit.DataType != formula.TypeString {
			return
		}
		for _, p := range v.denylist {
			if p.re.MatchString(lit.Raw) {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     CodeForbiddenPattern,
					Message:  fmt.Sprintf("string literal contains forbidden pattern %q", p.label),
					Pos:      lit.Pos(),
				})
			}
		}
	})

	return issues
}

// serializedLength approximates the length of the formula's canonical
// serialization without allocating it.
func serializedLength(n formula.Node) int {
	switch node := n.(type) {
	case *formula.FunctionCall:
		// name, parens, separators
		length := len(node.Name) + 2
		for _, arg := range node.Args {
			length += serializedLength(arg) + 2
		}
		for key, val := range node.NamedArgs {
			length += len(key) + 1 + serializedLength(val) + 2
		}
		return length
	case *formula.BinaryOp:
		return serializedLength(node.Left) + len(node.Op.String()) + 2 + serializedLength(node.Right)
	case *formula.UnaryOp:
		return len(node.Op.String()) + serializedLength(node.Operand)
	case *formula.FieldRef:
		return len(node.Field)
	case *formula.Literal:
		if node.DataType == formula.TypeString {
			return len(node.Raw) + 2
		}
		return len(node.Raw)
	default:
		return 0
	}
}

// callDepth computes nesting depth counting only function-call boundaries;
// binary and unary operators are transparent.
func callDepth(n formula.Node) int {
	switch node := n.(type) {
	case *formula.FunctionCall:
		deepest := 0
		for _, arg := range node.Args {
			if d := callDepth(arg); d > deepest {
				deepest = d
			}
		}
		for _, val := range node.NamedArgs {
			if d := callDepth(val); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case *formula.BinaryOp:
		left := callDepth(node.Left)
		if right := callDepth(node.Right); right > left {
			return right
		}
		return left
	case *formula.UnaryOp:
		return callDepth(node.Operand)
	default:
		return 0
	}
}
