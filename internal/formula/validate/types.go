package validate

import (
	"fmt"
	"sort"

	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/registry"
)

// typePass infers types bottom-up and reports incompatible operator and
// argument combinations.
func (v *Validator) typePass(ast formula.Node, ctx *Context) []Issue {
	var issues []Issue
	v.inferType(ast, ctx, &issues)
	return issues
}

// inferType returns the type of n, appending issues for any violation found
// in its subtree.
func (v *Validator) inferType(n formula.Node, ctx *Context, issues *[]Issue) formula.DataType {
	switch node := n.(type) {
	case *formula.Literal:
		return node.DataType

	case *formula.FieldRef:
		if t, ok := ctx.fieldType(node.Field); ok {
			return t
		}
		// Without a schema, fields default to string.
		return formula.TypeString

	case *formula.FunctionCall:
		sig := v.lookup(node.Name, ctx)

		for i, arg := range node.Args {
			argType := v.inferType(arg, ctx, issues)
			if sig != nil && i < len(sig.Args) {
				v.checkArg(node.Name, sig.Args[i], arg, argType, issues)
			}
		}
		keys := make([]string, 0, len(node.NamedArgs))
		for key := range node.NamedArgs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			val := node.NamedArgs[key]
			argType := v.inferType(val, ctx, issues)
			if sig != nil {
				if spec := sig.Arg(key); spec != nil {
					v.checkArg(node.Name, *spec, val, argType, issues)
				}
			}
		}

		if sig == nil {
			// Unknown function: already an error in the syntax pass.
			return formula.TypeAny
		}
		return sig.Returns

	case *formula.BinaryOp:
		leftType := v.inferType(node.Left, ctx, issues)
		rightType := v.inferType(node.Right, ctx, issues)
		return v.checkBinary(node, leftType, rightType, issues)

	case *formula.UnaryOp:
		operandType := v.inferType(node.Operand, ctx, issues)
		if node.Op == formula.OpNot {
			// NOT always yields boolean without constraining its operand.
			return formula.TypeBoolean
		}
		return operandType

	default:
		return formula.TypeAny
	}
}

func (v *Validator) checkArg(fn string, spec registry.ArgSpec, arg formula.Node, argType formula.DataType, issues *[]Issue) {
	if spec.Type == formula.TypeAny || argType == formula.TypeAny {
		return
	}
	// A bare field reference satisfies any string-typed parameter, whatever
	// type the schema gives the field.
	if _, isField := arg.(*formula.FieldRef); isField && spec.Type == formula.TypeString {
		return
	}
	if argType != spec.Type {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Code:     CodeTypeMismatch,
			Message: fmt.Sprintf("argument '%s' of '%s' expects %s, got %s",
				spec.Name, fn, spec.Type, argType),
			Pos: arg.Pos(),
		})
	}
}

func (v *Validator) checkBinary(node *formula.BinaryOp, leftType, rightType formula.DataType, issues *[]Issue) formula.DataType {
	mismatch := func(want string) {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Code:     CodeTypeMismatch,
			Message: fmt.Sprintf("operator '%s' requires %s operands, got %s and %s",
				node.Op, want, leftType, rightType),
			Pos: node.Pos(),
		})
	}

	switch {
	case node.Op.IsArithmetic():
		if !isNumeric(leftType) || !isNumeric(rightType) {
			mismatch("number")
		}
		return formula.TypeNumber

	case node.Op == formula.OpEQ || node.Op == formula.OpNEQ:
		if leftType != rightType && leftType != formula.TypeAny && rightType != formula.TypeAny {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Code:     CodeTypeMismatch,
				Message: fmt.Sprintf("operator '%s' cannot compare %s and %s",
					node.Op, leftType, rightType),
				Pos: node.Pos(),
			})
		}
		return formula.TypeBoolean

	case node.Op.IsComparison():
		if !isNumeric(leftType) || !isNumeric(rightType) {
			mismatch("number")
		}
		return formula.TypeBoolean

	case node.Op.IsLogical():
		if !isBoolean(leftType) || !isBoolean(rightType) {
			mismatch("boolean")
		}
		return formula.TypeBoolean

	default:
		return formula.TypeAny
	}
}

func isNumeric(t formula.DataType) bool {
	return t == formula.TypeNumber || t == formula.TypeAny
}

func isBoolean(t formula.DataType) bool {
	return t == formula.TypeBoolean || t == formula.TypeAny
}
