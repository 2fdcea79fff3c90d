package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) Node {
	t.Helper()
	result := Parse(input)
	require.True(t, result.Success, "parse errors: %v", result.Errors)
	require.NotNil(t, result.AST)
	return result.AST
}

func parseFail(t *testing.T, input string) []*ParseError {
	t.Helper()
	result := Parse(input)
	require.False(t, result.Success)
	require.Nil(t, result.AST, "failed parse must not return a partial tree")
	require.NotEmpty(t, result.Errors)
	return result.Errors
}

func TestParser_NumberLiteral(t *testing.T) {
	lit, ok := parse(t, "42").(*Literal)
	require.True(t, ok)
	assert.Equal(t, TypeNumber, lit.DataType)
	assert.Equal(t, "42", lit.Raw)
}

func TestParser_BoolLiteralLowercased(t *testing.T) {
	lit := parse(t, "TRUE").(*Literal)
	assert.Equal(t, TypeBoolean, lit.DataType)
	assert.Equal(t, "true", lit.Raw)
}

func TestParser_FieldRef(t *testing.T) {
	ref, ok := parse(t, "geo.dest").(*FieldRef)
	require.True(t, ok)
	assert.Equal(t, "geo.dest", ref.Field)
}

func TestParser_Precedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	root := parse(t, "1 + 2 * 3").(*BinaryOp)
	assert.Equal(t, OpAdd, root.Op)

	right := root.Right.(*BinaryOp)
	assert.Equal(t, OpMul, right.Op)
}

func TestParser_LeftAssociativity(t *testing.T) {
	// 10 - 4 - 3 parses as (10 - 4) - 3
	root := parse(t, "10 - 4 - 3").(*BinaryOp)
	assert.Equal(t, OpSub, root.Op)

	left := root.Left.(*BinaryOp)
	assert.Equal(t, OpSub, left.Op)
	assert.Equal(t, "3", root.Right.(*Literal).Raw)
}

func TestParser_PowerLeftAssociative(t *testing.T) {
	// 2 ^ 3 ^ 2 parses as (2 ^ 3) ^ 2, not 2 ^ (3 ^ 2)
	root := parse(t, "2 ^ 3 ^ 2").(*BinaryOp)
	assert.Equal(t, OpPow, root.Op)

	left := root.Left.(*BinaryOp)
	assert.Equal(t, OpPow, left.Op)
	assert.Equal(t, "2", left.Left.(*Literal).Raw)
	assert.Equal(t, "3", left.Right.(*Literal).Raw)
	assert.Equal(t, "2", root.Right.(*Literal).Raw)
}

func TestParser_ComparisonBindsTighterThanLogic(t *testing.T) {
	// a > 1 and b < 2 parses as (a > 1) AND (b < 2)
	root := parse(t, "a > 1 and b < 2").(*BinaryOp)
	assert.Equal(t, OpAnd, root.Op)
	assert.Equal(t, OpGT, root.Left.(*BinaryOp).Op)
	assert.Equal(t, OpLT, root.Right.(*BinaryOp).Op)
}

func TestParser_OrLowerThanAnd(t *testing.T) {
	root := parse(t, "true or false and true").(*BinaryOp)
	assert.Equal(t, OpOr, root.Op)
	assert.Equal(t, OpAnd, root.Right.(*BinaryOp).Op)
}

func TestParser_ParensOverridePrecedence(t *testing.T) {
	root := parse(t, "(1 + 2) * 3").(*BinaryOp)
	assert.Equal(t, OpMul, root.Op)
	assert.Equal(t, OpAdd, root.Left.(*BinaryOp).Op)
}

func TestParser_UnaryMinus(t *testing.T) {
	// -2 + 3 parses as (-2) + 3: unary binds tighter than any binary op.
	root := parse(t, "-2 + 3").(*BinaryOp)
	assert.Equal(t, OpAdd, root.Op)

	neg := root.Left.(*UnaryOp)
	assert.Equal(t, OpNeg, neg.Op)
	assert.Equal(t, "2", neg.Operand.(*Literal).Raw)
}

func TestParser_NotVariants(t *testing.T) {
	for _, input := range []string{"not active", "!active", "NOT active"} {
		op := parse(t, input).(*UnaryOp)
		assert.Equal(t, OpNot, op.Op, input)
	}
}

func TestParser_FunctionCallNoArgs(t *testing.T) {
	call := parse(t, "count()").(*FunctionCall)
	assert.Equal(t, "count", call.Name)
	assert.Empty(t, call.Args)
	require.NotNil(t, call.NamedArgs, "NamedArgs map is always allocated")
	assert.Empty(t, call.NamedArgs)
}

func TestParser_FunctionCallPositionalArgs(t *testing.T) {
	call := parse(t, "clamp(bytes, 0, 100)").(*FunctionCall)
	require.Len(t, call.Args, 3)
	assert.Equal(t, "bytes", call.Args[0].(*FieldRef).Field)
	assert.Equal(t, "0", call.Args[1].(*Literal).Raw)
}

func TestParser_NamedArguments(t *testing.T) {
	call := parse(t, `count(kql='status:active', shift='1d')`).(*FunctionCall)
	assert.Empty(t, call.Args)
	require.Len(t, call.NamedArgs, 2)
	assert.Equal(t, "status:active", call.NamedArgs["kql"].(*Literal).Raw)
	assert.Equal(t, "1d", call.NamedArgs["shift"].(*Literal).Raw)
}

func TestParser_NamedArgumentKeyLowercased(t *testing.T) {
	call := parse(t, `count(KQL='a:b')`).(*FunctionCall)
	require.Contains(t, call.NamedArgs, "kql")
}

func TestParser_NamedArgumentColonSeparator(t *testing.T) {
	call := parse(t, `moving_average(sum(bytes), window:7)`).(*FunctionCall)
	require.Len(t, call.Args, 1)
	require.Contains(t, call.NamedArgs, "window")
	assert.Equal(t, "7", call.NamedArgs["window"].(*Literal).Raw)
}

func TestParser_NestedCalls(t *testing.T) {
	call := parse(t, "round(sum(price) / count(), 2)").(*FunctionCall)
	assert.Equal(t, "round", call.Name)
	require.Len(t, call.Args, 2)

	div := call.Args[0].(*BinaryOp)
	assert.Equal(t, OpDiv, div.Op)
	assert.Equal(t, "sum", div.Left.(*FunctionCall).Name)
	assert.Equal(t, "count", div.Right.(*FunctionCall).Name)
}

func TestParser_MissingCloseParen(t *testing.T) {
	errs := parseFail(t, "foo(bar")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "expected ')' after arguments")
	assert.Equal(t, 7, errs[0].Pos, "error points at end of input")
}

func TestParser_TrailingTokens(t *testing.T) {
	errs := parseFail(t, "1 2")
	assert.Contains(t, errs[0].Message, "after expression")
}

func TestParser_DanglingOperator(t *testing.T) {
	errs := parseFail(t, "1 +")
	assert.Contains(t, errs[0].Message, "expected expression")
}

func TestParser_EmptyInput(t *testing.T) {
	parseFail(t, "")
	parseFail(t, "   ")
}

func TestParser_LexErrorSurfacesAsParseError(t *testing.T) {
	errs := parseFail(t, "1 + @")
	assert.Equal(t, 4, errs[0].Pos)
	assert.Contains(t, errs[0].Message, "unexpected character")
}

func TestParser_NodeSpans(t *testing.T) {
	root := parse(t, "sum(bytes) + 1")
	assert.Equal(t, 0, root.Pos())
	assert.Equal(t, 14, root.Len())

	call := root.(*BinaryOp).Left.(*FunctionCall)
	assert.Equal(t, 0, call.Pos())
	assert.Equal(t, 10, call.Len())
}

func TestWalk_DeterministicOrder(t *testing.T) {
	ast := parse(t, `average(price, shift='1w', kql='x:y')`)

	var kinds []string
	Walk(ast, func(n Node) {
		kinds = append(kinds, n.Kind())
	})
	// Call, positional arg, then named args in sorted key order (kql before
	// shift).
	assert.Equal(t, []string{"FunctionCall", "FieldRef", "Literal", "Literal"}, kinds)

	var raws []string
	Walk(ast, func(n Node) {
		if lit, ok := n.(*Literal); ok {
			raws = append(raws, lit.Raw)
		}
	})
	assert.Equal(t, []string{"x:y", "1w"}, raws)
}
