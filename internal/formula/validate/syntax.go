package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matthewbaird/formulac/internal/formula"
)

// maxSuggestions caps how many near-matches accompany an unknown-name error.
const maxSuggestions = 3

// syntaxPass checks every function call against the signature registry
// (name, positional arity, named-argument keys) and every operator against
// the fixed allowed sets.
func (v *Validator) syntaxPass(ast formula.Node, ctx *Context) []Issue {
	var issues []Issue

	formula.Walk(ast, func(n formula.Node) {
		switch node := n.(type) {
		case *formula.FunctionCall:
			issues = append(issues, v.checkCall(node, ctx)...)
		case *formula.BinaryOp:
			if !node.Op.IsBinary() {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     CodeInvalidOperator,
					Message:  fmt.Sprintf("operator '%s' is not a valid binary operator", node.Op),
					Pos:      node.Pos(),
				})
			}
		case *formula.UnaryOp:
			if !node.Op.IsUnary() {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Code:     CodeInvalidOperator,
					Message:  fmt.Sprintf("operator '%s' is not a valid unary operator", node.Op),
					Pos:      node.Pos(),
				})
			}
		}
	})

	return issues
}

func (v *Validator) checkCall(call *formula.FunctionCall, ctx *Context) []Issue {
	sig := v.lookup(call.Name, ctx)
	if sig == nil {
		return []Issue{{
			Severity:    SeverityError,
			Code:        CodeUnknownFunction,
			Message:     fmt.Sprintf("unknown function '%s'", call.Name),
			Pos:         call.Pos(),
			Suggestions: formula.NearestMatches(call.Name, v.knownNames(ctx), maxSuggestions),
		}}
	}

	var issues []Issue

	if got := len(call.Args); got < sig.RequiredArgs() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeTooFewArgs,
			Message: fmt.Sprintf("'%s' requires at least %d argument(s), got %d",
				call.Name, sig.RequiredArgs(), got),
			Pos: call.Pos(),
		})
	} else if got > len(sig.Args) && len(call.NamedArgs) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     CodeTooManyArgs,
			Message: fmt.Sprintf("'%s' accepts at most %d argument(s), got %d",
				call.Name, len(sig.Args), got),
			Pos: call.Pos(),
		})
	}

	keys := make([]string, 0, len(call.NamedArgs))
	for key := range call.NamedArgs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if sig.Arg(key) == nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Code:     CodeUnknownNamedArg,
				Message: fmt.Sprintf("'%s' has no argument named '%s' (valid: %s)",
					call.Name, key, strings.Join(sig.ArgNames(), ", ")),
				Pos:         call.NamedArgs[key].Pos(),
				Suggestions: sig.ArgNames(),
			})
		}
	}

	return issues
}
