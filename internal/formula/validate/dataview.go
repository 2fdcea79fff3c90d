package validate

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/matthewbaird/formulac/internal/formula"
)

// kqlFieldPattern matches field-like tokens ("word" or "word.word") that
// precede a ':' inside an embedded KQL filter string.
var kqlFieldPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)\s*:`)

// dataViewPass checks field references against the data view's field list:
// an unknown FieldRef is a blocking error, an unknown field inside an
// embedded KQL string is only a warning since KQL allows wildcards.
func (v *Validator) dataViewPass(ast formula.Node, ctx *Context) []Issue {
	known := make(map[string]bool, len(ctx.DataView.Fields))
	for _, f := range ctx.DataView.Fields {
		known[f] = true
	}

	var issues []Issue
	formula.Walk(ast, func(n formula.Node) {
		switch node := n.(type) {
		case *formula.FieldRef:
			if !known[node.Field] {
				issues = append(issues, Issue{
					Severity:    SeverityError,
					Code:        CodeUnknownField,
					Message:     fmt.Sprintf("field '%s' does not exist in the data view", node.Field),
					Pos:         node.Pos(),
					Suggestions: formula.NearestMatches(node.Field, ctx.DataView.Fields, maxSuggestions),
				})
			}
		case *formula.FunctionCall:
			issues = append(issues, checkEmbeddedFilters(node, known)...)
		}
	})
	return issues
}

// checkEmbeddedFilters scans the call's kql-style string arguments for
// references to fields missing from the data view.
func checkEmbeddedFilters(call *formula.FunctionCall, known map[string]bool) []Issue {
	var issues []Issue

	keys := make([]string, 0, len(call.NamedArgs))
	for key := range call.NamedArgs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key != "kql" {
			continue
		}
		lit, ok := call.NamedArgs[key].(*formula.Literal)
		if !ok || lit.DataType != formula.TypeString {
			continue
		}
		for _, m := range kqlFieldPattern.FindAllStringSubmatch(lit.Raw, -1) {
			field := m[1]
			if isKQLKeyword(field) || known[field] {
				continue
			}
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Code:     CodeUnknownFilterField,
				Message:  fmt.Sprintf("filter references field '%s' which is not in the data view", field),
				Pos:      lit.Pos(),
			})
		}
	}
	return issues
}

// isKQLKeyword filters out KQL's own connectives so "a:1 and b:2" does not
// flag "and".
func isKQLKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "AND", "OR", "NOT":
		return true
	}
	return false
}
