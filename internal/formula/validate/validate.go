// Package validate runs the multi-pass analysis over a parsed formula AST:
// security limits, syntax against the function registry, type inference,
// and performance heuristics, plus an optional data-view field check.
// All passes always run; issues accumulate into a single result.
package validate

import (
	"time"

	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/registry"
)

// Severity ranks an issue. Only error-severity issues make a formula invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes emitted by the passes.
const (
	CodeMaxLengthExceeded  = "MAX_LENGTH_EXCEEDED"
	CodeMaxNestingExceeded = "MAX_NESTING_EXCEEDED"
	CodeMaxCallsExceeded   = "MAX_CALLS_EXCEEDED"
	CodeForbiddenPattern   = "FORBIDDEN_PATTERN"
	CodeUnknownFunction    = "UNKNOWN_FUNCTION"
	CodeTooFewArgs         = "TOO_FEW_ARGS"
	CodeTooManyArgs        = "TOO_MANY_ARGS"
	CodeUnknownNamedArg    = "UNKNOWN_NAMED_ARG"
	CodeInvalidOperator    = "INVALID_OPERATOR"
	CodeTypeMismatch       = "TYPE_MISMATCH"
	CodeHighComplexity     = "HIGH_COMPLEXITY"
	CodeTooManyAggs        = "TOO_MANY_AGGREGATIONS"
	CodeDuplicateSubexpr   = "DUPLICATE_SUBEXPRESSION"
	CodeUnknownField       = "UNKNOWN_FIELD"
	CodeUnknownFilterField = "UNKNOWN_FILTER_FIELD"
)

// Issue is a single finding from one of the passes.
type Issue struct {
	Severity    Severity `json:"severity"`
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Pos         int      `json:"position"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Result is the combined outcome of all validation passes.
type Result struct {
	Valid          bool          `json:"valid"`
	Results        []Issue       `json:"results"`
	Complexity     int           `json:"complexity"`
	ValidationTime time.Duration `json:"validation_time"`
}

// FieldDef declares one field of the event schema for type inference.
type FieldDef struct {
	Name string           `json:"name"`
	Type formula.DataType `json:"type"`
}

// DataView lists the fields that exist in the queried data view.
type DataView struct {
	Fields []string `json:"fields"`
}

// Context carries the optional collaborator inputs for one validate call.
type Context struct {
	// Fields is the field schema used by type inference. A FieldRef not in
	// the schema defaults to string.
	Fields []FieldDef
	// Custom extends the signature registry for this call only.
	Custom map[string]*registry.Signature
	// DataView, when set, enables the field-existence pass.
	DataView *DataView
}

func (c *Context) fieldType(name string) (formula.DataType, bool) {
	if c == nil {
		return "", false
	}
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// lookup resolves a function against the call's custom map first, then the
// shared registry.
func (v *Validator) lookup(name string, ctx *Context) *registry.Signature {
	if ctx != nil && ctx.Custom != nil {
		if sig, ok := ctx.Custom[name]; ok {
			return sig
		}
	}
	return v.registry.Lookup(name)
}

func (v *Validator) knownNames(ctx *Context) []string {
	names := v.registry.Names()
	if ctx == nil || len(ctx.Custom) == 0 {
		return names
	}
	merged := make([]string, 0, len(names)+len(ctx.Custom))
	merged = append(merged, names...)
	for name := range ctx.Custom {
		merged = append(merged, name)
	}
	return merged
}

// Validator runs the analysis passes. It holds no per-call state and is
// safe for concurrent use once constructed.
type Validator struct {
	registry *registry.Registry
	limits   Limits
	denylist []forbiddenPattern
}

// New creates a validator over the given registry and limits, with the
// default forbidden-pattern denylist.
func New(reg *registry.Registry, limits Limits) *Validator {
	return &Validator{
		registry: reg,
		limits:   limits,
		denylist: defaultDenylist,
	}
}

// Validate runs every pass over the AST and returns all discovered issues.
// No pass short-circuits on errors, mutates the AST, or touches the
// registry; identical inputs always produce identical issue sets.
func (v *Validator) Validate(ast formula.Node, ctx *Context) Result {
	start := time.Now()

	var issues []Issue
	issues = append(issues, v.securityPass(ast)...)
	issues = append(issues, v.syntaxPass(ast, ctx)...)
	issues = append(issues, v.typePass(ast, ctx)...)

	perfIssues, complexity := v.performancePass(ast, ctx)
	issues = append(issues, perfIssues...)

	if ctx != nil && ctx.DataView != nil {
		issues = append(issues, v.dataViewPass(ast, ctx)...)
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			valid = false
			break
		}
	}

	return Result{
		Valid:          valid,
		Results:        issues,
		Complexity:     complexity,
		ValidationTime: time.Since(start),
	}
}
