package validate

import "regexp"

// Limits caps the shape of a formula before query generation. The limits
// are the only bound on worst-case compute; a formula over any limit is
// rejected with a blocking error, never downgraded to a warning.
type Limits struct {
	// MaxFormulaLength caps the serialized-length approximation of the AST.
	MaxFormulaLength int
	// MaxNestingDepth caps function-call nesting. Operators do not add depth.
	MaxNestingDepth int
	// MaxFunctionCalls caps the total number of function calls.
	MaxFunctionCalls int
	// MaxQueryComplexity is the performance-warning threshold, not a
	// blocking limit.
	MaxQueryComplexity int
}

// DefaultLimits returns reasonable limits for editor-driven validation.
func DefaultLimits() Limits {
	return Limits{
		MaxFormulaLength:   1000,
		MaxNestingDepth:    20,
		MaxFunctionCalls:   50,
		MaxQueryComplexity: 100,
	}
}

// forbiddenPattern pairs a compiled denylist regexp with its report label.
type forbiddenPattern struct {
	label string
	re    *regexp.Regexp
}

// defaultDenylist flags string literals resembling script injection.
// Formulas are never executed as code, but literals flow onward into query
// descriptors and rendered dashboards.
var defaultDenylist = []forbiddenPattern{
	{label: "eval(", re: regexp.MustCompile(`eval\s*\(`)},
	{label: "Function(", re: regexp.MustCompile(`Function\s*\(`)},
	{label: "setTimeout", re: regexp.MustCompile(`setTimeout`)},
	{label: "setInterval", re: regexp.MustCompile(`setInterval`)},
	{label: "import(", re: regexp.MustCompile(`import\s*\(`)},
	{label: "require(", re: regexp.MustCompile(`require\s*\(`)},
}
