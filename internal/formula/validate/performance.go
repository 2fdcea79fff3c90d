package validate

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/registry"
)

// Complexity weights and thresholds for the performance pass.
const (
	aggregationCost     = 5
	timeSeriesExtraCost = 5
	binaryOpCost        = 1

	maxAggregationCalls = 10

	// Subtrees cheaper than this are not worth extracting even when repeated.
	duplicateWeightFloor = 5
	// Occurrences above this trigger the extraction suggestion.
	duplicateCountFloor = 2
)

// performancePass scores the formula's estimated execution cost and flags
// expensive or redundant shapes. It never blocks: the worst finding is a
// warning.
func (v *Validator) performancePass(ast formula.Node, ctx *Context) ([]Issue, int) {
	var issues []Issue

	complexity := v.subtreeComplexity(ast, ctx)
	if complexity > v.limits.MaxQueryComplexity {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeHighComplexity,
			Message: fmt.Sprintf("complexity score %d exceeds the recommended maximum of %d",
				complexity, v.limits.MaxQueryComplexity),
			Pos: ast.Pos(),
		})
	}

	aggs := 0
	formula.Walk(ast, func(n formula.Node) {
		if call, ok := n.(*formula.FunctionCall); ok {
			if sig := v.lookup(call.Name, ctx); sig != nil && sig.IsAggregation() {
				aggs++
			}
		}
	})
	if aggs > maxAggregationCalls {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Code:     CodeTooManyAggs,
			Message: fmt.Sprintf("%d aggregations in one formula; more than %d slows the query noticeably",
				aggs, maxAggregationCalls),
			Pos: ast.Pos(),
		})
	}

	issues = append(issues, v.findDuplicates(ast, ctx)...)

	return issues, complexity
}

// subtreeComplexity scores one subtree: a flat cost per aggregation call,
// an extra cost for windowed calculations, and a small cost per binary
// operator.
func (v *Validator) subtreeComplexity(n formula.Node, ctx *Context) int {
	total := 0
	formula.Walk(n, func(node formula.Node) {
		switch t := node.(type) {
		case *formula.FunctionCall:
			sig := v.lookup(t.Name, ctx)
			if sig == nil || !sig.IsAggregation() {
				return
			}
			total += aggregationCost
			if sig.Category == registry.CategoryTimeSeries {
				total += timeSeriesExtraCost
			}
		case *formula.BinaryOp:
			total += binaryOpCost
		}
	})
	return total
}

// findDuplicates reports structurally identical subexpressions (compared by
// content hash) that occur more than twice and are heavy enough that
// extracting them would matter.
func (v *Validator) findDuplicates(ast formula.Node, ctx *Context) []Issue {
	type dup struct {
		count  int
		first  formula.Node
		weight int
	}
	seen := make(map[uint64]*dup)
	var order []uint64

	formula.Walk(ast, func(n formula.Node) {
		// Leaves repeat naturally and are free to recompute.
		switch n.(type) {
		case *formula.FieldRef, *formula.Literal:
			return
		}
		h := contentHash(n)
		if d, ok := seen[h]; ok {
			d.count++
			return
		}
		seen[h] = &dup{count: 1, first: n, weight: v.subtreeComplexity(n, ctx)}
		order = append(order, h)
	})

	var issues []Issue
	for _, h := range order {
		d := seen[h]
		if d.count > duplicateCountFloor && d.weight > duplicateWeightFloor {
			issues = append(issues, Issue{
				Severity: SeverityInfo,
				Code:     CodeDuplicateSubexpr,
				Message: fmt.Sprintf("subexpression repeats %d times; consider extracting it so it is computed once",
					d.count),
				Pos: d.first.Pos(),
			})
		}
	}
	return issues
}

// contentHash hashes a subtree by its content (kind, operator, name, field,
// value), ignoring source positions, so structural duplicates collide.
func contentHash(n formula.Node) uint64 {
	var b strings.Builder
	writeCanonical(&b, n)
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return h.Sum64()
}

func writeCanonical(w *strings.Builder, n formula.Node) {
	switch node := n.(type) {
	case *formula.FunctionCall:
		w.WriteString("call:")
		w.WriteString(node.Name)
		w.WriteString("(")
		for _, arg := range node.Args {
			writeCanonical(w, arg)
			w.WriteString(",")
		}
		keys := make([]string, 0, len(node.NamedArgs))
		for key := range node.NamedArgs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			w.WriteString(key)
			w.WriteString("=")
			writeCanonical(w, node.NamedArgs[key])
			w.WriteString(",")
		}
		w.WriteString(")")
	case *formula.BinaryOp:
		w.WriteString("bin:")
		w.WriteString(node.Op.String())
		w.WriteString("(")
		writeCanonical(w, node.Left)
		w.WriteString(",")
		writeCanonical(w, node.Right)
		w.WriteString(")")
	case *formula.UnaryOp:
		w.WriteString("un:")
		w.WriteString(node.Op.String())
		w.WriteString("(")
		writeCanonical(w, node.Operand)
		w.WriteString(")")
	case *formula.FieldRef:
		w.WriteString("field:")
		w.WriteString(node.Field)
	case *formula.Literal:
		w.WriteString("lit:")
		w.WriteString(string(node.DataType))
		w.WriteString(":")
		w.WriteString(node.Raw)
	}
}
