package querygen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/registry"
)

// Builder lowers validated ASTs using the signature registry. It holds no
// per-call state: Build is a pure function of its inputs, reads the AST
// without mutating it, and assigns aggregation ids in walk order so
// identical inputs produce identical descriptors.
type Builder struct {
	registry *registry.Registry
}

// New creates a builder backed by the given signature registry.
func New(reg *registry.Registry) *Builder {
	return &Builder{registry: reg}
}

// Build lowers the AST into a descriptor, or fails with a CompositionError
// naming the node it could not lower. Callers are expected to have
// validated the AST first; Build still rejects unknown functions rather
// than emit a descriptor the event store would refuse.
func (b *Builder) Build(ast formula.Node, ctx *Context) (*Descriptor, error) {
	lw := &lowering{registry: b.registry, ctx: ctx}
	expr, err := lw.lower(ast)
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{
		Aggregations: lw.aggs,
		Expression:   expr,
	}
	if ctx != nil {
		desc.TimeRange = ctx.TimeRange
		desc.Filter = ctx.Filter
	}
	return desc, nil
}

// lowering is the per-Build state: the aggregation list under construction.
type lowering struct {
	registry *registry.Registry
	ctx      *Context
	aggs     []AggregationSpec
}

func (lw *lowering) lower(n formula.Node) (string, error) {
	switch node := n.(type) {
	case *formula.Literal:
		if node.DataType == formula.TypeString {
			return quote(node.Raw), nil
		}
		return node.Raw, nil

	case *formula.FieldRef:
		return node.Field, nil

	case *formula.UnaryOp:
		operand, err := lw.lower(node.Operand)
		if err != nil {
			return "", err
		}
		if node.Op == formula.OpNot {
			return "!" + operand, nil
		}
		return "-" + operand, nil

	case *formula.BinaryOp:
		left, err := lw.lower(node.Left)
		if err != nil {
			return "", err
		}
		right, err := lw.lower(node.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, node.Op, right), nil

	case *formula.FunctionCall:
		return lw.lowerCall(node)

	default:
		return "", &CompositionError{
			Message:  "unrecognized node",
			NodeKind: n.Kind(),
			Pos:      n.Pos(),
		}
	}
}

func (lw *lowering) lowerCall(call *formula.FunctionCall) (string, error) {
	sig := lw.registry.Lookup(call.Name)
	if sig == nil {
		return "", &CompositionError{
			Message:  fmt.Sprintf("unrecognized function '%s'", call.Name),
			NodeKind: call.Kind(),
			Pos:      call.Pos(),
		}
	}

	if sig.IsAggregation() {
		return lw.lowerAggregation(call, sig)
	}

	// Math and comparison functions stay in the bucket expression.
	parts := make([]string, 0, len(call.Args)+len(call.NamedArgs))
	for _, arg := range call.Args {
		lowered, err := lw.lower(arg)
		if err != nil {
			return "", err
		}
		parts = append(parts, lowered)
	}
	for _, key := range sortedNamedArgKeys(call) {
		lowered, err := lw.lower(call.NamedArgs[key])
		if err != nil {
			return "", err
		}
		parts = append(parts, key+"="+lowered)
	}
	return fmt.Sprintf("%s(%s)", call.Name, strings.Join(parts, ", ")), nil
}

func (lw *lowering) lowerAggregation(call *formula.FunctionCall, sig *registry.Signature) (string, error) {
	spec := AggregationSpec{
		Function: call.Name,
		Params:   make(map[string]string),
	}

	// Positional arguments map onto the signature's declared names. The
	// first argument of a plain aggregation is its target field; windowed
	// calculations instead wrap an inner metric expression.
	for i, arg := range call.Args {
		if i >= len(sig.Args) {
			break
		}
		name := sig.Args[i].Name
		lowered, err := lw.lower(arg)
		if err != nil {
			return "", err
		}
		switch name {
		case "field":
			spec.Field = lowered
		default:
			spec.Params[name] = lowered
		}
	}

	for _, key := range sortedNamedArgKeys(call) {
		lowered, err := lw.lower(call.NamedArgs[key])
		if err != nil {
			return "", err
		}
		switch key {
		case "kql":
			spec.Filter = unquote(lowered)
		case "shift":
			spec.Shift = unquote(lowered)
		case "field":
			spec.Field = lowered
		default:
			spec.Params[key] = lowered
		}
	}

	if spec.Field == "" && lw.ctx != nil && lw.ctx.DefaultField != "" {
		spec.Field = lw.ctx.DefaultField
	}
	if len(spec.Params) == 0 {
		spec.Params = nil
	}

	spec.ID = fmt.Sprintf("agg%d", len(lw.aggs))
	lw.aggs = append(lw.aggs, spec)
	return spec.ID, nil
}

func sortedNamedArgKeys(call *formula.FunctionCall) []string {
	keys := make([]string, 0, len(call.NamedArgs))
	for key := range call.NamedArgs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// quote renders a string literal for the bucket expression.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// unquote undoes quote for values that land in dedicated descriptor fields
// rather than the expression string.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\'`, `'`)
		s = strings.ReplaceAll(s, `\\`, `\`)
	}
	return s
}
