// Package registry provides the static function signature metadata
// consulted by the validator and query builder. Signatures are registered
// up front and never mutated during validation.
package registry

import (
	"sort"

	"github.com/matthewbaird/formulac/internal/formula"
)

// Category classifies how a function is scored and lowered.
type Category int

const (
	// CategoryMath is a per-row arithmetic function.
	CategoryMath Category = iota
	// CategoryComparison is a per-row comparison/branching function.
	CategoryComparison
	// CategoryAggregation is a metric over a document set.
	CategoryAggregation
	// CategoryTimeSeries is a windowed calculation over an aggregation
	// (moving averages, cumulative sums and the like).
	CategoryTimeSeries
)

// String returns the palette-visible category name.
func (c Category) String() string {
	switch c {
	case CategoryMath:
		return "math"
	case CategoryComparison:
		return "comparison"
	case CategoryAggregation:
		return "aggregation"
	case CategoryTimeSeries:
		return "time_series"
	default:
		return "unknown"
	}
}

// ArgSpec describes one declared function argument.
type ArgSpec struct {
	Name     string           `json:"name"`
	Type     formula.DataType `json:"type"`
	Optional bool             `json:"optional"`
}

// Signature is the static metadata for one registered function.
type Signature struct {
	Name     string           `json:"name"`
	Args     []ArgSpec        `json:"args"`
	Returns  formula.DataType `json:"returns"`
	Category Category         `json:"-"`
	Help     string           `json:"help,omitempty"`
}

// RequiredArgs returns the number of non-optional arguments.
func (s *Signature) RequiredArgs() int {
	n := 0
	for _, a := range s.Args {
		if !a.Optional {
			n++
		}
	}
	return n
}

// Arg returns the ArgSpec with the given name, or nil.
func (s *Signature) Arg(name string) *ArgSpec {
	for i := range s.Args {
		if s.Args[i].Name == name {
			return &s.Args[i]
		}
	}
	return nil
}

// ArgNames returns the declared argument names in order.
func (s *Signature) ArgNames() []string {
	names := make([]string, len(s.Args))
	for i, a := range s.Args {
		names[i] = a.Name
	}
	return names
}

// IsAggregation returns true for aggregation and time-series functions.
func (s *Signature) IsAggregation() bool {
	return s.Category == CategoryAggregation || s.Category == CategoryTimeSeries
}

// Registry holds signatures for all registered functions. Populate it
// before first use; lookups are safe for concurrent read access.
type Registry struct {
	funcs map[string]*Signature
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{funcs: make(map[string]*Signature)}
}

// Register adds a signature to the registry, replacing any previous
// signature with the same name.
func (r *Registry) Register(sig *Signature) {
	if _, exists := r.funcs[sig.Name]; !exists {
		r.order = append(r.order, sig.Name)
		sort.Strings(r.order)
	}
	r.funcs[sig.Name] = sig
}

// Lookup returns the signature for a function name, or nil if unknown.
func (r *Registry) Lookup(name string) *Signature {
	return r.funcs[name]
}

// Names returns all registered function names in sorted order.
func (r *Registry) Names() []string {
	return r.order
}

// All returns all signatures in name order.
func (r *Registry) All() []*Signature {
	sigs := make([]*Signature, 0, len(r.order))
	for _, name := range r.order {
		sigs = append(sigs, r.funcs[name])
	}
	return sigs
}
