// Package querygen lowers a validated formula AST into a serializable
// query descriptor for the event store. Aggregation calls become metric
// specs; the arithmetic above them becomes a single bucket expression
// referencing those specs by id.
package querygen

import "fmt"

// TimeRange bounds the documents a query considers. Values are date-math
// strings understood by the event store ("now-7d", ISO timestamps).
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Context carries the query-level inputs that accompany a formula.
type Context struct {
	TimeRange    *TimeRange
	DefaultField string // field used by count() when none is given
	Filter       string // KQL applied to the whole query
}

// AggregationSpec is one resolved metric in the descriptor.
type AggregationSpec struct {
	ID       string            `json:"id"`
	Function string            `json:"function"`
	Field    string            `json:"field,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Filter   string            `json:"filter,omitempty"` // per-metric KQL
	Shift    string            `json:"shift,omitempty"`  // time shift
}

// Descriptor is the serializable output of the query builder.
type Descriptor struct {
	Aggregations []AggregationSpec `json:"aggregations"`
	Expression   string            `json:"expression"`
	TimeRange    *TimeRange        `json:"time_range,omitempty"`
	Filter       string            `json:"filter,omitempty"`
}

// CompositionError reports the AST node the builder could not lower.
type CompositionError struct {
	Message  string
	NodeKind string
	Pos      int
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("cannot compose %s at position %d: %s", e.NodeKind, e.Pos, e.Message)
}
