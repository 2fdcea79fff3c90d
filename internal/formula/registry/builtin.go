package registry

import "github.com/matthewbaird/formulac/internal/formula"

// filterArgs are the named arguments every aggregation accepts: an embedded
// KQL filter scoping the documents considered, and a time shift.
func filterArgs() []ArgSpec {
	return []ArgSpec{
		{Name: "kql", Type: formula.TypeString, Optional: true},
		{Name: "shift", Type: formula.TypeString, Optional: true},
	}
}

func metric(name, help string, field ArgSpec, extra ...ArgSpec) *Signature {
	args := []ArgSpec{field}
	args = append(args, extra...)
	args = append(args, filterArgs()...)
	return &Signature{
		Name:     name,
		Args:     args,
		Returns:  formula.TypeNumber,
		Category: CategoryAggregation,
		Help:     help,
	}
}

func window(name, help string, extra ...ArgSpec) *Signature {
	args := []ArgSpec{{Name: "metric", Type: formula.TypeNumber}}
	args = append(args, extra...)
	args = append(args, filterArgs()...)
	return &Signature{
		Name:     name,
		Args:     args,
		Returns:  formula.TypeNumber,
		Category: CategoryTimeSeries,
		Help:     help,
	}
}

func math1(name, help string, extra ...ArgSpec) *Signature {
	args := []ArgSpec{{Name: "value", Type: formula.TypeNumber}}
	args = append(args, extra...)
	return &Signature{
		Name:     name,
		Args:     args,
		Returns:  formula.TypeNumber,
		Category: CategoryMath,
		Help:     help,
	}
}

func compare(name, help string) *Signature {
	return &Signature{
		Name: name,
		Args: []ArgSpec{
			{Name: "left", Type: formula.TypeNumber},
			{Name: "right", Type: formula.TypeNumber},
		},
		Returns:  formula.TypeBoolean,
		Category: CategoryComparison,
		Help:     help,
	}
}

// Default returns a registry populated with the builtin function set.
func Default() *Registry {
	r := New()

	fieldArg := ArgSpec{Name: "field", Type: formula.TypeString}
	optionalField := ArgSpec{Name: "field", Type: formula.TypeString, Optional: true}

	// Aggregations
	r.Register(&Signature{
		Name:     "count",
		Args:     append([]ArgSpec{optionalField}, filterArgs()...),
		Returns:  formula.TypeNumber,
		Category: CategoryAggregation,
		Help:     "Total number of documents, or of values of a field.",
	})
	r.Register(metric("sum", "Sum of a numeric field.", fieldArg))
	r.Register(metric("average", "Mean of a numeric field.", fieldArg))
	r.Register(metric("median", "Median of a numeric field.", fieldArg))
	r.Register(metric("min", "Minimum of a numeric field.", fieldArg))
	r.Register(metric("max", "Maximum of a numeric field.", fieldArg))
	r.Register(metric("unique_count", "Number of distinct values of a field.", fieldArg))
	r.Register(metric("standard_deviation", "Standard deviation of a numeric field.", fieldArg))
	r.Register(metric("percentile", "Percentile of a numeric field.", fieldArg,
		ArgSpec{Name: "percentile", Type: formula.TypeNumber, Optional: true}))
	r.Register(metric("percentile_rank", "Percentage of values below a threshold.", fieldArg,
		ArgSpec{Name: "value", Type: formula.TypeNumber, Optional: true}))
	r.Register(metric("last_value", "Value of a field from the latest document.", fieldArg,
		ArgSpec{Name: "sort", Type: formula.TypeString, Optional: true}))

	// Windowed / time-series calculations
	r.Register(window("moving_average", "Moving average of a metric over a window.",
		ArgSpec{Name: "window", Type: formula.TypeNumber, Optional: true}))
	r.Register(window("cumulative_sum", "Running total of a metric over time."))
	r.Register(window("differences", "Difference of a metric between consecutive intervals."))
	r.Register(window("counter_rate", "Rate of change of an ever-growing counter."))
	r.Register(window("normalize_by_unit", "Normalize a metric to a per-unit rate.",
		ArgSpec{Name: "unit", Type: formula.TypeString, Optional: true}))

	// Math
	r.Register(math1("abs", "Absolute value."))
	r.Register(math1("cbrt", "Cube root."))
	r.Register(math1("ceil", "Round up to the nearest integer."))
	r.Register(math1("exp", "e raised to the value."))
	r.Register(math1("floor", "Round down to the nearest integer."))
	r.Register(math1("sqrt", "Square root."))
	r.Register(math1("square", "Value raised to the 2nd power."))
	r.Register(math1("log", "Logarithm, natural by default.",
		ArgSpec{Name: "base", Type: formula.TypeNumber, Optional: true}))
	r.Register(math1("round", "Round to a number of decimal places.",
		ArgSpec{Name: "decimals", Type: formula.TypeNumber, Optional: true}))
	r.Register(math1("pow", "Value raised to a power.",
		ArgSpec{Name: "base", Type: formula.TypeNumber}))
	r.Register(math1("mod", "Remainder after division.",
		ArgSpec{Name: "base", Type: formula.TypeNumber}))
	r.Register(math1("clamp", "Constrain a value between a minimum and a maximum.",
		ArgSpec{Name: "min", Type: formula.TypeNumber},
		ArgSpec{Name: "max", Type: formula.TypeNumber}))
	r.Register(math1("defaults", "Replace missing values with a default.",
		ArgSpec{Name: "default", Type: formula.TypeNumber}))
	r.Register(&Signature{
		Name: "pick_max",
		Args: []ArgSpec{
			{Name: "left", Type: formula.TypeNumber},
			{Name: "right", Type: formula.TypeNumber},
		},
		Returns:  formula.TypeNumber,
		Category: CategoryMath,
		Help:     "Larger of two values.",
	})
	r.Register(&Signature{
		Name: "pick_min",
		Args: []ArgSpec{
			{Name: "left", Type: formula.TypeNumber},
			{Name: "right", Type: formula.TypeNumber},
		},
		Returns:  formula.TypeNumber,
		Category: CategoryMath,
		Help:     "Smaller of two values.",
	})

	// Comparison / branching
	r.Register(&Signature{
		Name: "ifelse",
		Args: []ArgSpec{
			{Name: "condition", Type: formula.TypeBoolean},
			{Name: "iftrue", Type: formula.TypeNumber},
			{Name: "iffalse", Type: formula.TypeNumber},
		},
		Returns:  formula.TypeNumber,
		Category: CategoryComparison,
		Help:     "Pick a value depending on a condition.",
	})
	r.Register(compare("eq", "True when both values are equal."))
	r.Register(compare("gt", "True when the left value is greater."))
	r.Register(compare("gte", "True when the left value is greater or equal."))
	r.Register(compare("lt", "True when the left value is smaller."))
	r.Register(compare("lte", "True when the left value is smaller or equal."))

	return r
}
