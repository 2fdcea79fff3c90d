package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formulac/internal/formula"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	r.Register(&Signature{Name: "foo", Returns: formula.TypeNumber})

	require.NotNil(t, r.Lookup("foo"))
	assert.Nil(t, r.Lookup("bar"))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := New()
	r.Register(&Signature{Name: "foo", Returns: formula.TypeNumber})
	r.Register(&Signature{Name: "foo", Returns: formula.TypeBoolean})

	assert.Equal(t, formula.TypeBoolean, r.Lookup("foo").Returns)
	assert.Len(t, r.Names(), 1)
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := New()
	r.Register(&Signature{Name: "zeta"})
	r.Register(&Signature{Name: "alpha"})
	r.Register(&Signature{Name: "mid"})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestSignature_RequiredArgs(t *testing.T) {
	sig := &Signature{
		Name: "f",
		Args: []ArgSpec{
			{Name: "a", Type: formula.TypeNumber},
			{Name: "b", Type: formula.TypeNumber, Optional: true},
		},
	}
	assert.Equal(t, 1, sig.RequiredArgs())
	assert.Equal(t, []string{"a", "b"}, sig.ArgNames())
	require.NotNil(t, sig.Arg("b"))
	assert.Nil(t, sig.Arg("c"))
}

func TestDefault_KnownFunctions(t *testing.T) {
	r := Default()

	sum := r.Lookup("sum")
	require.NotNil(t, sum)
	assert.Equal(t, CategoryAggregation, sum.Category)
	assert.True(t, sum.IsAggregation())
	assert.Equal(t, formula.TypeNumber, sum.Returns)

	// Every aggregation accepts the kql and shift named arguments.
	require.NotNil(t, sum.Arg("kql"))
	require.NotNil(t, sum.Arg("shift"))
	assert.True(t, sum.Arg("kql").Optional)
}

func TestDefault_CountFieldOptional(t *testing.T) {
	count := Default().Lookup("count")
	require.NotNil(t, count)
	assert.Equal(t, 0, count.RequiredArgs())
}

func TestDefault_WindowedFunctions(t *testing.T) {
	ma := Default().Lookup("moving_average")
	require.NotNil(t, ma)
	assert.Equal(t, CategoryTimeSeries, ma.Category)
	assert.True(t, ma.IsAggregation())
	assert.Equal(t, "metric", ma.Args[0].Name)
	require.NotNil(t, ma.Arg("window"))
}

func TestDefault_MathAndComparison(t *testing.T) {
	r := Default()

	clamp := r.Lookup("clamp")
	require.NotNil(t, clamp)
	assert.Equal(t, CategoryMath, clamp.Category)
	assert.False(t, clamp.IsAggregation())
	assert.Equal(t, 3, clamp.RequiredArgs())

	ifelse := r.Lookup("ifelse")
	require.NotNil(t, ifelse)
	assert.Equal(t, CategoryComparison, ifelse.Category)
	assert.Equal(t, formula.TypeBoolean, ifelse.Args[0].Type)
}

func TestLoadCUE(t *testing.T) {
	sigs, err := LoadCUE("testdata/functions.cue")
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	rate := sigs[0]
	assert.Equal(t, "event_rate", rate.Name)
	assert.Equal(t, CategoryAggregation, rate.Category)
	assert.Equal(t, formula.TypeNumber, rate.Returns)
	require.Len(t, rate.Args, 2)
	assert.Equal(t, "field", rate.Args[0].Name)
	assert.Equal(t, formula.TypeString, rate.Args[0].Type)
	assert.True(t, rate.Args[1].Optional)

	scale := sigs[1]
	assert.Equal(t, "scale", scale.Name)
	assert.Equal(t, CategoryMath, scale.Category)
}

func TestLoadCUE_MissingFile(t *testing.T) {
	_, err := LoadCUE("testdata/nope.cue")
	assert.Error(t, err)
}

func TestLoadCUE_BadCategory(t *testing.T) {
	_, err := LoadCUE("testdata/bad_category.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}
