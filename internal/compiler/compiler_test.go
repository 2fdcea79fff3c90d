package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formulac/internal/formula/querygen"
	"github.com/matthewbaird/formulac/internal/formula/validate"
)

func TestCompiler_ParseCachesAST(t *testing.T) {
	c := New(Config{})

	first := c.Parse("sum(price) / count()")
	require.True(t, first.Success)

	second := c.Parse("sum(price) / count()")
	require.True(t, second.Success)
	assert.Same(t, first.AST, second.AST, "repeat parse returns the cached tree")
}

func TestCompiler_ParseFailuresNotCached(t *testing.T) {
	c := New(Config{})

	first := c.Parse("1 +")
	require.False(t, first.Success)
	require.NotEmpty(t, first.Errors)

	second := c.Parse("1 +")
	assert.False(t, second.Success)
	assert.NotEmpty(t, second.Errors, "errors are reproduced, not swallowed by the cache")
}

func TestCompiler_ValidateReportsParseErrors(t *testing.T) {
	c := New(Config{})

	result := c.Validate("1 +", nil)
	assert.False(t, result.Valid)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "PARSE_ERROR", result.Results[0].Code)
	assert.Equal(t, validate.SeverityError, result.Results[0].Severity)
}

func TestCompiler_CompileEndToEnd(t *testing.T) {
	c := New(Config{})

	desc, result, err := c.Compile("sum(price) / count()", nil, &querygen.Context{DefaultField: "record"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	require.NotNil(t, desc)
	require.Len(t, desc.Aggregations, 2)
	assert.Equal(t, "(agg0 / agg1)", desc.Expression)
	assert.Equal(t, "record", desc.Aggregations[1].Field, "count() picks up the default field")
}

func TestCompiler_InvalidFormulaSkipsQueryBuild(t *testing.T) {
	c := New(Config{})

	desc, result, err := c.Compile("bogus(1)", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Nil(t, desc)
}

func TestCompiler_SecurityErrorBlocksCompile(t *testing.T) {
	limits := validate.DefaultLimits()
	limits.MaxNestingDepth = 1
	c := New(Config{Limits: limits})

	desc, result, err := c.Compile("abs(abs(1))", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Nil(t, desc, "limit violations must not reach the query builder")
	assert.Equal(t, validate.CodeMaxNestingExceeded, result.Results[0].Code)
}

func TestCompiler_ValidateUsesContext(t *testing.T) {
	c := New(Config{})

	ctx := &validate.Context{DataView: &validate.DataView{Fields: []string{"bytes"}}}
	result := c.Validate("sum(nope)", ctx)
	assert.False(t, result.Valid)
}
