// Package compiler owns the full formula pipeline: the parse cache, the
// function registry, the validator, and the query builder, assembled into
// one explicitly-passed context instead of package-level singletons.
package compiler

import (
	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/cache"
	"github.com/matthewbaird/formulac/internal/formula/querygen"
	"github.com/matthewbaird/formulac/internal/formula/registry"
	"github.com/matthewbaird/formulac/internal/formula/validate"
)

// Config assembles a Compiler. Zero values fall back to the defaults.
type Config struct {
	CacheSize int
	Limits    validate.Limits
	Registry  *registry.Registry
}

// Compiler is the owned context for compiling formulas. Construct one per
// application lifetime and pass it by reference; its components are safe
// for concurrent use.
type Compiler struct {
	cache     *cache.Cache
	registry  *registry.Registry
	validator *validate.Validator
	builder   *querygen.Builder
}

// New creates a compiler from the given configuration.
func New(cfg Config) *Compiler {
	reg := cfg.Registry
	if reg == nil {
		reg = registry.Default()
	}
	limits := cfg.Limits
	if limits == (validate.Limits{}) {
		limits = validate.DefaultLimits()
	}
	return &Compiler{
		cache:     cache.New(cfg.CacheSize),
		registry:  reg,
		validator: validate.New(reg, limits),
		builder:   querygen.New(reg),
	}
}

// Registry exposes the signature registry (for the palette listing and
// autocomplete).
func (c *Compiler) Registry() *registry.Registry {
	return c.registry
}

// Parse compiles a formula string to an AST through the cache: a repeat of
// the exact same string skips tokenizing and parsing entirely. Only
// successful parses are cached.
func (c *Compiler) Parse(input string) formula.ParseResult {
	if ast, ok := c.cache.Get(input); ok {
		return formula.ParseResult{Success: true, AST: ast}
	}
	result := formula.Parse(input)
	if result.Success {
		c.cache.Set(input, result.AST)
	}
	return result
}

// Validate parses (through the cache) and validates a formula string.
// Parse failures are reported as a single error-severity issue so callers
// see one result shape.
func (c *Compiler) Validate(input string, ctx *validate.Context) validate.Result {
	parsed := c.Parse(input)
	if !parsed.Success {
		issues := make([]validate.Issue, 0, len(parsed.Errors))
		for _, perr := range parsed.Errors {
			issues = append(issues, validate.Issue{
				Severity: validate.SeverityError,
				Code:     "PARSE_ERROR",
				Message:  perr.Message,
				Pos:      perr.Pos,
			})
		}
		return validate.Result{Valid: false, Results: issues}
	}
	return c.validator.Validate(parsed.AST, ctx)
}

// Compile runs the whole pipeline. Any error-severity issue, security
// limits included, prevents the query-builder step; the validation result
// is returned either way so callers can surface the issues.
func (c *Compiler) Compile(input string, vctx *validate.Context, qctx *querygen.Context) (*querygen.Descriptor, validate.Result, error) {
	parsed := c.Parse(input)
	result := c.Validate(input, vctx)
	if !result.Valid {
		return nil, result, nil
	}

	desc, err := c.builder.Build(parsed.AST, qctx)
	if err != nil {
		return nil, result, err
	}
	return desc, result, nil
}
