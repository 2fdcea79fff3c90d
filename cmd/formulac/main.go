// cmd/formulac is the command-line front end to the formula pipeline.
//
// Usage:
//
//	formulac tokenize 'count()'
//	formulac parse 'sum(price) / count()'
//	formulac validate 'moving_average(sum(bytes), window=5)'
//	formulac compile 'count(kql="status:active")'
//	echo 'count()' | formulac validate -
//
// Output is JSON on stdout. validate and compile exit non-zero when the
// formula has error-severity issues.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/matthewbaird/formulac/internal/compiler"
	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/querygen"
	"github.com/matthewbaird/formulac/internal/formula/registry"
	"github.com/matthewbaird/formulac/internal/formula/validate"
)

func main() {
	log.SetFlags(0)

	functionsPath := flag.String("functions", "", "CUE file with additional function signatures")
	fieldsFlag := flag.String("fields", "", "comma-separated data-view fields for validation")
	defaultField := flag.String("default-field", "", "field used by count() when none is given")
	maxLength := flag.Int("max-length", 0, "override the maximum formula length")
	maxNesting := flag.Int("max-nesting", 0, "override the maximum call nesting depth")
	maxCalls := flag.Int("max-calls", 0, "override the maximum number of function calls")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	command, input := flag.Arg(0), flag.Arg(1)
	if input == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("reading stdin: %v", err)
		}
		input = strings.TrimSpace(string(raw))
	}

	reg := registry.Default()
	if *functionsPath != "" {
		custom, err := registry.LoadCUE(*functionsPath)
		if err != nil {
			log.Fatalf("loading custom functions: %v", err)
		}
		for _, sig := range custom {
			reg.Register(sig)
		}
	}
	limits := validate.DefaultLimits()
	if *maxLength > 0 {
		limits.MaxFormulaLength = *maxLength
	}
	if *maxNesting > 0 {
		limits.MaxNestingDepth = *maxNesting
	}
	if *maxCalls > 0 {
		limits.MaxFunctionCalls = *maxCalls
	}
	comp := compiler.New(compiler.Config{Registry: reg, Limits: limits})

	var vctx *validate.Context
	if *fieldsFlag != "" {
		dv := &validate.DataView{}
		for _, f := range strings.Split(*fieldsFlag, ",") {
			if f = strings.TrimSpace(f); f != "" {
				dv.Fields = append(dv.Fields, f)
			}
		}
		vctx = &validate.Context{DataView: dv}
	}

	switch command {
	case "tokenize":
		runTokenize(input)
	case "parse":
		runParse(comp, input)
	case "validate":
		runValidate(comp, input, vctx)
	case "compile":
		runCompile(comp, input, vctx, *defaultField)
	default:
		log.Fatalf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: formulac [flags] <tokenize|parse|validate|compile> <formula>")
	flag.PrintDefaults()
}

func runTokenize(input string) {
	tokens, err := formula.NewLexer(input).Tokenize()
	if err != nil {
		log.Fatalf("tokenize: %v", err)
	}
	type tok struct {
		Type     string `json:"type"`
		Literal  string `json:"literal"`
		Position int    `json:"position"`
	}
	out := make([]tok, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tok{Type: t.Type.String(), Literal: t.Literal, Position: t.Pos})
	}
	printJSON(out)
}

func runParse(comp *compiler.Compiler, input string) {
	result := comp.Parse(input)
	if !result.Success {
		for _, perr := range result.Errors {
			log.Printf("parse error at position %d: %s", perr.Pos, perr.Message)
		}
		os.Exit(1)
	}
	printJSON(formula.ToTree(result.AST))
}

func runValidate(comp *compiler.Compiler, input string, vctx *validate.Context) {
	result := comp.Validate(input, vctx)
	printJSON(result)
	if !result.Valid {
		os.Exit(1)
	}
}

func runCompile(comp *compiler.Compiler, input string, vctx *validate.Context, defaultField string) {
	qctx := &querygen.Context{DefaultField: defaultField}
	desc, result, err := comp.Compile(input, vctx, qctx)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	if !result.Valid {
		printJSON(result)
		os.Exit(1)
	}
	printJSON(desc)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encoding output: %v", err)
	}
}
