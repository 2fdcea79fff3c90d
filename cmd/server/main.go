package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/matthewbaird/formulac/internal/compiler"
	"github.com/matthewbaird/formulac/internal/formula/registry"
	"github.com/matthewbaird/formulac/internal/formula/validate"
	"github.com/matthewbaird/formulac/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.Default()
	if path := os.Getenv("FORMULA_FUNCTIONS"); path != "" {
		custom, err := registry.LoadCUE(path)
		if err != nil {
			log.Fatalf("loading custom functions: %v", err)
		}
		for _, sig := range custom {
			reg.Register(sig)
		}
		log.Printf("loaded %d custom functions from %s", len(custom), path)
	}

	limits := validate.DefaultLimits()
	limits.MaxFormulaLength = envInt("FORMULA_MAX_LENGTH", limits.MaxFormulaLength)
	limits.MaxNestingDepth = envInt("FORMULA_MAX_NESTING", limits.MaxNestingDepth)
	limits.MaxFunctionCalls = envInt("FORMULA_MAX_CALLS", limits.MaxFunctionCalls)
	limits.MaxQueryComplexity = envInt("FORMULA_MAX_COMPLEXITY", limits.MaxQueryComplexity)

	comp := compiler.New(compiler.Config{
		CacheSize: envInt("FORMULA_CACHE_SIZE", 0),
		Limits:    limits,
		Registry:  reg,
	})

	var fields []string
	if raw := os.Getenv("FORMULA_FIELDS"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	err := server.Run(ctx, server.Config{
		Port:     envInt("PORT", 8080),
		Compiler: comp,
		Fields:   fields,
	})
	if err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
