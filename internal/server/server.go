// Package server exposes the formula compiler over HTTP for the editor:
// parse, validate, compile, and autocomplete endpoints plus the function
// palette listing. The server only compiles formulas; it never executes
// queries against the event store or makes outbound calls.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/formulac/internal/compiler"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Compiler *compiler.Compiler
	// Fields is the data-view field list offered to autocomplete and the
	// validator, when the deployment has one.
	Fields []string
}

// Run starts the HTTP server with all routes registered and shuts it down
// when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logging)
	r.Use(recovery)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h := NewFormulaHandler(cfg.Compiler, cfg.Fields)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/formula/parse", h.Parse)
		r.Post("/formula/validate", h.Validate)
		r.Post("/formula/compile", h.Compile)
		r.Post("/formula/complete", h.Complete)
		r.Get("/functions", h.ListFunctions)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting formula service on %s", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	return srv.ListenAndServe()
}

// ── Middleware ──────────────────────────────────────────────────────────────

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestID tags every request with an id, echoed in the response headers
// so editor traces can be correlated with server logs.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		id, _ := r.Context().Value(requestIDKey).(string)
		log.Printf("%s %s %s (%s)", r.Method, r.URL.Path, time.Since(start), id)
	})
}

func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
