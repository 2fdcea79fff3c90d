package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matthewbaird/formulac/internal/compiler"
	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/autocomplete"
	"github.com/matthewbaird/formulac/internal/formula/querygen"
	"github.com/matthewbaird/formulac/internal/formula/validate"
)

// FormulaHandler serves the formula pipeline endpoints.
type FormulaHandler struct {
	compiler *compiler.Compiler
	complete *autocomplete.Engine
	fields   []string
}

// NewFormulaHandler creates a handler over the given compiler. fields is
// the deployment's data-view field list, used for autocomplete and the
// field-existence check; nil disables both.
func NewFormulaHandler(c *compiler.Compiler, fields []string) *FormulaHandler {
	return &FormulaHandler{
		compiler: c,
		complete: autocomplete.New(c.Registry(), fields),
		fields:   fields,
	}
}

// ── Request/response shapes ─────────────────────────────────────────────────

type parseRequest struct {
	Formula string `json:"formula"`
}

type parseResponse struct {
	Success bool        `json:"success"`
	AST     any         `json:"ast,omitempty"`
	Errors  []wireIssue `json:"errors,omitempty"`
}

type wireIssue struct {
	Message  string `json:"message"`
	Position int    `json:"position"`
}

type validateRequest struct {
	Formula  string              `json:"formula"`
	Fields   []validate.FieldDef `json:"fields,omitempty"`
	DataView []string            `json:"data_view,omitempty"`
}

type validateResponse struct {
	Valid          bool             `json:"valid"`
	Results        []validate.Issue `json:"results"`
	Complexity     int              `json:"complexity"`
	ValidationTime float64          `json:"validation_time_ms"`
}

type compileRequest struct {
	Formula      string              `json:"formula"`
	Fields       []validate.FieldDef `json:"fields,omitempty"`
	DataView     []string            `json:"data_view,omitempty"`
	TimeRange    *querygen.TimeRange `json:"time_range,omitempty"`
	DefaultField string              `json:"default_field,omitempty"`
	Filter       string              `json:"filter,omitempty"`
}

type compileResponse struct {
	Query      *querygen.Descriptor `json:"query,omitempty"`
	Validation validateResponse     `json:"validation"`
}

type completeRequest struct {
	Formula string `json:"formula"`
	Cursor  int    `json:"cursor"`
}

type completeResponse struct {
	Items []autocomplete.CompletionItem `json:"items"`
}

type functionInfo struct {
	Name     string    `json:"name"`
	Args     []argInfo `json:"args"`
	Returns  string    `json:"returns"`
	Category string    `json:"category"`
	Help     string    `json:"help,omitempty"`
}

type argInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// ── Endpoints ───────────────────────────────────────────────────────────────

// Parse handles POST /v1/formula/parse.
func (h *FormulaHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.compiler.Parse(req.Formula)
	resp := parseResponse{Success: result.Success}
	if result.Success {
		resp.AST = formula.ToTree(result.AST)
	}
	for _, perr := range result.Errors {
		resp.Errors = append(resp.Errors, wireIssue{Message: perr.Message, Position: perr.Pos})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Validate handles POST /v1/formula/validate.
func (h *FormulaHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.compiler.Validate(req.Formula, h.validateContext(req.Fields, req.DataView))
	writeJSON(w, http.StatusOK, toValidateResponse(result))
}

// Compile handles POST /v1/formula/compile.
func (h *FormulaHandler) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qctx := &querygen.Context{
		TimeRange:    req.TimeRange,
		DefaultField: req.DefaultField,
		Filter:       req.Filter,
	}
	desc, result, err := h.compiler.Compile(req.Formula, h.validateContext(req.Fields, req.DataView), qctx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "COMPOSITION_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{
		Query:      desc,
		Validation: toValidateResponse(result),
	})
}

// Complete handles POST /v1/formula/complete.
func (h *FormulaHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Cursor < 0 || req.Cursor > len(req.Formula) {
		writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "cursor out of range")
		return
	}

	items := h.complete.Complete(req.Formula, req.Cursor)
	if items == nil {
		items = []autocomplete.CompletionItem{}
	}
	writeJSON(w, http.StatusOK, completeResponse{Items: items})
}

// ListFunctions handles GET /v1/functions.
func (h *FormulaHandler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	sigs := h.compiler.Registry().All()
	out := make([]functionInfo, 0, len(sigs))
	for _, sig := range sigs {
		info := functionInfo{
			Name:     sig.Name,
			Args:     make([]argInfo, 0, len(sig.Args)),
			Returns:  string(sig.Returns),
			Category: sig.Category.String(),
			Help:     sig.Help,
		}
		for _, arg := range sig.Args {
			info.Args = append(info.Args, argInfo{
				Name:     arg.Name,
				Type:     string(arg.Type),
				Optional: arg.Optional,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"functions": out})
}

func (h *FormulaHandler) validateContext(fields []validate.FieldDef, dataView []string) *validate.Context {
	ctx := &validate.Context{Fields: fields}
	switch {
	case len(dataView) > 0:
		ctx.DataView = &validate.DataView{Fields: dataView}
	case len(h.fields) > 0:
		ctx.DataView = &validate.DataView{Fields: h.fields}
	}
	return ctx
}

func toValidateResponse(result validate.Result) validateResponse {
	issues := result.Results
	if issues == nil {
		issues = []validate.Issue{}
	}
	return validateResponse{
		Valid:          result.Valid,
		Results:        issues,
		Complexity:     result.Complexity,
		ValidationTime: float64(result.ValidationTime) / float64(time.Millisecond),
	}
}

// ── HTTP helpers ────────────────────────────────────────────────────────────

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// decodeJSON reads the request body into v, writing a 400 and returning
// false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("decode request: %v", err))
		return false
	}
	return true
}
