package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formulac/internal/compiler"
)

func newHandler() *FormulaHandler {
	return NewFormulaHandler(compiler.New(compiler.Config{}), []string{"bytes", "price"})
}

func postJSON(t *testing.T, handle http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handle(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandler_Parse(t *testing.T) {
	rec := postJSON(t, newHandler().Parse, map[string]string{"formula": "sum(price) / count()"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		AST     map[string]any `json:"ast"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.AST)
	assert.Equal(t, "BinaryOp", resp.AST["kind"])
	assert.Equal(t, "/", resp.AST["operator"])
}

func TestHandler_ParseError(t *testing.T) {
	rec := postJSON(t, newHandler().Parse, map[string]string{"formula": "1 +"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Errors  []struct {
			Message  string `json:"message"`
			Position int    `json:"position"`
		} `json:"errors"`
	}
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, "expected expression")
}

func TestHandler_Validate(t *testing.T) {
	rec := postJSON(t, newHandler().Validate, map[string]any{
		"formula":   "sum(nope)",
		"data_view": []string{"bytes"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Valid   bool `json:"valid"`
		Results []struct {
			Code string `json:"code"`
		} `json:"results"`
		Complexity int `json:"complexity"`
	}
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Valid)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "UNKNOWN_FIELD", resp.Results[0].Code)
}

func TestHandler_ValidateDefaultsToServerFields(t *testing.T) {
	// Without an explicit data view the server's configured field list is
	// used.
	rec := postJSON(t, newHandler().Validate, map[string]any{"formula": "sum(nope)"})

	var resp struct {
		Valid bool `json:"valid"`
	}
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Valid)
}

func TestHandler_Compile(t *testing.T) {
	rec := postJSON(t, newHandler().Compile, map[string]any{
		"formula":    "sum(price) / count()",
		"time_range": map[string]string{"from": "now-7d", "to": "now"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query struct {
			Aggregations []struct {
				ID       string `json:"id"`
				Function string `json:"function"`
			} `json:"aggregations"`
			Expression string `json:"expression"`
			TimeRange  struct {
				From string `json:"from"`
			} `json:"time_range"`
		} `json:"query"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Validation.Valid)
	require.Len(t, resp.Query.Aggregations, 2)
	assert.Equal(t, "agg0", resp.Query.Aggregations[0].ID)
	assert.Equal(t, "(agg0 / agg1)", resp.Query.Expression)
	assert.Equal(t, "now-7d", resp.Query.TimeRange.From)
}

func TestHandler_CompileInvalidFormula(t *testing.T) {
	rec := postJSON(t, newHandler().Compile, map[string]any{"formula": "bogus(1)"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query      *json.RawMessage `json:"query"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Validation.Valid)
	assert.Nil(t, resp.Query, "no query descriptor for an invalid formula")
}

func TestHandler_Complete(t *testing.T) {
	rec := postJSON(t, newHandler().Complete, map[string]any{"formula": "su", "cursor": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			Label string `json:"label"`
			Kind  string `json:"kind"`
		} `json:"items"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "sum", resp.Items[0].Label)
}

func TestHandler_CompleteCursorOutOfRange(t *testing.T) {
	rec := postJSON(t, newHandler().Complete, map[string]any{"formula": "su", "cursor": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListFunctions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/functions", nil)
	rec := httptest.NewRecorder()
	newHandler().ListFunctions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Functions []struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			Returns  string `json:"returns"`
		} `json:"functions"`
	}
	decodeBody(t, rec, &resp)
	require.NotEmpty(t, resp.Functions)

	byName := map[string]string{}
	for _, fn := range resp.Functions {
		byName[fn.Name] = fn.Category
	}
	assert.Equal(t, "aggregation", byName["sum"])
	assert.Equal(t, "time_series", byName["moving_average"])
	assert.Equal(t, "math", byName["round"])
}

func TestHandler_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	newHandler().Parse(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "INVALID_BODY", resp.Code)
}
