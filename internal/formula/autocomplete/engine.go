// Package autocomplete provides context-aware completions for the formula
// editor: function names, named-argument keys, data-view fields, and
// operators, driven by the token stream up to the cursor.
package autocomplete

import (
	"strings"

	"github.com/matthewbaird/formulac/internal/formula"
	"github.com/matthewbaird/formulac/internal/formula/registry"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "function", "field", "argument", "operator", "keyword"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// Engine derives completions from the in-memory signature registry and an
// optional data-view field list.
type Engine struct {
	registry *registry.Registry
	fields   []string
}

// New creates an engine backed by the given registry. fields may be nil
// when no data view is attached.
func New(reg *registry.Registry, fields []string) *Engine {
	return &Engine{registry: reg, fields: fields}
}

// operators suggested after a complete value.
var operators = []string{"+", "-", "*", "/", "%", "^", ">", "<", ">=", "<=", "==", "!=", "and", "or"}

// Complete returns suggestions for the formula text at the cursor position.
func (e *Engine) Complete(text string, cursor int) []CompletionItem {
	if cursor > len(text) {
		cursor = len(text)
	}
	prefix := text[:cursor]

	tokens, err := formula.NewLexer(prefix).Tokenize()
	if err != nil {
		// Mid-typing input often does not lex (unterminated string); no
		// suggestions beats wrong suggestions.
		return nil
	}
	// Drop the EOF terminator.
	tokens = tokens[:len(tokens)-1]

	// An identifier the cursor touches is a partial word being typed.
	partial := ""
	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		if (last.Type == formula.TokenField || last.Type == formula.TokenFunction) &&
			cursor <= last.Pos+last.Len {
			partial = strings.ToLower(last.Literal)
			tokens = tokens[:len(tokens)-1]
		}
	}

	if len(tokens) == 0 {
		return e.completeExpressionStart(partial)
	}

	switch tokens[len(tokens)-1].Type {
	case formula.TokenLParen, formula.TokenComma:
		items := e.completeArgKeys(tokens, partial)
		items = append(items, e.completeFields(partial)...)
		return append(items, e.completeFunctions(partial)...)

	case formula.TokenPlus, formula.TokenMinus, formula.TokenStar, formula.TokenSlash,
		formula.TokenPercent, formula.TokenCaret,
		formula.TokenGT, formula.TokenLT, formula.TokenGTE, formula.TokenLTE,
		formula.TokenEQ, formula.TokenNEQ,
		formula.TokenAnd, formula.TokenOr, formula.TokenNot, formula.TokenBang:
		return e.completeExpressionStart(partial)

	case formula.TokenAssign, formula.TokenColon:
		// Value position of a named argument.
		return e.completeFields(partial)

	case formula.TokenNumber, formula.TokenString, formula.TokenBool,
		formula.TokenField, formula.TokenRParen:
		return filterItems(operators, partial, "operator")

	default:
		return nil
	}
}

// completeExpressionStart suggests what can begin an expression.
func (e *Engine) completeExpressionStart(partial string) []CompletionItem {
	items := e.completeFunctions(partial)
	return append(items, e.completeFields(partial)...)
}

func (e *Engine) completeFunctions(partial string) []CompletionItem {
	var items []CompletionItem
	for _, sig := range e.registry.All() {
		if partial != "" && !strings.HasPrefix(sig.Name, partial) {
			continue
		}
		items = append(items, CompletionItem{
			Label:      sig.Name,
			Kind:       "function",
			Detail:     sig.Help,
			InsertText: sig.Name + "(",
		})
	}
	return items
}

func (e *Engine) completeFields(partial string) []CompletionItem {
	var items []CompletionItem
	for _, f := range e.fields {
		if partial == "" || strings.HasPrefix(strings.ToLower(f), partial) {
			items = append(items, CompletionItem{Label: f, Kind: "field"})
		}
	}
	return items
}

// completeArgKeys suggests named-argument keys for the innermost open call.
func (e *Engine) completeArgKeys(tokens []formula.Token, partial string) []CompletionItem {
	name, ok := enclosingCall(tokens)
	if !ok {
		return nil
	}
	sig := e.registry.Lookup(name)
	if sig == nil {
		return nil
	}

	var items []CompletionItem
	for _, arg := range sig.Args {
		if !arg.Optional {
			continue // required args are positional by convention
		}
		if partial != "" && !strings.HasPrefix(arg.Name, partial) {
			continue
		}
		items = append(items, CompletionItem{
			Label:      arg.Name,
			Kind:       "argument",
			Detail:     string(arg.Type),
			InsertText: arg.Name + "=",
		})
	}
	return items
}

// enclosingCall finds the function owning the innermost unclosed paren.
func enclosingCall(tokens []formula.Token) (string, bool) {
	depth := 0
	for i := len(tokens) - 1; i >= 0; i-- {
		switch tokens[i].Type {
		case formula.TokenRParen:
			depth++
		case formula.TokenLParen:
			if depth == 0 {
				if i > 0 && tokens[i-1].Type == formula.TokenFunction {
					return tokens[i-1].Literal, true
				}
				return "", false
			}
			depth--
		}
	}
	return "", false
}

func filterItems(candidates []string, partial, kind string) []CompletionItem {
	var items []CompletionItem
	for _, c := range candidates {
		if partial == "" || strings.HasPrefix(c, partial) {
			items = append(items, CompletionItem{Label: c, Kind: kind})
		}
	}
	return items
}
