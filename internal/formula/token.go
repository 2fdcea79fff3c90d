// Package formula implements the lexer, parser, and AST for the formula
// language: single-line arithmetic/aggregation expressions compiled into
// structured queries against the event store.
package formula

import "strings"

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	// Literals and identifiers
	TokenEOF      TokenType = iota
	TokenNumber             // 1, 2.5
	TokenString             // 'quoted' or "quoted"
	TokenBool               // true / false
	TokenField              // unquoted (possibly dotted) field reference
	TokenFunction           // identifier followed by '('

	// Arithmetic operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenCaret   // ^

	// Comparison operators
	TokenEQ  // ==
	TokenNEQ // !=
	TokenGT  // >
	TokenLT  // <
	TokenGTE // >=
	TokenLTE // <=

	// Single-character forms used by named arguments and unary negation
	TokenAssign // =
	TokenBang   // !

	// Grouping and delimiters
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
	TokenColon  // :

	// Keywords
	TokenAnd
	TokenOr
	TokenNot
	TokenShift
	TokenKQL
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenBool:
		return "boolean"
	case TokenField:
		return "field"
	case TokenFunction:
		return "function"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenCaret:
		return "^"
	case TokenEQ:
		return "=="
	case TokenNEQ:
		return "!="
	case TokenGT:
		return ">"
	case TokenLT:
		return "<"
	case TokenGTE:
		return ">="
	case TokenLTE:
		return "<="
	case TokenAssign:
		return "="
	case TokenBang:
		return "!"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenShift:
		return "shift"
	case TokenKQL:
		return "kql"
	default:
		return "unknown"
	}
}

// Token represents a single lexical token in a formula.
type Token struct {
	Type    TokenType
	Literal string // decoded text of the token (escapes resolved for strings)
	Pos     int    // byte offset in source
	Len     int    // length of the token's source text
}

// keywords maps lowercase reserved words to their token types.
var keywords = map[string]TokenType{
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"true":  TokenBool,
	"false": TokenBool,
	"shift": TokenShift,
	"kql":   TokenKQL,
}

// LookupKeyword returns the keyword token type for an identifier, or
// TokenField if the identifier is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TokenField
}

// IsBinaryOp returns true if the token type is a binary operator.
func (t TokenType) IsBinaryOp() bool {
	switch t {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenCaret,
		TokenEQ, TokenNEQ, TokenGT, TokenLT, TokenGTE, TokenLTE,
		TokenAnd, TokenOr:
		return true
	}
	return false
}

// IsNamedArgKey returns true if the token type can introduce a named
// function argument (key=value or key:value).
func (t TokenType) IsNamedArgKey() bool {
	return t == TokenField || t == TokenKQL || t == TokenShift
}
