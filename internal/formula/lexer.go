package formula

import (
	"fmt"
	"strings"
)

// LexError is a fatal tokenization failure with the offending position.
type LexError struct {
	Message string
	Pos     int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Message)
}

// Lexer tokenizes formula source text. A Lexer holds per-call scan state
// and must not be shared between concurrent calls; allocate one per input.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input. The returned stream is in source order
// and always terminates with exactly one EOF token. The first illegal
// character or unterminated string aborts scanning with a LexError.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// peek returns the current byte without advancing, or 0 at end of input.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

// peekAt returns the byte at offset from the current position.
func (l *Lexer) peekAt(offset int) byte {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	return l.input[p]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.pos++
		default:
			return
		}
	}
}

// next scans and returns the next token.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.peek()

	if c == '\'' || c == '"' {
		return l.scanString(start)
	}

	if isDigit(c) {
		return l.scanNumber(start), nil
	}

	if isIdentStart(c) {
		return l.scanIdent(start), nil
	}

	// Two-character operators take precedence over their one-character prefixes.
	if l.peekAt(1) == '=' {
		switch c {
		case '=':
			l.pos += 2
			return Token{Type: TokenEQ, Literal: "==", Pos: start, Len: 2}, nil
		case '!':
			l.pos += 2
			return Token{Type: TokenNEQ, Literal: "!=", Pos: start, Len: 2}, nil
		case '>':
			l.pos += 2
			return Token{Type: TokenGTE, Literal: ">=", Pos: start, Len: 2}, nil
		case '<':
			l.pos += 2
			return Token{Type: TokenLTE, Literal: "<=", Pos: start, Len: 2}, nil
		}
	}

	l.pos++
	single := map[byte]TokenType{
		'+': TokenPlus, '-': TokenMinus, '*': TokenStar, '/': TokenSlash,
		'%': TokenPercent, '^': TokenCaret, '>': TokenGT, '<': TokenLT,
		'=': TokenAssign, '!': TokenBang,
		'(': TokenLParen, ')': TokenRParen, ',': TokenComma, ':': TokenColon,
	}
	if tt, ok := single[c]; ok {
		return Token{Type: tt, Literal: string(c), Pos: start, Len: 1}, nil
	}

	return Token{}, &LexError{
		Message: fmt.Sprintf("unexpected character %q", c),
		Pos:     start,
	}
}

// scanString reads a quoted string literal with backslash escapes.
func (l *Lexer) scanString(start int) (Token, error) {
	quote := l.input[l.pos]
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		l.pos++
		if c == quote {
			return Token{Type: TokenString, Literal: b.String(), Pos: start, Len: l.pos - start}, nil
		}
		if c == '\\' && l.pos < len(l.input) {
			next := l.input[l.pos]
			l.pos++
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			continue
		}
		b.WriteByte(c)
	}
	return Token{}, &LexError{Message: "unterminated string literal", Pos: start}
}

// scanNumber reads a decimal number: digits with at most one dot, no
// exponent and no embedded sign (a leading '-' lexes as TokenMinus).
func (l *Lexer) scanNumber(start int) Token {
	sawDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isDigit(c) {
			l.pos++
			continue
		}
		if c == '.' && !sawDot && isDigit(l.peekAt(1)) {
			sawDot = true
			l.pos++
			continue
		}
		break
	}
	lit := l.input[start:l.pos]
	return Token{Type: TokenNumber, Literal: lit, Pos: start, Len: l.pos - start}
}

// scanIdent reads an identifier (dots allowed for field paths) and
// classifies it as a keyword, a function name, or a field reference.
func (l *Lexer) scanIdent(start int) Token {
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	lit := l.input[start:l.pos]

	tokType := LookupKeyword(lit)
	if tokType == TokenField && nextNonSpace(l.input, l.pos) == '(' {
		tokType = TokenFunction
	}
	return Token{Type: tokType, Literal: lit, Pos: start, Len: l.pos - start}
}

// nextNonSpace returns the first non-whitespace byte at or after pos, or 0.
// This is the one token of lookahead that distinguishes a function name
// from a field reference; it never moves the scan position.
func nextNonSpace(input string, pos int) byte {
	for ; pos < len(input); pos++ {
		switch input[pos] {
		case ' ', '\t', '\r', '\n':
		default:
			return input[pos]
		}
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}
