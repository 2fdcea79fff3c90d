package formula

import (
	"fmt"
	"strings"
)

// ParseResult is the outcome of compiling a formula string into an AST.
// On failure AST is nil and Errors is non-empty; a partial tree is never
// returned.
type ParseResult struct {
	Success bool
	AST     Node
	Errors  []*ParseError
}

// Binary operator precedence, low to high. The climbing loop is
// left-associative at every level, including power.
const (
	precOr             = 1
	precAnd            = 2
	precEquality       = 3
	precRelational     = 4
	precAdditive       = 5
	precMultiplicative = 6
	precPower          = 7
	precUnary          = 9
)

var binaryPrec = map[TokenType]int{
	TokenOr:      precOr,
	TokenAnd:     precAnd,
	TokenEQ:      precEquality,
	TokenNEQ:     precEquality,
	TokenGT:      precRelational,
	TokenLT:      precRelational,
	TokenGTE:     precRelational,
	TokenLTE:     precRelational,
	TokenPlus:    precAdditive,
	TokenMinus:   precAdditive,
	TokenStar:    precMultiplicative,
	TokenSlash:   precMultiplicative,
	TokenPercent: precMultiplicative,
	TokenCaret:   precPower,
}

var binaryOps = map[TokenType]Operator{
	TokenOr:      OpOr,
	TokenAnd:     OpAnd,
	TokenEQ:      OpEQ,
	TokenNEQ:     OpNEQ,
	TokenGT:      OpGT,
	TokenLT:      OpLT,
	TokenGTE:     OpGTE,
	TokenLTE:     OpLTE,
	TokenPlus:    OpAdd,
	TokenMinus:   OpSub,
	TokenStar:    OpMul,
	TokenSlash:   OpDiv,
	TokenPercent: OpMod,
	TokenCaret:   OpPow,
}

// Parse tokenizes and parses a formula string. Lex failures are converted
// into the same structured result as parse failures; Parse never panics.
func Parse(input string) ParseResult {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		lexErr := err.(*LexError)
		return ParseResult{
			Errors: []*ParseError{{Message: lexErr.Message, Pos: lexErr.Pos}},
		}
	}

	p := &parser{tokens: tokens}
	ast := p.parseExpression(precOr)

	if len(p.errors) == 0 && !p.atEnd() {
		tok := p.peek()
		p.addError(tok, fmt.Sprintf("unexpected %s after expression", tok.Type))
	}
	if len(p.errors) > 0 {
		return ParseResult{Errors: p.errors}
	}
	return ParseResult{Success: true, AST: ast}
}

// parser implements precedence climbing over the token stream. It holds
// per-call state; allocate one per Parse invocation.
type parser struct {
	tokens []Token
	pos    int
	errors []*ParseError
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peekNext() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *parser) expect(t TokenType, context string) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	tok := p.peek()
	p.addError(tok, fmt.Sprintf("expected '%s' %s", t, context))
	return tok, false
}

func (p *parser) addError(tok Token, msg string) {
	p.errors = append(p.errors, &ParseError{Message: msg, Pos: tok.Pos})
}

// ── Precedence climbing ─────────────────────────────────────────────────────

func (p *parser) parseExpression(minPrec int) Node {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		tok := p.peek()
		prec, ok := binaryPrec[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()

		right := p.parseExpression(prec + 1)
		if right == nil {
			return nil
		}
		left = &BinaryOp{
			TokenPos: left.Pos(),
			Length:   end(right) - left.Pos(),
			Op:       binaryOps[tok.Type],
			Left:     left,
			Right:    right,
		}
	}
	return left
}

func (p *parser) parseUnary() Node {
	tok := p.peek()

	var op Operator
	switch tok.Type {
	case TokenMinus:
		op = OpNeg
	case TokenNot, TokenBang:
		op = OpNot
	default:
		return p.parsePrimary()
	}

	p.advance()
	operand := p.parseExpression(precUnary)
	if operand == nil {
		return nil
	}
	return &UnaryOp{
		TokenPos: tok.Pos,
		Length:   end(operand) - tok.Pos,
		Op:       op,
		Operand:  operand,
	}
}

// ── Primary expressions ─────────────────────────────────────────────────────

func (p *parser) parsePrimary() Node {
	tok := p.peek()

	switch tok.Type {
	case TokenLParen:
		p.advance()
		expr := p.parseExpression(precOr)
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(TokenRParen, "to close parenthesized expression"); !ok {
			return nil
		}
		return expr

	case TokenFunction:
		return p.parseCall()

	case TokenField:
		p.advance()
		return &FieldRef{TokenPos: tok.Pos, Length: tok.Len, Field: tok.Literal}

	case TokenNumber:
		p.advance()
		return &Literal{TokenPos: tok.Pos, Length: tok.Len, DataType: TypeNumber, Raw: tok.Literal}

	case TokenString:
		p.advance()
		return &Literal{TokenPos: tok.Pos, Length: tok.Len, DataType: TypeString, Raw: tok.Literal}

	case TokenBool:
		p.advance()
		return &Literal{TokenPos: tok.Pos, Length: tok.Len, DataType: TypeBoolean, Raw: strings.ToLower(tok.Literal)}

	default:
		p.addError(tok, fmt.Sprintf("expected expression, got %s", tok.Type))
		return nil
	}
}

// parseCall parses NAME '(' args ')'. Each argument is named only when the
// current token is a field-like identifier immediately followed by '=' or
// ':'; otherwise it is positional. Named keys are lowercased on storage.
func (p *parser) parseCall() Node {
	nameTok := p.advance()
	call := &FunctionCall{
		TokenPos:  nameTok.Pos,
		Name:      nameTok.Literal,
		NamedArgs: make(map[string]Node),
	}

	if _, ok := p.expect(TokenLParen, "after function name"); !ok {
		return nil
	}

	if !p.check(TokenRParen) {
		for {
			if !p.parseArgument(call) {
				return nil
			}
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
	}

	rparen, ok := p.expect(TokenRParen, "after arguments")
	if !ok {
		return nil
	}
	call.Length = rparen.Pos + rparen.Len - nameTok.Pos
	return call
}

func (p *parser) parseArgument(call *FunctionCall) bool {
	tok := p.peek()
	if tok.Type.IsNamedArgKey() {
		if sep := p.peekNext().Type; sep == TokenAssign || sep == TokenColon {
			key := strings.ToLower(tok.Literal)
			p.advance() // key
			p.advance() // '=' or ':'
			val := p.parseExpression(precOr)
			if val == nil {
				return false
			}
			call.NamedArgs[key] = val
			return true
		}
	}

	expr := p.parseExpression(precOr)
	if expr == nil {
		return false
	}
	call.Args = append(call.Args, expr)
	return true
}

// end returns the byte offset one past a node's source span.
func end(n Node) int {
	return n.Pos() + n.Len()
}
