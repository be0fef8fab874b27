package expr

import (
	"fmt"
	"strconv"

	"recq/record"
)

// Compiled is a query expression compiled once and evaluated per record.
type Compiled struct {
	root Expr
	src  string
}

// Compile parses an expression string into a Compiled program. A malformed
// expression fails here, before any record is processed.
func Compile(src string) (*Compiled, error) {
	tokens := Tokenize(src)
	for _, tok := range tokens {
		if tok.Type == TokenError {
			return nil, fmt.Errorf("unexpected character %q in expression", tok.Value)
		}
	}

	p := &Parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected token %q after expression", p.current().Value)
	}

	return &Compiled{root: root, src: src}, nil
}

// Source returns the original expression text.
func (c *Compiled) Source() string { return c.src }

// Eval evaluates the program against a record context with the given
// function registry.
func (c *Compiled) Eval(ctx record.Context, funcs *Registry) (record.Value, error) {
	return c.root.Eval(&Env{Vars: ctx, Funcs: funcs})
}

// Parser builds an AST from a token stream using recursive descent.
//
// Precedence, lowest first: conditional (x if c else y), or, and, not,
// comparisons, additive, multiplicative, unary minus, postfix (call,
// attribute, index), primary.
type Parser struct {
	tokens []Token
	pos    int
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// advance moves to the next token
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// peek looks at the token after the current one
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// expect consumes a token of the given type or fails
func (p *Parser) expect(t TokenType, what string) error {
	if p.current().Type != t {
		return fmt.Errorf("expected %s, got %q", what, p.current().Value)
	}
	p.advance()
	return nil
}

// parseExpression parses a full expression including the conditional guard.
// A guard with no else branch gets an implicit alternative producing an
// empty list, which is how filtering is expressed.
func (p *Parser) parseExpression() (Expr, error) {
	value, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenIf {
		return value, nil
	}
	p.advance()

	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	var alt Expr = &ListExpr{}
	if p.current().Type == TokenElse {
		p.advance()
		alt, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	return &CondExpr{Value: value, Test: test, Alt: alt}, nil
}

// parseOr parses "a or b"
func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BoolExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAnd parses "a and b"
func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BoolExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

// parseNot parses "not a"
func (p *Parser) parseNot() (Expr, error) {
	// "not in" belongs to the comparison level, not here
	if p.current().Type == TokenNot && p.peek().Type != TokenIn {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: TokenNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

// parseComparison parses comparison chains left-associatively
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		negate := false

		if tok.Type == TokenNot && p.peek().Type == TokenIn {
			p.advance()
			tok = p.current()
			negate = true
		}

		switch tok.Type {
		case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq, TokenIn:
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &CompareExpr{Left: left, Operator: tok.Type, Right: right, Negate: negate}
		default:
			if negate {
				return nil, fmt.Errorf("expected \"in\" after \"not\"")
			}
			return left, nil
		}
	}
}

// parseAdditive parses + and -
func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.current().Type
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseMultiplicative parses * / // and %
func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op := p.current().Type
		if op != TokenStar && op != TokenSlash && op != TokenFloorDiv && op != TokenPercent {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: op, Right: right}
	}
}

// parseUnary parses unary minus
func (p *Parser) parseUnary() (Expr, error) {
	if p.current().Type == TokenMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: TokenMinus, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses attribute access, indexing and function calls
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Type {
		case TokenDot:
			p.advance()
			if p.current().Type != TokenIdent {
				return nil, fmt.Errorf("expected field name after '.', got %q", p.current().Value)
			}
			expr = &AttrExpr{Target: expr, Name: p.current().Value}
			p.advance()

		case TokenLeftBracket:
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(TokenRightBracket, "']'"); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Target: expr, Index: index}

		case TokenLeftParen:
			// Only named functions can be called
			name, ok := expr.(*NameExpr)
			if !ok {
				return expr, nil
			}
			p.advance()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Name: name.Name, Args: args}

		default:
			return expr, nil
		}
	}
}

// parseCallArgs parses a comma-separated argument list up to ')'
func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr

	if p.current().Type == TokenRightParen {
		p.advance()
		return args, nil
	}

	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}

	if err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary parses literals, identifiers, parenthesized expressions,
// tuple literals and list literals
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.current()

	switch tok.Type {
	case TokenInt:
		i, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", tok.Value)
		}
		p.advance()
		return &LiteralExpr{Value: record.NewInt(i)}, nil

	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q", tok.Value)
		}
		p.advance()
		return &LiteralExpr{Value: record.NewFloat(f)}, nil

	case TokenString:
		p.advance()
		return &LiteralExpr{Value: record.NewStr(tok.Value)}, nil

	case TokenTrue:
		p.advance()
		return &LiteralExpr{Value: record.NewBool(true)}, nil

	case TokenFalse:
		p.advance()
		return &LiteralExpr{Value: record.NewBool(false)}, nil

	case TokenNull:
		p.advance()
		return &LiteralExpr{Value: record.Null()}, nil

	case TokenIdent:
		p.advance()
		return &NameExpr{Name: tok.Value}, nil

	case TokenLeftParen:
		return p.parseParenOrTuple()

	case TokenLeftBracket:
		return p.parseList()

	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token %q", tok.Value)
	}
}

// parseParenOrTuple disambiguates grouping from tuple literals: "(a)" is
// grouping, "(a,)" and "(a, b)" are tuples, "()" is the empty tuple.
func (p *Parser) parseParenOrTuple() (Expr, error) {
	p.advance() // consume '('

	if p.current().Type == TokenRightParen {
		p.advance()
		return &TupleExpr{}, nil
	}

	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.current().Type != TokenComma {
		if err := p.expect(TokenRightParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil
	}

	elems := []Expr{first}
	for p.current().Type == TokenComma {
		p.advance()
		if p.current().Type == TokenRightParen {
			break // trailing comma
		}
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}

	if err := p.expect(TokenRightParen, "')'"); err != nil {
		return nil, err
	}
	return &TupleExpr{Elems: elems}, nil
}

// parseList parses a list literal
func (p *Parser) parseList() (Expr, error) {
	p.advance() // consume '['

	var elems []Expr
	for p.current().Type != TokenRightBracket {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}

	if err := p.expect(TokenRightBracket, "']'"); err != nil {
		return nil, err
	}
	return &ListExpr{Elems: elems}, nil
}
