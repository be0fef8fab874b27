// Package expr implements the query expression language: a small,
// sandboxed grammar with arithmetic, comparisons, boolean logic,
// conditional guards, tuple and list literals, field access and calls
// into an explicit function registry.
//
// Expressions are compiled once per query and evaluated against the
// per-record context built by the record package:
//
//	prog, err := expr.Compile("(name, age) if age > 30")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := prog.Eval(ctx, expr.DefaultRegistry())
package expr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenIf TokenType = iota
	TokenElse
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenTrue
	TokenFalse
	TokenNull

	// Operators
	TokenPlus       // +
	TokenMinus      // -
	TokenStar       // *
	TokenSlash      // /
	TokenFloorDiv   // //
	TokenPercent    // %
	TokenEqual      // ==
	TokenNotEqual   // !=
	TokenLess       // <
	TokenGreater    // >
	TokenLessEq     // <=
	TokenGreaterEq  // >=

	// Literals
	TokenInt
	TokenFloat
	TokenString
	TokenIdent

	// Delimiters
	TokenComma        // ,
	TokenDot          // .
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Special
	TokenEOF
	TokenError
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Lexer tokenizes expression strings
type Lexer struct {
	input string
	pos   int
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character. Input is UTF-8; string literals may
// carry arbitrary multi-byte runes.
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += w
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string
func (l *Lexer) readString(quote rune) string {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case '\\':
				result.WriteRune('\\')
			case quote:
				result.WriteRune(quote)
			default:
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	if l.ch == quote {
		l.readChar() // skip closing quote
	}

	return result.String()
}

// readNumber reads an integer or float literal. The token is a float when
// it contains a decimal point followed by a digit, so "x.y" style access
// after a number still lexes the dot separately.
func (l *Lexer) readNumber() Token {
	var result strings.Builder
	isFloat := false

	for unicode.IsDigit(l.ch) {
		result.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		result.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			result.WriteRune(l.ch)
			l.readChar()
		}
	}

	if isFloat {
		return Token{Type: TokenFloat, Value: result.String()}
	}
	return Token{Type: TokenInt, Value: result.String()}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	var tok Token

	switch l.ch {
	case 0:
		tok = Token{Type: TokenEOF, Value: ""}
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
		l.readChar()
	case '*':
		tok = Token{Type: TokenStar, Value: "*"}
		l.readChar()
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			tok = Token{Type: TokenFloorDiv, Value: "//"}
			l.readChar()
		} else {
			tok = Token{Type: TokenSlash, Value: "/"}
			l.readChar()
		}
	case '%':
		tok = Token{Type: TokenPercent, Value: "%"}
		l.readChar()
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenEqual, Value: "=="}
			l.readChar()
		} else {
			tok = Token{Type: TokenError, Value: "="}
			l.readChar()
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenNotEqual, Value: "!="}
			l.readChar()
		} else {
			tok = Token{Type: TokenError, Value: "!"}
			l.readChar()
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenLessEq, Value: "<="}
			l.readChar()
		} else {
			tok = Token{Type: TokenLess, Value: "<"}
			l.readChar()
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TokenGreaterEq, Value: ">="}
			l.readChar()
		} else {
			tok = Token{Type: TokenGreater, Value: ">"}
			l.readChar()
		}
	case '\'', '"':
		quote := l.ch
		tok = Token{Type: TokenString, Value: l.readString(quote)}
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case '.':
		tok = Token{Type: TokenDot, Value: "."}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case '[':
		tok = Token{Type: TokenLeftBracket, Value: "["}
		l.readChar()
	case ']':
		tok = Token{Type: TokenRightBracket, Value: "]"}
		l.readChar()
	default:
		if unicode.IsDigit(l.ch) {
			tok = l.readNumber()
		} else if unicode.IsLetter(l.ch) || l.ch == '_' {
			value := l.readIdentifier()
			tok = Token{Type: identifierType(value), Value: value}
		} else {
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	return tok
}

// identifierType determines if an identifier is a keyword
func identifierType(ident string) TokenType {
	switch ident {
	case "if":
		return TokenIf
	case "else":
		return TokenElse
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "in":
		return TokenIn
	case "true", "True":
		return TokenTrue
	case "false", "False":
		return TokenFalse
	case "null", "None":
		return TokenNull
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
