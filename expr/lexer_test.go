package expr

import "testing"

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "arithmetic",
			input: "1 + 2.5 * x",
			expected: []Token{
				{TokenInt, "1"},
				{TokenPlus, "+"},
				{TokenFloat, "2.5"},
				{TokenStar, "*"},
				{TokenIdent, "x"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "floor division",
			input: "a // b / c",
			expected: []Token{
				{TokenIdent, "a"},
				{TokenFloorDiv, "//"},
				{TokenIdent, "b"},
				{TokenSlash, "/"},
				{TokenIdent, "c"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "comparisons",
			input: "a == b != c <= d >= e < f > g",
			expected: []Token{
				{TokenIdent, "a"},
				{TokenEqual, "=="},
				{TokenIdent, "b"},
				{TokenNotEqual, "!="},
				{TokenIdent, "c"},
				{TokenLessEq, "<="},
				{TokenIdent, "d"},
				{TokenGreaterEq, ">="},
				{TokenIdent, "e"},
				{TokenLess, "<"},
				{TokenIdent, "f"},
				{TokenGreater, ">"},
				{TokenIdent, "g"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "keywords",
			input: "x if y else not z and w or q in s",
			expected: []Token{
				{TokenIdent, "x"},
				{TokenIf, "if"},
				{TokenIdent, "y"},
				{TokenElse, "else"},
				{TokenNot, "not"},
				{TokenIdent, "z"},
				{TokenAnd, "and"},
				{TokenIdent, "w"},
				{TokenOr, "or"},
				{TokenIdent, "q"},
				{TokenIn, "in"},
				{TokenIdent, "s"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "literal keywords",
			input: "true True false None",
			expected: []Token{
				{TokenTrue, "true"},
				{TokenTrue, "True"},
				{TokenFalse, "false"},
				{TokenNull, "None"},
			},
		},
		{
			name:  "strings with escapes",
			input: `'a\'b' "c\nd"`,
			expected: []Token{
				{TokenString, "a'b"},
				{TokenString, "c\nd"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "multibyte string content",
			input: `'café' == "日本語"`,
			expected: []Token{
				{TokenString, "café"},
				{TokenEqual, "=="},
				{TokenString, "日本語"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "attribute after number",
			input: "x.y[0]",
			expected: []Token{
				{TokenIdent, "x"},
				{TokenDot, "."},
				{TokenIdent, "y"},
				{TokenLeftBracket, "["},
				{TokenInt, "0"},
				{TokenRightBracket, "]"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "underscore alias",
			input: "_[1]",
			expected: []Token{
				{TokenIdent, "_"},
				{TokenLeftBracket, "["},
				{TokenInt, "1"},
				{TokenRightBracket, "]"},
				{TokenEOF, ""},
			},
		},
		{
			name:  "error token",
			input: "a ? b",
			expected: []Token{
				{TokenIdent, "a"},
				{TokenError, "?"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			for i, want := range tt.expected {
				if i >= len(tokens) {
					t.Fatalf("ran out of tokens at %d, want %v", i, want)
				}
				if tokens[i].Type != want.Type || tokens[i].Value != want.Value {
					t.Errorf("token %d = {%d %q}, want {%d %q}",
						i, tokens[i].Type, tokens[i].Value, want.Type, want.Value)
				}
			}
		})
	}
}
