package lexer

import (
	"strings"
	"testing"

	"github.com/carmc/carmc/internal/diag"
)

func tokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := New(strings.NewReader(source)).Tokenize()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

func TestLexer_TokenKinds(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected []Token
	}{
		{
			name:   "keywords and identifiers",
			source: "int x while whilex",
			expected: []Token{
				{Kind: KEYWORD, Lexeme: "int", Pos: Position{1, 1}},
				{Kind: IDENT, Lexeme: "x", Pos: Position{1, 5}},
				{Kind: KEYWORD, Lexeme: "while", Pos: Position{1, 7}},
				{Kind: IDENT, Lexeme: "whilex", Pos: Position{1, 13}},
				{Kind: EOF, Pos: Position{1, 19}},
			},
		},
		{
			name:   "numbers",
			source: "0 42 0x1F",
			expected: []Token{
				{Kind: NUMBER, Lexeme: "0", Value: 0, Pos: Position{1, 1}},
				{Kind: NUMBER, Lexeme: "42", Value: 42, Pos: Position{1, 3}},
				{Kind: NUMBER, Lexeme: "0x1F", Value: 31, Pos: Position{1, 6}},
				{Kind: EOF, Pos: Position{1, 10}},
			},
		},
		{
			name:   "maximal munch on operators",
			source: "= == < <= ! !=",
			expected: []Token{
				{Kind: OPERATOR, Lexeme: "=", Pos: Position{1, 1}},
				{Kind: OPERATOR, Lexeme: "==", Pos: Position{1, 3}},
				{Kind: OPERATOR, Lexeme: "<", Pos: Position{1, 6}},
				{Kind: OPERATOR, Lexeme: "<=", Pos: Position{1, 8}},
				{Kind: OPERATOR, Lexeme: "!", Pos: Position{1, 11}},
				{Kind: OPERATOR, Lexeme: "!=", Pos: Position{1, 13}},
				{Kind: EOF, Pos: Position{1, 15}},
			},
		},
		{
			name:   "char literals",
			source: `'a' '\n' '\0'`,
			expected: []Token{
				{Kind: CHAR, Lexeme: "'a'", Value: 'a', Pos: Position{1, 1}},
				{Kind: CHAR, Lexeme: `'\n'`, Value: '\n', Pos: Position{1, 5}},
				{Kind: CHAR, Lexeme: `'\0'`, Value: 0, Pos: Position{1, 10}},
				{Kind: EOF, Pos: Position{1, 14}},
			},
		},
		{
			name:   "comments skipped",
			source: "a // line\nb /* block\nstill */ c",
			expected: []Token{
				{Kind: IDENT, Lexeme: "a", Pos: Position{1, 1}},
				{Kind: IDENT, Lexeme: "b", Pos: Position{2, 1}},
				{Kind: IDENT, Lexeme: "c", Pos: Position{3, 10}},
				{Kind: EOF, Pos: Position{3, 11}},
			},
		},
		{
			name:   "punctuation",
			source: "f(a[1], b);",
			expected: []Token{
				{Kind: IDENT, Lexeme: "f", Pos: Position{1, 1}},
				{Kind: PUNCTUATION, Lexeme: "(", Pos: Position{1, 2}},
				{Kind: IDENT, Lexeme: "a", Pos: Position{1, 3}},
				{Kind: PUNCTUATION, Lexeme: "[", Pos: Position{1, 4}},
				{Kind: NUMBER, Lexeme: "1", Value: 1, Pos: Position{1, 5}},
				{Kind: PUNCTUATION, Lexeme: "]", Pos: Position{1, 6}},
				{Kind: PUNCTUATION, Lexeme: ",", Pos: Position{1, 7}},
				{Kind: IDENT, Lexeme: "b", Pos: Position{1, 9}},
				{Kind: PUNCTUATION, Lexeme: ")", Pos: Position{1, 10}},
				{Kind: PUNCTUATION, Lexeme: ";", Pos: Position{1, 11}},
				{Kind: EOF, Pos: Position{1, 12}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens := tokenize(t, tc.source)
			if len(tokens) != len(tc.expected) {
				t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(tc.expected), tokens)
			}
			for i, want := range tc.expected {
				if tokens[i] != want {
					t.Errorf("token %d: got %+v, want %+v", i, tokens[i], want)
				}
			}
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		kind   string
		line   int
		col    int
	}{
		{"unterminated char", "int c; 'a", diag.KindUnterminatedLiteral, 1, 8},
		{"newline in char", "'\n'", diag.KindUnterminatedLiteral, 1, 1},
		{"unknown escape", `'\q'`, diag.KindUnknownCharacter, 1, 1},
		{"unterminated block comment", "a /* no end", diag.KindUnterminatedComment, 1, 3},
		{"stray character", "a $ b", diag.KindUnknownCharacter, 1, 3},
		{"lone pipe", "a | b", diag.KindUnknownCharacter, 1, 3},
		{"hex prefix without digits", "int x; x = 0x;", diag.KindUnterminatedLiteral, 1, 12},
		{"bare hex prefix at end", "0X", diag.KindUnterminatedLiteral, 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(strings.NewReader(tc.source)).Tokenize()
			if err == nil {
				t.Fatalf("expected a lex error for %q", tc.source)
			}
			if err.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", err.Kind, tc.kind)
			}
			if err.Line != tc.line || err.Col != tc.col {
				t.Errorf("position = %d:%d, want %d:%d", err.Line, err.Col, tc.line, tc.col)
			}
		})
	}
}

// Concatenating lexemes reconstructs the input up to whitespace: scanning
// loses nothing but separators and comments.
func TestLexer_LosslessScan(t *testing.T) {
	source := "int main(void){int x;x=0x2A;return x+'a';}"
	tokens := tokenize(t, source)

	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Lexeme)
	}
	if sb.String() != source {
		t.Errorf("lexeme concatenation does not reproduce input\n got: %s\nwant: %s", sb.String(), source)
	}
}

func TestLexer_HugeLiteralSaturates(t *testing.T) {
	tokens := tokenize(t, "99999999999999999999999999")
	if tokens[0].Kind != NUMBER {
		t.Fatalf("expected a number token, got %v", tokens[0])
	}
	// Out-of-range literals still lex; the analyzer reports the overflow.
	if tokens[0].Value <= 0 {
		t.Errorf("saturated value should stay positive, got %d", tokens[0].Value)
	}
}

func TestLexer_TracksLines(t *testing.T) {
	tokens := tokenize(t, "a\n  b\n\nc")
	positions := []Position{{1, 1}, {2, 3}, {4, 1}}
	for i, want := range positions {
		if tokens[i].Pos != want {
			t.Errorf("token %d at %v, want %v", i, tokens[i].Pos, want)
		}
	}
}
