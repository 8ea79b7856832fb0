package lexer

import "fmt"

type TokenKind int

// Token kinds
const (
	EOF TokenKind = iota
	IDENT
	NUMBER
	CHAR
	KEYWORD
	OPERATOR
	PUNCTUATION
)

func (k TokenKind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case CHAR:
		return "CHAR"
	case KEYWORD:
		return "KEYWORD"
	case OPERATOR:
		return "OPERATOR"
	case PUNCTUATION:
		return "PUNCTUATION"
	default:
		return "UNKNOWN"
	}
}

// Position is a 1-based line/column location in the source text.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a single lexeme with its classification and source position.
// Lexeme always holds the exact source text, so that concatenating lexemes
// with the original whitespace reconstructs the input. Value carries the
// numeric value for NUMBER and CHAR tokens; range checking against the
// 32-bit target width happens during semantic analysis.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Value  int64
	Pos    Position
}

func (t Token) String() string {
	if t.Lexeme == "" {
		return fmt.Sprintf("<%s>", t.Kind)
	}
	return fmt.Sprintf("<%s %q>", t.Kind, t.Lexeme)
}

func (t Token) IsKeyword(kw string) bool {
	return t.Kind == KEYWORD && t.Lexeme == kw
}

func (t Token) IsPunctuation(p string) bool {
	return t.Kind == PUNCTUATION && t.Lexeme == p
}

func (t Token) IsOperator(op string) bool {
	return t.Kind == OPERATOR && t.Lexeme == op
}
