// Package lexer turns C source text into a token stream.
package lexer

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/carmc/carmc/internal/diag"
)

// Keywords of the supported C subset.
var keywords = map[string]bool{
	"int":      true,
	"char":     true,
	"void":     true,
	"if":       true,
	"else":     true,
	"while":    true,
	"for":      true,
	"return":   true,
	"break":    true,
	"continue": true,
}

// Single-character tokens that never start a longer lexeme.
var singleCharTokens = map[rune]TokenKind{
	'(': PUNCTUATION,
	')': PUNCTUATION,
	'{': PUNCTUATION,
	'}': PUNCTUATION,
	'[': PUNCTUATION,
	']': PUNCTUATION,
	';': PUNCTUATION,
	',': PUNCTUATION,
	'+': OPERATOR,
	'-': OPERATOR,
	'*': OPERATOR,
	'%': OPERATOR,
}

// Two-character operators, keyed by their first rune. Maximal munch: the
// longer form wins whenever the second rune matches.
var doubleCharTokens = map[rune]rune{
	'=': '=',
	'!': '=',
	'<': '=',
	'>': '=',
	'&': '&',
	'|': '|',
}

type Lexer struct {
	input     *bufio.Reader
	line      int
	col       int
	prevCol   int
	lastRune  rune
	hasUnread bool
}

func New(input io.Reader) *Lexer {
	return &Lexer{
		input:   bufio.NewReader(input),
		line:    1,
		col:     1,
		prevCol: 1,
	}
}

// Tokenize consumes the whole input and returns the token sequence,
// terminated by an EOF token. On malformed input it stops at the first
// lexical error; no recovery is attempted.
func (l *Lexer) Tokenize() ([]Token, *diag.Diagnostic) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

// readRune reads the next rune from the input, tracking line and column.
func (l *Lexer) readRune() (rune, error) {
	var r rune
	var err error

	if l.hasUnread {
		l.hasUnread = false
		r = l.lastRune
	} else {
		l.prevCol = l.col
		r, _, err = l.input.ReadRune()
		if err != nil {
			return 0, err
		}
	}

	l.lastRune = r
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, nil
}

// unreadRune puts back the last read rune.
// Must be called at most once per readRune.
func (l *Lexer) unreadRune() {
	l.hasUnread = true
	if l.lastRune == '\n' {
		l.line--
	}
	l.col = l.prevCol
}

func (l *Lexer) skipSpace() {
	for {
		r, err := l.readRune()
		if err != nil {
			return
		}
		if !unicode.IsSpace(r) {
			l.unreadRune()
			return
		}
	}
}

// skipLineComment consumes input up to and including the end of line.
func (l *Lexer) skipLineComment() {
	for {
		r, err := l.readRune()
		if err != nil || r == '\n' {
			return
		}
	}
}

// skipBlockComment consumes input up to and including the closing "*/".
func (l *Lexer) skipBlockComment(start Position) *diag.Diagnostic {
	for {
		r, err := l.readRune()
		if err != nil {
			d := diag.New(diag.StageLex, diag.KindUnterminatedComment, start.Line, start.Col, "comment is never closed")
			return &d
		}
		if r == '*' {
			next, err := l.readRune()
			if err != nil {
				d := diag.New(diag.StageLex, diag.KindUnterminatedComment, start.Line, start.Col, "comment is never closed")
				return &d
			}
			if next == '/' {
				return nil
			}
			l.unreadRune()
		}
	}
}

// Next returns the next token from the input.
func (l *Lexer) Next() (Token, *diag.Diagnostic) {
	l.skipSpace()

	start := Position{Line: l.line, Col: l.col}

	r, err := l.readRune()
	if err != nil {
		return Token{Kind: EOF, Pos: start}, nil
	}

	switch {
	case unicode.IsLetter(r) || r == '_':
		l.unreadRune()
		return l.lexIdent(start), nil
	case unicode.IsDigit(r):
		l.unreadRune()
		return l.lexNumber(start)
	case r == '\'':
		return l.lexChar(start)
	case r == '/':
		next, err := l.readRune()
		if err != nil {
			return Token{Kind: OPERATOR, Lexeme: "/", Pos: start}, nil
		}
		if next == '/' {
			l.skipLineComment()
			return l.Next()
		}
		if next == '*' {
			if d := l.skipBlockComment(start); d != nil {
				return Token{}, d
			}
			return l.Next()
		}
		l.unreadRune()
		return Token{Kind: OPERATOR, Lexeme: "/", Pos: start}, nil
	}

	if second, ok := doubleCharTokens[r]; ok {
		next, err := l.readRune()
		if err == nil && next == second {
			return Token{Kind: OPERATOR, Lexeme: string(r) + string(second), Pos: start}, nil
		}
		if err == nil {
			l.unreadRune()
		}
		// A lone '|' is not part of the language; a lone '&' is address-of.
		if r == '|' {
			d := diag.New(diag.StageLex, diag.KindUnknownCharacter, start.Line, start.Col, "unexpected character %q", r)
			return Token{}, &d
		}
		return Token{Kind: OPERATOR, Lexeme: string(r), Pos: start}, nil
	}

	if kind, ok := singleCharTokens[r]; ok {
		return Token{Kind: kind, Lexeme: string(r), Pos: start}, nil
	}

	d := diag.New(diag.StageLex, diag.KindUnknownCharacter, start.Line, start.Col, "unexpected character %q", r)
	return Token{}, &d
}

func (l *Lexer) lexIdent(start Position) Token {
	var sb strings.Builder

	for {
		r, err := l.readRune()
		if err != nil {
			break
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			l.unreadRune()
			break
		}
		sb.WriteRune(r)
	}

	ident := sb.String()
	kind := IDENT
	if keywords[ident] {
		kind = KEYWORD
	}
	return Token{Kind: kind, Lexeme: ident, Pos: start}
}

func (l *Lexer) lexNumber(start Position) (Token, *diag.Diagnostic) {
	var sb strings.Builder

	r, _ := l.readRune()
	sb.WriteRune(r)

	base := 10
	if r == '0' {
		next, err := l.readRune()
		if err == nil && (next == 'x' || next == 'X') {
			base = 16
			sb.WriteRune(next)
		} else if err == nil {
			l.unreadRune()
		}
	}

	for {
		r, err := l.readRune()
		if err != nil {
			break
		}
		if !isDigitInBase(r, base) {
			l.unreadRune()
			break
		}
		sb.WriteRune(r)
	}

	lexeme := sb.String()
	digits := lexeme
	if base == 16 {
		digits = lexeme[2:]
		if digits == "" {
			d := diag.New(diag.StageLex, diag.KindUnterminatedLiteral, start.Line, start.Col,
				"hex literal %q has no digits", lexeme)
			return Token{}, &d
		}
	}

	value, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		// Does not even fit in 64 bits; saturate so that semantic analysis
		// reports it as exceeding the 32-bit target width.
		value = math.MaxInt64
	}

	return Token{Kind: NUMBER, Lexeme: lexeme, Value: value, Pos: start}, nil
}

func (l *Lexer) lexChar(start Position) (Token, *diag.Diagnostic) {
	unterminated := func() (Token, *diag.Diagnostic) {
		d := diag.New(diag.StageLex, diag.KindUnterminatedLiteral, start.Line, start.Col, "character literal is never closed")
		return Token{}, &d
	}

	r, err := l.readRune()
	if err != nil || r == '\n' || r == '\'' {
		return unterminated()
	}

	lexeme := "'" + string(r)
	value := int64(r)

	if r == '\\' {
		esc, err := l.readRune()
		if err != nil || esc == '\n' {
			return unterminated()
		}
		lexeme += string(esc)
		switch esc {
		case 'n':
			value = '\n'
		case 't':
			value = '\t'
		case 'r':
			value = '\r'
		case '0':
			value = 0
		case '\\', '\'':
			value = int64(esc)
		default:
			d := diag.New(diag.StageLex, diag.KindUnknownCharacter, start.Line, start.Col, "unknown escape sequence '\\%c'", esc)
			return Token{}, &d
		}
	}

	closing, err := l.readRune()
	if err != nil || closing != '\'' {
		return unterminated()
	}
	lexeme += "'"

	return Token{Kind: CHAR, Lexeme: lexeme, Value: value, Pos: start}, nil
}

func isDigitInBase(r rune, base int) bool {
	if base == 16 {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	}
	return r >= '0' && r <= '9'
}
