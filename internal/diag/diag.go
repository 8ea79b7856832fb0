// Package diag defines the positioned diagnostics shared by all compiler
// stages. Every user-facing error the pipeline can produce is a Diagnostic;
// the stages themselves never print anything.
package diag

import (
	"fmt"
	"sort"
)

// Stage identifies the pipeline stage a diagnostic originated from.
type Stage string

const (
	StageLex      Stage = "lex"
	StageSyntax   Stage = "syntax"
	StageSemantic Stage = "semantic"
	StageCodegen  Stage = "codegen"
	// StageInternal marks invariant violations inside the compiler itself.
	// These are defects, not user errors.
	StageInternal Stage = "internal"
)

// Diagnostic kinds, one vocabulary per stage.
const (
	// Lexical.
	KindUnterminatedLiteral = "unterminated literal"
	KindUnterminatedComment = "unterminated comment"
	KindUnknownCharacter    = "unknown character"

	// Syntactic.
	KindUnexpectedToken = "unexpected token"
	KindNestingTooDeep  = "nesting too deep"

	// Semantic.
	KindUndeclared      = "undeclared identifier"
	KindRedeclared      = "redeclaration"
	KindTypeMismatch    = "type mismatch"
	KindArityMismatch   = "arity mismatch"
	KindNotCallable     = "not callable"
	KindVoidMisuse      = "invalid use of void"
	KindLiteralOverflow = "literal overflow"
	KindBadControl      = "misplaced control statement"

	// Code generation.
	KindUnsupportedConstruct = "unsupported construct"
	KindRegisterExhaustion   = "register exhaustion"

	// Internal.
	KindInvariant = "invariant violation"
)

type Diagnostic struct {
	Stage   Stage
	Kind    string
	Message string
	Line    int
	Col     int
}

func (d Diagnostic) Error() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.Stage, d.Kind, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s: %s", d.Line, d.Col, d.Stage, d.Kind, d.Message)
}

// New builds a diagnostic at the given source position.
func New(stage Stage, kind string, line, col int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Col:     col,
	}
}

// SortByPosition orders diagnostics by line, then column. The semantic
// analyzer collects errors in walk order; callers see them in source order.
func SortByPosition(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Line != ds[j].Line {
			return ds[i].Line < ds[j].Line
		}
		return ds[i].Col < ds[j].Col
	})
}
