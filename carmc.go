// Package carmc compiles a small C subset to ARM32 assembly text. The
// pipeline is lex, parse, semantic analysis, IR lowering, code generation;
// each stage fully consumes its predecessor's output. Compile keeps no
// state between calls, so concurrent compilations need no locking.
package carmc

import (
	"fmt"
	"strings"

	"github.com/carmc/carmc/internal/codegen"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/ir"
	"github.com/carmc/carmc/internal/lexer"
	"github.com/carmc/carmc/internal/parser"
	"github.com/carmc/carmc/internal/sema"
)

// Compile runs the whole pipeline over source. Lexical and syntax errors
// stop the pipeline with a single diagnostic; semantic analysis reports
// every error it finds, sorted by position; code generation failures are
// single diagnostics. Internal defects surface as a diagnostic with stage
// "internal" rather than a panic.
func Compile(source string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Diagnostics: []diag.Diagnostic{
					diag.New(diag.StageInternal, diag.KindInvariant, 0, 0, "%v", r),
				},
			}
		}
	}()

	tokens, lexErr := lexer.New(strings.NewReader(source)).Tokenize()
	if lexErr != nil {
		return Result{Diagnostics: []diag.Diagnostic{*lexErr}}
	}

	prog, synErr := parser.Parse(tokens)
	if synErr != nil {
		return Result{Diagnostics: []diag.Diagnostic{*synErr}}
	}

	if _, semErrs := sema.NewAnalyzer().Analyze(prog); len(semErrs) > 0 {
		return Result{Diagnostics: semErrs}
	}

	irProg := ir.Build(prog)
	if err := ir.Verify(irProg); err != nil {
		panic(fmt.Sprintf("internal error: invalid IR: %v", err))
	}

	var out strings.Builder
	if err := codegen.Generate(&out, codegen.TargetARM32Linux, irProg); err != nil {
		if d, ok := err.(*diag.Diagnostic); ok {
			return Result{Diagnostics: []diag.Diagnostic{*d}}
		}
		return Result{Diagnostics: []diag.Diagnostic{
			diag.New(diag.StageCodegen, diag.KindUnsupportedConstruct, 0, 0, "%v", err),
		}}
	}

	return Result{Success: true, Assembly: out.String()}
}
