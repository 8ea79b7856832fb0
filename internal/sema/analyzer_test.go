package sema

import (
	"strings"
	"testing"

	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/lexer"
	"github.com/carmc/carmc/internal/parser"
)

func analyzeSource(t *testing.T, source string) (*ast.Program, []diag.Diagnostic) {
	t.Helper()
	tokens, lerr := lexer.New(strings.NewReader(source)).Tokenize()
	if lerr != nil {
		t.Fatalf("lexing failed: %v", lerr)
	}
	prog, perr := parser.Parse(tokens)
	if perr != nil {
		t.Fatalf("parsing failed: %v", perr)
	}
	_, errs := NewAnalyzer().Analyze(prog)
	return prog, errs
}

func TestAnalyzer_ValidPrograms(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{
			name:   "minimal",
			source: "int main(void) { return 0; }",
		},
		{
			name:   "forward call",
			source: "int main(void) { return helper(); } int helper(void) { return 1; }",
		},
		{
			name:   "globals",
			source: "int counter; int next(void) { counter = counter + 1; return counter; }",
		},
		{
			name:   "shadowing in nested scope",
			source: "int f(void) { int x; x = 1; { int x; x = 2; } return x; }",
		},
		{
			name:   "char and int mix",
			source: "int f(char c) { return c + 1; }",
		},
		{
			name:   "pointers",
			source: "void swap(int* a, int* b) { int t; t = *a; *a = *b; *b = t; }",
		},
		{
			name:   "array indexing and decay",
			source: "int sum(int* a, int n) { int s; int i; s = 0; for (i = 0; i < n; i = i + 1) s = s + a[i]; return s; } int main(void) { int data[4]; return sum(data, 4); }",
		},
		{
			name:   "pointer arithmetic",
			source: "int f(int* p) { return *(p + 1); }",
		},
		{
			name:   "builtins",
			source: "int main(void) { output(input() + 1); return 0; }",
		},
		{
			name:   "break and continue in loop",
			source: "void f(int n) { while (n) { if (n == 5) break; if (n % 2) { n = n - 1; continue; } n = n / 2; } }",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := analyzeSource(t, tc.source)
			if len(errs) != 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestAnalyzer_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
		kind   string
	}{
		{
			name:   "undeclared variable",
			source: "int main(void) { return x; }",
			kind:   diag.KindUndeclared,
		},
		{
			name:   "undeclared function",
			source: "int main(void) { return missing(); }",
			kind:   diag.KindUndeclared,
		},
		{
			name:   "redeclaration in same scope",
			source: "int main(void) { int x; int x; return 0; }",
			kind:   diag.KindRedeclared,
		},
		{
			name:   "duplicate global",
			source: "int g; int g; int main(void) { return 0; }",
			kind:   diag.KindRedeclared,
		},
		{
			name:   "duplicate parameter",
			source: "int f(int a, int a) { return a; }",
			kind:   diag.KindRedeclared,
		},
		{
			name:   "calling a variable",
			source: "int main(void) { int x; return x(); }",
			kind:   diag.KindNotCallable,
		},
		{
			name:   "arity mismatch",
			source: "int f(int a) { return a; } int main(void) { return f(1, 2); }",
			kind:   diag.KindArityMismatch,
		},
		{
			name:   "pointer assigned to int",
			source: "int main(void) { int x; int* p; p = &x; x = p; return x; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "void variable",
			source: "int main(void) { void v; return 0; }",
			kind:   diag.KindVoidMisuse,
		},
		{
			name:   "assignment to rvalue",
			source: "int main(void) { 1 = 2; return 0; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "assignment to array",
			source: "int main(void) { int a[4]; int b[4]; a = b; return 0; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "literal overflow",
			source: "int main(void) { return 4294967296; }",
			kind:   diag.KindLiteralOverflow,
		},
		{
			name:   "array length overflow",
			source: "int main(void) { int a[4294967296]; return 0; }",
			kind:   diag.KindLiteralOverflow,
		},
		{
			name:   "global array length overflow",
			source: "int a[4294967296]; int main(void) { return 0; }",
			kind:   diag.KindLiteralOverflow,
		},
		{
			name:   "missing return value",
			source: "int main(void) { return; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "no return in non-void function",
			source: "int f(void) { int x; x = 1; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "break outside loop",
			source: "int main(void) { break; return 0; }",
			kind:   diag.KindBadControl,
		},
		{
			name:   "continue outside loop",
			source: "int main(void) { continue; return 0; }",
			kind:   diag.KindBadControl,
		},
		{
			name:   "dereferencing an int",
			source: "int main(void) { int x; return *x; }",
			kind:   diag.KindTypeMismatch,
		},
		{
			name:   "indexing a scalar",
			source: "int main(void) { int x; return x[0]; }",
			kind:   diag.KindTypeMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := analyzeSource(t, tc.source)
			if len(errs) == 0 {
				t.Fatalf("expected a %q error, got none", tc.kind)
			}
			found := false
			for _, e := range errs {
				if e.Kind == tc.kind {
					found = true
				}
				if e.Stage != diag.StageSemantic {
					t.Errorf("error from wrong stage: %v", e)
				}
			}
			if !found {
				t.Errorf("expected a %q error, got %v", tc.kind, errs)
			}
		})
	}
}

// All semantic errors are collected in one pass and come back ordered by
// source position.
func TestAnalyzer_CollectsAllErrors(t *testing.T) {
	source := `int main(void) {
  int x;
  y = 1;
  z = 2;
  return w;
}`
	_, errs := analyzeSource(t, source)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for i := 1; i < len(errs); i++ {
		if errs[i].Line < errs[i-1].Line {
			t.Errorf("errors out of order: %v before %v", errs[i-1], errs[i])
		}
	}
	if errs[0].Line != 3 || errs[1].Line != 4 || errs[2].Line != 5 {
		t.Errorf("wrong error positions: %v", errs)
	}
}

// Shadowed variables get distinct unique names within a function.
func TestAnalyzer_UniqueNames(t *testing.T) {
	source := "int f(void) { int x; { int x; x = 2; } x = 1; return x; }"
	prog, errs := analyzeSource(t, source)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	body := prog.Functions[0].Body
	outer := body.Stmts[0].(*ast.VarDecl)
	inner := body.Stmts[1].(*ast.Block).Stmts[0].(*ast.VarDecl)

	if outer.Sym.UniqueName == inner.Sym.UniqueName {
		t.Errorf("shadowed variables share unique name %q", outer.Sym.UniqueName)
	}
	if outer.Sym.UniqueName != "x" {
		t.Errorf("outer x should keep its name, got %q", outer.Sym.UniqueName)
	}
}

func TestAnalyzer_TypeAnnotations(t *testing.T) {
	source := "int f(char c, int* p) { return c + *p; }"
	prog, errs := analyzeSource(t, source)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	ret := prog.Functions[0].Body.Stmts[0].(*ast.Return)
	add := ret.Value.(*ast.Binary)
	if add.Type.String() != "int" {
		t.Errorf("char + int should have type int, got %s", add.Type)
	}
	if add.Left.GetType().String() != "char" {
		t.Errorf("left operand should have type char, got %s", add.Left.GetType())
	}
}
