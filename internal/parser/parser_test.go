package parser

import (
	"strings"
	"testing"

	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/lexer"
)

func parseSource(t *testing.T, source string) (*ast.Program, error) {
	t.Helper()
	tokens, err := lexer.New(strings.NewReader(source)).Tokenize()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	prog, perr := Parse(tokens)
	if perr != nil {
		return nil, perr
	}
	return prog, nil
}

func TestParser_TreeShapes(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "empty main",
			source:   "int main(void) {}",
			expected: "(program (func int main () (block)))",
		},
		{
			name:     "return literal",
			source:   "int main(void) { return 42; }",
			expected: "(program (func int main () (block (return 42))))",
		},
		{
			name:     "global and function",
			source:   "int counter; int main(void) { return counter; }",
			expected: "(program (var int counter) (func int main () (block (return counter))))",
		},
		{
			name:     "parameters",
			source:   "int add(int a, int b) { return a + b; }",
			expected: "(program (func int add ((int a) (int b)) (block (return (+ a b)))))",
		},
		{
			name:     "precedence multiplication over addition",
			source:   "int f(void) { return 1 + 2 * 3; }",
			expected: "(program (func int f () (block (return (+ 1 (* 2 3))))))",
		},
		{
			name:     "left associativity of subtraction",
			source:   "int f(void) { return 10 - 3 - 2; }",
			expected: "(program (func int f () (block (return (- (- 10 3) 2)))))",
		},
		{
			name:     "comparison binds looser than arithmetic",
			source:   "int f(int x) { return x + 1 < x * 2; }",
			expected: "(program (func int f ((int x)) (block (return (< (+ x 1) (* x 2))))))",
		},
		{
			name:     "logical operators",
			source:   "int f(int a, int b) { return a == 1 || b != 2 && a < b; }",
			expected: "(program (func int f ((int a) (int b)) (block (return (|| (== a 1) (&& (!= b 2) (< a b)))))))",
		},
		{
			name:     "right associative assignment",
			source:   "void f(void) { int a; int b; a = b = 1; }",
			expected: "(program (func void f () (block (var int a) (var int b) (expr (= a (= b 1))))))",
		},
		{
			name:     "unary operators",
			source:   "int f(int x) { return -x + !x; }",
			expected: "(program (func int f ((int x)) (block (return (+ (- x) (! x))))))",
		},
		{
			name:     "pointer declaration and dereference",
			source:   "int f(int* p) { return *p; }",
			expected: "(program (func int f ((int* p)) (block (return (* p)))))",
		},
		{
			name:     "address of",
			source:   "void f(void) { int x; int* p; p = &x; }",
			expected: "(program (func void f () (block (var int x) (var int* p) (expr (= p (& x))))))",
		},
		{
			name:     "array declaration and subscript",
			source:   "int f(void) { int a[10]; a[0] = 1; return a[0]; }",
			expected: "(program (func int f () (block (var int[10] a) (expr (= (index a 0) 1)) (return (index a 0)))))",
		},
		{
			name:     "dangling else binds to nearest if",
			source:   "void f(int x) { if (x) if (x) x = 1; else x = 2; }",
			expected: "(program (func void f ((int x)) (block (if x (if x (expr (= x 1)) (expr (= x 2)))))))",
		},
		{
			name:     "while loop",
			source:   "void f(int n) { while (n > 0) n = n - 1; }",
			expected: "(program (func void f ((int n)) (block (while (> n 0) (expr (= n (- n 1)))))))",
		},
		{
			name:     "for loop with declaration",
			source:   "void f(void) { for (int i; i < 10; i = i + 1) { break; } }",
			expected: "(program (func void f () (block (for (var int i) (< i 10) (= i (+ i 1)) (block (break))))))",
		},
		{
			name:     "for loop with empty clauses",
			source:   "void f(void) { for (;;) { continue; } }",
			expected: "(program (func void f () (block (for () () () (block (continue))))))",
		},
		{
			name:     "call with arguments",
			source:   "int f(void) { return max(1, 2 + 3); }",
			expected: "(program (func int f () (block (return (call max 1 (+ 2 3))))))",
		},
		{
			name:     "nested call",
			source:   "int f(void) { return g(h()); }",
			expected: "(program (func int f () (block (return (call g (call h))))))",
		},
		{
			name:     "character literal",
			source:   "char f(void) { return 'a'; }",
			expected: "(program (func char f () (block (return 'a'))))",
		},
		{
			name:     "parenthesized expression overrides precedence",
			source:   "int f(void) { return (1 + 2) * 3; }",
			expected: "(program (func int f () (block (return (* (+ 1 2) 3)))))",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := parseSource(t, tc.source)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := prog.String(); got != tc.expected {
				t.Errorf("wrong tree\n got: %s\nwant: %s", got, tc.expected)
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{"missing closing brace", "int main(void) { return 0;"},
		{"missing semicolon", "int main(void) { return 0 }"},
		{"missing condition parens", "int main(void) { if 1 return 0; }"},
		{"declaration without name", "int main(void) { int; }"},
		{"stray else", "int main(void) { else return 0; }"},
		{"unclosed call", "int main(void) { return f(1; }"},
		{"garbage at top level", "return 0;"},
		{"array length not a number", "int main(void) { int a[x]; }"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseSource(t, tc.source); err == nil {
				t.Errorf("expected a parse error for %q", tc.source)
			}
		})
	}
}

// Deeply nested input must produce a diagnostic, not a stack overflow.
func TestParser_NestingLimit(t *testing.T) {
	depth := 10000
	source := "int f(void) { return " + strings.Repeat("(", depth) + "1" + strings.Repeat(")", depth) + "; }"
	if _, err := parseSource(t, source); err == nil {
		t.Fatal("expected nesting depth error")
	}
}

// Printing a parsed program and parsing the output again must give the
// same tree.
func TestParser_PrintRoundTrip(t *testing.T) {
	sources := []string{
		"int g; char buf[64]; int add(int a, int b) { return a + b; }",
		"int main(void) { int i; for (i = 0; i < 10; i = i + 1) { if (i % 2 == 0) continue; output(i); } return 0; }",
		"void swap(int* a, int* b) { int t; t = *a; *a = *b; *b = t; }",
		"int f(int n) { while (n > 0 && n % 3 != 0) { n = n - 1; } if (n == 0) return -1; else return n; }",
		"int g(int a, int b) { int c; c = (a = b) + 1; return (c = c * 2); }",
	}

	for _, source := range sources {
		prog, err := parseSource(t, source)
		if err != nil {
			t.Fatalf("parse error in %q: %v", source, err)
		}

		var sb strings.Builder
		ast.Print(&sb, prog)

		reparsed, err := parseSource(t, sb.String())
		if err != nil {
			t.Fatalf("re-parse error in printed output %q: %v", sb.String(), err)
		}
		if prog.String() != reparsed.String() {
			t.Errorf("round trip changed the tree\n source: %s\nprinted: %s\n before: %s\n  after: %s",
				source, sb.String(), prog, reparsed)
		}
	}
}
