package carmc

import (
	"strings"
	"sync"
	"testing"

	"github.com/carmc/carmc/internal/diag"
)

func TestCompile_AddFunction(t *testing.T) {
	result := Compile("int add(int a, int b) { return a + b; }")
	if !result.Success {
		t.Fatalf("compilation failed: %v", result.Diagnostics)
	}
	if !strings.Contains(result.Assembly, "add ") {
		t.Errorf("no add instruction in output:\n%s", result.Assembly)
	}
	// The return path restores the saved link register into pc.
	if !strings.Contains(result.Assembly, "pc}") {
		t.Errorf("no lr-restoring return in output:\n%s", result.Assembly)
	}
}

func TestCompile_UndeclaredVariable(t *testing.T) {
	source := "int main(void) {\n  return x;\n}\n"
	result := Compile(source)
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", result.Diagnostics)
	}
	d := result.Diagnostics[0]
	if d.Stage != diag.StageSemantic || d.Kind != diag.KindUndeclared {
		t.Errorf("wrong diagnostic: %v", d)
	}
	if d.Line != 2 || d.Col != 10 {
		t.Errorf("wrong position %d:%d, x is at 2:10", d.Line, d.Col)
	}
	if !strings.Contains(d.Message, "x") {
		t.Errorf("message should name the identifier: %q", d.Message)
	}
}

func TestCompile_MissingBraceIsSingleError(t *testing.T) {
	result := Compile("int main(void) { return 0;")
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("syntax errors must not cascade, got %d: %v",
			len(result.Diagnostics), result.Diagnostics)
	}
	if result.Diagnostics[0].Stage != diag.StageSyntax {
		t.Errorf("wrong stage: %v", result.Diagnostics[0])
	}
}

// More live values than registers must compile with spill code, never fail
// with register exhaustion.
func TestCompile_RegisterPressureSpills(t *testing.T) {
	source := `int f(int a) {
  return (a + 1) + ((a + 2) + ((a + 3) + ((a + 4) + ((a + 5)
       + ((a + 6) + ((a + 7) + ((a + 8) + ((a + 9) + ((a + 10)
       + ((a + 11) + (a + 12)))))))))));
}`
	result := Compile(source)
	if !result.Success {
		t.Fatalf("high register pressure must spill, not fail: %v", result.Diagnostics)
	}
	if !strings.Contains(result.Assembly, "str ip, [fp, #-") {
		t.Errorf("expected spill stores in:\n%s", result.Assembly)
	}
}

func TestCompile_AllSemanticErrorsReported(t *testing.T) {
	source := `int main(void) {
  a = 1;
  int x;
  int x;
  return b;
}`
	result := Compile(source)
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Diagnostics) != 3 {
		t.Fatalf("expected 3 diagnostics, got %v", result.Diagnostics)
	}
	for i := 1; i < len(result.Diagnostics); i++ {
		if result.Diagnostics[i].Line < result.Diagnostics[i-1].Line {
			t.Errorf("diagnostics out of order: %v", result.Diagnostics)
		}
	}
}

func TestCompile_LexErrorStopsPipeline(t *testing.T) {
	result := Compile("int main(void) { return 'a; }")
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Stage != diag.StageLex {
		t.Errorf("expected a single lex diagnostic, got %v", result.Diagnostics)
	}
}

func TestResult_FirstError(t *testing.T) {
	ok := Compile("int main(void) { return 0; }")
	if got := ok.FirstError(); got != "" {
		t.Errorf("FirstError on success = %q, want empty", got)
	}

	bad := Compile("int main(void) { return x; }")
	if got := bad.FirstError(); !strings.Contains(got, "undeclared") {
		t.Errorf("FirstError = %q, want the undeclared-identifier diagnostic", got)
	}
}

func TestCompile_ArrayLengthOverflowRejected(t *testing.T) {
	result := Compile("int main(void) { int a[4294967296]; return 0; }")
	if result.Success {
		t.Fatal("expected failure, got assembly:\n" + result.Assembly)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Kind != diag.KindLiteralOverflow {
		t.Errorf("expected a literal overflow diagnostic, got %v", result.Diagnostics)
	}
}

func TestCompile_WholeProgram(t *testing.T) {
	source := `
int primes[100];

int is_prime(int n) {
  int i;
  if (n < 2) return 0;
  for (i = 2; i * i <= n; i = i + 1) {
    if (n % i == 0) return 0;
  }
  return 1;
}

int main(void) {
  int count;
  int n;
  count = 0;
  n = 2;
  while (count < 100) {
    if (is_prime(n)) {
      primes[count] = n;
      count = count + 1;
    }
    n = n + 1;
  }
  output(primes[99]);
  return 0;
}`
	result := Compile(source)
	if !result.Success {
		t.Fatalf("compilation failed: %v", result.Diagnostics)
	}
	for _, want := range []string{
		".global is_prime",
		".global main",
		"bl is_prime",
		"bl output",
		".comm primes, 400, 4",
	} {
		if !strings.Contains(result.Assembly, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

// Compile keeps no shared state; concurrent calls must not interfere.
func TestCompile_Concurrent(t *testing.T) {
	sources := []string{
		"int f(void) { return 1; }",
		"int g(int x) { return x * 2; }",
		"int main(void) { return broken",
		"int h(void) { return undefined_name; }",
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		source := sources[i%len(sources)]
		shouldSucceed := i%len(sources) < 2
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				result := Compile(source)
				if result.Success != shouldSucceed {
					t.Errorf("Compile(%q).Success = %v, want %v",
						source, result.Success, shouldSucceed)
				}
			}
		}()
	}
	wg.Wait()
}
