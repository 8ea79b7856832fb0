package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/carmc/carmc/internal/types"
)

// Printer writes a program back out as C source. Printing a parsed program
// and re-parsing the result yields a structurally identical tree; the root
// package's tests rely on that round trip.
type Printer struct {
	output      io.Writer
	indentLevel int
}

func NewPrinter(output io.Writer) *Printer {
	return &Printer{output: output}
}

// Print formats prog as C source.
func Print(w io.Writer, prog *Program) {
	NewPrinter(w).PrintProgram(prog)
}

func (p *Printer) write(s string) {
	fmt.Fprint(p.output, s)
}

func (p *Printer) writeln(s string) {
	p.write(s)
	p.write("\n")
}

func (p *Printer) writeIndent() {
	p.write(strings.Repeat("  ", p.indentLevel))
}

func (p *Printer) PrintProgram(prog *Program) {
	for _, g := range prog.Globals {
		p.writeln(declString(g.Type, g.Name) + ";")
	}
	for i, fn := range prog.Functions {
		if i > 0 || len(prog.Globals) > 0 {
			p.writeln("")
		}
		p.printFunction(fn)
	}
}

func (p *Printer) printFunction(fn *FuncDecl) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = declString(param.Type, param.Name)
	}
	paramList := strings.Join(params, ", ")
	if len(params) == 0 {
		paramList = "void"
	}
	p.writeln(fmt.Sprintf("%s %s(%s) {", fn.ReturnType, fn.Name, paramList))
	p.indentLevel++
	p.printBlockBody(fn.Body)
	p.indentLevel--
	p.writeln("}")
}

// declString renders a declaration, putting the array length after the
// name the way C does.
func declString(t types.Type, name string) string {
	if arr, ok := t.(*types.Array); ok {
		return fmt.Sprintf("%s %s[%d]", arr.Elem, name, arr.Len)
	}
	return fmt.Sprintf("%s %s", t, name)
}

func (p *Printer) printBlockBody(b *Block) {
	for _, stmt := range b.Stmts {
		p.printStmt(stmt)
	}
}

func (p *Printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *Block:
		p.writeIndent()
		p.writeln("{")
		p.indentLevel++
		p.printBlockBody(s)
		p.indentLevel--
		p.writeIndent()
		p.writeln("}")
	case *VarDecl:
		p.writeIndent()
		p.writeln(declString(s.Type, s.Name) + ";")
	case *If:
		p.writeIndent()
		p.write(fmt.Sprintf("if (%s) ", exprString(s.Cond)))
		p.printStmtInline(s.Then)
		if s.Else != nil {
			p.writeIndent()
			p.write("else ")
			p.printStmtInline(s.Else)
		}
	case *While:
		p.writeIndent()
		p.write(fmt.Sprintf("while (%s) ", exprString(s.Cond)))
		p.printStmtInline(s.Body)
	case *For:
		p.writeIndent()
		init := ""
		if s.Init != nil {
			switch i := s.Init.(type) {
			case *ExprStmt:
				init = exprString(i.X)
			case *VarDecl:
				init = declString(i.Type, i.Name)
			}
		}
		cond := ""
		if s.Cond != nil {
			cond = exprString(s.Cond)
		}
		post := ""
		if s.Post != nil {
			post = exprString(s.Post)
		}
		p.write(fmt.Sprintf("for (%s; %s; %s) ", init, cond, post))
		p.printStmtInline(s.Body)
	case *Return:
		p.writeIndent()
		if s.Value == nil {
			p.writeln("return;")
		} else {
			p.writeln(fmt.Sprintf("return %s;", exprString(s.Value)))
		}
	case *Break:
		p.writeIndent()
		p.writeln("break;")
	case *Continue:
		p.writeIndent()
		p.writeln("continue;")
	case *ExprStmt:
		p.writeIndent()
		p.writeln(exprString(s.X) + ";")
	default:
		panic(fmt.Sprintf("unknown statement type %T", stmt))
	}
}

// printStmtInline prints the body of an if/while/for header. Blocks share
// the header's line; any other statement goes on its own indented line.
func (p *Printer) printStmtInline(stmt Stmt) {
	if b, ok := stmt.(*Block); ok {
		p.writeln("{")
		p.indentLevel++
		p.printBlockBody(b)
		p.indentLevel--
		p.writeIndent()
		p.writeln("}")
		return
	}
	p.writeln("")
	p.indentLevel++
	p.printStmt(stmt)
	p.indentLevel--
}

// exprString renders an expression fully parenthesized, which keeps the
// print/re-parse round trip independent of precedence handling.
func exprString(expr Expr) string {
	switch e := expr.(type) {
	case *Literal:
		if e.IsChar {
			return charLexeme(e.Value)
		}
		return fmt.Sprintf("%d", e.Value)
	case *Ident:
		return e.Name
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", exprString(e.Left), e.Op, exprString(e.Right))
	case *Unary:
		return fmt.Sprintf("(%s%s)", e.Op, exprString(e.Operand))
	case *Call:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = exprString(arg)
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
	case *Index:
		return fmt.Sprintf("%s[%s]", exprString(e.Array), exprString(e.Idx))
	case *Assign:
		return fmt.Sprintf("(%s = %s)", exprString(e.Target), exprString(e.Value))
	default:
		panic(fmt.Sprintf("unknown expression type %T", expr))
	}
}

func charLexeme(value int64) string {
	switch value {
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case 0:
		return `'\0'`
	case '\\':
		return `'\\'`
	case '\'':
		return `'\''`
	default:
		return fmt.Sprintf("'%c'", rune(value))
	}
}
