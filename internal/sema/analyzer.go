// Package sema performs semantic analysis: name resolution, type checking,
// and annotation of the syntax tree with resolved symbols and types. Unlike
// the earlier stages it does not stop at the first problem; it walks the
// whole program, collects every error it finds, and reports them sorted by
// source position.
package sema

import (
	"math"

	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/types"
)

// Builtin runtime functions available to every program without declaration.
// output prints an integer, input reads one. The code generator lowers calls
// to them into calls to the runtime's external symbols.
var builtins = []struct {
	name string
	typ  *types.Func
}{
	{"output", &types.Func{Params: []types.Type{types.Int}, Return: types.Void}},
	{"input", &types.Func{Params: nil, Return: types.Int}},
}

type Analyzer struct {
	arena     []*ast.Symbol
	scopes    *scopeStack
	errors    []diag.Diagnostic
	current   *ast.FuncDecl
	loopDepth int
	hasReturn bool
}

func NewAnalyzer() *Analyzer {
	a := &Analyzer{}
	a.scopes = newScopeStack(&a.arena)
	return a
}

// Analyze resolves and type-checks prog, annotating its nodes in place.
// On success it returns the symbol arena; otherwise all collected errors,
// ordered by source position.
func (a *Analyzer) Analyze(prog *ast.Program) ([]*ast.Symbol, []diag.Diagnostic) {
	a.scopes.startScope() // file scope

	for _, b := range builtins {
		a.scopes.declare(b.name, b.typ, ast.StorageFunc)
	}

	// First pass: hoist globals and function signatures so that bodies can
	// reference anything declared anywhere in the file.
	for _, g := range prog.Globals {
		a.declareGlobal(g)
	}
	for _, fn := range prog.Functions {
		a.declareFunction(fn)
	}

	for _, fn := range prog.Functions {
		a.checkFunction(fn)
	}

	a.scopes.endScope()

	if len(a.errors) > 0 {
		diag.SortByPosition(a.errors)
		return nil, a.errors
	}
	return a.arena, nil
}

func (a *Analyzer) errorf(kind string, pos ast.Position, format string, args ...any) {
	a.errors = append(a.errors, diag.New(diag.StageSemantic, kind, pos.Line, pos.Col, format, args...))
}

func (a *Analyzer) declareGlobal(g *ast.VarDecl) {
	if !a.checkVarType(g.Type, g.Pos) {
		return
	}
	sym := a.scopes.declare(g.Name, g.Type, ast.StorageGlobal)
	if sym == nil {
		a.errorf(diag.KindRedeclared, g.Pos, "%q is already declared", g.Name)
		return
	}
	g.Sym = sym
}

func (a *Analyzer) declareFunction(fn *ast.FuncDecl) {
	params := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = types.Decay(p.Type)
	}
	ft := &types.Func{Params: params, Return: fn.ReturnType}

	sym := a.scopes.declare(fn.Name, ft, ast.StorageFunc)
	if sym == nil {
		a.errorf(diag.KindRedeclared, fn.Pos, "%q is already declared", fn.Name)
		return
	}
	fn.Sym = sym
}

// checkVarType rejects variable types that have no storage representation:
// void scalars, void arrays, arrays of non-positive or out-of-range length.
func (a *Analyzer) checkVarType(t types.Type, pos ast.Position) bool {
	switch v := t.(type) {
	case *types.Basic:
		if v.Equal(types.Void) {
			a.errorf(diag.KindVoidMisuse, pos, "variable cannot have type void")
			return false
		}
	case *types.Array:
		if v.Len <= 0 {
			a.errorf(diag.KindTypeMismatch, pos, "array length must be positive, got %d", v.Len)
			return false
		}
		// Length literals bypass checkLiteral, so the 32-bit width is
		// enforced here as well.
		if v.Len > math.MaxInt32 {
			a.errorf(diag.KindLiteralOverflow, pos,
				"array length %d does not fit in a 32-bit integer", v.Len)
			return false
		}
		return a.checkVarType(v.Elem, pos)
	}
	return true
}

func (a *Analyzer) checkFunction(fn *ast.FuncDecl) {
	a.current = fn
	a.hasReturn = false
	a.loopDepth = 0
	a.scopes.startFunction()

	a.scopes.startScope()
	for i := range fn.Params {
		p := &fn.Params[i]
		t := types.Decay(p.Type)
		if types.Void.Equal(t) {
			a.errorf(diag.KindVoidMisuse, p.Pos, "parameter %q cannot have type void", p.Name)
			continue
		}
		sym := a.scopes.declare(p.Name, t, ast.StorageParam)
		if sym == nil {
			a.errorf(diag.KindRedeclared, p.Pos, "duplicate parameter %q", p.Name)
			continue
		}
		p.Sym = sym
	}

	a.checkBlockBody(fn.Body)
	a.scopes.endScope()

	if !types.Void.Equal(fn.ReturnType) && !a.hasReturn {
		a.errorf(diag.KindTypeMismatch, fn.Pos,
			"function %q returns %s but has no return statement", fn.Name, fn.ReturnType)
	}
}

// checkBlockBody checks statements in the current scope; the caller manages
// the scope so that function parameters share the body's frame only where
// C says they do not (they don't: the body opens its own).
func (a *Analyzer) checkBlockBody(b *ast.Block) {
	a.scopes.startScope()
	for _, stmt := range b.Stmts {
		a.checkStatement(stmt)
	}
	a.scopes.endScope()
}

func (a *Analyzer) checkStatement(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Block:
		a.checkBlockBody(s)
	case *ast.VarDecl:
		a.checkVarDecl(s)
	case *ast.If:
		a.checkCondition(s.Cond)
		a.checkStatement(s.Then)
		if s.Else != nil {
			a.checkStatement(s.Else)
		}
	case *ast.While:
		a.checkCondition(s.Cond)
		a.loopDepth++
		a.checkStatement(s.Body)
		a.loopDepth--
	case *ast.For:
		// The init declaration scopes over the whole loop.
		a.scopes.startScope()
		if s.Init != nil {
			a.checkStatement(s.Init)
		}
		if s.Cond != nil {
			a.checkCondition(s.Cond)
		}
		if s.Post != nil {
			a.checkExpression(s.Post)
		}
		a.loopDepth++
		a.checkStatement(s.Body)
		a.loopDepth--
		a.scopes.endScope()
	case *ast.Return:
		a.checkReturn(s)
	case *ast.Break:
		if a.loopDepth == 0 {
			a.errorf(diag.KindBadControl, s.Pos, "break outside of a loop")
		}
	case *ast.Continue:
		if a.loopDepth == 0 {
			a.errorf(diag.KindBadControl, s.Pos, "continue outside of a loop")
		}
	case *ast.ExprStmt:
		a.checkExpression(s.X)
	default:
		panic("internal error: unknown statement type in semantic analysis")
	}
}

func (a *Analyzer) checkVarDecl(d *ast.VarDecl) {
	if !a.checkVarType(d.Type, d.Pos) {
		return
	}
	sym := a.scopes.declare(d.Name, d.Type, ast.StorageLocal)
	if sym == nil {
		a.errorf(diag.KindRedeclared, d.Pos, "%q is already declared in this scope", d.Name)
		return
	}
	d.Sym = sym
}

// checkCondition checks a control-flow condition; any numeric or pointer
// value works as a truth value.
func (a *Analyzer) checkCondition(cond ast.Expr) {
	t := a.checkExpression(cond)
	if t == nil {
		return
	}
	if !types.IsNumeric(t) && !types.IsPointer(t) {
		a.errorf(diag.KindTypeMismatch, cond.GetPos(), "condition has type %s, want a scalar", t)
	}
}

func (a *Analyzer) checkReturn(s *ast.Return) {
	a.hasReturn = true
	want := a.current.ReturnType

	if s.Value == nil {
		if !types.Void.Equal(want) {
			a.errorf(diag.KindTypeMismatch, s.Pos,
				"function %q must return a value of type %s", a.current.Name, want)
		}
		return
	}

	got := a.checkExpression(s.Value)
	if got == nil {
		return
	}
	if types.Void.Equal(want) {
		a.errorf(diag.KindTypeMismatch, s.Pos,
			"function %q returns void, cannot return a value", a.current.Name)
		return
	}
	if !assignable(want, got) {
		a.errorf(diag.KindTypeMismatch, s.Pos,
			"cannot return %s from function returning %s", got, want)
	}
}

// assignable reports whether a value of type `from` can be stored into a
// location of type `to`. Numeric types convert freely; pointers must match
// structurally after array decay.
func assignable(to, from types.Type) bool {
	from = types.Decay(from)
	if types.IsNumeric(to) && types.IsNumeric(from) {
		return true
	}
	return to.Equal(from)
}

// checkExpression type-checks an expression, annotates it, and returns its
// type. A nil result means the expression was erroneous; the error has
// already been recorded and callers must not cascade.
func (a *Analyzer) checkExpression(expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.Literal:
		return a.checkLiteral(e)
	case *ast.Ident:
		return a.checkIdent(e)
	case *ast.Binary:
		return a.checkBinary(e)
	case *ast.Unary:
		return a.checkUnary(e)
	case *ast.Call:
		return a.checkCall(e)
	case *ast.Index:
		return a.checkIndex(e)
	case *ast.Assign:
		return a.checkAssign(e)
	default:
		panic("internal error: unknown expression type in semantic analysis")
	}
}

func (a *Analyzer) checkLiteral(e *ast.Literal) types.Type {
	if e.IsChar {
		e.Type = types.Char
		return e.Type
	}
	// The lexer accepts any digit run; the 32-bit target width is enforced
	// here so that the error carries a semantic position.
	if e.Value > math.MaxInt32 {
		a.errorf(diag.KindLiteralOverflow, e.Pos,
			"constant %d does not fit in a 32-bit integer", e.Value)
		return nil
	}
	e.Type = types.Int
	return e.Type
}

func (a *Analyzer) checkIdent(e *ast.Ident) types.Type {
	sym := a.scopes.lookup(e.Name)
	if sym == nil {
		a.errorf(diag.KindUndeclared, e.Pos, "undeclared identifier %q", e.Name)
		return nil
	}
	if sym.Storage == ast.StorageFunc {
		a.errorf(diag.KindNotCallable, e.Pos, "function %q used as a value", e.Name)
		return nil
	}
	e.Sym = sym
	e.Type = sym.Type
	return e.Type
}

func (a *Analyzer) checkBinary(e *ast.Binary) types.Type {
	left := a.checkExpression(e.Left)
	right := a.checkExpression(e.Right)
	if left == nil || right == nil {
		return nil
	}
	left = types.Decay(left)
	right = types.Decay(right)

	switch e.Op {
	case "+", "-":
		// Pointer arithmetic: pointer +/- integer offset.
		if types.IsPointer(left) && types.IsNumeric(right) {
			e.Type = left
			return e.Type
		}
		if e.Op == "+" && types.IsNumeric(left) && types.IsPointer(right) {
			e.Type = right
			return e.Type
		}
		fallthrough
	case "*", "/", "%":
		if !types.IsNumeric(left) || !types.IsNumeric(right) {
			a.errorf(diag.KindTypeMismatch, e.Pos,
				"operator %q needs numeric operands, got %s and %s", e.Op, left, right)
			return nil
		}
		e.Type = types.Wider(left, right)
		return e.Type
	case "==", "!=", "<", ">", "<=", ">=":
		bothNumeric := types.IsNumeric(left) && types.IsNumeric(right)
		bothPointer := types.IsPointer(left) && left.Equal(right)
		if !bothNumeric && !bothPointer {
			a.errorf(diag.KindTypeMismatch, e.Pos,
				"cannot compare %s with %s", left, right)
			return nil
		}
		e.Type = types.Int
		return e.Type
	case "&&", "||":
		if !scalar(left) || !scalar(right) {
			a.errorf(diag.KindTypeMismatch, e.Pos,
				"operator %q needs scalar operands, got %s and %s", e.Op, left, right)
			return nil
		}
		e.Type = types.Int
		return e.Type
	default:
		panic("internal error: unknown binary operator " + e.Op)
	}
}

func scalar(t types.Type) bool {
	return types.IsNumeric(t) || types.IsPointer(t)
}

func (a *Analyzer) checkUnary(e *ast.Unary) types.Type {
	t := a.checkExpression(e.Operand)
	if t == nil {
		return nil
	}

	switch e.Op {
	case "-":
		if !types.IsNumeric(t) {
			a.errorf(diag.KindTypeMismatch, e.Pos, "cannot negate %s", t)
			return nil
		}
		e.Type = types.Int
	case "!":
		if !scalar(types.Decay(t)) {
			a.errorf(diag.KindTypeMismatch, e.Pos, "cannot apply %q to %s", e.Op, t)
			return nil
		}
		e.Type = types.Int
	case "&":
		if !isLvalue(e.Operand) {
			a.errorf(diag.KindTypeMismatch, e.Pos, "cannot take the address of this expression")
			return nil
		}
		e.Type = types.NewPointer(t)
	case "*":
		dt := types.Decay(t)
		ptr, ok := dt.(*types.Pointer)
		if !ok {
			a.errorf(diag.KindTypeMismatch, e.Pos, "cannot dereference %s", t)
			return nil
		}
		if types.Void.Equal(ptr.Elem) {
			a.errorf(diag.KindVoidMisuse, e.Pos, "cannot dereference a void pointer")
			return nil
		}
		e.Type = ptr.Elem
	default:
		panic("internal error: unknown unary operator " + e.Op)
	}
	return e.Type
}

func (a *Analyzer) checkCall(e *ast.Call) types.Type {
	sym := a.scopes.lookup(e.Name)
	if sym == nil {
		a.errorf(diag.KindUndeclared, e.Pos, "undeclared function %q", e.Name)
		// Still check the arguments for errors of their own.
		for _, arg := range e.Args {
			a.checkExpression(arg)
		}
		return nil
	}

	ft, ok := sym.Type.(*types.Func)
	if !ok {
		a.errorf(diag.KindNotCallable, e.Pos, "%q is not a function", e.Name)
		return nil
	}

	if len(e.Args) != len(ft.Params) {
		a.errorf(diag.KindArityMismatch, e.Pos,
			"%q takes %d arguments, got %d", e.Name, len(ft.Params), len(e.Args))
		for _, arg := range e.Args {
			a.checkExpression(arg)
		}
		return nil
	}

	for i, arg := range e.Args {
		got := a.checkExpression(arg)
		if got == nil {
			continue
		}
		if !assignable(ft.Params[i], got) {
			a.errorf(diag.KindTypeMismatch, arg.GetPos(),
				"argument %d of %q has type %s, want %s", i+1, e.Name, got, ft.Params[i])
		}
	}

	e.Sym = sym
	e.Type = ft.Return
	return e.Type
}

func (a *Analyzer) checkIndex(e *ast.Index) types.Type {
	base := a.checkExpression(e.Array)
	idx := a.checkExpression(e.Idx)
	if base == nil || idx == nil {
		return nil
	}

	ptr, ok := types.Decay(base).(*types.Pointer)
	if !ok {
		a.errorf(diag.KindTypeMismatch, e.Pos, "cannot index %s", base)
		return nil
	}
	if !types.IsNumeric(idx) {
		a.errorf(diag.KindTypeMismatch, e.Idx.GetPos(), "array index has type %s, want int", idx)
		return nil
	}

	e.Type = ptr.Elem
	return e.Type
}

func (a *Analyzer) checkAssign(e *ast.Assign) types.Type {
	target := a.checkExpression(e.Target)
	value := a.checkExpression(e.Value)
	if target == nil || value == nil {
		return nil
	}

	if !isLvalue(e.Target) {
		a.errorf(diag.KindTypeMismatch, e.Pos, "left side of assignment is not assignable")
		return nil
	}
	if types.IsArray(target) {
		a.errorf(diag.KindTypeMismatch, e.Pos, "cannot assign to an array")
		return nil
	}
	if !assignable(target, value) {
		a.errorf(diag.KindTypeMismatch, e.Pos, "cannot assign %s to %s", value, target)
		return nil
	}

	e.Type = target
	return e.Type
}

// isLvalue reports whether an expression designates a storage location:
// a variable, an array element, or a pointer dereference.
func isLvalue(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		return true
	case *ast.Index:
		return true
	case *ast.Unary:
		return e.Op == "*"
	default:
		return false
	}
}
