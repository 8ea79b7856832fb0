package ir

import (
	"fmt"

	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/types"
)

// Build lowers an analyzed program. It never fails on well-typed input;
// a missing annotation or an unknown node is a defect in the analyzer and
// panics with an "internal error:" message.
func Build(prog *ast.Program) *Program {
	out := &Program{}

	for _, g := range prog.Globals {
		out.Globals = append(out.Globals, Global{
			Name: g.Sym.Name,
			Size: align4(g.Sym.Type.Size()),
		})
	}

	for _, fn := range prog.Functions {
		out.Funcs = append(out.Funcs, buildFunc(fn))
	}
	return out
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// loopLabels are the jump targets of break and continue inside one loop.
type loopLabels struct {
	breakTo    string
	continueTo string
}

type builder struct {
	fn        *Func
	cur       *Block
	nextReg   int
	nextLabel int
	loops     []loopLabels
}

func buildFunc(fn *ast.FuncDecl) *Func {
	b := &builder{fn: &Func{Name: fn.Name}}

	for _, p := range fn.Params {
		if p.Sym == nil {
			panic("internal error: parameter without symbol: " + p.Name)
		}
		// Scalar parameters occupy a full word regardless of type.
		b.fn.Params = append(b.fn.Params, &Slot{Name: p.Sym.UniqueName, Size: types.WordSize})
	}

	b.startBlock("entry")
	b.lowerBlockBody(fn.Body)

	// A body may fall off the end; void functions always can, and the
	// analyzer only guarantees at least one return elsewhere.
	b.terminate(Return{Src: NoReg})

	b.fn.NumRegs = b.nextReg
	return b.fn
}

func (b *builder) newReg() Reg {
	r := Reg(b.nextReg)
	b.nextReg++
	return r
}

func (b *builder) newLabel(hint string) string {
	b.nextLabel++
	return fmt.Sprintf("%s_%d", hint, b.nextLabel)
}

func (b *builder) startBlock(label string) {
	block := &Block{Label: label}
	b.fn.Blocks = append(b.fn.Blocks, block)
	b.cur = block
}

func (b *builder) emit(instr Instr) {
	if b.cur.Term != nil {
		panic("internal error: emitting into a terminated block")
	}
	b.cur.Instrs = append(b.cur.Instrs, instr)
}

// terminate seals the current block. A block that is already sealed stays
// as it is; this happens after return/break/continue when control cannot
// fall through.
func (b *builder) terminate(t Terminator) {
	if b.cur.Term == nil {
		b.cur.Term = t
	}
}

func symRef(sym *ast.Symbol) Ref {
	if sym == nil {
		panic("internal error: unresolved symbol in lowering")
	}
	return Ref{Name: sym.UniqueName, Global: sym.Storage == ast.StorageGlobal}
}

// ---------------------------------------------------------------------------
// Statements

func (b *builder) lowerBlockBody(block *ast.Block) {
	for _, stmt := range block.Stmts {
		b.lowerStmt(stmt)
	}
}

func (b *builder) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Block:
		b.lowerBlockBody(s)
	case *ast.VarDecl:
		b.fn.Locals = append(b.fn.Locals, &Slot{
			Name: s.Sym.UniqueName,
			Size: slotSize(s.Sym.Type),
		})
	case *ast.If:
		b.lowerIf(s)
	case *ast.While:
		b.lowerWhile(s)
	case *ast.For:
		b.lowerFor(s)
	case *ast.Return:
		src := NoReg
		if s.Value != nil {
			src = b.lowerExpr(s.Value)
		}
		b.terminate(Return{Src: src})
		b.startBlock(b.newLabel("after_ret"))
	case *ast.Break:
		b.terminate(Branch{Target: b.loops[len(b.loops)-1].breakTo})
		b.startBlock(b.newLabel("after_break"))
	case *ast.Continue:
		b.terminate(Branch{Target: b.loops[len(b.loops)-1].continueTo})
		b.startBlock(b.newLabel("after_continue"))
	case *ast.ExprStmt:
		b.lowerExpr(s.X)
	default:
		panic(fmt.Sprintf("internal error: unknown statement type %T in lowering", stmt))
	}
}

// slotSize gives the stack footprint of a variable. Scalars get a full
// word; arrays get their storage rounded up to word alignment.
func slotSize(t types.Type) int {
	if types.IsArray(t) {
		return align4(t.Size())
	}
	return types.WordSize
}

func (b *builder) lowerIf(s *ast.If) {
	thenL := b.newLabel("then")
	joinL := b.newLabel("endif")
	elseL := joinL
	if s.Else != nil {
		elseL = b.newLabel("else")
	}

	cond := b.lowerExpr(s.Cond)
	b.terminate(BranchIf{Cond: cond, Then: thenL, Else: elseL})

	b.startBlock(thenL)
	b.lowerStmt(s.Then)
	b.terminate(Branch{Target: joinL})

	if s.Else != nil {
		b.startBlock(elseL)
		b.lowerStmt(s.Else)
		b.terminate(Branch{Target: joinL})
	}

	b.startBlock(joinL)
}

func (b *builder) lowerWhile(s *ast.While) {
	headL := b.newLabel("while_head")
	bodyL := b.newLabel("while_body")
	exitL := b.newLabel("while_end")

	b.terminate(Branch{Target: headL})
	b.startBlock(headL)
	cond := b.lowerExpr(s.Cond)
	b.terminate(BranchIf{Cond: cond, Then: bodyL, Else: exitL})

	b.loops = append(b.loops, loopLabels{breakTo: exitL, continueTo: headL})
	b.startBlock(bodyL)
	b.lowerStmt(s.Body)
	b.terminate(Branch{Target: headL})
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(exitL)
}

func (b *builder) lowerFor(s *ast.For) {
	headL := b.newLabel("for_head")
	bodyL := b.newLabel("for_body")
	postL := b.newLabel("for_post")
	exitL := b.newLabel("for_end")

	if s.Init != nil {
		b.lowerStmt(s.Init)
	}

	b.terminate(Branch{Target: headL})
	b.startBlock(headL)
	if s.Cond != nil {
		cond := b.lowerExpr(s.Cond)
		b.terminate(BranchIf{Cond: cond, Then: bodyL, Else: exitL})
	} else {
		b.terminate(Branch{Target: bodyL})
	}

	// continue jumps to the post clause, not the condition.
	b.loops = append(b.loops, loopLabels{breakTo: exitL, continueTo: postL})
	b.startBlock(bodyL)
	b.lowerStmt(s.Body)
	b.terminate(Branch{Target: postL})
	b.loops = b.loops[:len(b.loops)-1]

	b.startBlock(postL)
	if s.Post != nil {
		b.lowerExpr(s.Post)
	}
	b.terminate(Branch{Target: headL})

	b.startBlock(exitL)
}

// ---------------------------------------------------------------------------
// Expressions

// lowerExpr emits the instructions computing an expression and returns the
// register holding its value. A void call returns NoReg; the analyzer
// guarantees such a value is never consumed.
func (b *builder) lowerExpr(expr ast.Expr) Reg {
	switch e := expr.(type) {
	case *ast.Literal:
		dst := b.newReg()
		b.emit(LoadConst{Dst: dst, Value: e.Value})
		return dst
	case *ast.Ident:
		dst := b.newReg()
		if types.IsArray(e.Sym.Type) {
			b.emit(AddrOf{Dst: dst, Src: symRef(e.Sym)})
		} else {
			b.emit(Load{Dst: dst, Src: symRef(e.Sym), Size: types.WordSize})
		}
		return dst
	case *ast.Binary:
		return b.lowerBinary(e)
	case *ast.Unary:
		return b.lowerUnary(e)
	case *ast.Call:
		return b.lowerCall(e)
	case *ast.Index:
		addr := b.lowerIndexAddr(e)
		dst := b.newReg()
		b.emit(LoadInd{Dst: dst, Addr: addr, Size: accessSize(e.Type)})
		return dst
	case *ast.Assign:
		return b.lowerAssign(e)
	default:
		panic(fmt.Sprintf("internal error: unknown expression type %T in lowering", expr))
	}
}

// accessSize is the width of an indirect memory access: bytes for char,
// a word for everything else.
func accessSize(t types.Type) int {
	if types.Char.Equal(t) {
		return types.CharSize
	}
	return types.WordSize
}

func (b *builder) lowerBinary(e *ast.Binary) Reg {
	if e.Op == "&&" || e.Op == "||" {
		return b.lowerShortCircuit(e)
	}

	left := b.lowerExpr(e.Left)
	right := b.lowerExpr(e.Right)

	// Pointer arithmetic scales the integer operand by the element size.
	if e.Op == "+" || e.Op == "-" {
		lt := types.Decay(e.Left.GetType())
		rt := types.Decay(e.Right.GetType())
		if ptr, ok := lt.(*types.Pointer); ok && types.IsNumeric(rt) {
			right = b.scaleBy(right, ptr.Elem.Size())
		} else if ptr, ok := rt.(*types.Pointer); ok && types.IsNumeric(lt) {
			left = b.scaleBy(left, ptr.Elem.Size())
		}
	}

	dst := b.newReg()
	b.emit(BinOp{Dst: dst, Op: e.Op, Left: left, Right: right})
	return dst
}

// scaleBy multiplies a register by a compile-time element size. Size 1
// needs no code.
func (b *builder) scaleBy(r Reg, size int) Reg {
	if size == 1 {
		return r
	}
	c := b.newReg()
	b.emit(LoadConst{Dst: c, Value: int64(size)})
	dst := b.newReg()
	b.emit(BinOp{Dst: dst, Op: "*", Left: r, Right: c})
	return dst
}

// lowerShortCircuit lowers && and || with branches; the right operand must
// not be evaluated when the left one decides the result.
func (b *builder) lowerShortCircuit(e *ast.Binary) Reg {
	rightL := b.newLabel("sc_right")
	shortL := b.newLabel("sc_short")
	joinL := b.newLabel("sc_end")

	result := b.newReg()

	left := b.lowerExpr(e.Left)
	if e.Op == "&&" {
		b.terminate(BranchIf{Cond: left, Then: rightL, Else: shortL})
	} else {
		b.terminate(BranchIf{Cond: left, Then: shortL, Else: rightL})
	}

	// Short-circuit path: the result is decided by the left operand.
	b.startBlock(shortL)
	shortValue := int64(0)
	if e.Op == "||" {
		shortValue = 1
	}
	b.emit(LoadConst{Dst: result, Value: shortValue})
	b.terminate(Branch{Target: joinL})

	// Full path: normalize the right operand to 0 or 1.
	b.startBlock(rightL)
	right := b.lowerExpr(e.Right)
	zero := b.newReg()
	b.emit(LoadConst{Dst: zero, Value: 0})
	b.emit(BinOp{Dst: result, Op: "!=", Left: right, Right: zero})
	b.terminate(Branch{Target: joinL})

	b.startBlock(joinL)
	return result
}

func (b *builder) lowerUnary(e *ast.Unary) Reg {
	switch e.Op {
	case "-", "!":
		src := b.lowerExpr(e.Operand)
		dst := b.newReg()
		b.emit(UnOp{Dst: dst, Op: e.Op, Src: src})
		return dst
	case "&":
		return b.lowerAddr(e.Operand)
	case "*":
		addr := b.lowerExpr(e.Operand)
		dst := b.newReg()
		b.emit(LoadInd{Dst: dst, Addr: addr, Size: accessSize(e.Type)})
		return dst
	default:
		panic("internal error: unknown unary operator " + e.Op)
	}
}

// lowerAddr computes the address of an lvalue.
func (b *builder) lowerAddr(expr ast.Expr) Reg {
	switch e := expr.(type) {
	case *ast.Ident:
		dst := b.newReg()
		b.emit(AddrOf{Dst: dst, Src: symRef(e.Sym)})
		return dst
	case *ast.Index:
		return b.lowerIndexAddr(e)
	case *ast.Unary:
		if e.Op == "*" {
			return b.lowerExpr(e.Operand)
		}
	}
	panic(fmt.Sprintf("internal error: taking the address of a non-lvalue %T", expr))
}

// lowerIndexAddr computes &base[idx]: the decayed base plus the scaled
// index.
func (b *builder) lowerIndexAddr(e *ast.Index) Reg {
	base := b.lowerExpr(e.Array)
	idx := b.lowerExpr(e.Idx)
	idx = b.scaleBy(idx, accessSize(e.Type))

	dst := b.newReg()
	b.emit(BinOp{Dst: dst, Op: "+", Left: base, Right: idx})
	return dst
}

func (b *builder) lowerAssign(e *ast.Assign) Reg {
	value := b.lowerExpr(e.Value)

	switch target := e.Target.(type) {
	case *ast.Ident:
		b.emit(Store{Dst: symRef(target.Sym), Src: value, Size: types.WordSize})
	case *ast.Index:
		addr := b.lowerIndexAddr(target)
		b.emit(StoreInd{Addr: addr, Src: value, Size: accessSize(target.Type)})
	case *ast.Unary:
		if target.Op != "*" {
			panic("internal error: assignment to non-lvalue unary " + target.Op)
		}
		addr := b.lowerExpr(target.Operand)
		b.emit(StoreInd{Addr: addr, Src: value, Size: accessSize(target.Type)})
	default:
		panic(fmt.Sprintf("internal error: assignment to non-lvalue %T", e.Target))
	}
	return value
}

func (b *builder) lowerCall(e *ast.Call) Reg {
	args := make([]Reg, len(e.Args))
	for i, arg := range e.Args {
		args[i] = b.lowerExpr(arg)
	}
	for i, r := range args {
		b.emit(Param{Index: i, Src: r})
	}

	dst := NoReg
	ft := e.Sym.Type.(*types.Func)
	if !types.Void.Equal(ft.Return) {
		dst = b.newReg()
	}
	b.emit(Call{Dst: dst, Callee: e.Name, NumArgs: len(e.Args)})
	return dst
}
