// Package arm translates lowered programs into ARM32 assembly following
// the AAPCS: arguments in r0-r3 then on the stack, result in r0, fp=r11,
// ip=r12 and lr free as scratch between the prologue and the return.
package arm

import (
	"fmt"

	"github.com/carmc/carmc/internal/asm"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/ir"
	"github.com/carmc/carmc/internal/util"
)

// maxMemOffset is the ldr/str immediate offset limit.
const maxMemOffset = 4095

var condOf = map[string]string{
	"==": "eq",
	"!=": "ne",
	"<":  "lt",
	">":  "gt",
	"<=": "le",
	">=": "ge",
}

// Generate translates the whole program. It fails only for constructs
// outside the supported subset; register pressure spills instead.
func Generate(p *ir.Program) (asm.Program, *diag.Diagnostic) {
	var out asm.Program

	for _, g := range p.Globals {
		out.Globals = append(out.Globals, asm.GlobalVariable{Label: g.Name, Size: g.Size})
	}

	for _, fn := range p.Funcs {
		alloc := allocateRegisters(fn)
		g := &funcGen{
			fn:    fn,
			alloc: alloc,
			frame: newFrame(fn, alloc),
		}
		lines, err := g.generate()
		if err != nil {
			return asm.Program{}, err
		}
		out.Functions = append(out.Functions, asm.Function{Name: fn.Name, Lines: lines})
	}
	return out, nil
}

type funcGen struct {
	fn    *ir.Func
	alloc allocation
	frame *frame
	lines []asm.Line
	// params staged for the next call, in index order
	pending []ir.Param
	err     *diag.Diagnostic
}

func (g *funcGen) emit(line asm.Line) {
	g.lines = append(g.lines, line)
}

func (g *funcGen) errorf(kind, format string, args ...any) {
	if g.err == nil {
		d := diag.New(diag.StageCodegen, kind, 0, 0, format, args...)
		g.err = &d
	}
}

func (g *funcGen) label(irLabel string) string {
	return fmt.Sprintf(".L%s_%s", g.fn.Name, irLabel)
}

func (g *funcGen) generate() ([]asm.Line, *diag.Diagnostic) {
	g.prologue()

	for _, block := range g.fn.Blocks {
		g.emit(asm.Label(g.label(block.Label)))
		for _, instr := range block.Instrs {
			g.comment(instr.String(), func() { g.instr(instr) })
		}
		g.comment(block.Term.String(), func() { g.terminator(block.Term) })
	}

	return g.lines, g.err
}

// comment tags the first line produced by fn with the IR it came from.
func (g *funcGen) comment(text string, fn func()) {
	start := len(g.lines)
	fn()
	if len(g.lines) > start && g.lines[start].Comment == "" {
		g.lines[start].Comment = text
	}
}

func (g *funcGen) prologue() {
	g.emit(asm.Op1("push", asm.List(g.frame.pushList()...)))
	g.emit(asm.Op2("mov", asm.FP, asm.SP))
	if g.frame.size > 0 {
		g.subSP(g.frame.size)
	}

	// Spill incoming register arguments to their frame slots; stack
	// arguments are already addressable through fp.
	for i, p := range g.fn.Params {
		if i >= 4 {
			break
		}
		g.emitMem("str", fmt.Sprintf("r%d", i), g.frame.offsetOf(p.Name))
	}
}

func (g *funcGen) subSP(bytes int) {
	if util.EncodableImm(int64(bytes)) {
		g.emit(asm.Op3("sub", asm.SP, asm.SP, asm.Imm(bytes)))
		return
	}
	g.emit(asm.Op2("ldr", asm.IP, asm.LitImm(bytes)))
	g.emit(asm.Op3("sub", asm.SP, asm.SP, asm.IP))
}

// ---------------------------------------------------------------------------
// Register plumbing

// useReg returns a physical register holding vreg r, loading from the
// spill slot into scratch when needed.
func (g *funcGen) useReg(r ir.Reg, scratch string) string {
	if phys, ok := g.alloc.regOf[r]; ok {
		return phys
	}
	slot, ok := g.alloc.spillOf[r]
	if !ok {
		panic(fmt.Sprintf("internal error: use of unallocated register %s", r))
	}
	g.emitMem("ldr", scratch, g.frame.spillOffsets[slot])
	return scratch
}

// dstReg picks the register an instruction should compute its result in.
// Spilled and dead destinations compute into ip; finishDst stores or
// discards afterwards.
func (g *funcGen) dstReg(r ir.Reg) string {
	if phys, ok := g.alloc.regOf[r]; ok {
		return phys
	}
	return "ip"
}

func (g *funcGen) finishDst(r ir.Reg, phys string) {
	if _, ok := g.alloc.regOf[r]; ok {
		return
	}
	if slot, ok := g.alloc.spillOf[r]; ok {
		g.emitMem("str", phys, g.frame.spillOffsets[slot])
	}
	// Neither allocated nor spilled: the value is never used.
}

// emitMem emits an fp-relative load or store, falling back to address
// arithmetic in lr when the offset exceeds the immediate range. Stored
// values never live in lr, so the scratch is safe.
func (g *funcGen) emitMem(op, valueReg string, offset int) {
	if offset >= -maxMemOffset && offset <= maxMemOffset {
		g.emit(asm.Op2(op, asm.Reg(valueReg), asm.Mem("fp", offset)))
		return
	}
	g.emit(asm.Op2("ldr", asm.LR, asm.LitImm(offset)))
	g.emit(asm.Op3("add", asm.LR, asm.FP, asm.LR))
	g.emit(asm.Op2(op, asm.Reg(valueReg), asm.Mem("lr", 0)))
}

// loadConst materializes a constant, using a literal-pool load when the
// value is not an encodable operand2 immediate.
func (g *funcGen) loadConst(phys string, value int64) {
	if util.EncodableImm(value) {
		g.emit(asm.Op2("mov", asm.Reg(phys), asm.Imm(int(value))))
		return
	}
	g.emit(asm.Op2("ldr", asm.Reg(phys), asm.LitImm(int(value))))
}

// ---------------------------------------------------------------------------
// Instruction selection

func (g *funcGen) instr(instr ir.Instr) {
	switch i := instr.(type) {
	case ir.LoadConst:
		dst := g.dstReg(i.Dst)
		g.loadConst(dst, i.Value)
		g.finishDst(i.Dst, dst)
	case ir.Move:
		src := g.useReg(i.Src, "ip")
		dst := g.dstReg(i.Dst)
		if dst != src {
			g.emit(asm.Op2("mov", asm.Reg(dst), asm.Reg(src)))
		}
		g.finishDst(i.Dst, dst)
	case ir.BinOp:
		g.binOp(i)
	case ir.UnOp:
		g.unOp(i)
	case ir.Load:
		dst := g.dstReg(i.Dst)
		if i.Src.Global {
			g.emit(asm.Op2("ldr", asm.Reg(dst), asm.Lit(i.Src.Name)))
			g.emit(asm.Op2(loadOp(i.Size), asm.Reg(dst), asm.Mem(dst, 0)))
		} else {
			g.emitMem(loadOp(i.Size), dst, g.frame.offsetOf(i.Src.Name))
		}
		g.finishDst(i.Dst, dst)
	case ir.Store:
		if i.Dst.Global {
			src := g.useReg(i.Src, "lr")
			g.emit(asm.Op2("ldr", asm.IP, asm.Lit(i.Dst.Name)))
			g.emit(asm.Op2(storeOp(i.Size), asm.Reg(src), asm.Mem("ip", 0)))
		} else {
			src := g.useReg(i.Src, "ip")
			g.emitMem(storeOp(i.Size), src, g.frame.offsetOf(i.Dst.Name))
		}
	case ir.AddrOf:
		dst := g.dstReg(i.Dst)
		if i.Src.Global {
			g.emit(asm.Op2("ldr", asm.Reg(dst), asm.Lit(i.Src.Name)))
		} else {
			g.localAddr(dst, g.frame.offsetOf(i.Src.Name))
		}
		g.finishDst(i.Dst, dst)
	case ir.LoadInd:
		addr := g.useReg(i.Addr, "ip")
		dst := g.dstReg(i.Dst)
		g.emit(asm.Op2(g.loadOpChecked(i.Size), asm.Reg(dst), asm.Mem(addr, 0)))
		g.finishDst(i.Dst, dst)
	case ir.StoreInd:
		addr := g.useReg(i.Addr, "ip")
		src := g.useReg(i.Src, "lr")
		g.emit(asm.Op2(g.storeOpChecked(i.Size), asm.Reg(src), asm.Mem(addr, 0)))
	case ir.Param:
		g.pending = append(g.pending, i)
	case ir.Call:
		g.call(i)
	default:
		panic(fmt.Sprintf("internal error: unknown instruction %T", instr))
	}
}

func loadOp(size int) string {
	if size == 1 {
		return "ldrb"
	}
	return "ldr"
}

func storeOp(size int) string {
	if size == 1 {
		return "strb"
	}
	return "str"
}

func (g *funcGen) loadOpChecked(size int) string {
	if size != 1 && size != wordSize {
		g.errorf(diag.KindUnsupportedConstruct, "cannot load %d-byte values", size)
	}
	return loadOp(size)
}

func (g *funcGen) storeOpChecked(size int) string {
	if size != 1 && size != wordSize {
		g.errorf(diag.KindUnsupportedConstruct, "cannot store %d-byte values", size)
	}
	return storeOp(size)
}

// localAddr computes fp+offset into dst.
func (g *funcGen) localAddr(dst string, offset int) {
	op, magnitude := "add", offset
	if offset < 0 {
		op, magnitude = "sub", -offset
	}
	if util.EncodableImm(int64(magnitude)) {
		g.emit(asm.Op3(op, asm.Reg(dst), asm.FP, asm.Imm(magnitude)))
		return
	}
	g.emit(asm.Op2("ldr", asm.Reg(dst), asm.LitImm(magnitude)))
	g.emit(asm.Op3(op, asm.Reg(dst), asm.FP, asm.Reg(dst)))
}

func (g *funcGen) binOp(i ir.BinOp) {
	switch i.Op {
	case "+", "-", "*":
		left := g.useReg(i.Left, "ip")
		right := g.useReg(i.Right, "lr")
		dst := g.dstReg(i.Dst)
		op := map[string]string{"+": "add", "-": "sub", "*": "mul"}[i.Op]
		g.emit(asm.Op3(op, asm.Reg(dst), asm.Reg(left), asm.Reg(right)))
		g.finishDst(i.Dst, dst)
	case "/", "%":
		// No hardware divide on baseline ARMv7-A; use the EABI helpers.
		// __aeabi_idivmod returns the quotient in r0, the remainder in r1.
		left := g.useReg(i.Left, "ip")
		g.emit(asm.Op2("mov", asm.R0, asm.Reg(left)))
		right := g.useReg(i.Right, "ip")
		g.emit(asm.Op2("mov", asm.R1, asm.Reg(right)))
		result := asm.R0
		if i.Op == "%" {
			g.emit(asm.Op1("bl", asm.Ref("__aeabi_idivmod")))
			result = asm.R1
		} else {
			g.emit(asm.Op1("bl", asm.Ref("__aeabi_idiv")))
		}
		dst := g.dstReg(i.Dst)
		g.emit(asm.Op2("mov", asm.Reg(dst), result))
		g.finishDst(i.Dst, dst)
	case "==", "!=", "<", ">", "<=", ">=":
		left := g.useReg(i.Left, "ip")
		right := g.useReg(i.Right, "lr")
		dst := g.dstReg(i.Dst)
		g.emit(asm.Op2("cmp", asm.Reg(left), asm.Reg(right)))
		g.emit(asm.Op2("mov", asm.Reg(dst), asm.Imm(0)))
		g.emit(asm.Op2("mov"+condOf[i.Op], asm.Reg(dst), asm.Imm(1)))
		g.finishDst(i.Dst, dst)
	default:
		panic("internal error: unknown binary operator " + i.Op)
	}
}

func (g *funcGen) unOp(i ir.UnOp) {
	src := g.useReg(i.Src, "ip")
	dst := g.dstReg(i.Dst)
	switch i.Op {
	case "-":
		g.emit(asm.Op3("rsb", asm.Reg(dst), asm.Reg(src), asm.Imm(0)))
	case "!":
		g.emit(asm.Op2("cmp", asm.Reg(src), asm.Imm(0)))
		g.emit(asm.Op2("mov", asm.Reg(dst), asm.Imm(0)))
		g.emit(asm.Op2("moveq", asm.Reg(dst), asm.Imm(1)))
	default:
		panic("internal error: unknown unary operator " + i.Op)
	}
	g.finishDst(i.Dst, dst)
}

// call lowers the staged Param instructions and the call itself: the first
// four arguments go to r0-r3, the rest to the outgoing stack area, which
// stays 8-byte aligned per the AAPCS.
func (g *funcGen) call(i ir.Call) {
	params := g.pending
	g.pending = nil
	if len(params) != i.NumArgs {
		panic(fmt.Sprintf("internal error: call to %s expects %d staged params, have %d",
			i.Callee, i.NumArgs, len(params)))
	}

	stackArgs := 0
	if len(params) > 4 {
		stackArgs = len(params) - 4
	}
	stackBytes := util.Align(stackArgs*wordSize, 8)
	if stackBytes > 0 {
		g.subSP(stackBytes)
		for _, p := range params[4:] {
			src := g.useReg(p.Src, "ip")
			g.emit(asm.Op2("str", asm.Reg(src), asm.Mem("sp", (p.Index-4)*wordSize)))
		}
	}

	// Register arguments last: the moves clobber r0-r3, which the stack
	// stores above may not rely on but spill reloads must not either.
	n := len(params)
	if n > 4 {
		n = 4
	}
	argRegs := [4]asm.Arg{asm.R0, asm.R1, asm.R2, asm.R3}
	for _, p := range params[:n] {
		argReg := argRegs[p.Index]
		if phys, ok := g.alloc.regOf[p.Src]; ok {
			g.emit(asm.Op2("mov", argReg, asm.Reg(phys)))
		} else {
			slot := g.alloc.spillOf[p.Src]
			g.emitMem("ldr", argReg.Reg, g.frame.spillOffsets[slot])
		}
	}

	g.emit(asm.Op1("bl", asm.Ref(i.Callee)))

	if stackBytes > 0 {
		g.emit(asm.Op3("add", asm.SP, asm.SP, asm.Imm(stackBytes)))
	}

	if i.Dst != ir.NoReg {
		if phys, ok := g.alloc.regOf[i.Dst]; ok {
			g.emit(asm.Op2("mov", asm.Reg(phys), asm.R0))
		} else if slot, ok := g.alloc.spillOf[i.Dst]; ok {
			g.emitMem("str", "r0", g.frame.spillOffsets[slot])
		}
	}
}

// ---------------------------------------------------------------------------
// Terminators

func (g *funcGen) terminator(term ir.Terminator) {
	switch t := term.(type) {
	case ir.Branch:
		g.emit(asm.Op1("b", asm.Ref(g.label(t.Target))))
	case ir.BranchIf:
		cond := g.useReg(t.Cond, "ip")
		g.emit(asm.Op2("cmp", asm.Reg(cond), asm.Imm(0)))
		g.emit(asm.Op1("bne", asm.Ref(g.label(t.Then))))
		g.emit(asm.Op1("b", asm.Ref(g.label(t.Else))))
	case ir.Return:
		if t.Src != ir.NoReg {
			if phys, ok := g.alloc.regOf[t.Src]; ok {
				g.emit(asm.Op2("mov", asm.R0, asm.Reg(phys)))
			} else {
				slot := g.alloc.spillOf[t.Src]
				g.emitMem("ldr", "r0", g.frame.spillOffsets[slot])
			}
		}
		g.emit(asm.Op2("mov", asm.SP, asm.FP))
		g.emit(asm.Op1("pop", asm.List(g.frame.popList()...)))
	default:
		panic(fmt.Sprintf("internal error: unknown terminator %T", term))
	}
}
