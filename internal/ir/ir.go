// Package ir defines the intermediate representation: functions made of
// basic blocks over an unbounded supply of virtual registers. The backend
// is the only consumer; the IR knows nothing about the target beyond byte
// sizes, which come from the type checker.
package ir

import (
	"fmt"
	"strings"
)

// Reg is a virtual register. The lowering pass hands out fresh registers
// and never reuses one for an unrelated value.
type Reg int

// NoReg marks an absent register operand, e.g. the destination of a call
// to a void function.
const NoReg Reg = -1

func (r Reg) String() string {
	if r == NoReg {
		return "_"
	}
	return fmt.Sprintf("t%d", r)
}

// Ref names a memory slot: a function-local variable or parameter (by its
// scope-flattened unique name) or a global.
type Ref struct {
	Name   string
	Global bool
}

func (r Ref) String() string {
	if r.Global {
		return "@" + r.Name
	}
	return "%" + r.Name
}

type Program struct {
	Globals []Global
	Funcs   []*Func
}

// Global is a zero-initialized data object.
type Global struct {
	Name string
	Size int
}

// Slot is a stack-resident variable or parameter. Name is unique within
// the function.
type Slot struct {
	Name string
	Size int
}

type Func struct {
	Name    string
	Params  []*Slot
	Locals  []*Slot
	Blocks  []*Block
	NumRegs int
}

// Block is a basic block: a label, straight-line instructions, and exactly
// one terminator. Keeping the terminator out of Instrs makes the
// one-terminator invariant structural.
type Block struct {
	Label  string
	Instrs []Instr
	Term   Terminator
}

type Instr interface {
	fmt.Stringer
	instr()
}

type Terminator interface {
	fmt.Stringer
	terminator()
}

// ---------------------------------------------------------------------------
// Instructions

// LoadConst puts an integer constant into a register.
type LoadConst struct {
	Dst   Reg
	Value int64
}

// Move copies one register into another.
type Move struct {
	Dst Reg
	Src Reg
}

// BinOp applies a binary operator. Op is the source-level spelling:
// arithmetic ("+", "-", "*", "/", "%") or comparison ("==", "!=", "<",
// ">", "<=", ">="); comparisons produce 0 or 1. Logical && and || never
// reach the IR, they lower to branches.
type BinOp struct {
	Dst   Reg
	Op    string
	Left  Reg
	Right Reg
}

// UnOp applies "-" or "!".
type UnOp struct {
	Dst Reg
	Op  string
	Src Reg
}

// Load reads a named slot or global. Size is 1 or 4 bytes.
type Load struct {
	Dst  Reg
	Src  Ref
	Size int
}

// Store writes a register into a named slot or global.
type Store struct {
	Dst  Ref
	Src  Reg
	Size int
}

// AddrOf puts the address of a slot or global into a register. This is how
// arrays decay and how "&" lowers.
type AddrOf struct {
	Dst Reg
	Src Ref
}

// LoadInd reads memory through a computed address.
type LoadInd struct {
	Dst  Reg
	Addr Reg
	Size int
}

// StoreInd writes memory through a computed address.
type StoreInd struct {
	Addr Reg
	Src  Reg
	Size int
}

// Param stages the Index-th argument (0-based, source order) of the Call
// that follows. Params always directly precede their Call.
type Param struct {
	Index int
	Src   Reg
}

// Call transfers to Callee after NumArgs Param instructions. Dst is NoReg
// when the result is unused or the callee returns void.
type Call struct {
	Dst     Reg
	Callee  string
	NumArgs int
}

func (LoadConst) instr() {}
func (Move) instr()      {}
func (BinOp) instr()     {}
func (UnOp) instr()      {}
func (Load) instr()      {}
func (Store) instr()     {}
func (AddrOf) instr()    {}
func (LoadInd) instr()   {}
func (StoreInd) instr()  {}
func (Param) instr()     {}
func (Call) instr()      {}

func (i LoadConst) String() string { return fmt.Sprintf("%s = const %d", i.Dst, i.Value) }
func (i Move) String() string      { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }
func (i BinOp) String() string     { return fmt.Sprintf("%s = %s %s %s", i.Dst, i.Left, i.Op, i.Right) }
func (i UnOp) String() string      { return fmt.Sprintf("%s = %s%s", i.Dst, i.Op, i.Src) }
func (i Load) String() string      { return fmt.Sprintf("%s = load.%d %s", i.Dst, i.Size, i.Src) }
func (i Store) String() string     { return fmt.Sprintf("store.%d %s, %s", i.Size, i.Dst, i.Src) }
func (i AddrOf) String() string    { return fmt.Sprintf("%s = addr %s", i.Dst, i.Src) }
func (i LoadInd) String() string   { return fmt.Sprintf("%s = load.%d [%s]", i.Dst, i.Size, i.Addr) }
func (i StoreInd) String() string  { return fmt.Sprintf("store.%d [%s], %s", i.Size, i.Addr, i.Src) }
func (i Param) String() string     { return fmt.Sprintf("param %d, %s", i.Index, i.Src) }

func (i Call) String() string {
	if i.Dst == NoReg {
		return fmt.Sprintf("call %s, %d", i.Callee, i.NumArgs)
	}
	return fmt.Sprintf("%s = call %s, %d", i.Dst, i.Callee, i.NumArgs)
}

// ---------------------------------------------------------------------------
// Terminators

// Branch jumps unconditionally.
type Branch struct {
	Target string
}

// BranchIf jumps to Then when Cond is non-zero, to Else otherwise. Both
// targets are explicit; there is no fallthrough in the IR.
type BranchIf struct {
	Cond Reg
	Then string
	Else string
}

// Return leaves the function. Src is NoReg for a void return.
type Return struct {
	Src Reg
}

func (Branch) terminator()   {}
func (BranchIf) terminator() {}
func (Return) terminator()   {}

func (t Branch) String() string { return "br " + t.Target }

func (t BranchIf) String() string {
	return fmt.Sprintf("br_if %s, %s, %s", t.Cond, t.Then, t.Else)
}

func (t Return) String() string {
	if t.Src == NoReg {
		return "ret"
	}
	return "ret " + t.Src.String()
}

// ---------------------------------------------------------------------------
// Printing

func (p *Program) String() string {
	var sb strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&sb, "global @%s, %d\n", g.Name, g.Size)
	}
	for i, fn := range p.Funcs {
		if i > 0 || len(p.Globals) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fn.String())
	}
	return sb.String()
}

func (f *Func) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%%%s:%d", p.Name, p.Size)
	}
	fmt.Fprintf(&sb, "func %s(%s) {\n", f.Name, strings.Join(params, ", "))
	for _, l := range f.Locals {
		fmt.Fprintf(&sb, "  local %%%s, %d\n", l.Name, l.Size)
	}
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Label)
		for _, instr := range b.Instrs {
			fmt.Fprintf(&sb, "  %s\n", instr)
		}
		fmt.Fprintf(&sb, "  %s\n", b.Term)
	}
	sb.WriteString("}\n")
	return sb.String()
}

// LookupBlock returns the block with the given label, or nil.
func (f *Func) LookupBlock(label string) *Block {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}
