// Package asm models ARM32 assembly as structured lines, so the code
// generator builds instructions from typed parts and only the formatter
// knows the textual syntax.
package asm

// Commonly used registers. The backend addresses the allocatable pool
// (r4-r10) by name through Reg, and pc only ever appears inside pop lists.
var (
	R0 = Arg{Reg: "r0"}
	R1 = Arg{Reg: "r1"}
	R2 = Arg{Reg: "r2"}
	R3 = Arg{Reg: "r3"}
	FP = Arg{Reg: "fp"} // r11, frame pointer
	IP = Arg{Reg: "ip"} // r12, scratch
	SP = Arg{Reg: "sp"}
	LR = Arg{Reg: "lr"}
)

type Program struct {
	Functions []Function
	Globals   []GlobalVariable
}

type Function struct {
	Name  string
	Lines []Line
}

// GlobalVariable is a zero-initialized data object in .bss.
type GlobalVariable struct {
	Label string
	Size  int
}

// Line is one output line: a label, an instruction with up to three
// arguments, or a bare comment. Arity tells the formatter how many
// arguments are meaningful.
type Line struct {
	Comment string
	Label   string
	Op      string
	Arity   int
	Arg1    Arg
	Arg2    Arg
	Arg3    Arg
}

// Arg is one instruction operand: a register, an immediate, a label, a
// memory reference, an =literal, or a register list.
type Arg struct {
	Reg     string
	Imm     int
	Label   string
	Offset  int
	Deref   bool     // [Reg] or [Reg, #Offset]
	Literal bool     // =Label or =Imm, for the ldr pseudo-instruction
	List    []string // register list for push/pop
}

func Reg(name string) Arg {
	return Arg{Reg: name}
}

func Imm(value int) Arg {
	return Arg{Imm: value}
}

// Ref is a bare label operand, for branches and calls.
func Ref(label string) Arg {
	return Arg{Label: label}
}

// Lit is an =label literal-pool operand.
func Lit(label string) Arg {
	return Arg{Label: label, Literal: true}
}

// LitImm is an =imm literal-pool operand, for constants outside the
// operand2 immediate range.
func LitImm(value int) Arg {
	return Arg{Imm: value, Literal: true}
}

// Mem is a register-relative memory operand, [reg, #offset].
func Mem(reg string, offset int) Arg {
	return Arg{Reg: reg, Offset: offset, Deref: true}
}

// List is a push/pop register list.
func List(regs ...string) Arg {
	return Arg{List: regs}
}

func Op0(op string) Line {
	return Line{Op: op}
}

func Op1(op string, arg Arg) Line {
	return Line{Op: op, Arity: 1, Arg1: arg}
}

func Op2(op string, arg1, arg2 Arg) Line {
	return Line{Op: op, Arity: 2, Arg1: arg1, Arg2: arg2}
}

func Op3(op string, arg1, arg2, arg3 Arg) Line {
	return Line{Op: op, Arity: 3, Arg1: arg1, Arg2: arg2, Arg3: arg3}
}

func Comment(text string) Line {
	return Line{Comment: text}
}

func Label(text string) Line {
	return Line{Label: text}
}

func (l Line) WithComment(text string) Line {
	l.Comment = text
	return l
}
