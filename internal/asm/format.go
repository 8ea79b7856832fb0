package asm

import (
	"fmt"
	"io"
	"strings"
)

// Format renders the program as GNU assembler text for ARM32.
func Format(out io.Writer, p Program) {
	fmt.Fprintf(out, ".syntax unified\n")

	for _, fn := range p.Functions {
		fmt.Fprintf(out, "\n")
		formatFunction(out, fn)
	}

	if len(p.Globals) > 0 {
		fmt.Fprintf(out, "\n.bss\n")
		for _, g := range p.Globals {
			fmt.Fprintf(out, ".comm %s, %d, 4\n", g.Label, g.Size)
		}
	}
}

func formatFunction(out io.Writer, fn Function) {
	fmt.Fprintf(out, ".text\n")
	fmt.Fprintf(out, ".global %s\n", fn.Name)
	fmt.Fprintf(out, ".type %s, %%function\n", fn.Name)
	fmt.Fprintf(out, "%s:\n", fn.Name)

	for _, line := range fn.Lines {
		formatLine(out, line)
	}
}

func formatLine(out io.Writer, line Line) {
	if line.Label != "" {
		fmt.Fprintf(out, "%s:", line.Label)
	} else if line.Op != "" {
		fmt.Fprintf(out, "  %s", line.Op)
		if line.Arity >= 1 {
			fmt.Fprintf(out, " %s", argToString(line.Arg1))
		}
		if line.Arity >= 2 {
			fmt.Fprintf(out, ", %s", argToString(line.Arg2))
		}
		if line.Arity >= 3 {
			fmt.Fprintf(out, ", %s", argToString(line.Arg3))
		}
	}

	if line.Comment != "" {
		if line.Label != "" || line.Op != "" {
			fmt.Fprintf(out, " ")
		} else {
			fmt.Fprintf(out, "  ")
		}
		fmt.Fprintf(out, "@ %s", line.Comment)
	}

	fmt.Fprintf(out, "\n")
}

func argToString(arg Arg) string {
	switch {
	case arg.List != nil:
		return "{" + strings.Join(arg.List, ", ") + "}"
	case arg.Literal:
		if arg.Label != "" {
			return "=" + arg.Label
		}
		return fmt.Sprintf("=%d", arg.Imm)
	case arg.Deref:
		if arg.Offset != 0 {
			return fmt.Sprintf("[%s, #%d]", arg.Reg, arg.Offset)
		}
		return fmt.Sprintf("[%s]", arg.Reg)
	case arg.Reg != "":
		return arg.Reg
	case arg.Label != "":
		return arg.Label
	default:
		return fmt.Sprintf("#%d", arg.Imm)
	}
}
