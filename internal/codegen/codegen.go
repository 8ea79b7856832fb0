// Package codegen dispatches lowered programs to a target backend and
// renders the result as assembly text.
package codegen

import (
	"fmt"
	"io"

	"github.com/carmc/carmc/internal/asm"
	"github.com/carmc/carmc/internal/codegen/arm"
	"github.com/carmc/carmc/internal/diag"
	"github.com/carmc/carmc/internal/ir"
)

type Target int

const (
	TargetARM32Linux Target = iota
)

func TargetFromName(name string) (Target, error) {
	switch name {
	case "arm32-linux", "arm":
		return TargetARM32Linux, nil
	}
	return 0, fmt.Errorf("unknown target: %s", name)
}

// Generate translates the program for the target and writes assembly text
// to out. The returned error is a *diag.Diagnostic for user-level failures.
func Generate(out io.Writer, target Target, irp *ir.Program) error {
	var asmProgram asm.Program
	var err *diag.Diagnostic

	switch target {
	case TargetARM32Linux:
		asmProgram, err = arm.Generate(irp)
	default:
		return fmt.Errorf("unknown target: %v", target)
	}
	if err != nil {
		return err
	}

	asm.Format(out, asmProgram)
	return nil
}
