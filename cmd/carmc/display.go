package main

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/carmc/carmc/internal/diag"
)

var (
	successColorFG = pterm.FgLightGreen
	successStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	errorColorFG   = pterm.FgRed
	errorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
)

// printDiagnostic renders one compiler diagnostic: a stage tag on a colored
// background followed by the position, kind, and message.
func printDiagnostic(path string, d diag.Diagnostic) {
	errorStyleBG.Print(" " + string(d.Stage) + " ")
	if d.Line > 0 {
		errorColorFG.Println(fmt.Sprintf(" %s:%d:%d: %s: %s", path, d.Line, d.Col, d.Kind, d.Message))
	} else {
		errorColorFG.Println(fmt.Sprintf(" %s: %s: %s", path, d.Kind, d.Message))
	}
}

// printError renders a non-compiler error such as a failed file read.
func printError(path string, err error) {
	errorStyleBG.Print(" error ")
	errorColorFG.Println(fmt.Sprintf(" %s: %s", path, err.Error()))
}

func printSuccess(msg string) {
	successStyleBG.Print(" ok ")
	successColorFG.Println(" " + msg)
}
