package carmc

import "github.com/carmc/carmc/internal/diag"

// Result is what every compilation returns: generated assembly on success,
// diagnostics otherwise. Callers never see a panic or a partial artifact.
type Result struct {
	Success     bool
	Assembly    string
	Diagnostics []diag.Diagnostic
}

// FirstError renders the first diagnostic, or "" on success. Convenience
// for callers that only display one line.
func (r Result) FirstError() string {
	if r.Success || len(r.Diagnostics) == 0 {
		return ""
	}
	return r.Diagnostics[0].Error()
}
