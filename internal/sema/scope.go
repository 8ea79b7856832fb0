package sema

import (
	"fmt"

	"github.com/carmc/carmc/internal/ast"
	"github.com/carmc/carmc/internal/types"
)

// scopeStack resolves names to symbols. All symbols live in a single arena
// owned by the Analyzer; scope frames only hold references into it. Each
// declaration inside a function gets a name unique within that function
// ("x", "x@1", ...) so that later stages never see shadowing.
type scopeStack struct {
	arena  *[]*ast.Symbol
	frames []scopeFrame
	// usageCounts tracks how many times a name has been declared in the
	// current function, for unique-name generation.
	usageCounts map[string]int
}

type scopeFrame map[string]*ast.Symbol

func newScopeStack(arena *[]*ast.Symbol) *scopeStack {
	return &scopeStack{
		arena:       arena,
		usageCounts: make(map[string]int),
	}
}

func (s *scopeStack) startScope() {
	s.frames = append(s.frames, make(scopeFrame))
}

func (s *scopeStack) endScope() {
	s.frames = s.frames[:len(s.frames)-1]
}

// startFunction resets unique-name tracking; names only need to be unique
// within one function.
func (s *scopeStack) startFunction() {
	s.usageCounts = make(map[string]int)
}

// declare adds a symbol to the innermost frame. It returns nil if the name
// is already declared in that frame.
func (s *scopeStack) declare(name string, t types.Type, storage ast.Storage) *ast.Symbol {
	frame := s.frames[len(s.frames)-1]
	if _, exists := frame[name]; exists {
		return nil
	}

	uniqueName := name
	if storage == ast.StorageLocal || storage == ast.StorageParam {
		s.usageCounts[name]++
		if s.usageCounts[name] > 1 {
			uniqueName = fmt.Sprintf("%s@%d", name, s.usageCounts[name]-1)
		}
	}

	sym := &ast.Symbol{
		ID:         len(*s.arena),
		Name:       name,
		UniqueName: uniqueName,
		Type:       t,
		Storage:    storage,
		Depth:      len(s.frames) - 1,
	}
	*s.arena = append(*s.arena, sym)
	frame[name] = sym
	return sym
}

// lookup resolves a name against the scope stack, innermost frame first.
// Returns nil if the name is not declared.
func (s *scopeStack) lookup(name string) *ast.Symbol {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if sym, ok := s.frames[i][name]; ok {
			return sym
		}
	}
	return nil
}
