package arm

import (
	"fmt"
	"sort"

	"github.com/carmc/carmc/internal/ir"
	"github.com/carmc/carmc/internal/util"
)

// frame is the stack layout of one function. The prologue pushes the used
// callee-saved registers plus fp and lr, sets fp to the new stack top, and
// subtracts size. Parameters and locals live at negative fp offsets;
// incoming stack arguments (the fifth onward) sit above the pushed
// registers at positive offsets.
type frame struct {
	saved        []string // callee-saved registers to push, in order
	size         int      // bytes subtracted from sp, 8-byte aligned
	offsets      map[string]int
	spillOffsets []int
}

const wordSize = 4

func newFrame(fn *ir.Func, alloc allocation) *frame {
	f := &frame{offsets: make(map[string]int)}

	used := make(map[string]bool)
	for _, phys := range alloc.regOf {
		used[phys] = true
	}
	for _, reg := range allocatableRegs {
		if used[reg] {
			f.saved = append(f.saved, reg)
		}
	}

	cursor := 0
	place := func(name string, size int) {
		cursor -= size
		f.offsets[name] = cursor
	}

	// Register parameters get slots; stack parameters stay where the
	// caller put them.
	pushBytes := (len(f.saved) + 2) * wordSize // saved + fp + lr
	for i, p := range fn.Params {
		if i < 4 {
			place(p.Name, wordSize)
		} else {
			f.offsets[p.Name] = pushBytes + (i-4)*wordSize
		}
	}
	for _, l := range fn.Locals {
		place(l.Name, util.Align(l.Size, wordSize))
	}

	f.spillOffsets = make([]int, alloc.spills)
	for i := range f.spillOffsets {
		cursor -= wordSize
		f.spillOffsets[i] = cursor
	}

	f.size = util.Align(-cursor, 8)
	return f
}

// offsetOf returns the fp-relative offset of a named slot.
func (f *frame) offsetOf(name string) int {
	off, ok := f.offsets[name]
	if !ok {
		panic(fmt.Sprintf("internal error: no frame slot for %s", name))
	}
	return off
}

// pushList is the register list for the prologue push and, with pc in
// place of lr, the epilogue pop.
func (f *frame) pushList() []string {
	return append(append([]string{}, f.saved...), "fp", "lr")
}

func (f *frame) popList() []string {
	return append(append([]string{}, f.saved...), "fp", "pc")
}

// sortedSlotNames is used by tests to inspect layouts deterministically.
func (f *frame) sortedSlotNames() []string {
	names := make([]string, 0, len(f.offsets))
	for name := range f.offsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
