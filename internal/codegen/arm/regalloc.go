package arm

import (
	"sort"

	"github.com/carmc/carmc/internal/ir"
)

// Linear-scan register allocation over the callee-saved pool r4-r10.
// r0-r3 stay free for argument passing and results, fp/ip/sp/lr are
// reserved (ip and lr double as spill scratch). Values whose live range
// spans a call are safe in the pool: callees preserve r4-r10.
var allocatableRegs = []string{"r4", "r5", "r6", "r7", "r8", "r9", "r10"}

// allocation maps each virtual register to a physical register or, when
// spilled, to a stack slot index. A vreg in neither map is dead (defined
// but never used) and its value can be discarded.
type allocation struct {
	regOf   map[ir.Reg]string
	spillOf map[ir.Reg]int
	spills  int
}

type liveInterval struct {
	reg   ir.Reg
	start int
	end   int
}

func allocateRegisters(fn *ir.Func) allocation {
	// Number every instruction globally, terminators included; live
	// intervals are index ranges over that numbering.
	defAt := make(map[ir.Reg]int)
	lastUse := make(map[ir.Reg]int)
	num := 0

	def := func(r ir.Reg) {
		if r == ir.NoReg {
			return
		}
		if _, ok := defAt[r]; !ok {
			defAt[r] = num
		}
		// A redefinition (short-circuit results have two) extends the range.
		if num > lastUse[r] {
			lastUse[r] = num
		}
	}
	use := func(rs ...ir.Reg) {
		for _, r := range rs {
			if r == ir.NoReg {
				continue
			}
			if num > lastUse[r] {
				lastUse[r] = num
			}
		}
	}

	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			switch i := instr.(type) {
			case ir.LoadConst:
				def(i.Dst)
			case ir.Move:
				use(i.Src)
				def(i.Dst)
			case ir.BinOp:
				use(i.Left, i.Right)
				def(i.Dst)
			case ir.UnOp:
				use(i.Src)
				def(i.Dst)
			case ir.Load:
				def(i.Dst)
			case ir.Store:
				use(i.Src)
			case ir.AddrOf:
				def(i.Dst)
			case ir.LoadInd:
				use(i.Addr)
				def(i.Dst)
			case ir.StoreInd:
				use(i.Addr, i.Src)
			case ir.Param:
				use(i.Src)
			case ir.Call:
				def(i.Dst)
			}
			num++
		}
		switch t := block.Term.(type) {
		case ir.BranchIf:
			use(t.Cond)
		case ir.Return:
			use(t.Src)
		}
		num++
	}

	var intervals []liveInterval
	for r, start := range defAt {
		end := lastUse[r]
		if end <= start {
			continue // dead value
		}
		intervals = append(intervals, liveInterval{reg: r, start: start, end: end})
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	type activeInterval struct {
		interval liveInterval
		phys     string
	}

	alloc := allocation{
		regOf:   make(map[ir.Reg]string),
		spillOf: make(map[ir.Reg]int),
	}
	var active []activeInterval

	expire := func(position int) {
		kept := active[:0]
		for _, a := range active {
			if a.interval.end >= position {
				kept = append(kept, a)
			}
		}
		active = kept
	}

	freeRegister := func() (string, bool) {
		inUse := make(map[string]bool)
		for _, a := range active {
			inUse[a.phys] = true
		}
		for _, reg := range allocatableRegs {
			if !inUse[reg] {
				return reg, true
			}
		}
		return "", false
	}

	spillSlot := func(r ir.Reg) {
		alloc.spillOf[r] = alloc.spills
		alloc.spills++
	}

	for _, current := range intervals {
		expire(current.start)

		if phys, ok := freeRegister(); ok {
			alloc.regOf[current.reg] = phys
			active = append(active, activeInterval{interval: current, phys: phys})
			continue
		}

		// Pool exhausted: spill whichever interval ends last.
		victim := -1
		for i := range active {
			if victim < 0 || active[i].interval.end > active[victim].interval.end {
				victim = i
			}
		}
		if victim >= 0 && active[victim].interval.end > current.end {
			v := active[victim]
			delete(alloc.regOf, v.interval.reg)
			spillSlot(v.interval.reg)
			alloc.regOf[current.reg] = v.phys
			active[victim] = activeInterval{interval: current, phys: v.phys}
		} else {
			spillSlot(current.reg)
		}
	}

	return alloc
}
