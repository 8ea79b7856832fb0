package ir

import "fmt"

// Verify checks the structural invariants of a lowered program: every
// branch targets an existing block, every virtual register is defined
// before any use in layout order, and memory references name declared
// slots or globals. A violation is a lowering defect, so Verify returns a
// descriptive error for the caller to fail loudly with.
func Verify(p *Program) error {
	globals := make(map[string]bool)
	for _, g := range p.Globals {
		globals[g.Name] = true
	}

	for _, fn := range p.Funcs {
		if err := verifyFunc(fn, globals); err != nil {
			return fmt.Errorf("func %s: %w", fn.Name, err)
		}
	}
	return nil
}

func verifyFunc(fn *Func, globals map[string]bool) error {
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("no blocks")
	}

	slots := make(map[string]bool)
	for _, s := range fn.Params {
		slots[s.Name] = true
	}
	for _, s := range fn.Locals {
		slots[s.Name] = true
	}

	labels := make(map[string]bool)
	for _, b := range fn.Blocks {
		if labels[b.Label] {
			return fmt.Errorf("duplicate label %s", b.Label)
		}
		labels[b.Label] = true
	}

	defined := make(map[Reg]bool)
	checkUse := func(block *Block, r Reg) error {
		if r == NoReg || defined[r] {
			return nil
		}
		return fmt.Errorf("block %s: %s used before definition", block.Label, r)
	}
	checkRef := func(block *Block, ref Ref) error {
		if ref.Global && globals[ref.Name] {
			return nil
		}
		if !ref.Global && slots[ref.Name] {
			return nil
		}
		return fmt.Errorf("block %s: reference to unknown slot %s", block.Label, ref)
	}
	checkTarget := func(block *Block, label string) error {
		if labels[label] {
			return nil
		}
		return fmt.Errorf("block %s: branch to unknown label %s", block.Label, label)
	}

	for _, block := range fn.Blocks {
		for _, instr := range block.Instrs {
			var err error
			switch i := instr.(type) {
			case LoadConst:
				defined[i.Dst] = true
			case Move:
				err = checkUse(block, i.Src)
				defined[i.Dst] = true
			case BinOp:
				if err = checkUse(block, i.Left); err == nil {
					err = checkUse(block, i.Right)
				}
				defined[i.Dst] = true
			case UnOp:
				err = checkUse(block, i.Src)
				defined[i.Dst] = true
			case Load:
				err = checkRef(block, i.Src)
				defined[i.Dst] = true
			case Store:
				if err = checkRef(block, i.Dst); err == nil {
					err = checkUse(block, i.Src)
				}
			case AddrOf:
				err = checkRef(block, i.Src)
				defined[i.Dst] = true
			case LoadInd:
				err = checkUse(block, i.Addr)
				defined[i.Dst] = true
			case StoreInd:
				if err = checkUse(block, i.Addr); err == nil {
					err = checkUse(block, i.Src)
				}
			case Param:
				err = checkUse(block, i.Src)
			case Call:
				if i.Dst != NoReg {
					defined[i.Dst] = true
				}
			default:
				err = fmt.Errorf("block %s: unknown instruction %T", block.Label, instr)
			}
			if err != nil {
				return err
			}
		}

		var err error
		switch t := block.Term.(type) {
		case Branch:
			err = checkTarget(block, t.Target)
		case BranchIf:
			if err = checkUse(block, t.Cond); err == nil {
				if err = checkTarget(block, t.Then); err == nil {
					err = checkTarget(block, t.Else)
				}
			}
		case Return:
			err = checkUse(block, t.Src)
		case nil:
			err = fmt.Errorf("block %s: missing terminator", block.Label)
		default:
			err = fmt.Errorf("block %s: unknown terminator %T", block.Label, block.Term)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
