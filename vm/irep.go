package vm

import "fmt"

// LiteralKind tags a pool entry.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
)

// Literal is one constant-pool entry of an Irep.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

// Irep is a compiled code block: the instruction sequence plus the literal
// pool, symbol list and child blocks it refers to.
//
// NRegs is the size of the register window the block needs, receiver
// included. NLocals is the number of those registers that hold arguments
// and locals.
type Irep struct {
	Name    string
	NLocals int
	NRegs   int
	Code    []Inst
	Pool    []Literal
	Syms    []string
	Reps    []*Irep

	symIDs []Symbol // Syms interned against the running VM
	symVM  *VM
}

// Sym returns the interned id of Syms[i].
func (ir *Irep) Sym(vm *VM, i int) Symbol {
	if ir.symVM != vm {
		ir.symIDs = make([]Symbol, len(ir.Syms))
		for j, name := range ir.Syms {
			ir.symIDs[j] = vm.Intern(name)
		}
		ir.symVM = vm
	}
	return ir.symIDs[i]
}

// Validate checks that every operand refers to something that exists.
func (ir *Irep) Validate() error {
	if ir.NRegs < 1 {
		return fmt.Errorf("irep %s: nregs must be at least 1", ir.Name)
	}
	for pc, in := range ir.Code {
		info := in.Op.Info()
		if in.Op >= opCount {
			return fmt.Errorf("irep %s: pc %d: unknown opcode %d", ir.Name, pc, in.Op)
		}
		ops := [3]int{in.A, in.B, in.C}
		for i, kind := range info.Operands {
			n := ops[i]
			var bad bool
			switch kind {
			case OperandReg:
				span := 1
				if i == 0 {
					span = in.Op.regSpan()
				}
				bad = n < 0 || n+span > ir.NRegs
			case OperandLiteral:
				bad = n < 0 || n >= len(ir.Pool)
			case OperandSym:
				bad = n < 0 || n >= len(ir.Syms)
			case OperandRep:
				bad = n < 0 || n >= len(ir.Reps)
			case OperandLabel:
				bad = n < 0 || n > len(ir.Code)
			}
			if bad {
				return fmt.Errorf("irep %s: pc %d: %s operand %d out of range (%d)", ir.Name, pc, info.Name, i, n)
			}
		}
	}
	for _, child := range ir.Reps {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Walk calls fn for ir and every nested block, depth first.
func (ir *Irep) Walk(fn func(*Irep)) {
	fn(ir)
	for _, child := range ir.Reps {
		child.Walk(fn)
	}
}
