package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Execute: running a unit at top level
// ---------------------------------------------------------------------------

// Execute runs irep at top level with the main object as self and returns
// the value of its closing RETURN, owned by the caller.
//
// An exception nobody rescued is returned as *UnhandledError and stays
// pending until ClearPending is called; Execute refuses to run again before
// that. A fatal error is returned as *FatalError and leaves the VM aborted.
func (vm *VM) Execute(irep *Irep) (result Value, err error) {
	if vm.aborted {
		return Nil, ErrVMAborted
	}
	if vm.pending != nil {
		return Nil, ErrPendingException
	}
	if err := irep.Validate(); err != nil {
		return Nil, fmt.Errorf("execute: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			fatal, ok := r.(*FatalError)
			if !ok {
				panic(r)
			}
			vm.aborted = true
			result, err = Nil, fatal
		}
	}()

	vm.Acquire(vm.topSelf)
	vm.setReg(0, vm.topSelf)
	vm.base = 0
	vm.irep = irep
	vm.pc = 0
	vm.targetClass = vm.ObjectClass
	vm.entry = nil

	result = vm.run()

	vm.dropMarkersTo(nil)
	vm.scrubAbove(0)
	if vm.exc != nil {
		vm.clearException()
	}
	if uerr := vm.unhandledError(); uerr != nil {
		vm.Release(result)
		log.Noticef("[%s] unhandled %s", vm.shortID(), uerr.Error())
		return Nil, uerr
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// The opcode loop
// ---------------------------------------------------------------------------

// run executes from the current context until a RETURN leaves the frame the
// pass started in, an ABORT or STOP, or an exception is left pending. The
// result is owned by the caller.
func (vm *VM) run() Value {
	outer := vm.entry
	vm.entry = vm.callinfoTail
	vm.jumped = false
	vm.enterWindow(vm.base, vm.irep.NRegs)

	for {
		if vm.pc >= len(vm.irep.Code) {
			vm.fatalf("pc %d past the end of %s", vm.pc, vm.irep.Name)
		}
		in := vm.irep.Code[vm.pc]
		vm.pc++

		result, stop := vm.step(in)
		if stop {
			vm.entry = outer
			return result
		}
		if vm.jumped {
			vm.jumped = false
			vm.scrubAbove(vm.base + vm.irep.NRegs)
		}
		if vm.pending != nil {
			vm.unwindFramesTo(vm.entry)
			vm.entry = outer
			return Nil
		}
	}
}

// step executes one instruction. stop is set when the pass is over.
func (vm *VM) step(in Inst) (result Value, stop bool) {
	r := vm.base
	switch in.Op {
	case OpNop:

	case OpMove:
		v := vm.regs[r+in.B]
		vm.Acquire(v)
		vm.setReg(r+in.A, v)

	case OpLoadL:
		vm.setReg(r+in.A, vm.literal(vm.irep.Pool[in.B]))

	case OpLoadI:
		vm.setReg(r+in.A, FromInt(int64(in.B)))

	case OpLoadSym:
		vm.setReg(r+in.A, FromSymbol(vm.irep.Sym(vm, in.B)))

	case OpLoadNil:
		vm.setReg(r+in.A, Nil)

	case OpLoadSelf:
		self := vm.Self()
		vm.Acquire(self)
		vm.setReg(r+in.A, self)

	case OpLoadT:
		vm.setReg(r+in.A, True)

	case OpLoadF:
		vm.setReg(r+in.A, False)

	case OpGetIV:
		vm.setReg(r+in.A, vm.GetIV(vm.Self(), vm.ivarSym(in.B)))

	case OpSetIV:
		vm.SetIV(vm.Self(), vm.ivarSym(in.B), vm.regs[r+in.A])

	case OpGetConst:
		sym := vm.irep.Sym(vm, in.B)
		if _, ok := vm.Consts.Get(sym); !ok {
			vm.RaiseString(vm.NameErrorClass, "uninitialized constant %s", vm.Symbols.Name(sym))
			break
		}
		vm.setReg(r+in.A, vm.GetConst(sym))

	case OpSetConst:
		vm.SetConst(vm.irep.Sym(vm, in.B), vm.regs[r+in.A])

	case OpGetUpvar:
		up, ok := vm.upvarBase(in.C)
		if !ok {
			vm.RaiseString(vm.RuntimeErrorClass, "outer scope of block is gone")
			break
		}
		v := vm.regs[up+in.B]
		vm.Acquire(v)
		vm.setReg(r+in.A, v)

	case OpSetUpvar:
		up, ok := vm.upvarBase(in.C)
		if !ok {
			vm.RaiseString(vm.RuntimeErrorClass, "outer scope of block is gone")
			break
		}
		v := vm.regs[r+in.A]
		vm.Acquire(v)
		vm.setReg(up+in.B, v)

	case OpJmp:
		vm.pc = in.A

	case OpJmpIf:
		if vm.regs[r+in.A].IsTruthy() {
			vm.pc = in.B
		}

	case OpJmpNot:
		if !vm.regs[r+in.A].IsTruthy() {
			vm.pc = in.B
		}

	case OpSend:
		vm.enterWindow(r+in.A, in.C+2)
		vm.setReg(r+in.A+in.C+1, Nil)
		vm.dispatch(in.A, vm.irep.Sym(vm, in.B), in.C, vm.ClassOf(vm.regs[r+in.A]))

	case OpSendB:
		vm.dispatch(in.A, vm.irep.Sym(vm, in.B), in.C, vm.ClassOf(vm.regs[r+in.A]))

	case OpSuper:
		vm.opSuper(in)

	case OpReturn:
		return vm.opReturn(in)

	case OpBlock:
		vm.setReg(r+in.A, vm.NewProc(vm.irep.Reps[in.B]))

	case OpMethod:
		cls := vm.regs[r+in.A].ClassPtr()
		proc := vm.regs[r+in.A+1].ProcPtr()
		if cls == nil || proc == nil {
			vm.RaiseString(vm.TypeErrorClass, "method definition needs a class and a block")
			break
		}
		vm.InstallProc(cls, vm.irep.Sym(vm, in.B), proc)

	case OpClass:
		var super *Class
		if sv := vm.regs[r+in.A+1]; !sv.IsNil() && !sv.IsEmpty() {
			if super = sv.ClassPtr(); super == nil {
				vm.RaiseString(vm.TypeErrorClass, "superclass must be a class")
				break
			}
		}
		cls := vm.DefineClass(vm.irep.Syms[in.B], super)
		vm.setReg(r+in.A, FromClass(cls))

	case OpExec:
		cls := vm.regs[r+in.A].ClassPtr()
		if cls == nil {
			vm.RaiseString(vm.TypeErrorClass, "class body needs a class")
			break
		}
		f := vm.PushFrame(0, in.A, 0)
		f.OwnClass = cls
		vm.base = r + in.A
		vm.irep = vm.irep.Reps[in.B]
		vm.pc = 0
		vm.targetClass = cls
		vm.enterWindow(vm.base, vm.irep.NRegs)
		vm.jumped = true

	case OpTClass:
		vm.setReg(r+in.A, FromClass(vm.targetClass))

	case OpOnErr:
		vm.PushRescue(in.A)

	case OpEPush:
		vm.PushEnsure(in.A)

	case OpPopErr:
		vm.PopMarkers(in.A)

	case OpExcept:
		if vm.exc == nil {
			vm.setReg(r+in.A, Nil)
			vm.setReg(r+in.A+1, Nil)
			break
		}
		msg := vm.excMessage
		vm.setReg(r+in.A, FromClass(vm.exc))
		vm.excMessage = Nil
		vm.setReg(r+in.A+1, msg)
		vm.clearException()

	case OpRescue:
		vm.setReg(r+in.C, FromBool(vm.rescueMatches(vm.regs[r+in.A], vm.regs[r+in.B])))

	case OpRaise:
		v := vm.regs[r+in.A]
		switch {
		case v.IsClass():
			vm.Raise(v.ClassPtr(), vm.regs[r+in.A+1])
		case v.IsString():
			vm.Raise(vm.RuntimeErrorClass, v)
		default:
			vm.RaiseString(vm.TypeErrorClass, "exception class/object expected")
		}

	case OpAbort, OpStop:
		return Nil, true

	default:
		vm.fatalf("unknown opcode %d at %s:%d", in.Op, vm.irep.Name, vm.pc-1)
	}
	return Nil, false
}

func (vm *VM) literal(lit Literal) Value {
	switch lit.Kind {
	case LiteralInt:
		return FromInt(lit.Int)
	case LiteralFloat:
		return FromFloat(lit.Float)
	case LiteralString:
		return vm.NewString(lit.Str)
	}
	return Nil
}

// ivarSym maps an instance variable operand to its key. Names are stored
// without the sigil.
func (vm *VM) ivarSym(i int) Symbol {
	return vm.Intern(strings.TrimPrefix(vm.irep.Syms[i], "@"))
}

func (vm *VM) rescueMatches(exc, target Value) bool {
	cls := exc.ClassPtr()
	if cls == nil {
		cls = vm.ClassOf(exc)
	}
	want := target.ClassPtr()
	if want == nil {
		return false
	}
	return cls.IsSubclassOf(want)
}

// opSuper calls the running method's namesake on the superclass of the class
// it was found on, with self as the receiver.
func (vm *VM) opSuper(in Inst) {
	f := vm.callinfoTail
	for f != nil && f.IsMarker() {
		f = f.Prev
	}
	if f == nil || f.OwnClass == nil || f.MethodID == 0 {
		vm.RaiseString(vm.NoMethodErrorClass, "super called outside of method")
		return
	}
	self := vm.Self()
	vm.Acquire(self)
	vm.setReg(vm.base+in.A, self)
	vm.enterWindow(vm.base+in.A, in.B+2)
	vm.setReg(vm.base+in.A+in.B+1, Nil)
	if f.OwnClass.Super == nil {
		vm.RaiseString(vm.NoMethodErrorClass, "super: no superclass method '%s'", vm.Symbols.Name(f.MethodID))
		return
	}
	vm.dispatch(in.A, f.MethodID, in.B, f.OwnClass.Super)
}

// opReturn leaves the current frame with R(A) as the result. On the
// exceptional path it instead continues the unwind: a re-spliced marker on
// top of the stack is resumed, and the end of the last ensure body settles
// the exception as pending.
func (vm *VM) opReturn(in Inst) (Value, bool) {
	tail := vm.callinfoTail
	if tail != nil && tail != vm.entry && tail.IsMarker() {
		vm.callinfoTail = tail.Prev
		vm.resumeAt(tail)
		return Nil, false
	}
	if vm.excState == StateFinalizing && vm.settleOnReturn && tail == vm.finalizeFrame {
		vm.settlePending()
		return Nil, false
	}

	a := vm.base + in.A
	result := vm.regs[a]
	vm.regs[a] = Empty
	if tail == vm.entry {
		return result, true
	}

	for i := vm.base + 1; i < vm.base+vm.irep.NRegs; i++ {
		vm.clearReg(i)
	}
	vm.setReg(vm.base, result)
	vm.PopFrame()
	return Nil, false
}
