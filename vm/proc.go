package vm

// ---------------------------------------------------------------------------
// Proc: block closures
// ---------------------------------------------------------------------------

// Proc is a block closure.
//
// Frame is the call frame active when the block literal was evaluated; the
// block's outer locals live in that frame's register window. SelfFrame is the
// frame whose receiver is the block's self. For a block created inside
// another block SelfFrame is copied from the enclosing block, so nesting
// always resolves to the lexical method scope. A nil frame stands for the
// top-level window.
//
// A Proc does not own the frames it points at. Using a block after its
// defining call has returned finds the frame freed and falls back to the
// top-level window.
type Proc struct {
	objHeader
	Irep      *Irep
	Frame     *CallFrame
	SelfFrame *CallFrame
}

// NewProc creates a closure over irep in the current context. Returns nil
// when the pool is exhausted.
func (vm *VM) NewProc(irep *Irep) Value {
	p := &Proc{Irep: irep, Frame: vm.callinfoTail, SelfFrame: vm.callinfoTail}
	if outer := vm.regs[vm.base].ProcPtr(); outer != nil {
		p.SelfFrame = outer.SelfFrame
	}
	if !vm.newHeader(&p.objHeader, sizeofProc) {
		log.Warningf("[%s] no memory for proc", vm.shortID())
		return Nil
	}
	return fromHeap(TypeProc, p)
}

// frameWindow returns the absolute R(0) index of the window f entered, the
// top-level window for nil or freed frames.
func frameWindow(f *CallFrame) int {
	if f == nil || f.freed {
		return 0
	}
	return f.Window()
}

// Self returns the receiver of the current context. Inside a block R(0) holds
// the proc itself, so self is taken from the block's captured scope.
func (vm *VM) Self() Value {
	v := vm.regs[vm.base]
	for hops := 0; v.IsProc(); hops++ {
		if hops > vm.depth {
			return vm.regs[0]
		}
		v = vm.regs[frameWindow(v.ProcPtr().SelfFrame)]
	}
	return v
}

// upvarBase returns the absolute R(0) of the window level scopes out from
// the running block. Level 0 is the scope the block was created in.
func (vm *VM) upvarBase(level int) (int, bool) {
	p := vm.regs[vm.base].ProcPtr()
	if p == nil {
		return 0, false
	}
	for {
		if p.Frame != nil && p.Frame.freed {
			return 0, false
		}
		b := frameWindow(p.Frame)
		if level == 0 {
			return b, true
		}
		level--
		if p = vm.regs[b].ProcPtr(); p == nil {
			return 0, false
		}
	}
}

// procCall invokes the receiver block with the call's arguments. It does not
// produce a value itself: a frame is pushed and the opcode loop continues in
// the block, whose RETURN delivers the result.
func procCall(vm *VM, v []Value, argc int) {
	p := v[0].ProcPtr()
	if p == nil {
		vm.RaiseString(vm.TypeErrorClass, "call on %s", vm.Inspect(v[0]))
		return
	}
	// A block outside any method runs with no method id, so super inside
	// it has nothing to call.
	f := vm.PushFrame(0, vm.callBase-vm.base, argc)
	if s := p.SelfFrame; s != nil && !s.freed {
		f.MethodID = s.MethodID
		f.OwnClass = s.OwnClass
	}
	vm.base = vm.callBase
	vm.irep = p.Irep
	vm.pc = 0
	vm.enterWindow(vm.base, p.Irep.NRegs)
	vm.jumped = true
}

// BlockGiven reports whether the current method was passed a block. Inside a
// block the question is asked of the method the block belongs to.
func (vm *VM) BlockGiven() bool {
	f := vm.callinfoTail
	if f == nil || f.IsMarker() {
		return false
	}
	regs := f.Window()
	if vm.regs[regs].IsProc() {
		f = vm.regs[regs].ProcPtr().SelfFrame
		if f == nil || f.freed {
			return false
		}
		regs = f.Window()
	}
	return vm.regs[regs+f.NArgs+1].IsProc()
}
