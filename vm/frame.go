package vm

// ---------------------------------------------------------------------------
// CallFrame: the shared call / protection stack node
// ---------------------------------------------------------------------------

// FrameTag distinguishes ordinary call frames from protection markers.
type FrameTag uint8

const (
	TagCall FrameTag = iota
	TagRescue
	TagEnsure
)

func (t FrameTag) String() string {
	switch t {
	case TagRescue:
		return "rescue"
	case TagEnsure:
		return "ensure"
	}
	return "call"
}

// CallFrame saves the caller's execution context while a callee runs, or,
// as a protection marker, the context a rescue or ensure body resumes in.
//
// For a call frame the callee's register window starts at Base+RegOffset.
// A marker's Depth is the call-frame tail at the time the marker was pushed;
// unwinding to the marker pops call frames until the tail is Depth again.
type CallFrame struct {
	Base        int
	Irep        *Irep
	PC          int
	TargetClass *Class

	OwnClass  *Class // class the running method was found on
	MethodID  Symbol
	NArgs     int
	RegOffset int
	Tag       FrameTag
	Method    *Method // held for the duration of the call

	Depth *CallFrame
	Prev  *CallFrame

	freed bool
}

// Window returns the absolute index of the callee's R(0).
func (f *CallFrame) Window() int {
	return f.Base + f.RegOffset
}

// IsMarker reports whether f is a rescue or ensure marker.
func (f *CallFrame) IsMarker() bool {
	return f.Tag != TagCall
}

// Freed reports whether f has been popped.
func (f *CallFrame) Freed() bool {
	return f.freed
}

// execContext is the part of the VM state a frame or a nested pass saves.
type execContext struct {
	irep           *Irep
	pc             int
	base           int
	targetClass    *Class
	exceptionTail  *CallFrame
	entry          *CallFrame
	finalizeFrame  *CallFrame
	settleOnReturn bool
	excState       ExceptionState
	callBase       int
	callee         Symbol
}

func (vm *VM) saveContext() execContext {
	return execContext{
		irep:           vm.irep,
		pc:             vm.pc,
		base:           vm.base,
		targetClass:    vm.targetClass,
		exceptionTail:  vm.exceptionTail,
		entry:          vm.entry,
		finalizeFrame:  vm.finalizeFrame,
		settleOnReturn: vm.settleOnReturn,
		excState:       vm.excState,
		callBase:       vm.callBase,
		callee:         vm.callee,
	}
}

func (vm *VM) restoreContext(ctx execContext) {
	vm.irep = ctx.irep
	vm.pc = ctx.pc
	vm.base = ctx.base
	vm.targetClass = ctx.targetClass
	vm.exceptionTail = ctx.exceptionTail
	vm.entry = ctx.entry
	vm.finalizeFrame = ctx.finalizeFrame
	vm.settleOnReturn = ctx.settleOnReturn
	vm.excState = ctx.excState
	vm.callBase = ctx.callBase
	vm.callee = ctx.callee
	vm.jumped = false
}

// ---------------------------------------------------------------------------
// Push / pop
// ---------------------------------------------------------------------------

// PushFrame saves the current context on top of the call-frame stack. The
// caller then moves the VM into the callee. Running out of frames aborts.
func (vm *VM) PushFrame(methodID Symbol, regOffset, nargs int) *CallFrame {
	if vm.config.MaxFrames > 0 && vm.depth >= vm.config.MaxFrames {
		vm.fatalf("call stack overflow (%d frames)", vm.depth)
	}
	if !vm.pool.Alloc(sizeofFrame) {
		vm.fatalf("no memory for call frame")
	}
	f := &CallFrame{
		Base:        vm.base,
		Irep:        vm.irep,
		PC:          vm.pc,
		TargetClass: vm.targetClass,
		OwnClass:    vm.targetClass,
		MethodID:    methodID,
		NArgs:       nargs,
		RegOffset:   regOffset,
		Tag:         TagCall,
		Prev:        vm.callinfoTail,
	}
	vm.callinfoTail = f
	vm.depth++
	return f
}

// PopFrame restores the context saved by the top frame and discards it,
// together with any protection markers pushed while it was on top.
func (vm *VM) PopFrame() {
	f := vm.callinfoTail
	if f == nil {
		vm.fatalf("pop of empty call stack")
	}
	if f.Tag == TagCall {
		vm.dropFrameMarkers(f)
	}
	vm.callinfoTail = f.Prev
	vm.base = f.Base
	vm.irep = f.Irep
	vm.pc = f.PC
	vm.targetClass = f.TargetClass
	vm.freeFrame(f)
	if f.Tag == TagCall {
		vm.depth--
	}
}

func (vm *VM) freeFrame(f *CallFrame) {
	if f.Method != nil {
		vm.releaseMethod(f.Method)
		f.Method = nil
	}
	f.freed = true
	vm.pool.Free(sizeofFrame)
}

// Depth returns the number of call frames on the stack.
func (vm *VM) Depth() int {
	return vm.depth
}

// unwindFramesTo pops call frames until target is on top. target must be
// on the stack or nil.
func (vm *VM) unwindFramesTo(target *CallFrame) {
	for vm.callinfoTail != target {
		if vm.callinfoTail == nil {
			vm.fatalf("unwind target is not on the call stack")
		}
		vm.PopFrame()
	}
}

// ---------------------------------------------------------------------------
// Register file
// ---------------------------------------------------------------------------

// setReg stores v in absolute register i, releasing the previous occupant.
// Ownership of v passes to the register.
func (vm *VM) setReg(i int, v Value) {
	old := vm.regs[i]
	vm.regs[i] = v
	vm.Release(old)
}

func (vm *VM) clearReg(i int) {
	vm.setReg(i, Empty)
}

// enterWindow checks that the current window fits the register file and
// records it in the high-water mark.
func (vm *VM) enterWindow(base, size int) {
	top := base + size
	if base < 0 || top > len(vm.regs) {
		vm.fatalf("register file overflow (%d > %d)", top, len(vm.regs))
	}
	if top > vm.regHigh {
		vm.regHigh = top
	}
}

// scrubAbove releases every register from top to the high-water mark. At an
// instruction boundary nothing above the current window is live.
func (vm *VM) scrubAbove(top int) {
	for i := top; i < vm.regHigh; i++ {
		if !vm.regs[i].IsEmpty() {
			vm.clearReg(i)
		}
	}
	if top < vm.regHigh {
		vm.regHigh = top
	}
}

// SetReturn stores the result of a native method in v[0], releasing the
// receiver or earlier result held there. Ownership of val passes to the
// register.
func (vm *VM) SetReturn(v []Value, val Value) {
	old := v[0]
	v[0] = val
	vm.Release(old)
}

// Callee returns the name the running native was invoked under.
func (vm *VM) Callee() Symbol {
	return vm.callee
}
