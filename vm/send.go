package vm

import "fmt"

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// dispatch calls method sym on the receiver in R(a) with argc arguments,
// looking the method up from cls. The block, or nil, is in R(a+argc+1).
//
// A native runs to completion on the callee's window. A script method gets a
// call frame and the opcode loop continues in its code.
func (vm *VM) dispatch(a int, sym Symbol, argc int, cls *Class) {
	callBase := vm.base + a
	vm.enterWindow(callBase, argc+2)

	m, owner := FindMethodByClass(cls, sym)
	if m == nil {
		recv := vm.regs[callBase]
		log.Warningf("[%s] undefined method %s for %s", vm.shortID(), vm.Symbols.Name(sym), vm.ClassOf(recv).Name)
		vm.RaiseString(vm.NoMethodErrorClass, "undefined method '%s' for %s", vm.Symbols.Name(sym), vm.ClassOf(recv).Name)
		return
	}
	if vm.Profiler != nil {
		vm.Profiler.RecordDispatch(owner, m, vm.Symbols)
	}

	if m.IsNative() {
		vm.callNative(m, callBase, argc)
		return
	}

	f := vm.PushFrame(sym, a, argc)
	f.OwnClass = owner
	f.Method = m
	vm.acquireMethod(m)
	vm.base = callBase
	vm.irep = m.Irep
	vm.pc = 0
	vm.enterWindow(vm.base, m.Irep.NRegs)
	vm.jumped = true
}

// callNative runs a native on the window at callBase and drops its argument
// registers afterwards, unless the native moved the loop elsewhere.
func (vm *VM) callNative(m *Method, callBase, argc int) {
	savedBase, savedCallee := vm.callBase, vm.callee
	vm.callBase, vm.callee = callBase, m.Sym
	vm.acquireMethod(m)

	m.Native(vm, vm.regs[callBase:callBase+argc+2], argc)

	vm.releaseMethod(m)
	vm.callBase, vm.callee = savedBase, savedCallee
	if vm.jumped {
		return
	}
	for i := callBase + 1; i <= callBase+argc+1; i++ {
		vm.clearReg(i)
	}
}

// ---------------------------------------------------------------------------
// Send: calling a method from native code
// ---------------------------------------------------------------------------

// Send calls the native method name on recv with args from inside a running
// native. The call is made on a scratch window regOffset+2 slots past the
// native's own window, so regOffset is normally the native's argc. No call
// frame is pushed.
//
// recv and args stay owned by the caller; the returned value is owned by the
// caller. A name that resolves to nothing raises NoMethodError in the VM and
// returns ErrNoMethod. A method that needs the opcode loop returns
// ErrNotNative without being called.
func (vm *VM) Send(regOffset int, recv Value, name string, args ...Value) (Value, error) {
	sym := vm.Intern(name)
	cls := vm.ClassOf(recv)
	m, owner := FindMethodByClass(cls, sym)
	if m == nil {
		log.Warningf("[%s] send: undefined method %s for %s", vm.shortID(), name, cls.Name)
		vm.RaiseString(vm.NoMethodErrorClass, "undefined method '%s' for %s", name, cls.Name)
		return Nil, fmt.Errorf("%s for %s: %w", name, cls.Name, ErrNoMethod)
	}
	if !m.IsNative() || m.redirect {
		log.Warningf("[%s] send: %s#%s is not native", vm.shortID(), owner.Name, name)
		return Nil, fmt.Errorf("%s#%s: %w", owner.Name, name, ErrNotNative)
	}
	if vm.Profiler != nil {
		vm.Profiler.RecordDispatch(owner, m, vm.Symbols)
	}

	base := vm.callBase + regOffset + 2
	argc := len(args)
	vm.enterWindow(base, argc+2)

	vm.Acquire(recv)
	vm.setReg(base, recv)
	for i, arg := range args {
		vm.Acquire(arg)
		vm.setReg(base+1+i, arg)
	}
	vm.setReg(base+argc+1, Nil)

	vm.callNative(m, base, argc)

	result := vm.regs[base]
	vm.regs[base] = Empty
	return result, nil
}
