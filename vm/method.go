package vm

// Func is a natively implemented method.
//
// v is the callee's register window: v[0] holds the receiver and receives
// the return value, v[1..argc] hold the arguments and v[argc+1] holds the
// block or nil. A native returns by overwriting v[0] through SetReturn.
type Func func(vm *VM, v []Value, argc int)

// Method is one entry in a class's method list. Its body is either a native
// function or a code block.
//
// Methods carry a reference count: the class list holds one reference and
// every frame executing the method holds another, so a method redefined
// while it runs stays valid until it returns.
type Method struct {
	Sym    Symbol
	Native Func
	Irep   *Irep

	refCount int
	redirect bool // native that moves the loop into bytecode (Proc#call)
	next     *Method
}

// IsNative reports whether the method is implemented in Go.
func (m *Method) IsNative() bool {
	return m.Native != nil
}

// RefCount returns the method's reference count.
func (m *Method) RefCount() int {
	return m.refCount
}

// DefineMethod installs a native method on cls (Object when cls is nil). The
// new entry goes to the head of the list, shadowing any earlier method of the
// same name on that class.
func (vm *VM) DefineMethod(cls *Class, name string, fn Func) *Method {
	if cls == nil {
		cls = vm.ObjectClass
	}
	if !vm.pool.Alloc(sizeofMethod) {
		log.Warningf("[%s] no memory for method %s#%s", vm.shortID(), cls.Name, name)
		return nil
	}
	m := &Method{Sym: vm.Intern(name), Native: fn, refCount: 1}
	m.next = cls.methods
	cls.methods = m
	log.Debugf("[%s] define method %s#%s", vm.shortID(), cls.Name, name)
	return m
}

// defineRedirect installs a native that hands control back to the opcode
// loop at new bytecode instead of returning a value.
func (vm *VM) defineRedirect(cls *Class, name string, fn Func) {
	if m := vm.DefineMethod(cls, name, fn); m != nil {
		m.redirect = true
	}
}

// InstallProc installs the code block of proc as method sym on cls, the way a
// script-level def does. An existing entry of the same name on cls itself is
// unlinked and released first; entries on superclasses are untouched.
func (vm *VM) InstallProc(cls *Class, sym Symbol, proc *Proc) *Method {
	var prev *Method
	for m := cls.methods; m != nil; m = m.next {
		if m.Sym != sym {
			prev = m
			continue
		}
		if prev == nil {
			cls.methods = m.next
		} else {
			prev.next = m.next
		}
		m.next = nil
		vm.releaseMethod(m)
		break
	}

	if !vm.pool.Alloc(sizeofMethod) {
		log.Warningf("[%s] no memory for method %s#%s", vm.shortID(), cls.Name, vm.Symbols.Name(sym))
		return nil
	}
	m := &Method{Sym: sym, Irep: proc.Irep, refCount: 1}
	m.next = cls.methods
	cls.methods = m
	log.Debugf("[%s] def %s#%s", vm.shortID(), cls.Name, vm.Symbols.Name(sym))
	return m
}

func (vm *VM) acquireMethod(m *Method) {
	m.refCount++
}

func (vm *VM) releaseMethod(m *Method) {
	m.refCount--
	if m.refCount == 0 {
		vm.pool.Free(sizeofMethod)
	} else if m.refCount < 0 {
		vm.fatalf("release of released method %s", vm.Symbols.Name(m.Sym))
	}
}

// MethodName returns the method's name.
func (vm *VM) MethodName(m *Method) string {
	return vm.Symbols.Name(m.Sym)
}
