package vm

// ---------------------------------------------------------------------------
// Instance: heap object with instance variables
// ---------------------------------------------------------------------------

// Instance is a heap-allocated object of a script-visible class. Its
// instance variables live in a symbol-keyed table owned by the instance.
type Instance struct {
	objHeader
	cls  *Class
	ivar KeyValue
}

// Class returns the class the instance was created from.
func (inst *Instance) Class() *Class {
	return inst.cls
}

// NewInstance allocates an instance of cls with reference count 1.
// Returns nil when the pool is exhausted; callers treat nil as absence.
func (vm *VM) NewInstance(cls *Class) Value {
	inst := &Instance{cls: cls, ivar: newKeyValue(vm.pool)}
	if !vm.newHeader(&inst.objHeader, sizeofInstance) {
		log.Warningf("[%s] no memory for %s instance", vm.shortID(), cls.Name)
		return Nil
	}
	return fromHeap(TypeObject, inst)
}

// deleteInstance releases every instance variable. The instance's own bytes
// are returned by Release.
func (vm *VM) deleteInstance(inst *Instance) {
	inst.ivar.clear(vm.Release)
}

// SetIV stores v in obj's instance variable sym. The table takes its own
// reference to v and releases the value it replaces.
func (vm *VM) SetIV(obj Value, sym Symbol, v Value) {
	inst := obj.InstancePtr()
	if inst == nil {
		return
	}
	vm.mustBeLive(obj)
	vm.Acquire(v)
	old, replaced, ok := inst.ivar.Set(sym, v)
	if !ok {
		log.Warningf("[%s] no memory for instance variable @%s", vm.shortID(), vm.Symbols.Name(sym))
		vm.Release(v)
		return
	}
	if replaced {
		vm.Release(old)
	}
}

// GetIV returns obj's instance variable sym, acquired for the caller, or nil
// if it was never set.
func (vm *VM) GetIV(obj Value, sym Symbol) Value {
	inst := obj.InstancePtr()
	if inst == nil {
		return Nil
	}
	vm.mustBeLive(obj)
	v, ok := inst.ivar.Get(sym)
	if !ok {
		return Nil
	}
	vm.Acquire(v)
	return v
}

// DupInstance allocates a new instance of obj's class holding its own
// references to the same instance variable values.
func (vm *VM) DupInstance(obj Value) Value {
	src := obj.InstancePtr()
	if src == nil {
		return Nil
	}
	vm.mustBeLive(obj)
	nv := vm.NewInstance(src.cls)
	if nv.IsNil() {
		return nv
	}
	dst := nv.InstancePtr()
	if !src.ivar.dupInto(&dst.ivar, vm.Acquire) {
		log.Warningf("[%s] no memory to copy instance variables of %s", vm.shortID(), src.cls.Name)
	}
	return nv
}
