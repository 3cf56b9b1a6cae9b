package vm

// ConstTable stores named constants, classes included. Entries own a
// reference to their value.
type ConstTable struct {
	entries map[Symbol]Value
}

// NewConstTable creates an empty constant table.
func NewConstTable() *ConstTable {
	return &ConstTable{entries: make(map[Symbol]Value)}
}

// Get returns the constant bound to sym.
func (ct *ConstTable) Get(sym Symbol) (Value, bool) {
	v, ok := ct.entries[sym]
	return v, ok
}

// Len returns the number of constants.
func (ct *ConstTable) Len() int {
	return len(ct.entries)
}

// SetConst binds sym to v. The table takes its own reference to v and
// releases whatever was bound before.
func (vm *VM) SetConst(sym Symbol, v Value) {
	vm.Acquire(v)
	if old, ok := vm.Consts.entries[sym]; ok {
		vm.Release(old)
	}
	vm.Consts.entries[sym] = v
}

// GetConst returns the constant bound to sym, acquired for the caller, or
// nil if unbound.
func (vm *VM) GetConst(sym Symbol) Value {
	v, ok := vm.Consts.Get(sym)
	if !ok {
		return Nil
	}
	vm.Acquire(v)
	return v
}

// releaseConsts drops every constant reference. Used when the VM closes.
func (vm *VM) releaseConsts() {
	for sym, v := range vm.Consts.entries {
		vm.Release(v)
		delete(vm.Consts.entries, sym)
	}
}
