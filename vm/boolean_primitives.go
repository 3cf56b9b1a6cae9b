package vm

// ---------------------------------------------------------------------------
// Boolean Primitives (NilClass, TrueClass, FalseClass)
// ---------------------------------------------------------------------------

func (vm *VM) installNilPrimitives() {
	c := vm.NilClass

	vm.DefineMethod(c, "to_i", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromInt(0))
	})

	vm.DefineMethod(c, "to_f", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromFloat(0))
	})

	vm.DefineMethod(c, "inspect", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, vm.NewString("nil"))
	})

	vm.DefineMethod(c, "to_s", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, vm.NewString(""))
	})
}

func (vm *VM) installBooleanPrimitives() {
	for _, c := range []*Class{vm.TrueClass, vm.FalseClass} {
		toS := func(vm *VM, v []Value, argc int) {
			vm.SetReturn(v, vm.NewString(vm.ToS(v[0])))
		}
		vm.DefineMethod(c, "inspect", toS)
		vm.DefineMethod(c, "to_s", toS)
	}
}
