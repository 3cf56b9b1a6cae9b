package vm

// ---------------------------------------------------------------------------
// Proc Primitives
// ---------------------------------------------------------------------------

func (vm *VM) installProcPrimitives() {
	c := vm.ProcClass

	// call - run the block; the opcode loop continues in its code
	vm.defineRedirect(c, "call", procCall)

	// new - Proc.new { ... } returns the block it was given
	vm.DefineMethod(c, "new", func(vm *VM, v []Value, argc int) {
		block := v[argc+1]
		if !block.IsProc() {
			vm.RaiseString(vm.ArgumentErrorClass, "tried to create Proc object without a block")
			return
		}
		vm.Acquire(block)
		vm.SetReturn(v, block)
	})

	inspect := func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, vm.NewString(vm.Inspect(v[0])))
	}
	vm.DefineMethod(c, "inspect", inspect)
	vm.DefineMethod(c, "to_s", inspect)
}
