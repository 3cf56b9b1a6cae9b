package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Object Primitives
// ---------------------------------------------------------------------------

func (vm *VM) installObjectPrimitives() {
	c := vm.ObjectClass

	// ! - true for nil and false receivers
	vm.DefineMethod(c, "!", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromBool(!v[0].IsTruthy()))
	})

	vm.DefineMethod(c, "==", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromBool(argc >= 1 && vm.Equal(v[0], v[1])))
	})

	vm.DefineMethod(c, "!=", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromBool(argc < 1 || !vm.Equal(v[0], v[1])))
	})

	vm.DefineMethod(c, "<=>", func(vm *VM, v []Value, argc int) {
		if argc < 1 {
			vm.SetReturn(v, Nil)
			return
		}
		vm.SetReturn(v, FromInt(int64(vm.Compare(v[0], v[1]))))
	})

	// === - class membership when the receiver is a class, equality otherwise
	vm.DefineMethod(c, "===", func(vm *VM, v []Value, argc int) {
		if argc < 1 {
			vm.SetReturn(v, False)
			return
		}
		if cls := v[0].ClassPtr(); cls != nil {
			vm.SetReturn(v, FromBool(vm.IsKindOf(v[1], cls)))
			return
		}
		vm.SetReturn(v, FromBool(vm.Equal(v[0], v[1])))
	})

	vm.DefineMethod(c, "class", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromClass(vm.ClassOf(v[0])))
	})

	vm.DefineMethod(c, "nil?", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromBool(v[0].IsNil()))
	})

	isKindOf := func(vm *VM, v []Value, argc int) {
		var cls *Class
		if argc >= 1 {
			cls = v[1].ClassPtr()
		}
		if cls == nil {
			vm.RaiseString(vm.TypeErrorClass, "class or module required")
			return
		}
		vm.SetReturn(v, FromBool(vm.IsKindOf(v[0], cls)))
	}
	vm.DefineMethod(c, "is_a?", isKindOf)
	vm.DefineMethod(c, "kind_of?", isKindOf)

	// new - allocate an instance and run initialize on it
	vm.DefineMethod(c, "new", objectNew)

	// dup - copy an instance's variables into a new instance; other values
	// are returned as they are
	vm.DefineMethod(c, "dup", func(vm *VM, v []Value, argc int) {
		if v[0].IsObject() {
			vm.SetReturn(v, vm.DupInstance(v[0]))
		}
	})

	vm.DefineMethod(c, "attr_reader", func(vm *VM, v []Value, argc int) {
		vm.defineAttrs(v, argc, false)
	})

	vm.DefineMethod(c, "attr_accessor", func(vm *VM, v []Value, argc int) {
		vm.defineAttrs(v, argc, true)
	})

	vm.DefineMethod(c, "block_given?", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromBool(vm.BlockGiven()))
	})

	vm.DefineMethod(c, "raise", objectRaise)

	inspect := func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, vm.NewString(vm.Inspect(v[0])))
	}
	vm.DefineMethod(c, "inspect", inspect)
	vm.DefineMethod(c, "to_s", func(vm *VM, v []Value, argc int) {
		if v[0].IsString() {
			return
		}
		vm.SetReturn(v, vm.NewString(vm.ToS(v[0])))
	})
}

// objectNew allocates an instance of the receiving class. When initialize
// is defined anywhere up the class chain it is run to completion in a nested
// pass of the opcode loop before the instance is returned. An exception the
// initializer leaves unhandled is raised again in the caller's context.
func objectNew(vm *VM, v []Value, argc int) {
	cls := v[0].ClassPtr()
	if cls == nil {
		vm.RaiseString(vm.TypeErrorClass, "new called on %s", vm.Inspect(v[0]))
		return
	}
	obj := vm.NewInstance(cls)
	if obj.IsNil() {
		vm.SetReturn(v, Nil)
		return
	}
	if m, _ := FindMethodByClass(cls, vm.symInitialize); m == nil {
		vm.SetReturn(v, obj)
		return
	}

	// The window's R(0) becomes the receiver of initialize; obj keeps its
	// own reference.
	vm.Acquire(obj)
	vm.SetReturn(v, obj)

	irep := &Irep{
		Name:  "new",
		NRegs: argc + 2,
		Code:  []Inst{I(OpSendB, 0, 0, argc), I(OpAbort)},
		Syms:  []string{"initialize"},
	}

	ctx := vm.saveContext()
	vm.exceptionTail = nil
	vm.base = vm.callBase
	vm.irep = irep
	vm.pc = 0
	vm.run()
	vm.dropMarkersTo(nil)
	vm.restoreContext(ctx)

	if vm.pending != nil {
		exc, msg := vm.takePending()
		vm.Release(obj)
		vm.SetReturn(v, Nil)
		vm.Raise(exc, msg)
		vm.Release(msg)
		return
	}
	vm.SetReturn(v, obj)
}

// objectRaise implements raise with its four forms: no arguments, a
// message, a class, or a class and a message. A single argument that is not
// a class is the message of a RuntimeError, whatever its type.
func objectRaise(vm *VM, v []Value, argc int) {
	cls := vm.RuntimeErrorClass
	msg := Nil
	switch {
	case argc == 0:
	case argc == 1 && v[1].IsClass():
		cls = v[1].ClassPtr()
	case argc == 1:
		msg = v[1]
	case argc == 2 && v[1].IsClass():
		cls = v[1].ClassPtr()
		msg = v[2]
	default:
		cls = vm.ArgumentErrorClass
	}
	vm.SetReturn(v, Nil)
	vm.Raise(cls, msg)
}

// defineAttrs installs getters, and setters when writable, for each symbol
// or string argument on the receiving class.
func (vm *VM) defineAttrs(v []Value, argc int, writable bool) {
	cls := v[0].ClassPtr()
	if cls == nil {
		vm.RaiseString(vm.TypeErrorClass, "attribute definition needs a class")
		return
	}
	for i := 1; i <= argc; i++ {
		var name string
		switch {
		case v[i].IsSymbol():
			name = vm.Symbols.Name(v[i].SymbolID())
		case v[i].IsString():
			name = vm.GoString(v[i])
		default:
			vm.RaiseString(vm.TypeErrorClass, "%s is not a symbol nor a string", vm.Inspect(v[i]))
			return
		}
		vm.DefineMethod(cls, name, attrGet)
		if writable {
			vm.DefineMethod(cls, name+"=", attrSet)
		}
	}
	vm.SetReturn(v, Nil)
}

// attrGet reads the instance variable named after the method it was called
// as.
func attrGet(vm *VM, v []Value, argc int) {
	vm.SetReturn(v, vm.GetIV(v[0], vm.Callee()))
}

// attrSet writes the instance variable named after the method it was called
// as, minus the trailing '='.
func attrSet(vm *VM, v []Value, argc int) {
	if argc < 1 {
		vm.RaiseString(vm.ArgumentErrorClass, "wrong number of arguments (given 0, expected 1)")
		return
	}
	name := strings.TrimSuffix(vm.Symbols.Name(vm.Callee()), "=")
	vm.SetIV(v[0], vm.Intern(name), v[1])
	vm.Acquire(v[1])
	vm.SetReturn(v, v[1])
}

// ---------------------------------------------------------------------------
// Debug methods
// ---------------------------------------------------------------------------

func (vm *VM) installDebugPrimitives() {
	c := vm.ObjectClass

	vm.DefineMethod(c, "object_id", func(vm *VM, v []Value, argc int) {
		vm.SetReturn(v, FromInt(vm.ObjectID(v[0])))
	})

	// instance_methods - prints the method names of each class up the chain
	vm.DefineMethod(c, "instance_methods", func(vm *VM, v []Value, argc int) {
		cls := v[0].ClassPtr()
		if cls == nil {
			cls = vm.ClassOf(v[0])
		}
		out := vm.config.Console
		for ; cls != nil; cls = cls.Super {
			names := make([]string, 0)
			for _, m := range cls.Methods() {
				names = append(names, vm.MethodName(m))
			}
			fmt.Fprintf(out, "%s: %s\n", cls.Name, strings.Join(names, ", "))
		}
		vm.SetReturn(v, Nil)
	})

	vm.DefineMethod(c, "instance_variables", func(vm *VM, v []Value, argc int) {
		var names []string
		if inst := v[0].InstancePtr(); inst != nil {
			names = make([]string, 0, inst.ivar.Len())
			for _, sym := range inst.ivar.Keys() {
				names = append(names, ":@"+vm.Symbols.Name(sym))
			}
		}
		fmt.Fprintf(vm.config.Console, "[%s]\n", strings.Join(names, ", "))
		vm.SetReturn(v, Nil)
	})

	vm.DefineMethod(c, "memory_statistics", func(vm *VM, v []Value, argc int) {
		vm.WriteMemoryStatistics(vm.config.Console)
		vm.SetReturn(v, Nil)
	})
}

// ObjectID returns a number identifying v. Heap values are numbered by
// allocation, classes by name.
func (vm *VM) ObjectID(v Value) int64 {
	switch {
	case v.IsOwning():
		return int64(v.Serial())
	case v.IsClass():
		return int64(v.cls.Sym)
	case v.IsInt():
		return v.n*2 + 1
	}
	return int64(v.tt)<<32 | v.n
}

// WriteMemoryStatistics prints the pool counters.
func (vm *VM) WriteMemoryStatistics(w io.Writer) {
	s := vm.pool.Stats()
	fmt.Fprintf(w, "Memory Statistics\n")
	fmt.Fprintf(w, "  Total : %d\n", s.Total)
	fmt.Fprintf(w, "  Used  : %d\n", s.Used)
	fmt.Fprintf(w, "  Free  : %d\n", s.Free)
	fmt.Fprintf(w, "  Peak  : %d\n", s.Peak)
	fmt.Fprintf(w, "  Pinned: %d\n", s.Pinned)
	fmt.Fprintf(w, "  Live  : %d\n", vm.live)
}
