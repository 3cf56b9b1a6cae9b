package vm

import "sort"

// ---------------------------------------------------------------------------
// Class: super-chain link plus method list
// ---------------------------------------------------------------------------

// Class is a script-visible class. Classes are created once, registered as
// constants, and live as long as the VM.
//
// Methods are kept in a singly linked list, newest first. Lookup scans the
// list linearly and stops at the first name match, so a later installation
// shadows an earlier one of the same name.
type Class struct {
	Sym     Symbol
	Name    string
	Super   *Class // nil only for Object
	methods *Method
}

// IsSubclassOf returns true if c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Super {
		if current == other {
			return true
		}
	}
	return false
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Super; current != nil; current = current.Super {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for the root class).
func (c *Class) Depth() int {
	depth := 0
	for current := c.Super; current != nil; current = current.Super {
		depth++
	}
	return depth
}

// Methods returns the class's own methods in lookup order.
func (c *Class) Methods() []*Method {
	var result []*Method
	for m := c.methods; m != nil; m = m.next {
		result = append(result, m)
	}
	return result
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// Definition and lookup
// ---------------------------------------------------------------------------

// DefineClass returns the class bound to name, creating it if needed.
//
// A new class gets super as its superclass, or Object when super is nil.
// Defining an existing class again returns it unchanged. If name is bound to
// a constant that is not a class the VM aborts.
func (vm *VM) DefineClass(name string, super *Class) *Class {
	sym := vm.Intern(name)
	existing, ok := vm.Consts.Get(sym)
	if ok {
		if existing.tt == TypeClass {
			return existing.cls
		}
		vm.fatalf("TypeError: %s is not a class", name)
	}

	if !vm.pool.AllocNoFree(sizeofClass) {
		vm.fatalf("no memory for class %s", name)
	}
	if super == nil {
		super = vm.ObjectClass
	}
	cls := &Class{Sym: sym, Name: name, Super: super}
	vm.SetConst(sym, FromClass(cls))

	if super != nil {
		log.Debugf("[%s] define class %s < %s", vm.shortID(), name, super.Name)
	} else {
		log.Debugf("[%s] define class %s", vm.shortID(), name)
	}
	return cls
}

// ClassByName returns the class bound to name, or nil.
func (vm *VM) ClassByName(name string) *Class {
	sym, ok := vm.Symbols.Lookup(name)
	if !ok {
		return nil
	}
	v, ok := vm.Consts.Get(sym)
	if !ok {
		return nil
	}
	return v.ClassPtr()
}

// Classes returns every class registered as a constant, ordered by name.
func (vm *VM) Classes() []*Class {
	var result []*Class
	for _, v := range vm.Consts.entries {
		if v.tt == TypeClass {
			result = append(result, v.cls)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ClassOf returns the class used to dispatch on v. Immediates map to their
// fixed classes; a class value dispatches on the class itself.
func (vm *VM) ClassOf(v Value) *Class {
	switch v.tt {
	case TypeNil:
		return vm.NilClass
	case TypeTrue:
		return vm.TrueClass
	case TypeFalse:
		return vm.FalseClass
	case TypeInteger:
		return vm.IntegerClass
	case TypeFloat:
		return vm.FloatClass
	case TypeSymbol:
		return vm.SymbolClass
	case TypeClass:
		return v.cls
	case TypeObject:
		return v.heap.(*Instance).cls
	case TypeProc:
		return vm.ProcClass
	case TypeString:
		return vm.StringClass
	}
	return vm.ObjectClass
}

// FindMethodByClass walks from cls up the super chain, scanning each method
// list, and returns the first method named sym together with the class it
// was found on.
func FindMethodByClass(cls *Class, sym Symbol) (*Method, *Class) {
	for c := cls; c != nil; c = c.Super {
		for m := c.methods; m != nil; m = m.next {
			if m.Sym == sym {
				return m, c
			}
		}
	}
	return nil, nil
}

// FindMethod resolves sym on the class of recv.
func (vm *VM) FindMethod(recv Value, sym Symbol) *Method {
	m, _ := FindMethodByClass(vm.ClassOf(recv), sym)
	return m
}

// IsKindOf returns true if v's class is cls or inherits from it.
func (vm *VM) IsKindOf(v Value, cls *Class) bool {
	return vm.ClassOf(v).IsSubclassOf(cls)
}
