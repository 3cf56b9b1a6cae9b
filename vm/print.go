package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Textual forms
// ---------------------------------------------------------------------------

// Inspect returns the form p prints.
func (vm *VM) Inspect(v Value) string {
	var sb strings.Builder
	vm.writeValue(&sb, v, true)
	return sb.String()
}

// ToS returns the form print and puts use.
func (vm *VM) ToS(v Value) string {
	var sb strings.Builder
	vm.writeValue(&sb, v, false)
	return sb.String()
}

func (vm *VM) writeValue(w io.Writer, v Value, inspect bool) {
	switch v.tt {
	case TypeEmpty:
	case TypeNil:
		if inspect {
			io.WriteString(w, "nil")
		}
	case TypeFalse:
		io.WriteString(w, "false")
	case TypeTrue:
		io.WriteString(w, "true")
	case TypeInteger:
		io.WriteString(w, strconv.FormatInt(v.n, 10))
	case TypeFloat:
		fmt.Fprintf(w, "%g", v.f)
	case TypeSymbol:
		name := vm.Symbols.Name(Symbol(v.n))
		switch {
		case !inspect:
			io.WriteString(w, name)
		case strings.ContainsRune(name, ':'):
			fmt.Fprintf(w, "\":%s\"", name)
		default:
			io.WriteString(w, ":"+name)
		}
	case TypeClass:
		io.WriteString(w, v.cls.Name)
	case TypeObject:
		fmt.Fprintf(w, "#<%s:%08x>", v.InstancePtr().cls.Name, v.Serial())
	case TypeProc:
		fmt.Fprintf(w, "#<Proc:%08x>", v.Serial())
	case TypeString:
		data := v.StringPtr().data
		if !inspect {
			w.Write(data)
			return
		}
		io.WriteString(w, `"`)
		for _, c := range data {
			if c < ' ' || c >= 0x7f {
				fmt.Fprintf(w, "\\x%02X", c)
			} else {
				w.Write([]byte{c})
			}
		}
		io.WriteString(w, `"`)
	}
}

// ---------------------------------------------------------------------------
// Kernel output
// ---------------------------------------------------------------------------

func (vm *VM) installPrintPrimitives() {
	obj := vm.ObjectClass

	// p(args...) prints each argument's inspect form on its own line and
	// returns its argument.
	vm.DefineMethod(obj, "p", func(vm *VM, v []Value, argc int) {
		for i := 1; i <= argc; i++ {
			fmt.Fprintln(vm.config.Console, vm.Inspect(v[i]))
		}
		switch argc {
		case 0:
			vm.SetReturn(v, Nil)
		case 1:
			vm.Acquire(v[1])
			vm.SetReturn(v, v[1])
		default:
			vm.SetReturn(v, Nil)
		}
	})

	vm.DefineMethod(obj, "print", func(vm *VM, v []Value, argc int) {
		for i := 1; i <= argc; i++ {
			io.WriteString(vm.config.Console, vm.ToS(v[i]))
		}
		vm.SetReturn(v, Nil)
	})

	vm.DefineMethod(obj, "puts", func(vm *VM, v []Value, argc int) {
		if argc == 0 {
			io.WriteString(vm.config.Console, "\n")
		}
		for i := 1; i <= argc; i++ {
			s := vm.ToS(v[i])
			if !strings.HasSuffix(s, "\n") {
				s += "\n"
			}
			io.WriteString(vm.config.Console, s)
		}
		vm.SetReturn(v, Nil)
	})
}
