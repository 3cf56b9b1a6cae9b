package vm

import (
	"bytes"
	"math"
	"strings"
)

// Compare orders any two values. Integers and floats compare numerically
// with each other; otherwise values of different kinds order by kind.
// Objects and procs order by allocation, classes and symbols by name.
func (vm *VM) Compare(a, b Value) int {
	if a.tt != b.tt {
		switch {
		case a.tt == TypeInteger && b.tt == TypeFloat:
			return cmpFloat(float64(a.n), b.f)
		case a.tt == TypeFloat && b.tt == TypeInteger:
			return cmpFloat(a.f, float64(b.n))
		case a.tt < b.tt:
			return -1
		}
		return 1
	}

	switch a.tt {
	case TypeInteger:
		return cmpInt(a.n, b.n)
	case TypeFloat:
		return cmpFloat(a.f, b.f)
	case TypeSymbol:
		return strings.Compare(vm.Symbols.Name(Symbol(a.n)), vm.Symbols.Name(Symbol(b.n)))
	case TypeClass:
		return strings.Compare(a.cls.Name, b.cls.Name)
	case TypeObject, TypeProc:
		return cmpInt(int64(a.Serial()), int64(b.Serial()))
	case TypeString:
		return bytes.Compare(a.StringPtr().data, b.StringPtr().data)
	}
	return 0
}

// Equal reports whether Compare(a, b) is zero. NaN equals nothing, itself
// included.
func (vm *VM) Equal(a, b Value) bool {
	if isNaN(a) || isNaN(b) {
		return false
	}
	return vm.Compare(a, b) == 0
}

func isNaN(v Value) bool {
	return v.tt == TypeFloat && math.IsNaN(v.f)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
