package vm

import (
	"bytes"
	"fmt"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Inspect / ToS
// ---------------------------------------------------------------------------

func TestInspectForms(t *testing.T) {
	vm := newTestVM(t)
	obj := vm.NewInstance(vm.DefineClass("Foo", nil))
	defer vm.Release(obj)
	proc := vm.NewProc(&Irep{Name: "b", NRegs: 1})
	defer vm.Release(proc)
	str := vm.NewString("a\tb\x7f")
	defer vm.Release(str)

	tests := []struct {
		v       Value
		inspect string
		toS     string
	}{
		{Nil, "nil", ""},
		{True, "true", "true"},
		{False, "false", "false"},
		{FromInt(-12), "-12", "-12"},
		{FromFloat(1.5), "1.5", "1.5"},
		{FromSymbol(vm.Intern("sym")), ":sym", "sym"},
		{FromSymbol(vm.Intern("a:b")), `":a:b"`, "a:b"},
		{FromClass(vm.ObjectClass), "Object", "Object"},
		{str, `"a\x09b\x7F"`, "a\tb\x7f"},
		{obj, fmt.Sprintf("#<Foo:%08x>", obj.Serial()), fmt.Sprintf("#<Foo:%08x>", obj.Serial())},
		{proc, fmt.Sprintf("#<Proc:%08x>", proc.Serial()), fmt.Sprintf("#<Proc:%08x>", proc.Serial())},
	}
	for _, tt := range tests {
		if got := vm.Inspect(tt.v); got != tt.inspect {
			t.Errorf("Inspect(%s) = %q, want %q", tt.v.Type(), got, tt.inspect)
		}
		if got := vm.ToS(tt.v); got != tt.toS {
			t.Errorf("ToS(%s) = %q, want %q", tt.v.Type(), got, tt.toS)
		}
	}
}

// ---------------------------------------------------------------------------
// p / print / puts
// ---------------------------------------------------------------------------

// callOnMain runs name on main with the pool literals as arguments.
func callOnMain(t *testing.T, name string, args ...Literal) (string, Value) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Console = out
	vm, err := NewVM(cfg)
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	code := []Inst{I(OpLoadSelf, 1)}
	for i := range args {
		code = append(code, I(OpLoadL, 2+i, i))
	}
	code = append(code, I(OpSend, 1, 0, len(args)), I(OpReturn, 1))
	irep := &Irep{Name: "main", NRegs: len(args) + 3, Code: code, Pool: args, Syms: []string{name}}

	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out.String(), result
}

func TestKernelOutput(t *testing.T) {
	hello := Literal{Kind: LiteralString, Str: "hello"}
	line := Literal{Kind: LiteralString, Str: "line\n"}
	num := Literal{Kind: LiteralInt, Int: 5}

	tests := []struct {
		name string
		args []Literal
		want string
	}{
		{"p", []Literal{hello}, "\"hello\"\n"},
		{"p", []Literal{hello, num}, "\"hello\"\n5\n"},
		{"print", []Literal{hello, num}, "hello5"},
		{"puts", []Literal{hello, line}, "hello\nline\n"},
		{"puts", nil, "\n"},
	}
	for _, tt := range tests {
		out, _ := callOnMain(t, tt.name, tt.args...)
		if out != tt.want {
			t.Errorf("%s%v printed %q, want %q", tt.name, tt.args, out, tt.want)
		}
	}
}

func TestPReturnsItsArgument(t *testing.T) {
	_, result := callOnMain(t, "p", Literal{Kind: LiteralInt, Int: 3})
	if !result.IsInt() || result.Int() != 3 {
		t.Errorf("p(3) = %s, want 3", result.GoString())
	}
	_, result = callOnMain(t, "p", Literal{Kind: LiteralInt, Int: 3}, Literal{Kind: LiteralInt, Int: 4})
	if !result.IsNil() {
		t.Errorf("p(3, 4) = %s, want nil", result.GoString())
	}
}

// ---------------------------------------------------------------------------
// Compare
// ---------------------------------------------------------------------------

func TestCompare(t *testing.T) {
	vm := newTestVM(t)
	a := vm.NewString("apple")
	defer vm.Release(a)
	b := vm.NewString("banana")
	defer vm.Release(b)
	first := vm.NewInstance(vm.ObjectClass)
	defer vm.Release(first)
	second := vm.NewInstance(vm.ObjectClass)
	defer vm.Release(second)

	tests := []struct {
		a, b Value
		want int
	}{
		{FromInt(1), FromInt(2), -1},
		{FromInt(2), FromInt(2), 0},
		{FromInt(2), FromFloat(1.5), 1},
		{FromFloat(2), FromInt(2), 0},
		{a, b, -1},
		{b, a, 1},
		{first, second, -1},
		{first, first, 0},
		{FromSymbol(vm.Intern("abc")), FromSymbol(vm.Intern("abd")), -1},
		{Nil, FromInt(0), -1},
		{True, False, 1},
	}
	for _, tt := range tests {
		if got := vm.Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", vm.Inspect(tt.a), vm.Inspect(tt.b), got, tt.want)
		}
	}
	if vm.Equal(FromInt(1), True) {
		t.Error("Equal(1, true) = true")
	}
}

func TestNaNEqualsNothing(t *testing.T) {
	vm := newTestVM(t)
	nan := FromFloat(math.NaN())
	if vm.Equal(nan, nan) {
		t.Error("Equal(NaN, NaN) = true")
	}
	if vm.Equal(nan, FromInt(0)) || vm.Equal(FromFloat(0), nan) {
		t.Error("NaN equal to zero")
	}
	if !vm.Equal(FromFloat(0.5), FromFloat(0.5)) {
		t.Error("Equal(0.5, 0.5) = false")
	}
}
