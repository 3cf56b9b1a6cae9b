package vm

import "fmt"

// Type is the tag of a Value.
//
// Immediate kinds (nil, booleans, integers, floats, symbols, classes) carry no
// ownership. Owning kinds point at a heap object with a reference count and
// must be paired with Acquire/Release whenever they are copied or dropped.
type Type uint8

const (
	TypeEmpty Type = iota
	TypeNil
	TypeFalse
	TypeTrue
	TypeInteger
	TypeFloat
	TypeSymbol
	TypeClass

	// Owning kinds start here.
	TypeObject
	TypeProc
	TypeString
)

var typeNames = [...]string{
	TypeEmpty:   "empty",
	TypeNil:     "nil",
	TypeFalse:   "false",
	TypeTrue:    "true",
	TypeInteger: "integer",
	TypeFloat:   "float",
	TypeSymbol:  "symbol",
	TypeClass:   "class",
	TypeObject:  "object",
	TypeProc:    "proc",
	TypeString:  "string",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// IsOwning reports whether values of this type hold a reference count.
func (t Type) IsOwning() bool {
	return t >= TypeObject
}

// Value is a tagged union of every kind the interpreter manipulates.
type Value struct {
	tt   Type
	n    int64   // integer payload or symbol id
	f    float64 // float payload
	cls  *Class
	heap heapObject
}

// heapObject is implemented by every owning kind.
type heapObject interface {
	header() *objHeader
}

// objHeader is embedded at the start of every heap object.
type objHeader struct {
	refCount int
	serial   uint32 // allocation order, stands in for the heap address
	size     int    // bytes charged to the pool
}

func (h *objHeader) header() *objHeader { return h }

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Pre-defined immediate values.
var (
	Empty = Value{tt: TypeEmpty}
	Nil   = Value{tt: TypeNil}
	True  = Value{tt: TypeTrue}
	False = Value{tt: TypeFalse}
)

// FromBool returns True or False.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromInt creates an integer value.
func FromInt(n int64) Value {
	return Value{tt: TypeInteger, n: n}
}

// FromFloat creates a float value.
func FromFloat(f float64) Value {
	return Value{tt: TypeFloat, f: f}
}

// FromSymbol creates a symbol value.
func FromSymbol(s Symbol) Value {
	return Value{tt: TypeSymbol, n: int64(s)}
}

// FromClass creates a class value. Classes are never freed, so class values
// are treated as immediates.
func FromClass(c *Class) Value {
	if c == nil {
		return Nil
	}
	return Value{tt: TypeClass, cls: c}
}

func fromHeap(tt Type, h heapObject) Value {
	return Value{tt: tt, heap: h}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Type returns the tag of v.
func (v Value) Type() Type { return v.tt }

func (v Value) IsEmpty() bool   { return v.tt == TypeEmpty }
func (v Value) IsNil() bool     { return v.tt == TypeNil }
func (v Value) IsInt() bool     { return v.tt == TypeInteger }
func (v Value) IsFloat() bool   { return v.tt == TypeFloat }
func (v Value) IsSymbol() bool  { return v.tt == TypeSymbol }
func (v Value) IsClass() bool   { return v.tt == TypeClass }
func (v Value) IsObject() bool  { return v.tt == TypeObject }
func (v Value) IsProc() bool    { return v.tt == TypeProc }
func (v Value) IsString() bool  { return v.tt == TypeString }
func (v Value) IsOwning() bool  { return v.tt.IsOwning() }

// IsTruthy is false only for nil, false and empty slots.
func (v Value) IsTruthy() bool {
	return v.tt != TypeNil && v.tt != TypeFalse && v.tt != TypeEmpty
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

// Int returns the integer payload. Panics if v is not an integer.
func (v Value) Int() int64 {
	if v.tt != TypeInteger {
		panic("Value.Int: not an integer")
	}
	return v.n
}

// Float64 returns the float payload. Panics if v is not a float.
func (v Value) Float64() float64 {
	if v.tt != TypeFloat {
		panic("Value.Float64: not a float")
	}
	return v.f
}

// SymbolID returns the symbol payload. Panics if v is not a symbol.
func (v Value) SymbolID() Symbol {
	if v.tt != TypeSymbol {
		panic("Value.SymbolID: not a symbol")
	}
	return Symbol(v.n)
}

// ClassPtr returns the class payload, or nil if v is not a class.
func (v Value) ClassPtr() *Class {
	if v.tt != TypeClass {
		return nil
	}
	return v.cls
}

// InstancePtr returns the instance payload, or nil if v is not an object.
func (v Value) InstancePtr() *Instance {
	if v.tt != TypeObject {
		return nil
	}
	return v.heap.(*Instance)
}

// ProcPtr returns the closure payload, or nil if v is not a proc.
func (v Value) ProcPtr() *Proc {
	if v.tt != TypeProc {
		return nil
	}
	return v.heap.(*Proc)
}

// StringPtr returns the string payload, or nil if v is not a string.
func (v Value) StringPtr() *String {
	if v.tt != TypeString {
		return nil
	}
	return v.heap.(*String)
}

// Serial returns the allocation serial of an owning value, 0 otherwise.
func (v Value) Serial() uint32 {
	if !v.tt.IsOwning() {
		return 0
	}
	return v.heap.header().serial
}

// RefCount returns the reference count of an owning value. Immediates
// report -1.
func (v Value) RefCount() int {
	if !v.tt.IsOwning() {
		return -1
	}
	return v.heap.header().refCount
}

// Freed reports whether the heap object behind v has already been released
// to zero.
func (v Value) Freed() bool {
	return v.tt.IsOwning() && v.heap.header().refCount <= 0
}

// GoString renders a debugging representation that does not need a VM.
func (v Value) GoString() string {
	switch v.tt {
	case TypeInteger:
		return fmt.Sprintf("%d", v.n)
	case TypeFloat:
		return fmt.Sprintf("%g", v.f)
	case TypeSymbol:
		return fmt.Sprintf("sym(%d)", v.n)
	case TypeClass:
		return v.cls.Name
	case TypeString:
		return fmt.Sprintf("%q", v.StringPtr().data)
	case TypeObject, TypeProc:
		return fmt.Sprintf("%s#%d", v.tt, v.Serial())
	}
	return v.tt.String()
}
