package vm

// String is an immutable heap byte string. Text operations belong to the
// string library; the core only needs to create, print and compare them.
type String struct {
	objHeader
	data []byte
}

// Bytes returns the string's contents. The slice must not be modified.
func (s *String) Bytes() []byte {
	return s.data
}

// Len returns the length in bytes.
func (s *String) Len() int {
	return len(s.data)
}

// NewString allocates a string holding a copy of s. Returns nil when the pool
// is exhausted.
func (vm *VM) NewString(s string) Value {
	str := &String{data: []byte(s)}
	if !vm.newHeader(&str.objHeader, sizeofString+len(s)) {
		log.Warningf("[%s] no memory for %d byte string", vm.shortID(), len(s))
		return Nil
	}
	return fromHeap(TypeString, str)
}

// GoString returns the contents of a string value, or "" for any other kind.
func (vm *VM) GoString(v Value) string {
	if s := v.StringPtr(); s != nil {
		return string(s.data)
	}
	return ""
}
