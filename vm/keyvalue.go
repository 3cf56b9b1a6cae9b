package vm

import "sort"

// kvGrowth is the number of entries added each time a table fills up.
const kvGrowth = 4

type kvEntry struct {
	sym Symbol
	val Value
}

// KeyValue is a symbol-keyed table kept sorted by symbol id. Instances use
// it for their instance variables. Capacity is charged to the pool.
//
// The table stores values as given; reference counting is the caller's job.
type KeyValue struct {
	pool *Pool
	data []kvEntry
}

func newKeyValue(pool *Pool) KeyValue {
	return KeyValue{pool: pool}
}

func (kv *KeyValue) search(sym Symbol) (int, bool) {
	i := sort.Search(len(kv.data), func(i int) bool { return kv.data[i].sym >= sym })
	return i, i < len(kv.data) && kv.data[i].sym == sym
}

// Get returns the value stored under sym.
func (kv *KeyValue) Get(sym Symbol) (Value, bool) {
	i, ok := kv.search(sym)
	if !ok {
		return Nil, false
	}
	return kv.data[i].val, true
}

// Set stores v under sym. When an entry is replaced its previous value is
// returned with replaced set so the caller can release it. Returns false in
// ok when the table needed to grow and the pool was exhausted.
func (kv *KeyValue) Set(sym Symbol, v Value) (old Value, replaced bool, ok bool) {
	i, found := kv.search(sym)
	if found {
		old = kv.data[i].val
		kv.data[i].val = v
		return old, true, true
	}
	if len(kv.data) == cap(kv.data) && !kv.grow() {
		return Nil, false, false
	}
	kv.data = append(kv.data, kvEntry{})
	copy(kv.data[i+1:], kv.data[i:])
	kv.data[i] = kvEntry{sym: sym, val: v}
	return Nil, false, true
}

func (kv *KeyValue) grow() bool {
	if !kv.pool.Alloc(kvGrowth * sizeofKVEntry) {
		return false
	}
	data := make([]kvEntry, len(kv.data), cap(kv.data)+kvGrowth)
	copy(data, kv.data)
	kv.data = data
	return true
}

// Len returns the number of stored entries.
func (kv *KeyValue) Len() int {
	return len(kv.data)
}

// Keys returns the stored symbols in table order.
func (kv *KeyValue) Keys() []Symbol {
	keys := make([]Symbol, len(kv.data))
	for i, e := range kv.data {
		keys[i] = e.sym
	}
	return keys
}

// clear empties the table and returns its capacity to the pool. The values
// are handed to drop first.
func (kv *KeyValue) clear(drop func(Value)) {
	for _, e := range kv.data {
		drop(e.val)
	}
	if c := cap(kv.data); c > 0 {
		kv.pool.Free(c * sizeofKVEntry)
	}
	kv.data = nil
}

// dupInto copies every entry into dst, which must be empty. Each copied
// value is passed to keep so the caller can take a reference.
func (kv *KeyValue) dupInto(dst *KeyValue, keep func(Value)) bool {
	n := len(kv.data)
	if n == 0 {
		return true
	}
	blocks := (n + kvGrowth - 1) / kvGrowth
	if !dst.pool.Alloc(blocks * kvGrowth * sizeofKVEntry) {
		return false
	}
	dst.data = make([]kvEntry, n, blocks*kvGrowth)
	copy(dst.data, kv.data)
	for _, e := range dst.data {
		keep(e.val)
	}
	return true
}
