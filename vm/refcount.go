package vm

// ---------------------------------------------------------------------------
// Value lifetime
// ---------------------------------------------------------------------------
//
// Every storage location holding an owning value owns one reference. Copying
// the value into another location requires Acquire; overwriting or dropping
// it requires Release. The object is freed synchronously when the count
// reaches zero.

// Acquire adds a reference to an owning value. No-op for immediates.
func (vm *VM) Acquire(v Value) {
	if !v.tt.IsOwning() {
		return
	}
	h := v.heap.header()
	if h.refCount <= 0 {
		vm.fatalf("acquire of released %s #%d", v.tt, h.serial)
	}
	h.refCount++
}

// Release drops a reference to an owning value and frees it, together with
// everything it owns, when the count reaches zero. No-op for immediates.
func (vm *VM) Release(v Value) {
	if !v.tt.IsOwning() {
		return
	}
	h := v.heap.header()
	if h.refCount <= 0 {
		vm.fatalf("release of released %s #%d", v.tt, h.serial)
	}
	h.refCount--
	if h.refCount > 0 {
		return
	}

	switch v.tt {
	case TypeObject:
		vm.deleteInstance(v.heap.(*Instance))
	case TypeProc:
		// Closures do not own the frames they reference.
	case TypeString:
		v.heap.(*String).data = nil
	}
	vm.pool.Free(h.size)
	vm.live--
}

// newHeader charges size bytes for a new heap object. Returns false when the
// pool is exhausted.
func (vm *VM) newHeader(h *objHeader, size int) bool {
	if !vm.pool.Alloc(size) {
		return false
	}
	vm.serial++
	h.refCount = 1
	h.serial = vm.serial
	h.size = size
	vm.live++
	return true
}

// LiveObjects returns the number of heap objects not yet freed.
func (vm *VM) LiveObjects() int {
	return vm.live
}

// mustBeLive aborts when code touches a heap object after its last release.
func (vm *VM) mustBeLive(v Value) {
	if v.tt.IsOwning() && v.heap.header().refCount <= 0 {
		vm.fatalf("use of released %s #%d", v.tt, v.heap.header().serial)
	}
}
