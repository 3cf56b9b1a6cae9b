package vm

// ---------------------------------------------------------------------------
// Pool: fixed memory budget
// ---------------------------------------------------------------------------

// Pool accounts every heap allocation the core makes against a fixed byte
// budget, the way the device allocator hands out blocks from one static
// region. It never grows: a request that does not fit fails.
//
// Go's own memory manager still backs the objects; the pool decides whether
// an allocation is allowed and reports the same statistics the device build
// prints from memory_statistics.
type Pool struct {
	size   int
	used   int
	peak   int
	pinned int // bytes allocated without a matching free (classes)
	allocs int
	frees  int
}

// Charged sizes, modelled on a 32-bit target.
const (
	sizeofClass    = 16
	sizeofMethod   = 24
	sizeofInstance = 16
	sizeofProc     = 24
	sizeofFrame    = 40
	sizeofKVEntry  = 12
	sizeofString   = 12
)

// NewPool creates a pool with the given capacity in bytes.
func NewPool(size int) *Pool {
	return &Pool{size: size}
}

// Alloc charges n bytes. Returns false if the pool cannot satisfy it.
func (p *Pool) Alloc(n int) bool {
	if n < 0 || p.used+n > p.size {
		return false
	}
	p.used += n
	p.allocs++
	if p.used > p.peak {
		p.peak = p.used
	}
	return true
}

// AllocNoFree charges n bytes that will never be returned.
func (p *Pool) AllocNoFree(n int) bool {
	if !p.Alloc(n) {
		return false
	}
	p.pinned += n
	return true
}

// Free returns n bytes to the pool.
func (p *Pool) Free(n int) {
	p.used -= n
	p.frees++
	if p.used < 0 {
		panic("Pool.Free: more bytes freed than allocated")
	}
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	Total  int
	Used   int
	Free   int
	Peak   int
	Pinned int
	Allocs int
	Frees  int
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Total:  p.size,
		Used:   p.used,
		Free:   p.size - p.used,
		Peak:   p.peak,
		Pinned: p.pinned,
		Allocs: p.allocs,
		Frees:  p.frees,
	}
}
