package vm

import "sort"

// Profiler counts method dispatches and raises. Counters are plain ints: a
// VM runs on one goroutine.

// DispatchProfile holds the counters for one Class#method.
type DispatchProfile struct {
	Class  string
	Method string
	Native bool
	Calls  uint64
}

// Key returns "Class#method".
func (d *DispatchProfile) Key() string {
	return d.Class + "#" + d.Method
}

// Profiler collects dispatch and raise counts for one VM.
type Profiler struct {
	dispatches map[*Method]*DispatchProfile
	raises     map[string]uint64
	total      uint64
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{
		dispatches: make(map[*Method]*DispatchProfile),
		raises:     make(map[string]uint64),
	}
}

// RecordDispatch counts a call of m, found on owner.
func (p *Profiler) RecordDispatch(owner *Class, m *Method, symbols *SymbolTable) {
	prof, ok := p.dispatches[m]
	if !ok {
		prof = &DispatchProfile{
			Class:  owner.Name,
			Method: symbols.Name(m.Sym),
			Native: m.IsNative(),
		}
		p.dispatches[m] = prof
	}
	prof.Calls++
	p.total++
}

// RecordRaise counts a raise of cls.
func (p *Profiler) RecordRaise(cls *Class) {
	p.raises[cls.Name]++
}

// ProfilerStats summarizes a profiler.
type ProfilerStats struct {
	TotalDispatches uint64
	Methods         int
	Raises          uint64
}

// Stats returns summary counters.
func (p *Profiler) Stats() ProfilerStats {
	var raises uint64
	for _, n := range p.raises {
		raises += n
	}
	return ProfilerStats{
		TotalDispatches: p.total,
		Methods:         len(p.dispatches),
		Raises:          raises,
	}
}

// Dispatches returns one profile per Class#method, merged across
// redefinitions, most called first.
func (p *Profiler) Dispatches() []DispatchProfile {
	merged := make(map[string]*DispatchProfile)
	for _, prof := range p.dispatches {
		key := prof.Key()
		if m, ok := merged[key]; ok {
			m.Calls += prof.Calls
			continue
		}
		cp := *prof
		merged[key] = &cp
	}
	result := make([]DispatchProfile, 0, len(merged))
	for _, prof := range merged {
		result = append(result, *prof)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Calls != result[j].Calls {
			return result[i].Calls > result[j].Calls
		}
		return result[i].Key() < result[j].Key()
	})
	return result
}

// TopDispatches returns at most n of the most called methods.
func (p *Profiler) TopDispatches(n int) []DispatchProfile {
	all := p.Dispatches()
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Raises returns raise counts by exception class name.
func (p *Profiler) Raises() map[string]uint64 {
	result := make(map[string]uint64, len(p.raises))
	for k, v := range p.raises {
		result[k] = v
	}
	return result
}

// Reset clears all counters.
func (p *Profiler) Reset() {
	p.dispatches = make(map[*Method]*DispatchProfile)
	p.raises = make(map[string]uint64)
	p.total = 0
}
