package vm

import (
	"bytes"
	"testing"
)

func TestProfilerCountsDispatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profile = true
	cfg.Console = &bytes.Buffer{}
	vm, err := NewVM(cfg)
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}

	irep := &Irep{
		Name:  "main",
		NRegs: 4,
		Code: []Inst{
			I(OpLoadSelf, 1),
			I(OpSend, 1, 0, 0), // inspect
			I(OpLoadSelf, 1),
			I(OpSend, 1, 0, 0), // inspect
			I(OpLoadI, 1, 4),
			I(OpSend, 1, 1, 0), // nil?
			I(OpLoadSelf, 1),
			I(OpSend, 1, 2, 0), // raise
			I(OpReturn, 1),
		},
		Syms: []string{"inspect", "nil?", "raise"},
	}
	if _, err := vm.Execute(irep); err == nil {
		t.Fatal("Execute should report the unhandled raise")
	}
	vm.ClearPending()

	stats := vm.Profiler.Stats()
	if stats.TotalDispatches != 4 {
		t.Errorf("TotalDispatches = %d, want 4", stats.TotalDispatches)
	}
	if stats.Raises != 1 {
		t.Errorf("Raises = %d, want 1", stats.Raises)
	}

	top := vm.Profiler.TopDispatches(1)
	if len(top) != 1 {
		t.Fatalf("len(TopDispatches(1)) = %d, want 1", len(top))
	}
	if top[0].Key() != "Object#inspect" || top[0].Calls != 2 || !top[0].Native {
		t.Errorf("top dispatch = %+v, want native Object#inspect x2", top[0])
	}
	if got := vm.Profiler.Raises()["RuntimeError"]; got != 1 {
		t.Errorf("Raises()[RuntimeError] = %d, want 1", got)
	}

	vm.Profiler.Reset()
	if s := vm.Profiler.Stats(); s.TotalDispatches != 0 || s.Methods != 0 || s.Raises != 0 {
		t.Errorf("Stats() after Reset = %+v, want zeroes", s)
	}
}

func TestProfilerMergesRedefinitions(t *testing.T) {
	vm := newTestVM(t)
	p := NewProfiler()
	cls := vm.DefineClass("Counter", nil)

	first := vm.DefineMethod(cls, "tick", nativeReturning(1))
	second := vm.DefineMethod(cls, "tick", nativeReturning(2))
	p.RecordDispatch(cls, first, vm.Symbols)
	p.RecordDispatch(cls, second, vm.Symbols)
	p.RecordDispatch(cls, second, vm.Symbols)

	all := p.Dispatches()
	if len(all) != 1 {
		t.Fatalf("len(Dispatches()) = %d, want 1", len(all))
	}
	if all[0].Calls != 3 {
		t.Errorf("Calls = %d, want 3", all[0].Calls)
	}
	if p.Stats().Methods != 2 {
		t.Errorf("Methods = %d, want 2", p.Stats().Methods)
	}
}

func TestProfilerDisabledByDefault(t *testing.T) {
	vm := newTestVM(t)
	if vm.Profiler != nil {
		t.Error("Profiler should be nil unless Config.Profile is set")
	}
}
