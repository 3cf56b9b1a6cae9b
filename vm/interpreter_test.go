package vm

import (
	"bytes"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecuteReturnsValue(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 3,
		Code: []Inst{
			I(OpLoadI, 1, 20),
			I(OpMove, 2, 1),
			I(OpReturn, 2),
		},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsInt() || result.Int() != 20 {
		t.Errorf("result = %s, want 20", vm.Inspect(result))
	}
}

func TestExecuteRejectsBadOperands(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{Name: "main", NRegs: 2, Code: []Inst{I(OpLoadL, 1, 0), I(OpReturn, 1)}}
	if _, err := vm.Execute(irep); err == nil {
		t.Error("Execute accepted a missing pool entry")
	}
	if vm.Aborted() {
		t.Error("a rejected irep should not abort the VM")
	}
}

func TestStopEndsTheRun(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 2,
		Code:  []Inst{I(OpLoadI, 1, 1), I(OpStop), I(OpReturn, 1)},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsNil() {
		t.Errorf("result = %s, want nil", vm.Inspect(result))
	}
}

func TestJumps(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 3,
		Code: []Inst{
			I(OpLoadNil, 2),
			I(OpLoadNil, 1),
			I(OpJmpIf, 1, 5),  // not taken
			I(OpJmpNot, 1, 6), // taken
			I(OpNop),
			I(OpLoadI, 2, 1),
			I(OpLoadT, 1),
			I(OpJmpIf, 1, 9),
			I(OpLoadI, 2, 2),
			I(OpReturn, 2),
		},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsNil() {
		t.Errorf("result = %s, want nil (every store skipped)", vm.Inspect(result))
	}
}

func TestConstants(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 3,
		Code: []Inst{
			I(OpLoadI, 1, 7),
			I(OpSetConst, 1, 0),
			I(OpGetConst, 2, 0),
			I(OpReturn, 2),
		},
		Syms: []string{"LIMIT"},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Int() != 7 {
		t.Errorf("LIMIT = %s, want 7", vm.Inspect(result))
	}

	missing := &Irep{Name: "main", NRegs: 2, Code: []Inst{I(OpGetConst, 1, 0), I(OpReturn, 1)}, Syms: []string{"Nope"}}
	_, err = vm.Execute(missing)
	var uerr *UnhandledError
	if !errors.As(err, &uerr) || uerr.Class != "NameError" {
		t.Errorf("Execute error = %v, want unhandled NameError", err)
	}
	if uerr != nil && uerr.Message != "uninitialized constant Nope" {
		t.Errorf("message = %q, want %q", uerr.Message, "uninitialized constant Nope")
	}
}

func TestRegisterOverflowAborts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRegisters = 16
	cfg.MaxFrames = 0
	cfg.Console = &bytes.Buffer{}
	vm, err := NewVM(cfg)
	if err != nil {
		t.Fatalf("NewVM: %v", err)
	}
	deep := &Irep{Name: "deep", NRegs: 2, Code: []Inst{I(OpLoadSelf, 1), I(OpSend, 1, 0, 0), I(OpReturn, 1)}, Syms: []string{"deep"}}
	main := &Irep{
		Name:  "main",
		NRegs: 3,
		Code: []Inst{
			I(OpGetConst, 1, 0),
			I(OpBlock, 2, 0),
			I(OpMethod, 1, 1),
			I(OpLoadSelf, 1),
			I(OpSend, 1, 1, 0),
			I(OpReturn, 1),
		},
		Syms: []string{"Object", "deep"},
		Reps: []*Irep{deep},
	}
	_, err = vm.Execute(main)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Execute error = %v, want *FatalError", err)
	}
	if !vm.Aborted() {
		t.Error("Aborted() = false after register overflow")
	}
}

// ---------------------------------------------------------------------------
// Protection markers
// ---------------------------------------------------------------------------

func TestMarkersPushAndPop(t *testing.T) {
	vm := newTestVM(t)
	used := vm.PoolStats().Used

	vm.PushRescue(3)
	vm.PushEnsure(5)
	if vm.Markers() != 2 {
		t.Errorf("Markers() = %d, want 2", vm.Markers())
	}
	if vm.exceptionTail.Tag != TagEnsure || vm.exceptionTail.Prev.Tag != TagRescue {
		t.Error("markers should stack newest first")
	}
	vm.PopMarkers(5)
	if vm.Markers() != 0 {
		t.Errorf("Markers() after PopMarkers = %d, want 0", vm.Markers())
	}
	if got := vm.PoolStats().Used; got != used {
		t.Errorf("pool Used = %d, want %d", got, used)
	}
}

func TestProtectedRegionWithoutRaise(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 3,
		Code: []Inst{
			I(OpOnErr, 4),
			I(OpLoadI, 1, 1),
			I(OpPopErr, 1),
			I(OpReturn, 1),
			I(OpLoadI, 1, 2), // rescue body
			I(OpReturn, 1),
		},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Int() != 1 {
		t.Errorf("result = %s, want 1", vm.Inspect(result))
	}
	if vm.Markers() != 0 {
		t.Errorf("Markers() = %d, want 0", vm.Markers())
	}
}

func TestRaiseRoutesToRescue(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 6,
		Code: []Inst{
			I(OpOnErr, 5),
			I(OpGetConst, 1, 0),
			I(OpLoadL, 2, 0),
			I(OpRaise, 1),
			I(OpReturn, 1), // skipped
			I(OpExcept, 3),
			I(OpGetConst, 5, 0),
			I(OpRescue, 3, 5, 1),
			I(OpReturn, 1),
		},
		Pool: []Literal{{Kind: LiteralString, Str: "bad"}},
		Syms: []string{"TypeError"},
	}
	result, err := vm.Execute(irep)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != True {
		t.Errorf("rescue match = %s, want true", vm.Inspect(result))
	}
	if vm.ExceptionState() != StateNormal {
		t.Errorf("ExceptionState() = %v, want normal", vm.ExceptionState())
	}
}

func TestRaiseWhileHandlingKeepsFirstException(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{
		Name:  "main",
		NRegs: 6,
		Code: []Inst{
			I(OpLoadNil, 2),
			I(OpOnErr, 5),
			I(OpGetConst, 1, 0),
			I(OpRaise, 1),
			I(OpReturn, 1),
			// rescue body raises again before reading the exception
			I(OpGetConst, 1, 1),
			I(OpRaise, 1),
			I(OpReturn, 1),
		},
		Syms: []string{"TypeError", "ArgumentError"},
	}
	_, err := vm.Execute(irep)
	var uerr *UnhandledError
	if !errors.As(err, &uerr) || uerr.Class != "TypeError" {
		t.Errorf("Execute error = %v, want unhandled TypeError", err)
	}
	vm.ClearPending()
}

func TestUpvarOfReturnedMethodRaises(t *testing.T) {
	vm := newTestVM(t)
	// maker returns a block; calling it after maker returned finds the
	// scope gone.
	blk := &Irep{Name: "blk", NRegs: 2, Code: []Inst{I(OpGetUpvar, 1, 1, 0), I(OpReturn, 1)}}
	maker := &Irep{Name: "maker", NRegs: 3, Code: []Inst{I(OpLoadI, 1, 5), I(OpBlock, 2, 0), I(OpReturn, 2)}, Reps: []*Irep{blk}}
	main := &Irep{
		Name:  "main",
		NRegs: 4,
		Code: []Inst{
			I(OpGetConst, 1, 0),
			I(OpBlock, 2, 0),
			I(OpMethod, 1, 1),
			I(OpLoadSelf, 1),
			I(OpSend, 1, 1, 0),
			I(OpSend, 1, 2, 0),
			I(OpReturn, 1),
		},
		Syms: []string{"Object", "maker", "call"},
		Reps: []*Irep{maker},
	}
	_, err := vm.Execute(main)
	var uerr *UnhandledError
	if !errors.As(err, &uerr) || uerr.Class != "RuntimeError" {
		t.Fatalf("Execute error = %v, want unhandled RuntimeError", err)
	}
	vm.ClearPending()
	if vm.LiveObjects() != 1 {
		t.Errorf("LiveObjects() = %d, want 1", vm.LiveObjects())
	}
}

func TestSuperOutsideMethod(t *testing.T) {
	vm := newTestVM(t)
	irep := &Irep{Name: "main", NRegs: 3, Code: []Inst{I(OpSuper, 1, 0), I(OpReturn, 1)}}
	_, err := vm.Execute(irep)
	var uerr *UnhandledError
	if !errors.As(err, &uerr) || uerr.Class != "NoMethodError" {
		t.Errorf("Execute error = %v, want unhandled NoMethodError", err)
	}
	vm.ClearPending()
}

func TestBlockGivenAtTopLevel(t *testing.T) {
	vm := newTestVM(t)
	if vm.BlockGiven() {
		t.Error("BlockGiven() = true outside any call")
	}
}

func TestSuperInTopLevelBlock(t *testing.T) {
	vm := newTestVM(t)
	blk := &Irep{Name: "blk", NRegs: 3, Code: []Inst{I(OpSuper, 1, 0), I(OpReturn, 1)}}
	main := &Irep{
		Name:  "main",
		NRegs: 3,
		Code:  []Inst{I(OpBlock, 1, 0), I(OpSend, 1, 0, 0), I(OpReturn, 1)},
		Syms:  []string{"call"},
		Reps:  []*Irep{blk},
	}
	_, err := vm.Execute(main)
	var uerr *UnhandledError
	if !errors.As(err, &uerr) || uerr.Class != "NoMethodError" {
		t.Fatalf("Execute error = %v, want unhandled NoMethodError", err)
	}
	if uerr.Message != "super called outside of method" {
		t.Errorf("message = %q, want %q", uerr.Message, "super called outside of method")
	}
	vm.ClearPending()
}

func TestExecuteRejectsRegisterPairPastWindow(t *testing.T) {
	for _, op := range []Opcode{OpMethod, OpClass, OpExcept, OpRaise} {
		t.Run(op.String(), func(t *testing.T) {
			vm := newTestVM(t)
			irep := &Irep{
				Name:  "main",
				NRegs: 4,
				Code:  []Inst{I(op, 3, 0), I(OpReturn, 0)},
				Syms:  []string{"X"},
			}
			if _, err := vm.Execute(irep); err == nil {
				t.Errorf("%s r3 accepted in a four register block", op)
			}
			if vm.Aborted() {
				t.Error("a rejected irep should not abort the VM")
			}

			irep.NRegs = 5
			if err := irep.Validate(); err != nil {
				t.Errorf("Validate with room for r4: %v", err)
			}
		})
	}
}
