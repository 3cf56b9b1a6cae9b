package vm

import "fmt"

// ---------------------------------------------------------------------------
// Exception state
// ---------------------------------------------------------------------------

// ExceptionState is where the VM stands with respect to a script exception.
type ExceptionState uint8

const (
	StateNormal     ExceptionState = iota
	StateRaising                   // in flight, or settled as pending
	StateHandled                   // running a rescue body
	StateFinalizing                // running an ensure body on the exceptional path
)

func (s ExceptionState) String() string {
	switch s {
	case StateRaising:
		return "raising"
	case StateHandled:
		return "handled"
	case StateFinalizing:
		return "finalizing"
	}
	return "normal"
}

// ExceptionState returns the VM's current exception state.
func (vm *VM) ExceptionState() ExceptionState {
	if vm.pending != nil {
		return StateRaising
	}
	return vm.excState
}

// Exception returns the exception being handled or finalized, if any. The
// message is borrowed.
func (vm *VM) Exception() (*Class, Value) {
	return vm.exc, vm.excMessage
}

func (vm *VM) clearException() {
	msg := vm.excMessage
	vm.exc = nil
	vm.excMessage = Nil
	vm.excState = StateNormal
	vm.Release(msg)
}

// ---------------------------------------------------------------------------
// Protection markers
// ---------------------------------------------------------------------------

// PushRescue pushes a rescue marker that resumes at pc in the current
// context.
func (vm *VM) PushRescue(pc int) {
	vm.pushMarker(TagRescue, pc)
}

// PushEnsure pushes an ensure marker that resumes at pc in the current
// context.
func (vm *VM) PushEnsure(pc int) {
	vm.pushMarker(TagEnsure, pc)
}

func (vm *VM) pushMarker(tag FrameTag, pc int) {
	if !vm.pool.Alloc(sizeofFrame) {
		vm.fatalf("no memory for exception frame")
	}
	vm.exceptionTail = &CallFrame{
		Base:        vm.base,
		Irep:        vm.irep,
		PC:          pc,
		TargetClass: vm.targetClass,
		Tag:         tag,
		Depth:       vm.callinfoTail,
		Prev:        vm.exceptionTail,
	}
}

// PopMarkers discards the n most recent protection markers.
func (vm *VM) PopMarkers(n int) {
	for ; n > 0 && vm.exceptionTail != nil; n-- {
		m := vm.exceptionTail
		vm.exceptionTail = m.Prev
		vm.freeFrame(m)
	}
}

// Markers returns the number of protection markers on the side stack.
func (vm *VM) Markers() int {
	n := 0
	for m := vm.exceptionTail; m != nil; m = m.Prev {
		n++
	}
	return n
}

// dropFrameMarkers discards the markers whose context lives in frame f. A
// method that returns from inside a protected region leaves them behind.
func (vm *VM) dropFrameMarkers(f *CallFrame) {
	for vm.exceptionTail != nil && vm.exceptionTail.Depth == f {
		vm.PopMarkers(1)
	}
}

func (vm *VM) dropMarkersTo(keep *CallFrame) {
	for vm.exceptionTail != nil && vm.exceptionTail != keep {
		vm.PopMarkers(1)
	}
}

// ---------------------------------------------------------------------------
// Raise and unwind
// ---------------------------------------------------------------------------

// Raise puts an exception of class cls in flight with msg as its message.
// The VM takes its own reference to msg.
//
// Control moves to the nearest protection marker. With none left the
// exception is settled as pending and execution continues normally until
// the opcode loop notices it. Raising while an exception is already being
// handled keeps the first exception and only repeats the marker search.
func (vm *VM) Raise(cls *Class, msg Value) {
	if cls == nil {
		cls = vm.RuntimeErrorClass
	}
	if vm.Profiler != nil {
		vm.Profiler.RecordRaise(cls)
	}
	if vm.exc == nil {
		vm.Acquire(msg)
		vm.exc = cls
		vm.excMessage = msg
		log.Debugf("[%s] raise %s", vm.shortID(), cls.Name)
	} else {
		log.Debugf("[%s] raise %s while %s is in flight, keeping %s", vm.shortID(), cls.Name, vm.exc.Name, vm.exc.Name)
	}

	if m := vm.splicedMarker(); m != nil {
		vm.unwindFramesTo(m)
		vm.callinfoTail = m.Prev
		vm.resumeAt(m)
		return
	}
	m := vm.exceptionTail
	if m == nil {
		vm.excState = StateRaising
		vm.settlePending()
		return
	}
	vm.exceptionTail = m.Prev
	vm.resumeAt(m)
}

// RaiseString raises cls with a formatted message.
func (vm *VM) RaiseString(cls *Class, format string, args ...any) {
	msg := vm.NewString(fmt.Sprintf(format, args...))
	vm.Raise(cls, msg)
	vm.Release(msg)
}

// splicedMarker finds a marker an ensure body re-spliced onto the call-frame
// stack, searching no further than the current pass's entry frame.
func (vm *VM) splicedMarker() *CallFrame {
	for f := vm.callinfoTail; f != nil && f != vm.entry; f = f.Prev {
		if f.IsMarker() {
			return f
		}
	}
	return nil
}

// resumeAt pops call frames down to the marker's depth and continues in the
// marker's context. An ensure marker whose exception must keep propagating
// re-splices the next marker onto the call-frame stack, so the ensure body's
// closing RETURN picks the search up again.
func (vm *VM) resumeAt(m *CallFrame) {
	vm.unwindFramesTo(m.Depth)
	vm.base = m.Base
	vm.irep = m.Irep
	vm.pc = m.PC
	vm.targetClass = m.TargetClass
	vm.settleOnReturn = false

	if m.Tag == TagRescue {
		vm.excState = StateHandled
		log.Debugf("[%s] rescue %s", vm.shortID(), vm.exc.Name)
	} else {
		vm.excState = StateFinalizing
		if deeper := vm.exceptionTail; deeper != nil {
			vm.exceptionTail = deeper.Prev
			deeper.Prev = vm.callinfoTail
			vm.callinfoTail = deeper
		} else {
			vm.finalizeFrame = vm.callinfoTail
			vm.settleOnReturn = true
		}
		log.Debugf("[%s] ensure while raising %s", vm.shortID(), vm.exc.Name)
	}
	vm.freeFrame(m)
	vm.jumped = true
}

// settlePending turns the in-flight exception into the pending signal the
// opcode loop checks after every instruction.
func (vm *VM) settlePending() {
	if vm.pending == nil {
		vm.pending = vm.exc
		vm.pendingMsg = vm.excMessage
	} else {
		vm.Release(vm.excMessage)
	}
	vm.exc = nil
	vm.excMessage = Nil
	vm.excState = StateNormal
	vm.settleOnReturn = false
	log.Debugf("[%s] %s pending", vm.shortID(), vm.pending.Name)
}

// Pending returns the unhandled exception left by the last run, if any. The
// message is borrowed.
func (vm *VM) Pending() (*Class, Value) {
	return vm.pending, vm.pendingMsg
}

// ClearPending acknowledges a pending exception so the VM can run again.
func (vm *VM) ClearPending() {
	msg := vm.pendingMsg
	vm.pending = nil
	vm.pendingMsg = Nil
	vm.Release(msg)
}

// takePending clears the pending exception and hands its message reference
// to the caller.
func (vm *VM) takePending() (*Class, Value) {
	cls, msg := vm.pending, vm.pendingMsg
	vm.pending = nil
	vm.pendingMsg = Nil
	return cls, msg
}

// unhandledError describes the pending exception for the host.
func (vm *VM) unhandledError() *UnhandledError {
	cls, msg := vm.Pending()
	if cls == nil {
		return nil
	}
	text := ""
	if msg.IsString() {
		text = vm.GoString(msg)
	} else if !msg.IsNil() {
		text = vm.Inspect(msg)
	}
	return &UnhandledError{Class: cls.Name, Message: text}
}
