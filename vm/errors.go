package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMethod is returned by Send when the name resolves to nothing. A
	// NoMethodError is raised in the VM at the same time.
	ErrNoMethod = errors.New("no method")

	// ErrNotNative is returned by Send when the name resolves to a method
	// that needs the opcode loop.
	ErrNotNative = errors.New("method is not native")

	// ErrPendingException is returned by Execute while an earlier unit's
	// unhandled exception has not been cleared.
	ErrPendingException = errors.New("unhandled exception pending")

	// ErrVMAborted is returned by Execute after a fatal error.
	ErrVMAborted = errors.New("vm aborted")

	// ErrBadImage reports a code image with the wrong magic or version.
	ErrBadImage = errors.New("bad image")
)

// FatalError is a host-fatal defect: pool exhaustion during a mandatory
// allocation or a broken structural invariant. It is raised with panic and
// recovered by Execute, which leaves the VM unusable.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Message
}

// UnhandledError reports a script exception that reached top level.
type UnhandledError struct {
	Class   string
	Message string
}

func (e *UnhandledError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unhandled exception (%s)", e.Class)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Class)
}

func (vm *VM) fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Criticalf("[%s] %s", vm.shortID(), msg)
	panic(&FatalError{Message: msg})
}
