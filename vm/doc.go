// Package vm implements the embery object and execution core.
//
// This package contains:
//   - Tagged value representation with reference-counted heap objects
//   - A fixed memory pool that never grows
//   - Classes with linked method lists and upward method search
//   - Instances with symbol-keyed instance variables
//   - Call frames over a fixed register file
//   - Block closures (Proc)
//   - Rescue/ensure protection markers and exception unwinding
//   - Bootstrap classes and their native methods
//   - A reference opcode loop that drives all of the above
package vm
