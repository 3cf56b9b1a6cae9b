package vm

import "fmt"

// Opcode identifies one instruction of the register machine.
//
// Every instruction carries up to three integer operands A, B and C. R(n)
// below names register n of the current window.
type Opcode uint8

const (
	OpNop     Opcode = iota
	OpMove           // R(A) = R(B)
	OpLoadL          // R(A) = Pool(B)
	OpLoadI          // R(A) = B
	OpLoadSym        // R(A) = Syms(B)
	OpLoadNil        // R(A) = nil
	OpLoadSelf       // R(A) = self
	OpLoadT          // R(A) = true
	OpLoadF          // R(A) = false

	OpGetIV    // R(A) = self.@Syms(B)
	OpSetIV    // self.@Syms(B) = R(A)
	OpGetConst // R(A) = Const(Syms(B))
	OpSetConst // Const(Syms(B)) = R(A)
	OpGetUpvar // R(A) = up(C).R(B)
	OpSetUpvar // up(C).R(B) = R(A)

	OpJmp    // pc = A
	OpJmpIf  // if R(A) pc = B
	OpJmpNot // if !R(A) pc = B

	OpSend  // R(A) = R(A).Syms(B)(R(A+1)..R(A+C)), block nil
	OpSendB // R(A) = R(A).Syms(B)(R(A+1)..R(A+C)) with block R(A+C+1)
	OpSuper // R(A) = super(R(A+1)..R(A+B))
	OpReturn

	OpBlock  // R(A) = proc over Reps(B)
	OpMethod // R(A).Syms(B) = R(A+1)
	OpClass  // R(A) = class Syms(B) < R(A+1)
	OpExec   // R(A) = run Reps(B) with self = R(A)
	OpTClass // R(A) = target class

	OpOnErr  // push rescue handler at A
	OpEPush  // push ensure handler at A
	OpPopErr // drop A handlers
	OpExcept // R(A), R(A+1) = pending class, message
	OpRescue // R(C) = R(A).kind_of?(R(B))
	OpRaise  // raise R(A) with message R(A+1)

	OpAbort
	OpStop

	opCount
)

// OperandKind describes how the assembler and disassembler treat an operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandReg
	OperandInt
	OperandLiteral
	OperandSym
	OperandRep
	OperandLabel
)

// OpcodeInfo is the static description of an opcode.
type OpcodeInfo struct {
	Name     string
	Operands []OperandKind
}

var opcodeInfo = [opCount]OpcodeInfo{
	OpNop:      {"NOP", nil},
	OpMove:     {"MOVE", []OperandKind{OperandReg, OperandReg}},
	OpLoadL:    {"LOADL", []OperandKind{OperandReg, OperandLiteral}},
	OpLoadI:    {"LOADI", []OperandKind{OperandReg, OperandInt}},
	OpLoadSym:  {"LOADSYM", []OperandKind{OperandReg, OperandSym}},
	OpLoadNil:  {"LOADNIL", []OperandKind{OperandReg}},
	OpLoadSelf: {"LOADSELF", []OperandKind{OperandReg}},
	OpLoadT:    {"LOADT", []OperandKind{OperandReg}},
	OpLoadF:    {"LOADF", []OperandKind{OperandReg}},
	OpGetIV:    {"GETIV", []OperandKind{OperandReg, OperandSym}},
	OpSetIV:    {"SETIV", []OperandKind{OperandReg, OperandSym}},
	OpGetConst: {"GETCONST", []OperandKind{OperandReg, OperandSym}},
	OpSetConst: {"SETCONST", []OperandKind{OperandReg, OperandSym}},
	OpGetUpvar: {"GETUPVAR", []OperandKind{OperandReg, OperandReg, OperandInt}},
	OpSetUpvar: {"SETUPVAR", []OperandKind{OperandReg, OperandReg, OperandInt}},
	OpJmp:      {"JMP", []OperandKind{OperandLabel}},
	OpJmpIf:    {"JMPIF", []OperandKind{OperandReg, OperandLabel}},
	OpJmpNot:   {"JMPNOT", []OperandKind{OperandReg, OperandLabel}},
	OpSend:     {"SEND", []OperandKind{OperandReg, OperandSym, OperandInt}},
	OpSendB:    {"SENDB", []OperandKind{OperandReg, OperandSym, OperandInt}},
	OpSuper:    {"SUPER", []OperandKind{OperandReg, OperandInt}},
	OpReturn:   {"RETURN", []OperandKind{OperandReg}},
	OpBlock:    {"BLOCK", []OperandKind{OperandReg, OperandRep}},
	OpMethod:   {"METHOD", []OperandKind{OperandReg, OperandSym}},
	OpClass:    {"CLASS", []OperandKind{OperandReg, OperandSym}},
	OpExec:     {"EXEC", []OperandKind{OperandReg, OperandRep}},
	OpTClass:   {"TCLASS", []OperandKind{OperandReg}},
	OpOnErr:    {"ONERR", []OperandKind{OperandLabel}},
	OpEPush:    {"EPUSH", []OperandKind{OperandLabel}},
	OpPopErr:   {"POPERR", []OperandKind{OperandInt}},
	OpExcept:   {"EXCEPT", []OperandKind{OperandReg}},
	OpRescue:   {"RESCUE", []OperandKind{OperandReg, OperandReg, OperandReg}},
	OpRaise:    {"RAISE", []OperandKind{OperandReg}},
	OpAbort:    {"ABORT", nil},
	OpStop:     {"STOP", nil},
}

// Info returns the static description of op.
func (op Opcode) Info() OpcodeInfo {
	if op >= opCount {
		return OpcodeInfo{Name: fmt.Sprintf("OP_%d", uint8(op))}
	}
	return opcodeInfo[op]
}

// regSpan returns how many registers from R(A) up op reads or writes.
func (op Opcode) regSpan() int {
	switch op {
	case OpMethod, OpClass, OpExcept, OpRaise:
		return 2
	}
	return 1
}

func (op Opcode) String() string {
	return op.Info().Name
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	for op := Opcode(0); op < opCount; op++ {
		if opcodeInfo[op].Name == name {
			return op, true
		}
	}
	return 0, false
}

// Inst is one decoded instruction.
type Inst struct {
	Op      Opcode
	A, B, C int
}

// I builds an instruction from an opcode and up to three operands.
func I(op Opcode, operands ...int) Inst {
	in := Inst{Op: op}
	if len(operands) > 0 {
		in.A = operands[0]
	}
	if len(operands) > 1 {
		in.B = operands[1]
	}
	if len(operands) > 2 {
		in.C = operands[2]
	}
	return in
}
