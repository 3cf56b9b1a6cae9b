package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns an assembler listing of irep and every block nested in
// it. The output is accepted by the asm package.
func Disassemble(irep *Irep) string {
	names := repNames(irep)
	var sb strings.Builder
	first := true
	seen := make(map[*Irep]bool)
	irep.Walk(func(ir *Irep) {
		if seen[ir] {
			return
		}
		seen[ir] = true
		if !first {
			sb.WriteString("\n")
		}
		first = false
		disassembleOne(&sb, ir, names)
	})
	return sb.String()
}

// repNames gives every block in the tree a unique name, keeping the
// assigned ones where possible.
func repNames(root *Irep) map[*Irep]string {
	names := make(map[*Irep]string)
	used := make(map[string]bool)
	n := 0
	root.Walk(func(ir *Irep) {
		if _, ok := names[ir]; ok {
			return
		}
		name := ir.Name
		for name == "" || used[name] || strings.ContainsAny(name, " \t@") {
			name = fmt.Sprintf("rep%d", n)
			n++
		}
		used[name] = true
		names[ir] = name
	})
	return names
}

func disassembleOne(sb *strings.Builder, ir *Irep, names map[*Irep]string) {
	fmt.Fprintf(sb, ".irep %s nregs=%d nlocals=%d\n", names[ir], ir.NRegs, ir.NLocals)

	targets := make(map[int]bool)
	for _, in := range ir.Code {
		ops := [3]int{in.A, in.B, in.C}
		for i, kind := range in.Op.Info().Operands {
			if kind == OperandLabel {
				targets[ops[i]] = true
			}
		}
	}

	for pc, in := range ir.Code {
		if targets[pc] {
			fmt.Fprintf(sb, "L%d:\n", pc)
		}
		info := in.Op.Info()
		sb.WriteString("    ")
		sb.WriteString(info.Name)
		ops := [3]int{in.A, in.B, in.C}
		for i, kind := range info.Operands {
			sb.WriteString(" ")
			sb.WriteString(formatOperand(ir, kind, ops[i], names))
		}
		sb.WriteString("\n")
	}
	if targets[len(ir.Code)] {
		fmt.Fprintf(sb, "L%d:\n", len(ir.Code))
	}
	sb.WriteString(".end\n")
}

func formatOperand(ir *Irep, kind OperandKind, n int, names map[*Irep]string) string {
	switch kind {
	case OperandReg:
		return "r" + strconv.Itoa(n)
	case OperandLiteral:
		if n < 0 || n >= len(ir.Pool) {
			return "?" + strconv.Itoa(n)
		}
		return FormatLiteral(ir.Pool[n])
	case OperandSym:
		if n < 0 || n >= len(ir.Syms) {
			return "?" + strconv.Itoa(n)
		}
		return FormatSymbol(ir.Syms[n])
	case OperandRep:
		if n < 0 || n >= len(ir.Reps) {
			return "?" + strconv.Itoa(n)
		}
		return "@" + names[ir.Reps[n]]
	case OperandLabel:
		return "L" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// FormatLiteral renders a pool entry the way the assembler reads it.
func FormatLiteral(lit Literal) string {
	switch lit.Kind {
	case LiteralFloat:
		s := strconv.FormatFloat(lit.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case LiteralString:
		return strconv.Quote(lit.Str)
	}
	return strconv.FormatInt(lit.Int, 10)
}

// FormatSymbol renders a symbol operand, quoting names the assembler could
// not split on whitespace.
func FormatSymbol(name string) string {
	if name == "" || strings.ContainsAny(name, " \t\"\\;") {
		return ":" + strconv.Quote(name)
	}
	return ":" + name
}
