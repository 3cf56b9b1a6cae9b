// Package asm reads the textual form of code blocks.
//
// A source file holds one or more blocks:
//
//	.irep main nregs=4 nlocals=1
//	    LOADL r1 "bark"
//	L1:
//	    SEND r0 :speak 0
//	    BLOCK r2 @body
//	    RETURN r1
//	.end
//
// The first block is the root. Other blocks become children of every block
// that names them with @name. Operands are registers (r3), integers, pool
// literals (42, 1.5, "text"), symbols (:name or :"odd name"), block
// references (@name) and labels. Comments start with ';'.
package asm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/embery/vm"
)

// SyntaxError reports a problem at a source line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return "asm: " + e.Msg
	}
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

type fixup struct {
	line  int
	pc    int
	slot  int
	label string
}

type repRef struct {
	line int
	name string
}

// block is an irep under construction.
type block struct {
	irep    *vm.Irep
	line    int
	labels  map[string]int
	fixups  []fixup
	repRefs []repRef
	repIdx  map[string]int
	symIdx  map[string]int
	litIdx  map[vm.Literal]int
}

type parser struct {
	blocks []*block
	byName map[string]*block
	cur    *block
	line   int
}

// Parse assembles src and returns the root block.
func Parse(src string) (*vm.Irep, error) {
	p := &parser{byName: make(map[string]*block)}
	for i, line := range strings.Split(src, "\n") {
		p.line = i + 1
		if err := p.parseLine(line); err != nil {
			return nil, err
		}
	}
	if p.cur != nil {
		return nil, &SyntaxError{Line: p.cur.line, Msg: fmt.Sprintf(".irep %s has no .end", p.cur.irep.Name)}
	}
	if len(p.blocks) == 0 {
		return nil, &SyntaxError{Msg: "no .irep blocks"}
	}
	if err := p.link(); err != nil {
		return nil, err
	}
	root := p.blocks[0].irep
	if err := root.Validate(); err != nil {
		return nil, &SyntaxError{Msg: err.Error()}
	}
	return root, nil
}

// ParseFile assembles the file at path.
func ParseFile(path string) (*vm.Irep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	irep, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return irep, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(line string) error {
	toks, err := splitLine(line)
	if err != nil {
		return p.errorf("%v", err)
	}
	if len(toks) == 0 {
		return nil
	}

	head := toks[0]
	switch {
	case !head.quoted && head.text == ".irep":
		return p.beginBlock(toks[1:])
	case !head.quoted && head.text == ".end":
		return p.endBlock()
	}

	if p.cur == nil {
		return p.errorf("%q outside of .irep", head.text)
	}
	if len(toks) == 1 && !head.quoted && strings.HasSuffix(head.text, ":") && !strings.HasPrefix(head.text, ":") {
		label := strings.TrimSuffix(head.text, ":")
		if _, dup := p.cur.labels[label]; dup {
			return p.errorf("label %s defined twice", label)
		}
		p.cur.labels[label] = len(p.cur.irep.Code)
		return nil
	}
	return p.instruction(toks)
}

func (p *parser) beginBlock(toks []token) error {
	if p.cur != nil {
		return p.errorf(".irep inside .irep %s", p.cur.irep.Name)
	}
	if len(toks) == 0 || toks[0].quoted {
		return p.errorf(".irep needs a name")
	}
	name := toks[0].text
	if _, dup := p.byName[name]; dup {
		return p.errorf(".irep %s defined twice", name)
	}
	ir := &vm.Irep{Name: name, NRegs: 1}
	for _, t := range toks[1:] {
		key, val, ok := strings.Cut(t.text, "=")
		if !ok {
			return p.errorf("expected key=value, got %q", t.text)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return p.errorf("bad %s value %q", key, val)
		}
		switch key {
		case "nregs":
			ir.NRegs = n
		case "nlocals":
			ir.NLocals = n
		default:
			return p.errorf("unknown .irep attribute %s", key)
		}
	}
	b := &block{
		irep:   ir,
		line:   p.line,
		labels: make(map[string]int),
		repIdx: make(map[string]int),
		symIdx: make(map[string]int),
		litIdx: make(map[vm.Literal]int),
	}
	p.blocks = append(p.blocks, b)
	p.byName[name] = b
	p.cur = b
	return nil
}

func (p *parser) endBlock() error {
	b := p.cur
	if b == nil {
		return p.errorf(".end without .irep")
	}
	for _, f := range b.fixups {
		pc, ok := b.labels[f.label]
		if !ok {
			return &SyntaxError{Line: f.line, Msg: fmt.Sprintf("undefined label %s", f.label)}
		}
		in := &b.irep.Code[f.pc]
		switch f.slot {
		case 0:
			in.A = pc
		case 1:
			in.B = pc
		default:
			in.C = pc
		}
	}
	p.cur = nil
	return nil
}

func (p *parser) instruction(toks []token) error {
	if toks[0].quoted {
		return p.errorf("expected an opcode, got a string")
	}
	op, ok := vm.LookupOpcode(strings.ToUpper(toks[0].text))
	if !ok {
		return p.errorf("unknown opcode %s", toks[0].text)
	}
	info := op.Info()
	args := toks[1:]
	if len(args) != len(info.Operands) {
		return p.errorf("%s takes %d operands, got %d", info.Name, len(info.Operands), len(args))
	}

	b := p.cur
	pc := len(b.irep.Code)
	var ops [3]int
	for i, kind := range info.Operands {
		n, err := p.operand(b, kind, args[i], pc, i)
		if err != nil {
			return err
		}
		ops[i] = n
	}
	b.irep.Code = append(b.irep.Code, vm.Inst{Op: op, A: ops[0], B: ops[1], C: ops[2]})
	return nil
}

func (p *parser) operand(b *block, kind vm.OperandKind, t token, pc, slot int) (int, error) {
	switch kind {
	case vm.OperandReg:
		if t.quoted || !strings.HasPrefix(t.text, "r") {
			return 0, p.errorf("expected a register, got %q", t.text)
		}
		n, err := strconv.Atoi(t.text[1:])
		if err != nil || n < 0 {
			return 0, p.errorf("bad register %q", t.text)
		}
		return n, nil

	case vm.OperandInt:
		if t.quoted {
			return 0, p.errorf("expected an integer, got a string")
		}
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return 0, p.errorf("bad integer %q", t.text)
		}
		return n, nil

	case vm.OperandLiteral:
		lit, err := parseLiteral(t)
		if err != nil {
			return 0, p.errorf("%v", err)
		}
		if i, ok := b.litIdx[lit]; ok {
			return i, nil
		}
		b.irep.Pool = append(b.irep.Pool, lit)
		b.litIdx[lit] = len(b.irep.Pool) - 1
		return len(b.irep.Pool) - 1, nil

	case vm.OperandSym:
		var name string
		switch {
		case t.quoted && t.sigil == ':':
			name = t.text
		case !t.quoted && strings.HasPrefix(t.text, ":") && len(t.text) > 1:
			name = t.text[1:]
		default:
			return 0, p.errorf("expected a symbol, got %q", t.text)
		}
		if i, ok := b.symIdx[name]; ok {
			return i, nil
		}
		b.irep.Syms = append(b.irep.Syms, name)
		b.symIdx[name] = len(b.irep.Syms) - 1
		return len(b.irep.Syms) - 1, nil

	case vm.OperandRep:
		if t.quoted || !strings.HasPrefix(t.text, "@") || len(t.text) < 2 {
			return 0, p.errorf("expected @name, got %q", t.text)
		}
		name := t.text[1:]
		if i, ok := b.repIdx[name]; ok {
			return i, nil
		}
		b.repRefs = append(b.repRefs, repRef{line: p.line, name: name})
		b.repIdx[name] = len(b.repRefs) - 1
		return len(b.repRefs) - 1, nil

	case vm.OperandLabel:
		if t.quoted {
			return 0, p.errorf("expected a label, got a string")
		}
		if n, err := strconv.Atoi(t.text); err == nil {
			return n, nil
		}
		b.fixups = append(b.fixups, fixup{line: p.line, pc: pc, slot: slot, label: t.text})
		return 0, nil
	}
	return 0, p.errorf("unsupported operand")
}

// parseLiteral reads a pool literal: a quoted string, a float or an integer.
func parseLiteral(t token) (vm.Literal, error) {
	if t.quoted {
		if t.sigil != 0 {
			return vm.Literal{}, fmt.Errorf("expected a literal, got a symbol")
		}
		return vm.Literal{Kind: vm.LiteralString, Str: t.text}, nil
	}
	if strings.ContainsAny(t.text, ".eEIN") {
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return vm.Literal{}, fmt.Errorf("bad float %q", t.text)
		}
		return vm.Literal{Kind: vm.LiteralFloat, Float: f}, nil
	}
	n, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return vm.Literal{}, fmt.Errorf("bad literal %q", t.text)
	}
	return vm.Literal{Kind: vm.LiteralInt, Int: n}, nil
}

// link resolves @name references into child blocks and rejects cycles.
func (p *parser) link() error {
	for _, b := range p.blocks {
		for _, ref := range b.repRefs {
			child, ok := p.byName[ref.name]
			if !ok {
				return &SyntaxError{Line: ref.line, Msg: fmt.Sprintf("undefined .irep %s", ref.name)}
			}
			b.irep.Reps = append(b.irep.Reps, child.irep)
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*vm.Irep]int)
	var visit func(ir *vm.Irep) error
	visit = func(ir *vm.Irep) error {
		switch state[ir] {
		case visiting:
			return &SyntaxError{Line: p.byName[ir.Name].line, Msg: fmt.Sprintf(".irep %s contains itself", ir.Name)}
		case done:
			return nil
		}
		state[ir] = visiting
		for _, child := range ir.Reps {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[ir] = done
		return nil
	}
	return visit(p.blocks[0].irep)
}
