// Package image stores code blocks as CBOR files (.ebi).
package image

import (
	"fmt"
	"os"

	"github.com/chazu/embery/vm"
	"github.com/fxamacker/cbor/v2"
)

const (
	// Magic identifies an embery image.
	Magic = "EMBI"

	// Version is the current image format version.
	Version = 1
)

// File is the top-level wire structure. Reps[0] is the root block; blocks
// refer to their children by index so shared children are stored once.
type File struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint   `cbor:"2,keyasint"`
	Reps    []Rep  `cbor:"3,keyasint"`
}

// Rep is the wire form of one code block.
type Rep struct {
	Name     string    `cbor:"1,keyasint,omitempty"`
	NLocals  int       `cbor:"2,keyasint"`
	NRegs    int       `cbor:"3,keyasint"`
	Code     []Inst    `cbor:"4,keyasint"`
	Pool     []Literal `cbor:"5,keyasint,omitempty"`
	Syms     []string  `cbor:"6,keyasint,omitempty"`
	Children []int     `cbor:"7,keyasint,omitempty"`
}

// Inst is an instruction encoded as a four-element array.
type Inst struct {
	_  struct{} `cbor:",toarray"`
	Op uint8
	A  int
	B  int
	C  int
}

// Literal is the wire form of a pool entry.
type Literal struct {
	Kind  uint8   `cbor:"1,keyasint"`
	Int   int64   `cbor:"2,keyasint,omitempty"`
	Float float64 `cbor:"3,keyasint,omitempty"`
	Str   string  `cbor:"4,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal encodes the block tree rooted at root.
func Marshal(root *vm.Irep) ([]byte, error) {
	f := File{Magic: Magic, Version: Version}
	index := make(map[*vm.Irep]int)
	var add func(ir *vm.Irep) int
	add = func(ir *vm.Irep) int {
		if i, ok := index[ir]; ok {
			return i
		}
		i := len(f.Reps)
		index[ir] = i
		f.Reps = append(f.Reps, Rep{})

		rep := Rep{Name: ir.Name, NLocals: ir.NLocals, NRegs: ir.NRegs, Syms: ir.Syms}
		rep.Code = make([]Inst, len(ir.Code))
		for j, in := range ir.Code {
			rep.Code[j] = Inst{Op: uint8(in.Op), A: in.A, B: in.B, C: in.C}
		}
		for _, lit := range ir.Pool {
			rep.Pool = append(rep.Pool, Literal{Kind: uint8(lit.Kind), Int: lit.Int, Float: lit.Float, Str: lit.Str})
		}
		for _, child := range ir.Reps {
			rep.Children = append(rep.Children, add(child))
		}
		f.Reps[i] = rep
		return i
	}
	add(root)

	data, err := encMode.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an image and returns its root block.
func Unmarshal(data []byte) (*vm.Irep, error) {
	var f File
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if f.Magic != Magic {
		return nil, fmt.Errorf("image: magic %q: %w", f.Magic, vm.ErrBadImage)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("image: version %d, want %d: %w", f.Version, Version, vm.ErrBadImage)
	}
	if len(f.Reps) == 0 {
		return nil, fmt.Errorf("image: no code blocks: %w", vm.ErrBadImage)
	}

	ireps := make([]*vm.Irep, len(f.Reps))
	for i, rep := range f.Reps {
		ir := &vm.Irep{Name: rep.Name, NLocals: rep.NLocals, NRegs: rep.NRegs, Syms: rep.Syms}
		ir.Code = make([]vm.Inst, len(rep.Code))
		for j, in := range rep.Code {
			ir.Code[j] = vm.Inst{Op: vm.Opcode(in.Op), A: in.A, B: in.B, C: in.C}
		}
		for _, lit := range rep.Pool {
			ir.Pool = append(ir.Pool, vm.Literal{Kind: vm.LiteralKind(lit.Kind), Int: lit.Int, Float: lit.Float, Str: lit.Str})
		}
		ireps[i] = ir
	}
	for i, rep := range f.Reps {
		for _, c := range rep.Children {
			if c <= 0 || c >= len(ireps) {
				return nil, fmt.Errorf("image: block %d has child %d: %w", i, c, vm.ErrBadImage)
			}
			ireps[i].Reps = append(ireps[i].Reps, ireps[c])
		}
	}

	if err := checkAcyclic(ireps[0]); err != nil {
		return nil, err
	}
	root := ireps[0]
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("image: %v: %w", err, vm.ErrBadImage)
	}
	return root, nil
}

// checkAcyclic rejects a block that is nested in itself.
func checkAcyclic(root *vm.Irep) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*vm.Irep]int)
	var visit func(ir *vm.Irep) error
	visit = func(ir *vm.Irep) error {
		switch state[ir] {
		case visiting:
			return fmt.Errorf("image: block %q contains itself: %w", ir.Name, vm.ErrBadImage)
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
	return visit(root)
}

// WriteFile encodes root and writes it to path.
func WriteFile(path string, root *vm.Irep) error {
	data, err := Marshal(root)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes the image at path.
func ReadFile(path string) (*vm.Irep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
