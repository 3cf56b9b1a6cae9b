package image

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/chazu/embery/vm"
)

func sampleTree() *vm.Irep {
	leaf := &vm.Irep{
		Name:  "leaf",
		NRegs: 2,
		Code:  []vm.Inst{vm.I(vm.OpLoadL, 1, 0), vm.I(vm.OpReturn, 1)},
		Pool:  []vm.Literal{{Kind: vm.LiteralFloat, Float: math.Pi}},
	}
	return &vm.Irep{
		Name:    "main",
		NLocals: 1,
		NRegs:   4,
		Code: []vm.Inst{
			vm.I(vm.OpLoadL, 1, 0),
			vm.I(vm.OpLoadL, 2, 1),
			vm.I(vm.OpJmpNot, 1, 4),
			vm.I(vm.OpSend, 1, 0, 1),
			vm.I(vm.OpBlock, 3, 0),
			vm.I(vm.OpBlock, 3, 1),
			vm.I(vm.OpReturn, 1),
		},
		Pool: []vm.Literal{
			{Kind: vm.LiteralString, Str: "héllo\x00"},
			{Kind: vm.LiteralInt, Int: -1 << 40},
		},
		Syms: []string{"speak"},
		Reps: []*vm.Irep{leaf, leaf},
	}
}

func encodeFile(t *testing.T, f File) []byte {
	t.Helper()
	data, err := encMode.Marshal(&f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func validFile() File {
	return File{
		Magic:   Magic,
		Version: Version,
		Reps: []Rep{
			{Name: "main", NRegs: 2, Code: []Inst{{Op: uint8(vm.OpBlock), A: 1}, {Op: uint8(vm.OpReturn), A: 1}}, Children: []int{1}},
			{Name: "blk", NRegs: 1, Code: []Inst{{Op: uint8(vm.OpReturn)}}},
		},
	}
}

// ---------------------------------------------------------------------------
// Marshal / Unmarshal
// ---------------------------------------------------------------------------

func TestImagePreservesTree(t *testing.T) {
	root := sampleTree()
	data, err := Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if want, have := vm.Disassemble(root), vm.Disassemble(got); have != want {
		t.Errorf("decoded tree differs:\n%s\nwant\n%s", have, want)
	}
	if got.Reps[0] != got.Reps[1] {
		t.Error("shared child decoded as two blocks")
	}
	if got.Pool[0].Str != "héllo\x00" || got.Pool[1].Int != -1<<40 {
		t.Errorf("pool = %+v", got.Pool)
	}
	if got.Reps[0].Pool[0].Float != math.Pi {
		t.Errorf("leaf float = %v, want pi", got.Reps[0].Pool[0].Float)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := Marshal(sampleTree())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(sampleTree())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("two encodings of the same tree differ")
	}
}

func TestUnmarshalRejectsBadImages(t *testing.T) {
	badMagic := validFile()
	badMagic.Magic = "NOPE"

	badVersion := validFile()
	badVersion.Version = Version + 1

	empty := validFile()
	empty.Reps = nil

	badChild := validFile()
	badChild.Reps[0].Children = []int{7}

	rootAsChild := validFile()
	rootAsChild.Reps[1].Children = []int{0}

	selfNested := validFile()
	selfNested.Reps[1].Children = []int{1}

	badOperand := validFile()
	badOperand.Reps[0].Code[1].A = 9

	tests := []struct {
		name string
		f    File
	}{
		{"magic", badMagic},
		{"version", badVersion},
		{"no blocks", empty},
		{"child out of range", badChild},
		{"root as child", rootAsChild},
		{"self nested", selfNested},
		{"operand out of range", badOperand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(encodeFile(t, tt.f))
			if !errors.Is(err, vm.ErrBadImage) {
				t.Errorf("Unmarshal error = %v, want ErrBadImage", err)
			}
		})
	}

	if _, err := Unmarshal(encodeFile(t, validFile())); err != nil {
		t.Errorf("Unmarshal(valid) = %v", err)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("Unmarshal accepted garbage")
	}
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.ebi")
	root := sampleTree()
	if err := WriteFile(path, root); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if vm.Disassemble(got) != vm.Disassemble(root) {
		t.Error("file contents differ from the written tree")
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.ebi")); err == nil {
		t.Error("ReadFile of a missing file succeeded")
	}
}
