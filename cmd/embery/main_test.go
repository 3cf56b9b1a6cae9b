package main

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/embery/asm"
	"github.com/chazu/embery/image"
	"github.com/chazu/embery/profile"
	"github.com/chazu/embery/vm"
)

const exitScript = `
.irep main nregs=3
    LOADI r1 3
    RETURN r1
.end
`

const classScript = `
.irep main nregs=4
    LOADNIL r2
    CLASS r1 :Animal
    MOVE r3 r1
    CLASS r2 :Dog
    LOADI r1 0
    RETURN r1
.end
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietConfig() vm.Config {
	cfg := vm.DefaultConfig()
	cfg.Console = io.Discard
	return cfg
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

func TestVerbosityFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var v verbosity
	fs.Var(&v, "v", "")
	if err := fs.Parse([]string{"-v", "-v", "-v", "file.easm"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v != 3 {
		t.Errorf("verbosity = %d, want 3", v)
	}
	if fs.Arg(0) != "file.easm" {
		t.Errorf("Arg(0) = %q, want file.easm", fs.Arg(0))
	}

	if err := fs.Parse([]string{"-v=1"}); err != nil {
		t.Fatalf("Parse(-v=1): %v", err)
	}
	if v != 1 {
		t.Errorf("verbosity after -v=1 = %d, want 1", v)
	}
	if err := v.Set("loud"); err == nil {
		t.Error("Set(loud) succeeded")
	}
}

// ---------------------------------------------------------------------------
// Loading and compiling
// ---------------------------------------------------------------------------

func TestLoadScript(t *testing.T) {
	src := writeFile(t, "exit.easm", exitScript)
	root, err := loadScript(src)
	if err != nil {
		t.Fatalf("loadScript(.easm): %v", err)
	}

	img := defaultImagePath(src)
	if filepath.Ext(img) != ".ebi" || strings.TrimSuffix(img, ".ebi") != strings.TrimSuffix(src, ".easm") {
		t.Errorf("defaultImagePath(%q) = %q", src, img)
	}
	if err := image.WriteFile(img, root); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fromImage, err := loadScript(img)
	if err != nil {
		t.Fatalf("loadScript(.ebi): %v", err)
	}
	if vm.Disassemble(fromImage) != vm.Disassemble(root) {
		t.Error("image and source load differently")
	}

	if _, err := loadScript(writeFile(t, "notes.txt", "hello")); err == nil {
		t.Error("loadScript accepted a .txt file")
	}
}

// ---------------------------------------------------------------------------
// Running
// ---------------------------------------------------------------------------

func TestRunExitCode(t *testing.T) {
	root, err := asm.Parse(exitScript)
	if err != nil {
		t.Fatal(err)
	}
	if code := run(root, "exit.easm", quietConfig(), "", false); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestRunUnhandledExitsNonZero(t *testing.T) {
	root, err := asm.Parse(`
.irep main nregs=3
    LOADSELF r1
    SEND r1 :raise 0
    RETURN r1
.end
`)
	if err != nil {
		t.Fatal(err)
	}
	if code := run(root, "raise.easm", quietConfig(), "", false); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRunSavesProfile(t *testing.T) {
	root, err := asm.Parse(exitScript)
	if err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(t.TempDir(), "profile.db")
	cfg := quietConfig()
	cfg.Profile = true
	run(root, "exit.easm", cfg, db, false)

	store, err := profile.Open(db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	runs, err := store.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Script != "exit.easm" {
		t.Errorf("Runs() = %+v, want one run of exit.easm", runs)
	}

	var out bytes.Buffer
	if err := printRuns(&out, db); err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	if !strings.Contains(out.String(), runs[0].ID.String()) {
		t.Errorf("printRuns output lacks the run id:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// Class tree
// ---------------------------------------------------------------------------

func TestRenderClassTree(t *testing.T) {
	root, err := asm.Parse(classScript)
	if err != nil {
		t.Fatal(err)
	}
	v, err := vm.NewVM(quietConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Execute(root); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := renderClassTree(v)
	for _, name := range []string{"Object", "Animal", "Dog", "NoMethodError"} {
		if !strings.Contains(out, name) {
			t.Errorf("class tree lacks %s:\n%s", name, out)
		}
	}
	if strings.Index(out, "Object") > strings.Index(out, "Animal") {
		t.Errorf("Object should come before its subclasses:\n%s", out)
	}
	if strings.Index(out, "NameError") > strings.Index(out, "NoMethodError") {
		t.Errorf("NameError should come before NoMethodError:\n%s", out)
	}
	if strings.Count(out, "Object") != 1 {
		t.Errorf("Object drawn more than once:\n%s", out)
	}
}
