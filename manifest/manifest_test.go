package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "blink"
entry = "src/blink.easm"

[memory]
pool_size = 8192

[vm]
max_registers = 64
max_frames = 16
debug_methods = true

[log]
verbosity = 2

[profile]
database = "profile.db"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "blink" {
		t.Errorf("project name = %q, want blink", m.Project.Name)
	}
	if m.Memory.PoolSize != 8192 {
		t.Errorf("pool size = %d, want 8192", m.Memory.PoolSize)
	}
	if m.VM.MaxRegisters != 64 {
		t.Errorf("max registers = %d, want 64", m.VM.MaxRegisters)
	}
	if m.VM.MaxFrames != 16 {
		t.Errorf("max frames = %d, want 16", m.VM.MaxFrames)
	}
	if !m.VM.DebugMethods {
		t.Error("debug_methods = false, want true")
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", m.Log.Verbosity)
	}
	if got, want := m.EntryPath(), filepath.Join(m.Dir, "src", "blink.easm"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if got, want := m.ProfilePath(), filepath.Join(m.Dir, "profile.db"); got != want {
		t.Errorf("ProfilePath() = %q, want %q", got, want)
	}

	cfg := m.VMConfig()
	if cfg.PoolSize != 8192 || cfg.MaxRegisters != 64 || cfg.MaxFrames != 16 {
		t.Errorf("VMConfig() = %+v, want pool 8192, 64 registers, 16 frames", cfg)
	}
	if !cfg.DebugMethods {
		t.Error("VMConfig().DebugMethods = false, want true")
	}
	if !cfg.Profile {
		t.Error("VMConfig().Profile = false with a database configured")
	}
	if cfg.Console == nil {
		t.Error("VMConfig().Console is nil")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Entry != "main.easm" {
		t.Errorf("default entry = %q, want main.easm", m.Project.Entry)
	}
	if m.Memory.PoolSize != 40*1024 {
		t.Errorf("default pool size = %d, want %d", m.Memory.PoolSize, 40*1024)
	}
	if m.VM.MaxRegisters != 256 {
		t.Errorf("default max registers = %d, want 256", m.VM.MaxRegisters)
	}
	if m.VM.MaxFrames != 64 {
		t.Errorf("default max frames = %d, want 64", m.VM.MaxFrames)
	}
	if m.ProfilePath() != "" {
		t.Errorf("ProfilePath() = %q, want empty", m.ProfilePath())
	}
	if m.VMConfig().Profile {
		t.Error("VMConfig().Profile = true without a database")
	}
}

func TestLoadManifestUnlimitedFrames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[vm]\nmax_frames = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.VM.MaxFrames != 0 {
		t.Errorf("max frames = %d, want 0 when set explicitly", m.VM.MaxFrames)
	}
}

func TestLoadManifestUnknownKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[memory]\npool = 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted an unknown key")
	}
}

func TestLoadManifestNegativeFrames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[vm]\nmax_frames = -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted a negative max_frames")
	}
}

func TestLoadManifestParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[project\nname = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load accepted malformed TOML")
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load succeeded without an embery.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[project]\nname = \"walk\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "walk" {
		t.Errorf("project name = %q, want walk", m.Project.Name)
	}
}
