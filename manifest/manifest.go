// Package manifest handles embery.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/embery/vm"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "embery.toml"

// Manifest represents an embery.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Memory  Memory        `toml:"memory"`
	VM      VMConfig      `toml:"vm"`
	Log     LogConfig     `toml:"log"`
	Profile ProfileConfig `toml:"profile"`

	// Dir is the directory containing the embery.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// Memory sizes the fixed pool.
type Memory struct {
	PoolSize int `toml:"pool_size"`
}

// VMConfig sizes the register file and call stack.
type VMConfig struct {
	MaxRegisters int  `toml:"max_registers"`
	MaxFrames    int  `toml:"max_frames"`
	DebugMethods bool `toml:"debug_methods"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// ProfileConfig configures the dispatch profile store.
type ProfileConfig struct {
	Database string `toml:"database"`
}

// Load parses the embery.toml file in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	def := vm.DefaultConfig()
	if m.Memory.PoolSize <= 0 {
		m.Memory.PoolSize = def.PoolSize
	}
	if m.VM.MaxRegisters <= 0 {
		m.VM.MaxRegisters = def.MaxRegisters
	}
	if m.VM.MaxFrames < 0 {
		return nil, fmt.Errorf("%s: max_frames must not be negative", path)
	}
	if !md.IsDefined("vm", "max_frames") {
		m.VM.MaxFrames = def.MaxFrames
	}
	if m.Project.Entry == "" {
		m.Project.Entry = "main.easm"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an embery.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// ProfilePath returns the absolute path of the profile database, or "" when
// profiling is not configured.
func (m *Manifest) ProfilePath() string {
	if m.Profile.Database == "" || filepath.IsAbs(m.Profile.Database) {
		return m.Profile.Database
	}
	return filepath.Join(m.Dir, m.Profile.Database)
}

// VMConfig returns the VM configuration the manifest describes.
func (m *Manifest) VMConfig() vm.Config {
	cfg := vm.DefaultConfig()
	cfg.PoolSize = m.Memory.PoolSize
	cfg.MaxRegisters = m.VM.MaxRegisters
	cfg.MaxFrames = m.VM.MaxFrames
	cfg.DebugMethods = m.VM.DebugMethods
	cfg.Profile = m.Profile.Database != ""
	return cfg
}
