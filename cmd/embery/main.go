// Embery CLI - runs, disassembles and compiles embery code blocks
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/embery/image"
	"github.com/chazu/embery/manifest"
	"github.com/chazu/embery/profile"
	"github.com/chazu/embery/vm"
)

// verbosity is a flag that counts its occurrences: -v -v gives 2.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("bad verbosity %q", s)
	}
	*v = verbosity(n)
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Verbose logging (repeat for more detail)")
	logFile := flag.String("log", "", "Write the log to this file instead of stderr")
	disasm := flag.Bool("d", false, "Print the disassembly instead of running")
	compileOnly := flag.Bool("c", false, "Write an image instead of running")
	output := flag.String("o", "", "Image path for -c (default: input with .ebi)")
	showClasses := flag.Bool("classes", false, "Print the class tree after the run")
	profilePath := flag.String("profile", "", "Save the dispatch profile to this sqlite database")
	listRuns := flag.Bool("runs", false, "List the runs saved in the profile database")
	poolSize := flag.Int("pool", 0, "Memory pool size in bytes")
	debugMethods := flag.Bool("debug-methods", false, "Install object_id, instance_methods and friends")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: embery [options] [file.easm|file.ebi]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a code block. Without a file, the entry of the nearest embery.toml is used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  embery main.easm                    # Run a script\n")
		fmt.Fprintf(os.Stderr, "  embery -d main.ebi                  # Disassemble an image\n")
		fmt.Fprintf(os.Stderr, "  embery -c main.easm -o main.ebi     # Assemble to an image\n")
		fmt.Fprintf(os.Stderr, "  embery -profile prof.db main.easm   # Run and save the dispatch profile\n")
		fmt.Fprintf(os.Stderr, "  embery -profile prof.db -runs       # List saved profiles\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the manifest
	cfg := vm.DefaultConfig()
	level := int(verbose)
	var logPath *string
	if m != nil {
		cfg = m.VMConfig()
		if level == 0 {
			level = m.Log.Verbosity
		}
		if m.Log.File != "" {
			logPath = &m.Log.File
		}
		if *profilePath == "" {
			*profilePath = m.ProfilePath()
		}
	}
	if *logFile != "" {
		logPath = logFile
	}
	commonlog.Configure(level, logPath)

	if *poolSize > 0 {
		cfg.PoolSize = *poolSize
	}
	if *debugMethods {
		cfg.DebugMethods = true
	}
	cfg.Profile = *profilePath != ""

	if *listRuns {
		if *profilePath == "" {
			fmt.Fprintf(os.Stderr, "Error: -runs needs a profile database\n")
			os.Exit(2)
		}
		if err := printRuns(os.Stdout, *profilePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path := flag.Arg(0)
	if path == "" && m != nil {
		path = m.EntryPath()
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	root, err := loadScript(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Print(vm.Disassemble(root))
		return
	}

	if *compileOnly {
		out := *output
		if out == "" {
			out = defaultImagePath(path)
		}
		if err := image.WriteFile(out, root); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(run(root, path, cfg, *profilePath, *showClasses))
}

// run executes root and returns the process exit code. An integer result
// becomes the exit code.
func run(root *vm.Irep, path string, cfg vm.Config, profilePath string, showClasses bool) int {
	v, err := vm.NewVM(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	code := 0
	result, err := v.Execute(root)
	var unhandled *vm.UnhandledError
	switch {
	case errors.As(err, &unhandled):
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, unhandled)
		code = 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	case result.IsInt():
		code = int(result.Int())
	}
	v.Release(result)

	if showClasses {
		fmt.Print(renderClassTree(v))
	}

	if profilePath != "" {
		if err := saveProfile(profilePath, path, v); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	v.Close()
	return code
}

func saveProfile(dbPath, script string, v *vm.VM) error {
	store, err := profile.Open(dbPath)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	defer store.Close()
	if err := store.Save(v.RunID, script, v.Profiler); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	return nil
}
