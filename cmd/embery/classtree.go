package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/chazu/embery/profile"
	"github.com/chazu/embery/vm"
)

var (
	accentColor = lipgloss.Color("#3B82F6")
	mutedColor  = lipgloss.Color("#6B7280")

	classStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)
)

// renderClassTree draws every registered class under its superclass.
func renderClassTree(v *vm.VM) string {
	children := make(map[*vm.Class][]*vm.Class)
	var roots []*vm.Class
	for _, c := range v.Classes() {
		if c.Super == nil {
			roots = append(roots, c)
			continue
		}
		children[c.Super] = append(children[c.Super], c)
	}

	var build func(c *vm.Class) *tree.Tree
	build = func(c *vm.Class) *tree.Tree {
		t := tree.Root(classLabel(c)).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(mutedStyle)
		for _, sub := range children[c] {
			if len(children[sub]) == 0 {
				t.Child(classLabel(sub))
				continue
			}
			t.Child(build(sub))
		}
		return t
	}

	var sb strings.Builder
	for _, c := range roots {
		sb.WriteString(build(c).String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func classLabel(c *vm.Class) string {
	n := len(c.Methods())
	if n == 0 {
		return classStyle.Render(c.Name)
	}
	return classStyle.Render(c.Name) + " " + mutedStyle.Render(fmt.Sprintf("(%d methods)", n))
}

// printRuns lists the profiles saved in the database at dbPath.
func printRuns(w io.Writer, dbPath string) error {
	store, err := profile.Open(dbPath)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %10s  %6s  %s", "RUN", "DISPATCHES", "RAISES", "SCRIPT")))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %10d  %6d  %s %s\n", r.ID, r.Dispatches, r.Raises, r.Script,
			mutedStyle.Render(r.SavedAt.Format("2006-01-02 15:04")))
	}
	return nil
}
