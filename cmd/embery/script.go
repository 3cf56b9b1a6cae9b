package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/embery/asm"
	"github.com/chazu/embery/image"
	"github.com/chazu/embery/vm"
)

// loadScript reads an assembler source (.easm) or an image (.ebi).
func loadScript(path string) (*vm.Irep, error) {
	switch filepath.Ext(path) {
	case ".ebi":
		return image.ReadFile(path)
	case ".easm", "":
		return asm.ParseFile(path)
	}
	return nil, fmt.Errorf("%s: unknown file type (want .easm or .ebi)", path)
}

// defaultImagePath replaces the extension of path with .ebi.
func defaultImagePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".ebi"
}
