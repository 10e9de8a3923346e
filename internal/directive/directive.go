// Package directive formats link directives for the build tool that invoked
// cvendor: where the native library lives and what to link against.
package directive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format selects the directive syntax of the enclosing build tool.
type Format string

const (
	FormatCgo   Format = "cgo"   // #cgo LDFLAGS preamble line
	FormatCargo Format = "cargo" // cargo:rustc-link-* build script lines
	FormatEnv   Format = "env"   // CGO_LDFLAGS=... for eval or go env -w
)

// Formats lists every supported format.
var Formats = []Format{FormatCgo, FormatCargo, FormatEnv}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", eris.Errorf("unknown directive format %q (want one of cgo, cargo, env)", s)
}

// Link holds the two facts reported after a successful build.
type Link struct {
	SearchKind string // kind of the search path, always "native"
	SearchDir  string // directory holding the static archive
	Kind       string // link kind, always "static"
	Name       string // library name without lib prefix or .a suffix
}

// Static returns the link facts for a static library installed under dir.
func Static(dir, name string) Link {
	return Link{SearchKind: "native", SearchDir: dir, Kind: "static", Name: name}
}

// LDFlags renders the link as linker flags.
func (l Link) LDFlags() string {
	return "-L" + quote(l.SearchDir) + " -l" + l.Name
}

// Lines renders the link in format f.
func (l Link) Lines(f Format) ([]string, error) {
	switch f {
	case FormatCgo:
		return []string{"#cgo LDFLAGS: " + l.LDFlags()}, nil
	case FormatCargo:
		return []string{
			fmt.Sprintf("cargo:rustc-link-search=%s=%s", l.SearchKind, l.SearchDir),
			fmt.Sprintf("cargo:rustc-link-lib=%s=%s", l.Kind, l.Name),
		}, nil
	case FormatEnv:
		return []string{"CGO_LDFLAGS=" + l.LDFlags()}, nil
	}
	return nil, eris.Errorf("unknown directive format %q", f)
}

// Emitter receives the link facts once the build has succeeded.
type Emitter interface {
	Emit(l Link) error
}

// Writer prints directives to W.
type Writer struct {
	W      io.Writer
	Format Format
}

func (w *Writer) Emit(l Link) error {
	lines, err := l.Lines(w.Format)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.W, line); err != nil {
			return eris.Wrap(err, "failed to write link directive")
		}
	}
	return nil
}

// Emitters fans a link out to several emitters, stopping at the first error.
type Emitters []Emitter

func (es Emitters) Emit(l Link) error {
	for _, e := range es {
		if err := e.Emit(l); err != nil {
			return err
		}
	}
	return nil
}

// CgoFile writes a Go source file whose cgo preamble links the library.
type CgoFile struct {
	Path    string
	Package string
	GOOS    string
	GOARCH  string
}

func (c *CgoFile) Emit(l Link) error {
	return WriteCgoFile(c.Path, c.Package, l, c.GOOS, c.GOARCH)
}

// WriteCgoFile generates path, constrained to goos/goarch when both are set.
// A search directory below the file's own directory is written relative to
// ${SRCDIR} so the generated file stays valid when the tree moves.
func WriteCgoFile(path, pkg string, l Link, goos, goarch string) error {
	if pkg == "" {
		pkg = "main"
	}
	l.SearchDir = cgoSearchDir(filepath.Dir(path), l.SearchDir)

	var b strings.Builder
	b.WriteString("// Code generated by cvendor. DO NOT EDIT.\n\n")
	if goos != "" && goarch != "" {
		fmt.Fprintf(&b, "//go:build %s && %s\n\n", goos, goarch)
	}
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	fmt.Fprintf(&b, "// #cgo LDFLAGS: %s\n", l.LDFlags())
	b.WriteString("import \"C\"\n")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func cgoSearchDir(fileDir, searchDir string) string {
	absFile, err := filepath.Abs(fileDir)
	if err != nil {
		return searchDir
	}
	absSearch, err := filepath.Abs(searchDir)
	if err != nil {
		return searchDir
	}
	rel, err := filepath.Rel(absFile, absSearch)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return searchDir
	}
	return "${SRCDIR}/" + filepath.ToSlash(rel)
}

// quote wraps paths containing blanks in single quotes, which cgo and
// CGO_LDFLAGS both split on.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	return "'" + s + "'"
}
