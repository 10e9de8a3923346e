// Package orchestrator drives a vendored native library from source tree to
// link directives: regenerate the configure script when it is missing, run
// the native build, then report where the static archive landed.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/cvendor/internal/directive"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	// DefaultLib is the link name reported when none is configured.
	DefaultLib = "mypkg"

	// DefaultMarker is the file whose presence means the tree is configured.
	DefaultMarker = "configure"
)

var (
	// ErrConfigure marks a failure to generate the configure script.
	ErrConfigure = eris.New("configuration generation failed")

	// ErrBuild marks a failure of the native configure/make/install sequence.
	ErrBuild = eris.New("native build failed")
)

// Error is returned by Run when one of the external steps fails.
// errors.Is(err, ErrConfigure) and errors.Is(err, ErrBuild) tell them apart.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Configurer generates the build-system files of a source tree.
type Configurer interface {
	Configure(ctx context.Context, sourceDir string) error
}

// NativeBuilder builds a configured source tree and returns the directory
// the library was installed to.
type NativeBuilder interface {
	Build(ctx context.Context, sourceDir string) (string, error)
}

// NeedsConfiguration reports whether sourceDir lacks its configure marker.
// The marker is relative to sourceDir.
func NeedsConfiguration(exists func(string) bool, sourceDir, marker string) bool {
	if marker == "" {
		marker = DefaultMarker
	}
	return !exists(filepath.Join(sourceDir, marker))
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Orchestrator runs the check, configure, build and report sequence once.
type Orchestrator struct {
	SourceDir string
	Marker    string // defaults to DefaultMarker
	LibName   string // defaults to DefaultLib

	// Force regenerates the configure script even when the marker exists.
	Force bool

	Configurer Configurer
	Builder    NativeBuilder
	Emitter    directive.Emitter // may be nil

	// Exists replaces FileExists in tests.
	Exists func(string) bool
}

// Run executes the sequence. Directives are emitted only after every step
// succeeded; on error nothing is emitted.
func (o *Orchestrator) Run(ctx context.Context) (directive.Link, error) {
	log := zerolog.Ctx(ctx)
	exists := o.Exists
	if exists == nil {
		exists = FileExists
	}

	if !exists(o.SourceDir) {
		return directive.Link{}, eris.Errorf("source directory %s does not exist", o.SourceDir)
	}

	if o.Force || NeedsConfiguration(exists, o.SourceDir, o.Marker) {
		log.Info().Str("path", o.SourceDir).Bool("force", o.Force).Msg("generating configure script")
		if err := o.Configurer.Configure(ctx, o.SourceDir); err != nil {
			return directive.Link{}, &Error{Kind: ErrConfigure, Err: err}
		}
	} else {
		log.Debug().Str("path", o.SourceDir).Msg("configure script present, skipping autoreconf")
	}

	out, err := o.Builder.Build(ctx, o.SourceDir)
	if err != nil {
		return directive.Link{}, &Error{Kind: ErrBuild, Err: err}
	}

	link := directive.Static(filepath.Join(out, "lib"), o.libName())
	log.Info().Str("path", link.SearchDir).Str("lib", link.Name).Msg("built")

	if o.Emitter != nil {
		if err := o.Emitter.Emit(link); err != nil {
			return directive.Link{}, eris.Wrap(err, "failed to emit link directives")
		}
	}
	return link, nil
}

func (o *Orchestrator) libName() string {
	if o.LibName == "" {
		return DefaultLib
	}
	return o.LibName
}
