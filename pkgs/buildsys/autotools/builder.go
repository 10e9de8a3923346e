package autotools

import (
	"context"
	"path/filepath"

	"github.com/goplus/cvendor/internal/shell"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Builder runs the full configure, make, make install sequence for a source
// tree and reports the install prefix.
type Builder struct {
	Runner Runner

	// OutDir is the install prefix. The build tree lives in OutDir/build.
	OutDir string

	// ConfigureArgs are appended after the default configure flags.
	ConfigureArgs []string

	// Env is exported to every build command.
	Env map[string]string
}

// Build builds sourceDir and returns the directory the library was installed to.
func (b *Builder) Build(ctx context.Context, sourceDir string) (string, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve source directory %s", sourceDir)
	}
	out, err := filepath.Abs(b.OutDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve output directory %s", b.OutDir)
	}

	a := New(b.Runner, src, filepath.Join(out, "build"), out)
	for k, v := range b.Env {
		a.Env(k, v)
	}

	log := zerolog.Ctx(ctx)
	log.Info().Str("path", src).Str("prefix", out).Msg("configuring")
	if err := a.Configure(ctx, b.ConfigureArgs...); err != nil {
		return "", err
	}
	log.Info().Int("jobs", Jobs()).Msg("building")
	if err := a.Build(ctx); err != nil {
		return "", err
	}
	log.Info().Msg("installing")
	if err := a.Install(ctx); err != nil {
		return "", err
	}
	return a.OutputDir(), nil
}

// Autoreconf regenerates the configure script of a source tree.
type Autoreconf struct {
	Runner Runner

	// Force also overwrites files that already exist (autoreconf -fi).
	Force bool
}

// Configure runs autoreconf -i on sourceDir. The tool's presence is not
// checked up front; a missing autoreconf fails like any other exit.
func (r *Autoreconf) Configure(ctx context.Context, sourceDir string) error {
	flag := "-i"
	if r.Force {
		flag = "-fi"
	}
	cmd := shell.Command{Args: []string{"autoreconf", flag, sourceDir}}
	zerolog.Ctx(ctx).Info().Str("path", sourceDir).Msg(cmd.String())
	if err := r.Runner.Run(ctx, cmd); err != nil {
		return eris.Wrap(err, "autoreconf failed")
	}
	return nil
}
