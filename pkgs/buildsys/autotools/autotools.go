package autotools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/goplus/cvendor/internal/shell"
	"github.com/goplus/cvendor/pkgs/buildsys"
	"github.com/rotisserie/eris"
)

// Runner executes a single external command.
type Runner interface {
	Run(ctx context.Context, cmd shell.Command) error
}

// StaticOnly are the configure flags passed ahead of caller arguments so the
// install prefix only ever holds a static archive.
var StaticOnly = []string{"--disable-shared", "--enable-static"}

// AutoTools wraps common Autotools build steps.
type AutoTools struct {
	runner     Runner
	SourceDir  string
	buildDir   string
	installDir string
	env        map[string]string
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools helper building sourceDir out of tree in buildDir
// and installing into installDir.
func New(runner Runner, sourceDir, buildDir, installDir string) *AutoTools {
	return &AutoTools{
		runner:     runner,
		SourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		env:        map[string]string{},
	}
}

func (a *AutoTools) Source(dir string) {
	a.SourceDir = dir
}

func (a *AutoTools) InstallDir(dir string) {
	a.installDir = dir
}

// Env sets key=value for every command spawned later. The current process
// environment is left alone.
func (a *AutoTools) Env(key, value string) {
	if a.env == nil {
		a.env = map[string]string{}
	}
	a.env[key] = value
}

// Configure runs <SourceDir>/configure inside the build directory.
// --prefix and the static-only flags come first, then args.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	dir := a.workDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create build directory %s", dir)
	}

	exe := filepath.Join(a.SourceDir, "configure")
	if dir == "." {
		exe = "./configure"
	}

	configArgs := make([]string, 0, 1+len(StaticOnly)+len(args))
	if a.installDir != "" {
		configArgs = append(configArgs, "--prefix="+a.installDir)
	}
	configArgs = append(configArgs, StaticOnly...)
	configArgs = append(configArgs, args...)

	return a.run(ctx, exe, configArgs...)
}

// Build runs "make -j<jobs>" or the provided command in the build directory.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return a.run(ctx, "make", "-j"+strconv.Itoa(Jobs()))
	}
	return a.run(ctx, args[0], args[1:]...)
}

// Install runs "make install" or the provided command in the build directory.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return a.run(ctx, "make", "install")
	}
	return a.run(ctx, args[0], args[1:]...)
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.buildDir
}

func (a *AutoTools) workDir() string {
	if a.buildDir == "" {
		return "."
	}
	return a.buildDir
}

func (a *AutoTools) run(ctx context.Context, name string, args ...string) error {
	cmd := shell.Command{
		Dir:  a.workDir(),
		Env:  a.env,
		Args: append([]string{name}, args...),
	}
	if err := a.runner.Run(ctx, cmd); err != nil {
		return eris.Wrapf(err, "%s failed", filepath.Base(name))
	}
	return nil
}

// Jobs returns the make parallelism: NUM_JOBS when it holds a positive
// integer, otherwise the number of CPUs.
func Jobs() int {
	if n, err := strconv.Atoi(os.Getenv("NUM_JOBS")); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
