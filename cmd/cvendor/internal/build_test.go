package internal

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/cvendor/internal/config"
	"github.com/goplus/cvendor/internal/orchestrator"
	"github.com/rs/zerolog"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func copyFixture(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "mypkg")
	src := filepath.Join("..", "..", "..", "pkgs", "buildsys", "autotools", "testdata", "project")
	if err := os.CopyFS(dir, os.DirFS(src)); err != nil {
		t.Fatalf("copy fixture: %v", err)
	}
	if err := os.Chmod(filepath.Join(dir, "configure"), 0o755); err != nil {
		t.Fatalf("chmod configure: %v", err)
	}
	return dir
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{SourceDir: "mypkg", Lib: "mypkg", Format: "cgo", Marker: "configure"}
	cfg.Log.Level = "info"

	bound := &buildOptions{}
	c := newBuildCmd(bound)
	flags := []string{"--lib", "zstd", "-f", "cargo", "--configure-arg", "--with-pic", "--configure-arg", "--without-x", "-v"}
	if err := c.ParseFlags(flags); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	bound.apply(c, cfg, []string{"vendor/zstd"})

	if cfg.SourceDir != "vendor/zstd" {
		t.Errorf("SourceDir = %q", cfg.SourceDir)
	}
	if cfg.Lib != "zstd" || cfg.Format != "cargo" {
		t.Errorf("Lib, Format = %q, %q", cfg.Lib, cfg.Format)
	}
	if strings.Join(cfg.ConfigureArgs, " ") != "--with-pic --without-x" {
		t.Errorf("ConfigureArgs = %v", cfg.ConfigureArgs)
	}
	if cfg.Marker != "configure" {
		t.Errorf("unset flag overrode Marker: %q", cfg.Marker)
	}
	if cfg.LogLevel() != zerolog.DebugLevel {
		t.Errorf("LogLevel = %v, want debug with -v", cfg.LogLevel())
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if stdout != "cvendor "+Version+"\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestBuildFailureEmitsNothing(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	src := filepath.Join(t.TempDir(), "mypkg")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\necho 'configure: error: C compiler cannot create executables' >&2\nexit 77\n"
	if err := os.WriteFile(filepath.Join(src, "configure"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := execute(t, "build", src, "--out", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, orchestrator.ErrBuild) {
		t.Fatalf("error = %v, want ErrBuild", err)
	}
	if stdout != "" {
		t.Fatalf("directives emitted on failure: %q", stdout)
	}
	if !strings.Contains(stderr, "C compiler cannot create executables") {
		t.Fatalf("native diagnostics missing from stderr:\n%s", stderr)
	}
}

func TestMissingAutoreconfIsFatal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "mypkg")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", t.TempDir())

	stdout, _, err := execute(t, "build", src, "--out", filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, orchestrator.ErrConfigure) {
		t.Fatalf("error = %v, want ErrConfigure", err)
	}
	if stdout != "" {
		t.Fatalf("directives emitted on failure: %q", stdout)
	}
}

func TestMissingSourceDir(t *testing.T) {
	_, _, err := execute(t, "build", filepath.Join(t.TempDir(), "nope"), "--out", t.TempDir())
	if err == nil {
		t.Fatal("build succeeded without a source directory")
	}
}

func TestBuildE2E(t *testing.T) {
	for _, bin := range []string{"make", "cc", "ar"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH", bin)
		}
	}
	src := copyFixture(t)
	out := filepath.Join(t.TempDir(), "out")
	cgoFile := filepath.Join(t.TempDir(), "cgo_gen.go")

	stdout, stderr, err := execute(t, "build", src,
		"--out", out, "--lib", "dummy", "--format", "cargo",
		"--cgo-file", cgoFile, "--cgo-package", "dummy")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}

	libDir := filepath.Join(out, "lib")
	want := "cargo:rustc-link-search=native=" + libDir + "\ncargo:rustc-link-lib=static=dummy\n"
	if stdout != want {
		t.Fatalf("stdout = %q, want %q", stdout, want)
	}
	if _, err := os.Stat(filepath.Join(libDir, "libdummy.a")); err != nil {
		t.Fatalf("static archive missing: %v", err)
	}

	data, err := os.ReadFile(cgoFile)
	if err != nil {
		t.Fatalf("read cgo file: %v", err)
	}
	if !strings.Contains(string(data), "package dummy\n") || !strings.Contains(string(data), "-ldummy") {
		t.Fatalf("unexpected cgo file:\n%s", data)
	}
}
