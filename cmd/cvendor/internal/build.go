package internal

import (
	"io"
	"runtime"

	"github.com/goplus/cvendor/internal/config"
	"github.com/goplus/cvendor/internal/directive"
	"github.com/goplus/cvendor/internal/env"
	"github.com/goplus/cvendor/internal/orchestrator"
	"github.com/goplus/cvendor/internal/shell"
	"github.com/goplus/cvendor/pkgs/buildsys/autotools"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	config        string
	out           string
	lib           string
	marker        string
	format        string
	cgoFile       string
	cgoPackage    string
	configureArgs []string
	force         bool
	verbose       bool
}

func newBuildCmd(opts *buildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [source-dir]",
		Short: "Build the vendored library and print link directives",
		Long: `Build makes sure the vendored source tree has a configure script, runs
configure, make and make install into the output directory, and prints the
library search path and link name on stdout. Diagnostics go to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.config, "config", "", "Config file (default "+config.DefaultFile+" if present)")
	flags.StringVarP(&opts.out, "out", "o", "", "Install prefix (default $OUT_DIR, then the user cache)")
	flags.StringVar(&opts.lib, "lib", "", "Static library link name (default mypkg)")
	flags.StringVar(&opts.marker, "marker", "", "File inside the source directory that marks it configured (default configure)")
	flags.StringVarP(&opts.format, "format", "f", "", "Directive format: cgo, cargo or env (default cgo)")
	flags.StringVar(&opts.cgoFile, "cgo-file", "", "Also write a Go file with a #cgo LDFLAGS preamble")
	flags.StringVar(&opts.cgoPackage, "cgo-package", "", "Package name of the generated cgo file (default main)")
	flags.StringArrayVar(&opts.configureArgs, "configure-arg", nil, "Extra argument for ./configure (repeatable)")
	flags.BoolVar(&opts.force, "force", false, "Regenerate the configure script even if it exists")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose build output")
	return cmd
}

// apply overrides cfg with the flags the user actually set.
func (o *buildOptions) apply(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.SourceDir = args[0]
	}
	changed := cmd.Flags().Changed
	if changed("out") {
		cfg.OutDir = o.out
	}
	if changed("lib") {
		cfg.Lib = o.lib
	}
	if changed("marker") {
		cfg.Marker = o.marker
	}
	if changed("format") {
		cfg.Format = o.format
	}
	if changed("cgo-file") {
		cfg.CgoFile = o.cgoFile
	}
	if changed("cgo-package") {
		cfg.CgoPackage = o.cgoPackage
	}
	if changed("configure-arg") {
		cfg.ConfigureArgs = o.configureArgs
	}
	if changed("force") {
		cfg.Force = o.force
	}
	if o.verbose && cfg.LogLevel() > zerolog.DebugLevel {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}
}

func runBuild(cmd *cobra.Command, args []string, opts *buildOptions) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg, args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	logger := newLogger(stderr, cfg.LogLevel())
	ctx := logger.WithContext(cmd.Context())

	outDir, err := env.OutDir(cfg.OutDir, cfg.Lib)
	if err != nil {
		return err
	}

	// Native diagnostics always reach the build log; progress chatter only
	// with --verbose.
	runner := &shell.Runner{Stdout: io.Discard, Stderr: stderr}
	if opts.verbose {
		runner.Stdout = stderr
	}

	var emitters directive.Emitters
	if cfg.CgoFile != "" {
		emitters = append(emitters, &directive.CgoFile{
			Path:    cfg.CgoFile,
			Package: cfg.CgoPackage,
			GOOS:    runtime.GOOS,
			GOARCH:  runtime.GOARCH,
		})
	}
	emitters = append(emitters, &directive.Writer{W: cmd.OutOrStdout(), Format: cfg.DirectiveFormat()})

	o := &orchestrator.Orchestrator{
		SourceDir:  cfg.SourceDir,
		Marker:     cfg.Marker,
		LibName:    cfg.Lib,
		Force:      cfg.Force,
		Configurer: &autotools.Autoreconf{Runner: runner, Force: cfg.Force},
		Builder: &autotools.Builder{
			Runner:        runner,
			OutDir:        outDir,
			ConfigureArgs: cfg.ConfigureArgs,
		},
		Emitter: emitters,
	}
	_, err = o.Run(ctx)
	return err
}
