// Package config loads cvendor settings from defaults, an optional TOML
// file and CVENDOR_* environment variables. Command-line flags are applied
// on top by the CLI.
package config

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/goplus/cvendor/internal/directive"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "cvendor.toml"

// Config describes all configuration options
type Config struct {
	SourceDir     string   `default:"mypkg" usage:"Vendored library source directory"`
	OutDir        string   `usage:"Install prefix (defaults to OUT_DIR, then the user cache)"`
	Lib           string   `default:"mypkg" usage:"Static library link name, without lib prefix or .a suffix"`
	Marker        string   `default:"configure" usage:"File inside the source directory that marks it configured"`
	Format        string   `default:"cgo" usage:"Directive format: cgo, cargo or env"`
	CgoFile       string   `usage:"Also write a Go file with a #cgo LDFLAGS preamble here"`
	CgoPackage    string   `default:"main" usage:"Package name of the generated cgo file"`
	ConfigureArgs []string `usage:"Extra arguments for ./configure"`
	Force         bool     `default:"false" usage:"Regenerate the configure script even if it exists"`
	Log           struct {
		Level string `default:"info"`
	}
}

// Load reads the configuration. An empty path means DefaultFile; a missing
// default file is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	var files []string
	switch {
	case path != "":
		if _, err := os.Stat(path); err != nil {
			return nil, eris.Wrapf(err, "failed to read config file %s", path)
		}
		files = []string{path}
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			files = []string{DefaultFile}
		}
	}

	cfg := Config{}
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "CVENDOR",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}
	return &cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if cfg.SourceDir == "" {
		return eris.New("source directory must not be empty")
	}
	if cfg.Lib == "" {
		return eris.New("library name must not be empty")
	}
	if _, err := directive.ParseFormat(cfg.Format); err != nil {
		return eris.Wrap(err, "invalid value for format")
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return eris.Errorf("invalid value for log.level: %s", cfg.Log.Level)
	}
	return nil
}

// DirectiveFormat returns Format as a directive.Format. Call Validate first.
func (cfg *Config) DirectiveFormat() directive.Format {
	return directive.Format(cfg.Format)
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
