package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewConsoleWriter(&buf, true))

	logger.Info().Str("lib", "mypkg").Int("jobs", 4).Msg("building")
	if got, want := buf.String(), "==> building jobs=4 lib=mypkg\n"; got != want {
		t.Fatalf("info line = %q, want %q", got, want)
	}

	buf.Reset()
	logger.Error().Err(eris.New("make failed")).Msg("cvendor failed")
	got := buf.String()
	if !strings.HasPrefix(got, "==> Error: cvendor failed\n") || !strings.Contains(got, "make failed") {
		t.Fatalf("error line = %q", got)
	}
	if strings.Contains(got, "\033[") {
		t.Fatalf("color codes with colors disabled: %q", got)
	}
}

func TestConsoleWriterColor(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewConsoleWriter(&buf, false))
	logger.Warn().Msg("careful")
	if !strings.Contains(buf.String(), "\033[33m") {
		t.Fatalf("warn line not yellow: %q", buf.String())
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, zerolog.InfoLevel)
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}
	logger.Info().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("info line missing: %q", buf.String())
	}
}
