// Package shell runs external build tools through an embedded POSIX shell
// interpreter, so autoreconf, configure and make behave the same on every host.
package shell

import (
	"context"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Command describes a single process invocation.
type Command struct {
	Dir  string            // working directory; empty means the current one
	Env  map[string]string // overrides on top of os.Environ()
	Args []string          // program and its arguments
}

// String renders the command line for log output.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Runner executes commands and streams their output.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Runner that forwards both child streams to os.Stderr.
// Stdout of this process is reserved for link directives.
func New() *Runner {
	return &Runner{Stdout: os.Stderr, Stderr: os.Stderr}
}

// Run executes cmd and waits for it to finish. A non-zero exit status is
// reported as an error naming the command; a missing program exits with 127.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return eris.New("empty command")
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(environ(os.Environ(), cmd.Env)...)),
		interp.StdIO(nil, writerOrDiscard(r.Stdout), writerOrDiscard(r.Stderr)),
	}
	if cmd.Dir != "" {
		opts = append(opts, interp.Dir(cmd.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return eris.Wrapf(err, "failed to initialize shell for %s", cmd.Args[0])
	}

	err = runner.Run(ctx, callExpr(cmd.Args))
	if err == nil {
		return nil
	}
	if status, ok := interp.IsExitStatus(err); ok {
		return &ExitError{Cmd: cmd.String(), Status: int(status)}
	}
	return eris.Wrapf(err, "failed to run %s", cmd.String())
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Status int
}

func (e *ExitError) Error() string {
	return e.Cmd + ": exit status " + strconv.Itoa(e.Status)
}

// callExpr builds the AST for a simple command. Every argument is a
// single-quoted word, so nothing is expanded or globbed.
func callExpr(args []string) *syntax.File {
	call := &syntax.CallExpr{Args: make([]*syntax.Word, 0, len(args))}
	for _, arg := range args {
		call.Args = append(call.Args, &syntax.Word{
			Parts: []syntax.WordPart{&syntax.SglQuoted{Value: arg}},
		})
	}
	return &syntax.File{Stmts: []*syntax.Stmt{{Cmd: call}}}
}

// environ appends overrides to base in key order. Later entries win in
// expand.ListEnviron.
func environ(base []string, overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(base)+len(keys))
	out = append(out, base...)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
