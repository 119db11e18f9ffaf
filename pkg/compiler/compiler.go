// Package compiler builds submitted sources into executables by
// invoking an external toolchain such as gcc or g++.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a single build.
const DefaultTimeout = 60 * time.Second

// Compiler builds a source file and returns the path of the
// produced executable.
type Compiler interface {
	Build(
		ctx context.Context,
		tool, source string,
		flags []string,
	) (string, error)
}

// BuildError reports a failed build. Diagnostics holds whatever
// the tool wrote to stderr.
type BuildError struct {
	Tool        string
	Source      string
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build %s with %s", filepath.Base(e.Source), e.Tool)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if d := firstLine(e.Diagnostics); d != "" {
		msg += ": " + d
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Toolchain runs "tool flags... source -o output".
type Toolchain struct {
	outDir  string
	timeout time.Duration
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithOutputDir places executables in dir instead of next to the
// source file.
func WithOutputDir(dir string) Option {
	return func(t *Toolchain) {
		t.outDir = dir
	}
}

// WithTimeout bounds each build.
func WithTimeout(d time.Duration) Option {
	return func(t *Toolchain) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewToolchain creates a Toolchain.
func NewToolchain(opts ...Option) *Toolchain {
	t := &Toolchain{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OutputPath returns where the executable for source is written.
func (t *Toolchain) OutputPath(source string) string {
	dir := filepath.Dir(source)
	if t.outDir != "" {
		dir = t.outDir
	}
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == base || name == "" {
		name = base + ".out"
	}
	return filepath.Join(dir, name)
}

// Build compiles source. A partially written executable is
// removed when the build fails.
func (t *Toolchain) Build(
	ctx context.Context,
	tool, source string,
	flags []string,
) (string, error) {
	fail := func(code int, diag string, err error) (string, error) {
		return "", &BuildError{
			Tool: tool, Source: source, ExitCode: code,
			Diagnostics: diag, Err: err,
		}
	}

	if tool == "" {
		return fail(-1, "", errors.New("no build tool"))
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return fail(-1, "", err)
	}
	if _, err := os.Stat(source); err != nil {
		return fail(-1, "", err)
	}
	if t.outDir != "" {
		if err := os.MkdirAll(t.outDir, 0o755); err != nil {
			return fail(-1, "", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out := t.OutputPath(source)
	args := make([]string, 0, len(flags)+3)
	args = append(args, flags...)
	args = append(args, source, "-o", out)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = 2 * time.Second
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", t.timeout)
		}
		return fail(code, stderr.String(), err)
	}

	if _, err := os.Stat(out); err != nil {
		return fail(0, stderr.String(),
			fmt.Errorf("executable not produced: %w", err))
	}

	abs, err := filepath.Abs(out)
	if err != nil {
		return out, nil
	}
	return abs, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
