// Package launcher runs a program once with a wall-clock budget
// and captures what it writes.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultMaxOutput caps the bytes kept per output stream.
const DefaultMaxOutput = 1 << 20

// Launcher runs an executable with arguments. A returned error
// means the process could not be run at all; a timeout is
// reported through Outcome.TimedOut.
type Launcher interface {
	Run(
		ctx context.Context,
		exe string,
		args []string,
		timeout time.Duration,
	) (*Outcome, error)
}

// Outcome is what a finished (or killed) process left behind.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// TimedOut is set when the process was killed for exceeding
	// its budget. Stdout and Stderr are empty in that case.
	TimedOut bool

	Duration time.Duration
}

// LaunchError reports a process that could not be started or
// waited for.
type LaunchError struct {
	Exe string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Exe, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError describes a run killed for exceeding its budget.
type TimeoutError struct {
	Exe     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"%s did not finish within %.2f seconds",
		e.Exe, e.Timeout.Seconds(),
	)
}

// Process runs programs as child processes of the evaluator.
type Process struct {
	dir       string
	env       []string
	maxOutput int
	waitDelay time.Duration
}

// Option configures a Process launcher.
type Option func(*Process)

// WithDir sets the working directory of launched programs.
func WithDir(dir string) Option {
	return func(p *Process) {
		p.dir = dir
	}
}

// WithEnv sets the environment of launched programs. Without it
// they inherit the evaluator's environment.
func WithEnv(env []string) Option {
	return func(p *Process) {
		p.env = env
	}
}

// WithMaxOutput caps the bytes captured from each stream.
func WithMaxOutput(n int) Option {
	return func(p *Process) {
		if n > 0 {
			p.maxOutput = n
		}
	}
}

// WithWaitDelay bounds how long to wait for output pipes after
// the process was killed.
func WithWaitDelay(d time.Duration) Option {
	return func(p *Process) {
		p.waitDelay = d
	}
}

// NewProcess creates a Process launcher.
func NewProcess(opts ...Option) *Process {
	p := &Process{
		maxOutput: DefaultMaxOutput,
		waitDelay: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts exe and waits for it, killing it once timeout
// elapses. A non-positive timeout means no limit.
func (p *Process) Run(
	ctx context.Context,
	exe string,
	args []string,
	timeout time.Duration,
) (*Outcome, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, exe, args...)
	cmd.WaitDelay = p.waitDelay
	cmd.Dir = p.dir
	if p.env != nil {
		cmd.Env = p.env
	}

	stdout := &cappedBuffer{limit: p.maxOutput}
	stderr := &cappedBuffer{limit: p.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Exe: exe, Err: err}
	}
	err := cmd.Wait()
	elapsed := time.Since(start)

	// A program that exited on its own keeps its outcome even when
	// the deadline passed while its output was being collected.
	if !exitedNormally(cmd.ProcessState) {
		if ctx.Err() != nil {
			return nil, &LaunchError{Exe: exe, Err: ctx.Err()}
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return &Outcome{
				ExitCode: -1,
				TimedOut: true,
				Duration: elapsed,
			}, nil
		}
	}

	out := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			out.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
			// A background child still held the output pipes.
			out.ExitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, &LaunchError{Exe: exe, Err: err}
		}
	}
	return out, nil
}

// exitedNormally reports whether the process ended by exiting
// rather than by a signal.
func exitedNormally(ps *os.ProcessState) bool {
	return ps != nil && ps.Exited()
}

// cappedBuffer keeps the first limit bytes written to it and
// silently discards the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
