package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
}

func script(t *testing.T, body string) string {
	t.Helper()
	requireShell(t)
	path := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.WriteFile(
		path, []byte("#!/bin/sh\n"+body+"\n"), 0o755,
	))
	return path
}

func TestProcess_Run_CapturesOutput(t *testing.T) {
	exe := script(t, `echo "args: $1|$2"
echo "oops" >&2
exit 3`)

	out, err := NewProcess().Run(
		context.Background(), exe, []string{"a b", "c"}, time.Second,
	)
	require.NoError(t, err)

	assert.Equal(t, "args: a b|c\n", out.Stdout)
	assert.Equal(t, "oops\n", out.Stderr)
	assert.Equal(t, 3, out.ExitCode)
	assert.False(t, out.TimedOut)
	assert.Positive(t, out.Duration)
}

func TestProcess_Run_ZeroExit(t *testing.T) {
	exe := script(t, "printf 42")

	out, err := NewProcess().Run(context.Background(), exe, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "42", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
}

func TestProcess_Run_Timeout(t *testing.T) {
	exe := script(t, "echo partial\nsleep 5")

	start := time.Now()
	out, err := NewProcess(WithWaitDelay(100*time.Millisecond)).Run(
		context.Background(), exe, nil, 200*time.Millisecond,
	)
	require.NoError(t, err)

	assert.True(t, out.TimedOut)
	assert.Empty(t, out.Stdout)
	assert.Empty(t, out.Stderr)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestProcess_Run_BackgroundChildHoldsOutput(t *testing.T) {
	requireShell(t)

	out, err := NewProcess(WithWaitDelay(200*time.Millisecond)).Run(
		context.Background(), "sh", []string{"-c", "sleep 2 & echo hi"},
		5*time.Second,
	)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Equal(t, "hi\n", out.Stdout)
	assert.Equal(t, 0, out.ExitCode)
}

func TestProcess_Run_ExitBeforeDeadlineIsNotTimeout(t *testing.T) {
	requireShell(t)

	// The shell exits at once; its background child keeps the
	// output pipe open past the deadline.
	out, err := NewProcess(WithWaitDelay(time.Second)).Run(
		context.Background(), "sh", []string{"-c", "sleep 3 & echo done; exit 4"},
		300*time.Millisecond,
	)
	require.NoError(t, err)
	assert.False(t, out.TimedOut)
	assert.Equal(t, "done\n", out.Stdout)
	assert.Equal(t, 4, out.ExitCode)
}

func TestExitedNormally(t *testing.T) {
	assert.False(t, exitedNormally(nil))

	requireShell(t)
	cmd := exec.Command("sh", "-c", "exit 2")
	_ = cmd.Run()
	assert.True(t, exitedNormally(cmd.ProcessState))
}

func TestProcess_Run_MissingExecutable(t *testing.T) {
	out, err := NewProcess().Run(
		context.Background(),
		filepath.Join(t.TempDir(), "missing"), nil, time.Second,
	)
	assert.Nil(t, out)

	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestProcess_Run_CancelledContext(t *testing.T) {
	exe := script(t, "sleep 5")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := NewProcess(WithWaitDelay(100*time.Millisecond)).Run(
		ctx, exe, nil, 10*time.Second,
	)

	var lerr *LaunchError
	require.True(t, errors.As(err, &lerr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_Run_MaxOutput(t *testing.T) {
	exe := script(t, "yes | head -c 100000")

	out, err := NewProcess(WithMaxOutput(10)).Run(
		context.Background(), exe, nil, 2*time.Second,
	)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("y\n", 5), out.Stdout)
}

func TestProcess_Run_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	exe := script(t, `pwd; echo "$GREETING"`)

	out, err := NewProcess(
		WithDir(dir),
		WithEnv([]string{"GREETING=hola", "PATH=" + os.Getenv("PATH")}),
	).Run(context.Background(), exe, nil, time.Second)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, []string{dir, resolved}, lines[0])
	assert.Equal(t, "hola", lines[1])
}

func TestErrors(t *testing.T) {
	terr := &TimeoutError{Exe: "./prog", Timeout: 1500 * time.Millisecond}
	assert.Equal(t, "./prog did not finish within 1.50 seconds", terr.Error())

	cause := errors.New("boom")
	lerr := &LaunchError{Exe: "./prog", Err: cause}
	assert.Equal(t, "launch ./prog: boom", lerr.Error())
	assert.ErrorIs(t, lerr, cause)
}
