package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"digital.vasic.progeval/pkg/assertion"
	"digital.vasic.progeval/pkg/compiler"
	"digital.vasic.progeval/pkg/launcher"
	"digital.vasic.progeval/pkg/report"
	"digital.vasic.progeval/pkg/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub compiler ---

type stubCompiler struct {
	exe   string
	err   error
	calls int
	tool  string
	flags []string
}

func (c *stubCompiler) Build(
	_ context.Context,
	tool, _ string,
	flags []string,
) (string, error) {
	c.calls++
	c.tool = tool
	c.flags = flags
	if c.err != nil {
		return "", c.err
	}
	return c.exe, nil
}

// --- scripted launcher ---

type step struct {
	out *launcher.Outcome
	err error
}

func pass(stdout string) step {
	return step{out: &launcher.Outcome{Stdout: stdout}}
}

func exit(code int) step {
	return step{out: &launcher.Outcome{ExitCode: code}}
}

type call struct {
	exe     string
	args    []string
	timeout time.Duration
}

type scriptedLauncher struct {
	mu    sync.Mutex
	steps []step
	calls []call
}

func (l *scriptedLauncher) Run(
	_ context.Context,
	exe string,
	args []string,
	timeout time.Duration,
) (*launcher.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call{exe, args, timeout})
	if len(l.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	s := l.steps[0]
	l.steps = l.steps[1:]
	return s.out, s.err
}

// --- helpers ---

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func exitZeroRuns(n int) []spec.TestRun {
	runs := make([]spec.TestRun, n)
	for i := range runs {
		runs[i] = spec.TestRun{ExitCode: assertion.MustParse("equals(0)")}
	}
	return runs
}

func cSpec(testbeds ...spec.Testbed) *spec.Specification {
	return &spec.Specification{
		Language:   spec.LanguageC,
		BuildTool:  "gcc",
		BuildFlags: []string{"-Wall"},
		Testbeds:   testbeds,
	}
}

func newTestEvaluator(
	c compiler.Compiler,
	l launcher.Launcher,
	opts ...Option,
) *Evaluator {
	all := append([]Option{WithCompiler(c), WithLauncher(l)}, opts...)
	return New(all...)
}

func lineTexts(events []report.Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == report.KindLine {
			out = append(out, e.Text)
		}
	}
	return out
}

func countText(events []report.Event, text string) int {
	n := 0
	for _, e := range events {
		if e.Text == text {
			n++
		}
	}
	return n
}

// --- tests ---

func TestEvaluate_ProportionalScoring(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(0), exit(0), exit(1), exit(0)}}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 10,
		Scoring: spec.Proportional, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(4),
	})

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	require.Len(t, res.Testbeds, 1)
	tb := res.Testbeds[0]
	assert.Equal(t, 3, tb.PassCount)
	assert.Equal(t, 4, tb.TotalCount)
	assert.InDelta(t, 7.5, tb.AwardedScore, 1e-9)
	assert.InDelta(t, 7.5, res.TotalScore, 1e-9)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Len(t, l.calls, 4)
}

func TestEvaluate_AllOrNothingScoring(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(0), exit(0), exit(1), exit(0)}}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 10,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(4),
	})

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Testbeds[0].PassCount)
	assert.Zero(t, res.Testbeds[0].AwardedScore)
	assert.Zero(t, res.TotalScore)
	assert.Contains(t, lineTexts(res.Trace), "Score +0.0 of 10")
}

func TestEvaluate_AbortStopsTestbedAndEvaluation(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(0), exit(3)}}
	s := cSpec(
		spec.Testbed{
			Name: "Required", MaxScore: 5,
			Scoring: spec.Proportional, OnError: spec.PolicyAbort,
			Runs: exitZeroRuns(4),
		},
		spec.Testbed{
			Name: "Extra", MaxScore: 5,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(2),
		},
	)

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Len(t, l.calls, 2, "runs 3 and 4 must not be attempted")
	require.Len(t, res.Testbeds, 1)
	tb := res.Testbeds[0]
	assert.Equal(t, 1, tb.PassCount)
	assert.Len(t, tb.Runs, 2)
	assert.Equal(t, StopPreviousFailed, tb.StopReason)
	assert.True(t, tb.StoppedEvaluation)
	assert.InDelta(t, 1.25, res.TotalScore, 1e-9)
	assert.Equal(t, []string{"Extra"}, res.NotRun)

	lines := lineTexts(res.Trace)
	assert.Contains(t, lines, "Program did not pass the previous required test.")
	assert.Contains(t, lines, "Test set aborted.")
	assert.NotContains(t, lines, "Evaluation halted.")
}

func TestEvaluate_SkipMovesToNextTestbed(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(1), exit(0), exit(0)}}
	s := cSpec(
		spec.Testbed{
			Name: "First", MaxScore: 4,
			Scoring: spec.AllOrNothing, OnError: spec.PolicySkip,
			Runs: exitZeroRuns(3),
		},
		spec.Testbed{
			Name: "Second", MaxScore: 6,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(2),
		},
	)

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	require.Len(t, res.Testbeds, 2)
	assert.Len(t, res.Testbeds[0].Runs, 1)
	assert.False(t, res.Testbeds[0].StoppedEvaluation)
	assert.Equal(t, 2, res.Testbeds[1].PassCount)
	assert.InDelta(t, 6.0, res.TotalScore, 1e-9)
	assert.Empty(t, res.NotRun)
}

func TestEvaluate_HaltRunsWholeTestbedThenStops(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(1), exit(0), exit(0)}}
	s := cSpec(
		spec.Testbed{
			Name: "Gate", MaxScore: 3,
			Scoring: spec.Proportional, OnError: spec.PolicyHalt,
			Runs: exitZeroRuns(3),
		},
		spec.Testbed{
			Name: "Later", MaxScore: 5,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(2),
		},
	)

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Len(t, l.calls, 3)
	require.Len(t, res.Testbeds, 1)
	assert.Equal(t, 2, res.Testbeds[0].PassCount)
	assert.True(t, res.Testbeds[0].StoppedEvaluation)
	assert.InDelta(t, 2.0, res.TotalScore, 1e-9)
	assert.Equal(t, []string{"Later"}, res.NotRun)

	lines := lineTexts(res.Trace)
	assert.Contains(t, lines, "Program did not pass all required tests.")
	assert.Contains(t, lines, "Evaluation halted.")
}

func TestEvaluate_HaltWithoutFailuresContinues(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(0), exit(0), exit(0), exit(0)}}
	s := cSpec(
		spec.Testbed{
			Name: "Gate", MaxScore: 3,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyHalt,
			Runs: exitZeroRuns(2),
		},
		spec.Testbed{
			Name: "Later", MaxScore: 5,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(2),
		},
	)

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Len(t, res.Testbeds, 2)
	assert.InDelta(t, 8.0, res.TotalScore, 1e-9)
	assert.NotContains(t, lineTexts(res.Trace), "Evaluation halted.")
}

func TestEvaluate_BuildFailure(t *testing.T) {
	src := writeSource(t, "broken.c", "int main(){\n")
	l := &scriptedLauncher{}
	c := &stubCompiler{err: &compiler.BuildError{
		Tool:        "gcc",
		Source:      src,
		ExitCode:    1,
		Diagnostics: "broken.c:1:12: error: expected '}'\n",
	}}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 10,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})
	s.BuildScore = 2

	res, err := newTestEvaluator(c, l).Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Empty(t, l.calls)
	assert.Equal(t, StatusBuildFailed, res.Status)
	assert.False(t, res.BuildSucceeded)
	assert.Zero(t, res.TotalScore)
	assert.Empty(t, res.Testbeds)
	assert.Equal(t,
		[]State{StateStart, StateBuilding, StateBuildFailed, StateEnd},
		res.States,
	)
	assert.Equal(t, "gcc", c.tool)
	assert.Equal(t, []string{"-Wall"}, c.flags)

	texts := make([]string, 0, len(res.Trace))
	for _, e := range res.Trace {
		texts = append(texts, e.Text)
	}
	assert.Contains(t, texts, "Source file broken.c failed to build")
	assert.Contains(t, texts, "broken.c:1:12: error: expected '}'")
	assert.NotContains(t, texts, "Tests")
	assert.Equal(t, 1, countText(res.Trace, "Final score: 0"))
}

func TestEvaluate_BuildScoreAndStates(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{exit(0), exit(0)}}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 8,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})
	s.BuildScore = 2

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.True(t, res.BuildSucceeded)
	assert.InDelta(t, 10.0, res.TotalScore, 1e-9)
	assert.InDelta(t, 10.0, res.MaxScore, 1e-9)
	assert.Equal(t, []State{
		StateStart, StateBuilding, StateBuilt,
		StateRunningTestbeds, StateScoring, StateEnd,
	}, res.States)

	lines := lineTexts(res.Trace)
	assert.Contains(t, lines, "Score +2.0")
	assert.Contains(t, lines, "Test 1 of 2: ./prog")
	assert.Contains(t, lines, "Passed 2 of 2 tests")
	assert.Equal(t, "Final score: 10", lines[len(lines)-1])
	assert.Equal(t, 1, countText(res.Trace, "Final score: 10"))
}

func TestEvaluate_LaunchErrorAbortsTestbed(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	launchErr := &launcher.LaunchError{
		Exe: "/tmp/prog", Err: errors.New("exec format error"),
	}
	l := &scriptedLauncher{steps: []step{
		exit(0), {err: launchErr}, exit(0), exit(0),
	}}
	s := cSpec(
		spec.Testbed{
			Name: "First", MaxScore: 4,
			Scoring: spec.Proportional, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(4),
		},
		spec.Testbed{
			Name: "Second", MaxScore: 2,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: exitZeroRuns(2),
		},
	)

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	require.Len(t, res.Testbeds, 2)
	first := res.Testbeds[0]
	assert.Equal(t, StopLaunchFailed, first.StopReason)
	assert.Equal(t, 1, first.PassCount)
	require.Len(t, first.Runs, 2)
	assert.Equal(t, RunLaunchFailed, first.Runs[1].Outcome)
	assert.Contains(t, first.Runs[1].Error, "exec format error")

	assert.Equal(t, 2, res.Testbeds[1].PassCount)
	assert.InDelta(t, 3.0, res.TotalScore, 1e-9)
	assert.Equal(t, StatusCompleted, res.Status)
}

func TestEvaluate_TimeoutIsNonPassAndContinues(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{
		{out: &launcher.Outcome{ExitCode: -1, TimedOut: true}},
		exit(0),
	}}
	runs := exitZeroRuns(2)
	runs[0].Timeout = 250 * time.Millisecond
	s := cSpec(spec.Testbed{
		Name: "Slow", MaxScore: 2,
		Scoring: spec.Proportional, OnError: spec.PolicyContinue,
		Runs: runs,
	})

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	require.Len(t, l.calls, 2)
	assert.Equal(t, 250*time.Millisecond, l.calls[0].timeout)
	assert.Equal(t, spec.DefaultTimeout, l.calls[1].timeout)

	tb := res.Testbeds[0]
	assert.Equal(t, RunTimedOut, tb.Runs[0].Outcome)
	assert.Contains(t, tb.Runs[0].Error, "did not finish within 0.25 seconds")
	assert.Equal(t, 1, tb.PassCount)
	assert.InDelta(t, 1.0, res.TotalScore, 1e-9)
}

func TestEvaluate_FirstFailingChannelWins(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{
		{out: &launcher.Outcome{
			Stdout: "  wrong\n", Stderr: "oops", ExitCode: 2,
		}},
		{out: &launcher.Outcome{Stdout: "ok\n", Stderr: "", ExitCode: 2}},
	}}
	run := spec.TestRun{
		Stdout:   assertion.MustParse(`equals("ok")`),
		Stderr:   assertion.MustParse(`maxlength(0)`),
		ExitCode: assertion.MustParse("equals(0)"),
	}
	s := cSpec(spec.Testbed{
		Name: "Channels", MaxScore: 1,
		Scoring: spec.Proportional, OnError: spec.PolicyContinue,
		Runs: []spec.TestRun{run, run},
	})

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	runs := res.Testbeds[0].Runs
	require.Len(t, runs, 2)

	require.NotNil(t, runs[0].Mismatch)
	assert.Equal(t, spec.ChannelStdout, runs[0].Mismatch.Channel)
	assert.Equal(t, "wrong", runs[0].Mismatch.Value)
	assert.Equal(t, `equals("ok")`, runs[0].Mismatch.Assertion)

	require.NotNil(t, runs[1].Mismatch)
	assert.Equal(t, spec.ChannelExitCode, runs[1].Mismatch.Channel)
	assert.Equal(t, "2", runs[1].Mismatch.Value)
	assert.Contains(t, runs[1].Mismatch.Error(), "Return code rejected")

	verbatim := make([]string, 0)
	for _, e := range res.Trace {
		if e.Kind == report.KindVerbatim {
			verbatim = append(verbatim, e.Text)
		}
	}
	assert.Equal(t, []string{"wrong", "2"}, verbatim)
	assert.Equal(t, 2, countText(res.Trace, "REJECTED!"))
}

func TestEvaluate_EmptyRejectedValue(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	l := &scriptedLauncher{steps: []step{pass(""), pass("")}}
	run := spec.TestRun{Stdout: assertion.MustParse(`contains("x")`)}
	s := cSpec(spec.Testbed{
		Name: "Empty", MaxScore: 1,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: []spec.TestRun{run, run},
	})

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Contains(t, lineTexts(res.Trace), "Output: (none).")
}

func TestEvaluate_PythonSkipsBuild(t *testing.T) {
	src := writeSource(t, "ground.py", "# @author: Grace Hopper\nprint('hi')\n")
	c := &stubCompiler{}
	l := &scriptedLauncher{steps: []step{pass("hi\n"), pass("hi")}}
	runs := []spec.TestRun{
		{
			Args:   []string{"one", "two words"},
			Stdout: assertion.MustParse(`equals("hi")`),
		},
		{Stdout: assertion.MustParse(`equals("hi")`)},
	}
	s := &spec.Specification{
		Language:   spec.LanguagePython,
		BuildScore: 5,
		Testbeds: []spec.Testbed{{
			Name: "Hello", MaxScore: 4,
			Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
			Runs: runs,
		}},
	}

	res, err := newTestEvaluator(c, l, WithInterpreter("python3.12")).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Zero(t, c.calls)
	assert.True(t, res.BuildSucceeded)
	assert.Zero(t, res.BuildScore)
	assert.InDelta(t, 4.0, res.TotalScore, 1e-9)
	assert.Equal(t, "Grace Hopper", res.Header.Author)

	require.Len(t, l.calls, 2)
	assert.Equal(t, "python3.12", l.calls[0].exe)
	assert.Equal(t, []string{src, "one", "two words"}, l.calls[0].args)
	assert.Equal(t,
		`python3.12 ground.py one "two words"`,
		res.Testbeds[0].Runs[0].Command,
	)
}

func TestEvaluate_UnsupportedLanguage(t *testing.T) {
	src := writeSource(t, "prog.rs", "fn main(){}\n")
	s := &spec.Specification{Language: spec.LanguageUnknown}

	res, err := newTestEvaluator(&stubCompiler{}, &scriptedLauncher{}).
		Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "unsupported language")
	assert.True(t, res.Visited(StateBuildFailed))
	assert.Equal(t, 1, countText(res.Trace, "Final score: 0"))
}

func TestEvaluate_NilSpecAndMissingSource(t *testing.T) {
	e := newTestEvaluator(&stubCompiler{}, &scriptedLauncher{})

	res, err := e.Evaluate(context.Background(), nil, "prog.c")
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "no specification")

	res, err = e.Evaluate(
		context.Background(), cSpec(),
		filepath.Join(t.TempDir(), "missing.c"),
	)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "failed to read source")
	assert.Equal(t, []State{StateStart, StateEnd}, res.States)
	assert.Equal(t, 1, countText(res.Trace, "Final score: 0"))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 1,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})
	l := &scriptedLauncher{}

	res, err := newTestEvaluator(&stubCompiler{exe: "/tmp/prog"}, l).
		Evaluate(ctx, s, src)
	require.NoError(t, err)

	assert.Empty(t, l.calls)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "cancelled")
	assert.Equal(t, []string{"Basic"}, res.NotRun)
}

func TestEvaluate_HeaderAndReuse(t *testing.T) {
	src := writeSource(t, "prog.c", "/*\n * Author: Ada Lovelace\n */\nint main(){}\n")
	e := newTestEvaluator(
		&stubCompiler{exe: "/tmp/prog"},
		&scriptedLauncher{steps: []step{exit(0), exit(0), exit(0), exit(1)}},
	)
	e.now = func() time.Time {
		return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 1,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})

	first, err := e.Evaluate(context.Background(), s, src)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), s, src)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.InDelta(t, 1.0, first.TotalScore, 1e-9)
	assert.Zero(t, second.TotalScore)
	assert.Equal(t, 1, countText(second.Trace, "Final score: 0"))

	assert.Equal(t, "Ada Lovelace", first.Header.Author)
	assert.Len(t, first.Header.SHA1, 40)
	lines := lineTexts(first.Trace)
	assert.Equal(t, ReportTitle, lines[0])
	assert.Contains(t, lines, "Generated on: 2024-05-06 07:08:09")
	assert.Contains(t, lines, "Source file: prog.c")
	assert.Contains(t, lines, "Source author: Ada Lovelace")
}

func TestEvaluate_SinkLifecycle(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	var opened []*report.Trace
	factory := func(*Result) (report.Sink, error) {
		tr := report.NewTrace()
		opened = append(opened, tr)
		return tr, nil
	}
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 1,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})
	e := newTestEvaluator(
		&stubCompiler{exe: "/tmp/prog"},
		&scriptedLauncher{steps: []step{exit(0), exit(0), exit(0), exit(0)}},
		WithSinkFactory(factory),
	)

	for i := 0; i < 2; i++ {
		res, err := e.Evaluate(context.Background(), s, src)
		require.NoError(t, err)
		require.Len(t, opened, i+1)
		assert.True(t, opened[i].Closed())
		texts := make([]string, 0, len(res.Trace))
		for _, e := range res.Trace {
			texts = append(texts, e.Text)
		}
		assert.Equal(t, texts, opened[i].Texts())
	}

	_, err := New(WithSinkFactory(func(*Result) (report.Sink, error) {
		return nil, errors.New("disk full")
	})).Evaluate(context.Background(), s, src)
	assert.ErrorContains(t, err, "disk full")
}

func TestEvaluate_RemovesExecutable(t *testing.T) {
	src := writeSource(t, "prog.c", "int main(){}\n")
	s := cSpec(spec.Testbed{
		Name: "Basic", MaxScore: 1,
		Scoring: spec.AllOrNothing, OnError: spec.PolicyContinue,
		Runs: exitZeroRuns(2),
	})

	for _, keep := range []bool{false, true} {
		exe := filepath.Join(t.TempDir(), "prog")
		require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))

		_, err := newTestEvaluator(
			&stubCompiler{exe: exe},
			&scriptedLauncher{steps: []step{exit(0), exit(0)}},
			WithKeepArtifacts(keep),
		).Evaluate(context.Background(), s, src)
		require.NoError(t, err)

		_, statErr := os.Stat(exe)
		if keep {
			assert.NoError(t, statErr)
		} else {
			assert.True(t, os.IsNotExist(statErr))
		}
	}
}

func TestFindAuthor(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"// author: Ada\n", "Ada"},
		{"# @Author : Grace Hopper  \ncode\n", "Grace Hopper"},
		{"/* autor: Alan */\n", "Alan */"},
		{"int main(){}\n", NoAuthor},
		{"// author: Ada", NoAuthor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FindAuthor(tt.src), tt.src)
	}
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "./prog", commandLine(compiledProgram("/tmp/x/prog"), nil))
	assert.Equal(t,
		`./prog 1 "a b" c`,
		commandLine("./prog", []string{"1", "a b", "c"}),
	)
	assert.Equal(t,
		"python3 main.py",
		commandLine(interpretedProgram("python3", "/src/main.py"), nil),
	)
	assert.Equal(t, "7.5", formatScore(7.5))
	assert.Equal(t, "10", formatScore(10))
}
