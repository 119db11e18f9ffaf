// Package evaluator grades a program against a specification.
// An evaluation builds the source, runs every testbed in order,
// checks each run's output channels and accumulates a score,
// streaming a report to a sink as it goes.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"digital.vasic.progeval/pkg/assertion"
	"digital.vasic.progeval/pkg/compiler"
	"digital.vasic.progeval/pkg/launcher"
	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/metrics"
	"digital.vasic.progeval/pkg/report"
	"digital.vasic.progeval/pkg/spec"
)

// Report texts.
const (
	ReportTitle = "Automated evaluation report"

	passText      = "Pass"
	rejectText    = "REJECTED!"
	noneText      = "(none)."
	haltText      = "Program did not pass all required tests."
	haltedText    = "Evaluation halted."
	previousText  = "Program did not pass the previous required test."
	abortedText   = "Test set aborted."
	cancelledText = "Evaluation cancelled."
)

// Evaluator runs evaluations. Its configuration is fixed at
// construction and every call to Evaluate starts from fresh
// state, so one Evaluator may grade many submissions in turn.
type Evaluator struct {
	compiler      compiler.Compiler
	launcher      launcher.Launcher
	engine        assertion.Engine
	sinkFactory   SinkFactory
	logger        logging.Logger
	metrics       metrics.EvaluationMetrics
	interpreter   string
	keepArtifacts bool
	now           func() time.Time

	active atomic.Int64
}

// New creates an Evaluator. Without options it builds with the
// system toolchain, runs programs as child processes and writes
// the report only to the result's trace.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		compiler: compiler.NewToolchain(),
		launcher: launcher.NewProcess(),
		engine:   assertion.NewEngine(),
		logger:   logging.NullLogger{},
		metrics:  metrics.NoopMetrics{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate grades source against s. Failures of the submission
// (including a failed build) are reported on the result, which
// always carries a final score. An error is returned only when
// the report sink could not be opened or written.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	s *spec.Specification,
	source string,
) (*Result, error) {
	result := &Result{
		ID:        uuid.NewString(),
		Source:    source,
		Status:    StatusCompleted,
		StartTime: e.now(),
	}
	if s != nil {
		result.Spec = s.Source
		result.Language = s.Language
		result.MaxScore = s.MaxScore()
	}

	trace := report.NewTrace()
	sink := report.NewMultiSink(trace)
	if e.sinkFactory != nil {
		out, err := e.sinkFactory(result)
		if err != nil {
			return nil, fmt.Errorf("failed to open report: %w", err)
		}
		sink.Add(out)
	}

	e.metrics.SetActiveEvaluations(int(e.active.Add(1)))
	defer func() {
		e.metrics.SetActiveEvaluations(int(e.active.Add(-1)))
	}()

	r := &run{
		e:      e,
		spec:   s,
		source: source,
		result: result,
		sink:   sink,
		log: e.logger.WithFields(
			logging.StringField("evaluation_id", result.ID),
			logging.StringField("source", filepath.Base(source)),
		),
	}
	r.execute(ctx)

	closeErr := sink.Close()
	result.Trace = trace.Events()

	e.metrics.RecordEvaluation(
		languageLabel(result.Language), string(result.Status),
		result.TotalScore, result.Duration,
	)

	if closeErr != nil {
		return result, fmt.Errorf("failed to write report: %w", closeErr)
	}
	return result, nil
}

func languageLabel(l spec.Language) string {
	return strings.ToLower(l.String())
}

// run is the state of a single evaluation.
type run struct {
	e      *Evaluator
	spec   *spec.Specification
	source string
	result *Result
	sink   report.Sink
	log    logging.Logger

	// command and prefix start a test run: the executable, or
	// the interpreter followed by the source.
	command string
	prefix  []string
	program string

	exe   string
	score float64
}

func (r *run) enter(s State) {
	r.result.States = append(r.result.States, s)
}

func (r *run) logEvent(event string, fields ...logging.Field) {
	r.log.Info(event, fields...)
}

func (r *run) fail(status Status, err error) {
	r.result.Status = status
	r.result.Error = err.Error()
	r.sink.Error(err.Error())
}

func (r *run) execute(ctx context.Context) {
	r.enter(StateStart)
	r.logEvent("evaluation_started",
		logging.StringField("language", r.result.Language.String()),
		logging.StringField("spec", r.result.Spec),
	)

	if r.spec == nil {
		r.fail(StatusError, &spec.SpecificationError{
			Message: "no specification",
		})
	} else if err := r.writeHeader(); err != nil {
		r.fail(StatusError, err)
	} else {
		r.sink.BeginSection("Build")
		if r.build(ctx) {
			r.sink.BeginSection("Tests")
			r.runTestbeds(ctx)
		}
	}

	r.finish()
}

func (r *run) writeHeader() error {
	data, err := os.ReadFile(r.source)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	h := Header{
		GeneratedOn: r.e.now(),
		SourceFile:  filepath.Base(r.source),
		SHA1:        sourceDigest(data),
		Author:      FindAuthor(string(data)),
	}
	r.result.Header = h

	r.sink.WriteLine(ReportTitle, report.ColorNone)
	for _, line := range []string{
		"Generated on: " + h.GeneratedOn.Format("2006-01-02 15:04:05"),
		"Source file: " + h.SourceFile,
		"Source sha1: " + h.SHA1,
		"Source author: " + h.Author,
		"Maximum score: " + formatScore(r.result.MaxScore),
	} {
		r.sink.WriteLine(line, report.ColorNone)
	}
	return nil
}

// build runs the Building state and reports whether tests may
// run.
func (r *run) build(ctx context.Context) bool {
	r.enter(StateBuilding)

	lang := r.spec.Language
	label := languageLabel(lang)
	src := filepath.Base(r.source)

	if !lang.Compiled() {
		interpreter := lang.Interpreter()
		if interpreter != "" && r.e.interpreter != "" {
			interpreter = r.e.interpreter
		}
		if interpreter == "" {
			r.sink.Error("Unsupported language. Program failed to build.")
			r.result.Status = StatusError
			r.result.Error = (&spec.UnsupportedLanguageError{
				Language: lang.String(),
			}).Error()
			r.enter(StateBuildFailed)
			r.logEvent("build_failed",
				logging.StringField("error", r.result.Error),
			)
			return false
		}

		r.command = interpreter
		r.prefix = []string{r.source}
		r.program = interpretedProgram(interpreter, r.source)
		r.result.BuildSucceeded = true
		r.sink.Info(fmt.Sprintf("%s runs under %s", src, interpreter))
		r.e.metrics.RecordBuild(label, metrics.BuildNotNeeded, 0)
		r.enter(StateBuilt)
		return true
	}

	tool := r.spec.BuildTool
	if tool == "" {
		tool = lang.BuildTool()
	}

	r.sink.Info("Building " + src)
	start := time.Now()
	exe, err := r.e.compiler.Build(ctx, tool, r.source, r.spec.BuildFlags)
	elapsed := time.Since(start)
	if err != nil {
		r.sink.Warn(fmt.Sprintf("Source file %s failed to build", src))
		var buildErr *compiler.BuildError
		if errors.As(err, &buildErr) {
			if d := strings.TrimSpace(buildErr.Diagnostics); d != "" {
				r.sink.WriteVerbatim(d)
			}
		}
		r.result.Status = StatusBuildFailed
		r.result.Error = err.Error()
		r.e.metrics.RecordBuild(label, metrics.BuildFailed, elapsed)
		r.enter(StateBuildFailed)
		r.logEvent("build_failed",
			logging.StringField("tool", tool),
			logging.ErrorField(err),
			logging.DurationField("duration_seconds", elapsed),
		)
		return false
	}

	r.exe = exe
	r.command = exe
	r.program = compiledProgram(exe)
	r.score += r.spec.BuildScore
	r.result.BuildScore = r.spec.BuildScore
	r.result.BuildSucceeded = true

	r.sink.Info("Built " + filepath.Base(exe))
	if r.spec.BuildScore > 0 {
		r.sink.WriteLine(
			fmt.Sprintf("Score %+.1f", r.spec.BuildScore),
			report.ColorNone,
		)
	}
	r.e.metrics.RecordBuild(label, metrics.BuildSucceeded, elapsed)
	r.enter(StateBuilt)
	r.logEvent("build_succeeded",
		logging.StringField("executable", exe),
		logging.DurationField("duration_seconds", elapsed),
	)
	return true
}

func (r *run) runTestbeds(ctx context.Context) {
	r.enter(StateRunningTestbeds)

	for i := range r.spec.Testbeds {
		tb := &r.spec.Testbeds[i]

		if err := ctx.Err(); err != nil {
			r.result.Status = StatusError
			r.result.Error = "evaluation cancelled: " + err.Error()
			r.sink.Error(cancelledText)
			r.skipFrom(i)
			return
		}

		res := r.runTestbed(ctx, tb)

		r.sink.WriteLine(
			fmt.Sprintf("Passed %d of %d tests", res.PassCount, res.TotalCount),
			report.ColorNone,
		)
		res.AwardedScore = tb.AwardedScore(res.PassCount)
		r.score += res.AwardedScore
		r.sink.WriteLine(
			fmt.Sprintf(
				"Score %+.1f of %s",
				res.AwardedScore, formatScore(tb.MaxScore),
			),
			report.ColorNone,
		)

		if res.PassCount < res.TotalCount {
			if tb.OnError == spec.PolicyHalt {
				r.sink.WriteLine(haltText, report.ColorHalt)
				r.sink.WriteLine(haltedText, report.ColorHalt)
			}
			res.StoppedEvaluation = tb.OnError.StopsEvaluation()
		}

		r.result.Testbeds = append(r.result.Testbeds, res)
		r.e.metrics.RecordTestbed(res.AwardedScore, res.MaxScore)
		r.logEvent("testbed_completed",
			logging.StringField("testbed", res.Name),
			logging.IntField("passed", res.PassCount),
			logging.IntField("total", res.TotalCount),
			logging.Float64Field("score", res.AwardedScore),
			logging.StringField("stop_reason", string(res.StopReason)),
		)

		if res.StoppedEvaluation {
			r.logEvent("evaluation_stopped",
				logging.StringField("testbed", res.Name),
				logging.StringField("policy", string(tb.OnError)),
			)
			r.skipFrom(i + 1)
			return
		}
	}
}

// skipFrom records the testbeds from index i on as not run.
func (r *run) skipFrom(i int) {
	for _, tb := range r.spec.Testbeds[i:] {
		r.result.NotRun = append(r.result.NotRun, tb.Name)
		for range tb.Runs {
			r.e.metrics.RecordRun(metrics.OutcomeNotRun, 0)
		}
	}
}

func (r *run) runTestbed(ctx context.Context, tb *spec.Testbed) TestbedResult {
	res := TestbedResult{
		Name:       tb.Name,
		Scoring:    tb.Scoring,
		OnError:    tb.OnError,
		TotalCount: len(tb.Runs),
		MaxScore:   tb.MaxScore,
	}
	r.sink.BeginSubsection("Running " + tb.Name)

	for i := range tb.Runs {
		if res.PassCount < i && tb.OnError.StopsTestbed() {
			r.sink.WriteLine(previousText, report.ColorHalt)
			r.sink.WriteLine(abortedText, report.ColorHalt)
			res.StopReason = StopPreviousFailed
			for range tb.Runs[i:] {
				r.e.metrics.RecordRun(metrics.OutcomeNotRun, 0)
			}
			break
		}

		rr, launched := r.runOne(ctx, &tb.Runs[i], i+1, len(tb.Runs))
		res.Runs = append(res.Runs, rr)
		if !launched {
			res.StopReason = StopLaunchFailed
			break
		}
		if rr.Passed() {
			res.PassCount++
		}
	}
	return res
}

// runOne attempts a single test run. The boolean is false when
// the process could not be launched at all.
func (r *run) runOne(
	ctx context.Context,
	tr *spec.TestRun,
	index, total int,
) (RunResult, bool) {
	rr := RunResult{
		Index:   index,
		Command: commandLine(r.program, tr.Args),
	}
	r.sink.WriteLine(
		fmt.Sprintf("Test %d of %d: %s", index, total, rr.Command),
		report.ColorNone,
	)

	timeout := tr.Timeout
	if timeout <= 0 {
		timeout = spec.DefaultTimeout
	}

	args := make([]string, 0, len(r.prefix)+len(tr.Args))
	args = append(args, r.prefix...)
	args = append(args, tr.Args...)

	out, err := r.e.launcher.Run(ctx, r.command, args, timeout)
	if err == nil && out == nil {
		err = &launcher.LaunchError{
			Exe: r.command,
			Err: errors.New("no outcome"),
		}
	}
	if err != nil {
		rr.Outcome = RunLaunchFailed
		rr.ExitCode = -1
		rr.Error = err.Error()
		r.sink.Error(err.Error())
		r.sink.WriteLine(abortedText, report.ColorHalt)
		r.e.metrics.RecordRun(metrics.OutcomeError, 0)
		r.log.Error("run_launch_failed",
			logging.IntField("run", index),
			logging.ErrorField(err),
		)
		return rr, false
	}

	rr.Duration = out.Duration
	rr.ExitCode = out.ExitCode

	if out.TimedOut {
		timeoutErr := &launcher.TimeoutError{
			Exe:     filepath.Base(r.command),
			Timeout: timeout,
		}
		rr.Outcome = RunTimedOut
		rr.Error = timeoutErr.Error()
		r.sink.Warn("Timeout! " + timeoutErr.Error())
		r.sink.WriteLine(rejectText, report.ColorReject)
		r.e.metrics.RecordRun(metrics.OutcomeTimeout, out.Duration)
		r.log.Debug("run_timed_out",
			logging.IntField("run", index),
			logging.DurationField("timeout_seconds", timeout),
		)
		return rr, true
	}

	checks := tr.Checks(
		strings.TrimSpace(out.Stdout),
		strings.TrimSpace(out.Stderr),
		out.ExitCode,
	)
	if failed, rejected := assertion.FirstFailure(r.e.engine, checks); rejected {
		rr.Outcome = RunRejected
		rr.Mismatch = mismatchFor(failed, checks)
		r.writeReject(rr.Mismatch.Channel, rr.Mismatch.Value)
		r.e.metrics.RecordRun(metrics.OutcomeReject, out.Duration)
		return rr, true
	}

	rr.Outcome = RunPassed
	r.sink.WriteLine(passText, report.ColorPass)
	r.e.metrics.RecordRun(metrics.OutcomePass, out.Duration)
	return rr, true
}

func mismatchFor(failed assertion.Result, checks []assertion.Check) *AssertionMismatch {
	m := &AssertionMismatch{
		Channel: failed.Target,
		Value:   failed.Actual,
		Message: failed.Message,
	}
	for _, c := range checks {
		if c.Target == failed.Target {
			m.Value = c.Value
			if c.Assertion != nil {
				m.Assertion = c.Assertion.String()
			}
			break
		}
	}
	return m
}

func (r *run) writeReject(channel, value string) {
	if value == "" {
		r.sink.WriteLine(channel+": "+noneText, report.ColorNone)
	} else {
		r.sink.WriteLine(channel, report.ColorNone)
		r.sink.WriteVerbatim(value)
	}
	r.sink.WriteLine(rejectText, report.ColorReject)
}

// finish runs Scoring and End. The final score line is written
// here and nowhere else.
func (r *run) finish() {
	if r.result.Visited(StateRunningTestbeds) {
		r.enter(StateScoring)
	}

	r.result.TotalScore = r.score
	r.sink.BeginSection("Score")
	r.sink.WriteLine("Final score: "+formatScore(r.score), report.ColorNone)

	r.cleanup()

	r.enter(StateEnd)
	r.result.EndTime = r.e.now()
	r.result.Duration = r.result.EndTime.Sub(r.result.StartTime)

	r.logEvent("evaluation_completed",
		logging.StringField("status", string(r.result.Status)),
		logging.Float64Field("score", r.result.TotalScore),
		logging.Float64Field("max_score", r.result.MaxScore),
		logging.DurationField("duration_seconds", r.result.Duration),
	)
}

func (r *run) cleanup() {
	if r.exe == "" || r.e.keepArtifacts || r.exe == r.source {
		return
	}
	if err := os.Remove(r.exe); err != nil && !os.IsNotExist(err) {
		r.log.Warn("cleanup_warning",
			logging.StringField("executable", r.exe),
			logging.ErrorField(err),
		)
	}
}
