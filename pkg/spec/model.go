// Package spec holds the in-memory model of a test specification:
// the language of the submission, how to build it, and the ordered
// testbeds of test runs it is graded against. A Specification is
// read-only once built and may be shared by sequential evaluations.
package spec

import (
	"fmt"
	"strconv"
	"time"

	"digital.vasic.progeval/pkg/assertion"
)

// DefaultTimeout is the wall-clock budget of a test run that does
// not declare one.
const DefaultTimeout = 5 * time.Second

// MinRunsPerTestbed is the smallest number of test runs a testbed
// must declare to be kept.
const MinRunsPerTestbed = 2

// ScoringMode decides how a testbed's score is awarded.
type ScoringMode string

const (
	// AllOrNothing awards the full score only when every run
	// passes.
	AllOrNothing ScoringMode = "all-or-nothing"
	// Proportional scales the score by the fraction of passing
	// runs.
	Proportional ScoringMode = "proportional"
)

// ErrorPolicy decides what happens after a failing test run.
type ErrorPolicy string

const (
	// PolicyContinue keeps running the testbed and the ones after
	// it.
	PolicyContinue ErrorPolicy = "continue"
	// PolicySkip stops the current testbed but moves on to the
	// next one.
	PolicySkip ErrorPolicy = "skip"
	// PolicyAbort stops the current testbed and every testbed
	// after it.
	PolicyAbort ErrorPolicy = "abort"
	// PolicyHalt runs the whole testbed, then stops the
	// evaluation with a notice if any run failed.
	PolicyHalt ErrorPolicy = "halt"
)

// StopsTestbed reports whether a failing run ends the current
// testbed early.
func (p ErrorPolicy) StopsTestbed() bool {
	return p == PolicySkip || p == PolicyAbort
}

// StopsEvaluation reports whether a testbed with failures ends
// the evaluation.
func (p ErrorPolicy) StopsEvaluation() bool {
	return p == PolicyAbort || p == PolicyHalt
}

// Channel names used when reporting a rejected run.
const (
	ChannelStdout   = "Output"
	ChannelStderr   = "Output (stderr)"
	ChannelExitCode = "Return code"
)

// TestRun is one invocation of the program under evaluation.
type TestRun struct {
	// Args are passed to the program in order.
	Args []string

	// Timeout bounds the wall-clock duration of the run.
	Timeout time.Duration

	// Stdout, Stderr and ExitCode are optional checks. A nil
	// check always passes.
	Stdout   *assertion.Assertion
	Stderr   *assertion.Assertion
	ExitCode *assertion.Assertion
}

// Checks returns the run's checks against captured output in
// evaluation order: stdout, stderr, exit code.
func (r *TestRun) Checks(
	stdout, stderr string,
	exitCode int,
) []assertion.Check {
	return []assertion.Check{
		{Target: ChannelStdout, Assertion: r.Stdout, Value: stdout},
		{Target: ChannelStderr, Assertion: r.Stderr, Value: stderr},
		{
			Target:    ChannelExitCode,
			Assertion: r.ExitCode,
			Value:     strconv.Itoa(exitCode),
		},
	}
}

// Testbed is a named, ordered group of test runs that share a
// scoring mode and an error policy.
type Testbed struct {
	Name     string
	MaxScore float64
	Scoring  ScoringMode
	OnError  ErrorPolicy
	Runs     []TestRun
}

// AwardedScore computes the score earned when passed of the
// testbed's runs succeeded.
func (tb *Testbed) AwardedScore(passed int) float64 {
	total := len(tb.Runs)
	if total == 0 {
		return 0
	}
	if tb.Scoring == Proportional {
		return tb.MaxScore * float64(passed) / float64(total)
	}
	if passed == total {
		return tb.MaxScore
	}
	return 0
}

// Specification is the root of a test specification.
type Specification struct {
	Language Language

	// BuildTool is empty for interpreted languages.
	BuildTool  string
	BuildFlags []string
	BuildScore float64

	Testbeds []Testbed

	// Dropped names the declared testbeds that had too few runs
	// to be kept.
	Dropped []string

	// Source is the file the specification was loaded from, if
	// any.
	Source string
}

// MaxScore is the highest score a submission can reach.
func (s *Specification) MaxScore() float64 {
	total := 0.0
	if s.Language.Compiled() {
		total += s.BuildScore
	}
	for i := range s.Testbeds {
		total += s.Testbeds[i].MaxScore
	}
	return total
}

// RunCount is the number of test runs across all testbeds.
func (s *Specification) RunCount() int {
	n := 0
	for i := range s.Testbeds {
		n += len(s.Testbeds[i].Runs)
	}
	return n
}

// SpecificationError reports a malformed specification.
type SpecificationError struct {
	// Path locates the offending element, e.g.
	// "testbeds[1].testruns[0].cout".
	Path string

	// Message describes the problem.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *SpecificationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Path == "" {
		return "invalid specification: " + msg
	}
	return fmt.Sprintf("invalid specification: %s: %s", e.Path, msg)
}

func (e *SpecificationError) Unwrap() error {
	return e.Err
}
