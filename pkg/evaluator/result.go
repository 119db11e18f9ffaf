package evaluator

import (
	"fmt"
	"time"

	"digital.vasic.progeval/pkg/report"
	"digital.vasic.progeval/pkg/spec"
)

// State is a step of the evaluation state machine.
type State string

const (
	StateStart           State = "start"
	StateBuilding        State = "building"
	StateBuildFailed     State = "build_failed"
	StateBuilt           State = "built"
	StateRunningTestbeds State = "running_testbeds"
	StateScoring         State = "scoring"
	StateEnd             State = "end"
)

// Status is the overall outcome of an evaluation.
type Status string

const (
	// StatusCompleted means every reachable testbed was run and
	// scored. It says nothing about how many runs passed.
	StatusCompleted Status = "completed"
	// StatusBuildFailed means the source did not build and no
	// test was run.
	StatusBuildFailed Status = "build_failed"
	// StatusError means the evaluation could not proceed, e.g.
	// an unreadable source or an unsupported language.
	StatusError Status = "error"
)

// RunOutcome classifies a single test run.
type RunOutcome string

const (
	RunPassed       RunOutcome = "passed"
	RunRejected     RunOutcome = "rejected"
	RunTimedOut     RunOutcome = "timed_out"
	RunLaunchFailed RunOutcome = "launch_failed"
)

// StopReason explains why a testbed ended before its last run.
type StopReason string

const (
	StopNone StopReason = ""
	// StopPreviousFailed is a skip or abort testbed giving up
	// after a failing run.
	StopPreviousFailed StopReason = "previous_run_failed"
	// StopLaunchFailed is a run whose process could not start.
	StopLaunchFailed StopReason = "launch_failed"
)

// Header identifies the evaluated source.
type Header struct {
	GeneratedOn time.Time `json:"generated_on"`
	SourceFile  string    `json:"source_file"`
	SHA1        string    `json:"sha1"`
	Author      string    `json:"author"`
}

// AssertionMismatch is the first failing check of a rejected
// run.
type AssertionMismatch struct {
	// Channel is the rejected output channel, e.g. "Output".
	Channel string `json:"channel"`

	// Assertion is the canonical text of the failing check.
	Assertion string `json:"assertion"`

	// Value is the captured value, trimmed.
	Value string `json:"value"`

	Message string `json:"message"`
}

func (m *AssertionMismatch) Error() string {
	return fmt.Sprintf(
		"%s rejected by %s: %s", m.Channel, m.Assertion, m.Message,
	)
}

// RunResult records one attempted test run.
type RunResult struct {
	// Index is 1-based within the testbed.
	Index    int                `json:"index"`
	Command  string             `json:"command"`
	Outcome  RunOutcome         `json:"outcome"`
	ExitCode int                `json:"exit_code"`
	Duration time.Duration      `json:"duration"`
	Mismatch *AssertionMismatch `json:"mismatch,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Passed reports whether the run passed.
func (r *RunResult) Passed() bool {
	return r.Outcome == RunPassed
}

// TestbedResult records one evaluated testbed.
type TestbedResult struct {
	Name         string           `json:"name"`
	Scoring      spec.ScoringMode `json:"scoring"`
	OnError      spec.ErrorPolicy `json:"on_error"`
	PassCount    int              `json:"pass_count"`
	TotalCount   int              `json:"total_count"`
	AwardedScore float64          `json:"awarded_score"`
	MaxScore     float64          `json:"max_score"`
	StopReason   StopReason       `json:"stop_reason,omitempty"`

	// StoppedEvaluation is set when this testbed's policy ended
	// the evaluation.
	StoppedEvaluation bool `json:"stopped_evaluation,omitempty"`

	Runs []RunResult `json:"runs"`
}

// Result is the outcome of one evaluation.
type Result struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Spec     string        `json:"spec,omitempty"`
	Language spec.Language `json:"language"`
	Header   Header        `json:"header"`

	Status Status  `json:"status"`
	Error  string  `json:"error,omitempty"`
	States []State `json:"states"`

	BuildSucceeded bool    `json:"build_succeeded"`
	BuildScore     float64 `json:"build_score"`

	Testbeds []TestbedResult `json:"testbeds"`

	// NotRun names the testbeds skipped because an earlier
	// testbed stopped the evaluation.
	NotRun []string `json:"not_run,omitempty"`

	TotalScore float64 `json:"total_score"`
	MaxScore   float64 `json:"max_score"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Trace []report.Event `json:"trace,omitempty"`
}

// PassCount is the number of passing runs across testbeds.
func (r *Result) PassCount() int {
	n := 0
	for i := range r.Testbeds {
		n += r.Testbeds[i].PassCount
	}
	return n
}

// Visited reports whether the evaluation went through state s.
func (r *Result) Visited(s State) bool {
	for _, v := range r.States {
		if v == s {
			return true
		}
	}
	return false
}
