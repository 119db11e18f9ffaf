// Package metrics records evaluation metrics.
package metrics

import "time"

// Run outcomes recorded by RecordRun.
const (
	OutcomePass    = "pass"
	OutcomeReject  = "reject"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomeNotRun  = "not_run"
)

// Build outcomes recorded by RecordBuild.
const (
	BuildSucceeded = "succeeded"
	BuildFailed    = "failed"
	BuildNotNeeded = "skipped"
)

// EvaluationMetrics defines the interface for recording
// evaluation metrics.
type EvaluationMetrics interface {
	// RecordEvaluation records a finished evaluation.
	RecordEvaluation(language, status string, score float64, duration time.Duration)
	// RecordBuild records a build attempt.
	RecordBuild(language, outcome string, duration time.Duration)
	// RecordRun records a single test run.
	RecordRun(outcome string, duration time.Duration)
	// RecordTestbed records the score awarded for a testbed.
	RecordTestbed(awarded, max float64)
	// SetActiveEvaluations sets the gauge of running evaluations.
	SetActiveEvaluations(count int)
}

// NoopMetrics is a no-op implementation of EvaluationMetrics
// useful for testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordEvaluation(_, _ string, _ float64, _ time.Duration) {}
func (NoopMetrics) RecordBuild(_, _ string, _ time.Duration)                 {}
func (NoopMetrics) RecordRun(_ string, _ time.Duration)                      {}
func (NoopMetrics) RecordTestbed(_, _ float64)                               {}
func (NoopMetrics) SetActiveEvaluations(_ int)                               {}
