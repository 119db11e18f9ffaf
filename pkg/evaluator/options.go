package evaluator

import (
	"digital.vasic.progeval/pkg/assertion"
	"digital.vasic.progeval/pkg/compiler"
	"digital.vasic.progeval/pkg/launcher"
	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/metrics"
	"digital.vasic.progeval/pkg/report"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// SinkFactory opens the report sink of one evaluation. The
// evaluator closes the sink when the evaluation ends.
type SinkFactory func(result *Result) (report.Sink, error)

// WithCompiler sets the collaborator that builds compiled
// sources.
func WithCompiler(c compiler.Compiler) Option {
	return func(e *Evaluator) {
		e.compiler = c
	}
}

// WithLauncher sets the collaborator that runs programs.
func WithLauncher(l launcher.Launcher) Option {
	return func(e *Evaluator) {
		e.launcher = l
	}
}

// WithEngine sets the engine that evaluates run assertions.
func WithEngine(engine assertion.Engine) Option {
	return func(e *Evaluator) {
		e.engine = engine
	}
}

// WithSinkFactory sets how the report sink of each evaluation
// is opened.
func WithSinkFactory(f SinkFactory) Option {
	return func(e *Evaluator) {
		e.sinkFactory = f
	}
}

// WithSink streams every evaluation to s. The sink is closed at
// the end of the first evaluation, so use WithSinkFactory when
// the Evaluator is reused.
func WithSink(s report.Sink) Option {
	return WithSinkFactory(func(*Result) (report.Sink, error) {
		return s, nil
	})
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l logging.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.EvaluationMetrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// WithInterpreter overrides the interpreter of interpreted
// languages, e.g. "python3.12".
func WithInterpreter(path string) Option {
	return func(e *Evaluator) {
		e.interpreter = path
	}
}

// WithKeepArtifacts leaves built executables on disk.
func WithKeepArtifacts(keep bool) Option {
	return func(e *Evaluator) {
		e.keepArtifacts = keep
	}
}
