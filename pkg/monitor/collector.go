package monitor

import (
	"path/filepath"
	"sync"
	"time"

	"digital.vasic.progeval/pkg/evaluator"
	"digital.vasic.progeval/pkg/report"
)

// EventCollector captures evaluation events and timing data.
type EventCollector struct {
	mu       sync.RWMutex
	events   []EvaluationEvent
	handlers []func(EvaluationEvent)
	stats    CollectorStats
	now      func() time.Time
}

// CollectorStats holds aggregate statistics over finished
// evaluations.
type CollectorStats struct {
	Started     int           `json:"started"`
	Finished    int           `json:"finished"`
	Completed   int           `json:"completed"`
	BuildFailed int           `json:"build_failed"`
	Errors      int           `json:"errors"`
	Lines       int           `json:"lines"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	c := &EventCollector{
		events: make([]EvaluationEvent, 0, 64),
		now:    time.Now,
	}
	c.stats.StartTime = c.now()
	return c
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(EvaluationEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event EvaluationEvent) {
	c.mu.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	c.events = append(c.events, event)
	switch event.Type {
	case EventStarted:
		c.stats.Started++
	case EventReport:
		c.stats.Lines++
	case EventFinished:
		c.stats.Finished++
		switch evaluator.Status(event.Status) {
		case evaluator.StatusCompleted:
			c.stats.Completed++
		case evaluator.StatusBuildFailed:
			c.stats.BuildFailed++
		default:
			c.stats.Errors++
		}
	}
	c.stats.Duration = c.now().Sub(c.stats.StartTime)
	handlers := make([]func(EvaluationEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// EmitStarted emits an evaluation started event.
func (c *EventCollector) EmitStarted(id, source string, maxScore float64) {
	c.Emit(EvaluationEvent{
		Type:         EventStarted,
		EvaluationID: id,
		Source:       filepath.Base(source),
		Status:       "running",
		MaxScore:     maxScore,
	})
}

// EmitFinished emits the final event of an evaluation.
func (c *EventCollector) EmitFinished(r *evaluator.Result) {
	c.Emit(EvaluationEvent{
		Type:         EventFinished,
		EvaluationID: r.ID,
		Source:       filepath.Base(r.Source),
		Status:       string(r.Status),
		Score:        r.TotalScore,
		MaxScore:     r.MaxScore,
		Message:      r.Error,
		Duration:     r.Duration,
	})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []EvaluationEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]EvaluationEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = c.now().Sub(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: c.now()}
}

// SinkFactory returns an evaluator.SinkFactory whose sinks feed
// this collector. next, when set, opens the sink the report is
// also written to.
func (c *EventCollector) SinkFactory(next evaluator.SinkFactory) evaluator.SinkFactory {
	return func(r *evaluator.Result) (report.Sink, error) {
		var out report.Sink
		if next != nil {
			s, err := next(r)
			if err != nil {
				return nil, err
			}
			out = s
		}
		c.EmitStarted(r.ID, r.Source, r.MaxScore)
		return report.NewMultiSink(out, &Sink{collector: c, id: r.ID}), nil
	}
}
