package monitor

import (
	"digital.vasic.progeval/pkg/report"
)

// Sink is a report.Sink that forwards every event of one
// evaluation to an EventCollector.
type Sink struct {
	collector *EventCollector
	id        string
}

// NewSink creates a sink for the evaluation id.
func NewSink(c *EventCollector, id string) *Sink {
	return &Sink{collector: c, id: id}
}

func (s *Sink) emit(kind report.EventKind, text string, color report.Color) {
	ev := report.Event{
		Kind:      kind,
		Text:      text,
		Color:     color,
		Timestamp: s.collector.now(),
	}
	s.collector.Emit(EvaluationEvent{
		Type:         EventReport,
		EvaluationID: s.id,
		Report:       &ev,
		Timestamp:    ev.Timestamp,
	})
}

func (s *Sink) BeginSection(title string)    { s.emit(report.KindSection, title, report.ColorNone) }
func (s *Sink) BeginSubsection(title string) { s.emit(report.KindSubsection, title, report.ColorNone) }
func (s *Sink) WriteVerbatim(text string)    { s.emit(report.KindVerbatim, text, report.ColorNone) }
func (s *Sink) Info(text string)             { s.emit(report.KindInfo, text, report.ColorNone) }
func (s *Sink) Warn(text string)             { s.emit(report.KindWarn, text, report.ColorNone) }
func (s *Sink) Error(text string)            { s.emit(report.KindError, text, report.ColorNone) }

func (s *Sink) WriteLine(text string, color report.Color) {
	s.emit(report.KindLine, text, color)
}

// Close is a no-op; the evaluation's end is signalled by
// EventCollector.EmitFinished.
func (s *Sink) Close() error { return nil }
