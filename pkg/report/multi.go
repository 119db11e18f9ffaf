package report

import "errors"

// MultiSink forwards every event to each of its sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that fans out to sinks. Nil entries
// are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends a sink.
func (m *MultiSink) Add(s Sink) {
	if s != nil {
		m.sinks = append(m.sinks, s)
	}
}

func (m *MultiSink) each(fn func(Sink)) {
	for _, s := range m.sinks {
		fn(s)
	}
}

func (m *MultiSink) BeginSection(title string) {
	m.each(func(s Sink) { s.BeginSection(title) })
}

func (m *MultiSink) BeginSubsection(title string) {
	m.each(func(s Sink) { s.BeginSubsection(title) })
}

func (m *MultiSink) WriteLine(text string, color Color) {
	m.each(func(s Sink) { s.WriteLine(text, color) })
}

func (m *MultiSink) WriteVerbatim(text string) {
	m.each(func(s Sink) { s.WriteVerbatim(text) })
}

func (m *MultiSink) Info(text string) {
	m.each(func(s Sink) { s.Info(text) })
}

func (m *MultiSink) Warn(text string) {
	m.each(func(s Sink) { s.Warn(text) })
}

func (m *MultiSink) Error(text string) {
	m.each(func(s Sink) { s.Error(text) })
}

// Close closes every sink and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
