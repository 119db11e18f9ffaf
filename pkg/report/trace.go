package report

import (
	"sync"
	"time"
)

// Trace records events in memory. It is safe for concurrent use so
// that observers may read it while an evaluation is running.
type Trace struct {
	mu     sync.RWMutex
	events []Event
	closed bool
	now    func() time.Time
}

// NewTrace creates an empty Trace.
func NewTrace() *Trace {
	return &Trace{now: time.Now}
}

func (t *Trace) add(kind EventKind, text string, color Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, Event{
		Kind:      kind,
		Text:      text,
		Color:     color,
		Timestamp: t.now(),
	})
}

func (t *Trace) BeginSection(title string)    { t.add(KindSection, title, ColorNone) }
func (t *Trace) BeginSubsection(title string) { t.add(KindSubsection, title, ColorNone) }
func (t *Trace) WriteVerbatim(text string)    { t.add(KindVerbatim, text, ColorNone) }
func (t *Trace) Info(text string)             { t.add(KindInfo, text, ColorNone) }
func (t *Trace) Warn(text string)             { t.add(KindWarn, text, ColorNone) }
func (t *Trace) Error(text string)            { t.add(KindError, text, ColorNone) }

func (t *Trace) WriteLine(text string, color Color) {
	t.add(KindLine, text, color)
}

// Close marks the trace complete.
func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether Close was called.
func (t *Trace) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Texts returns the text of every recorded event of the given
// kinds, or of all events when no kind is given.
func (t *Trace) Texts(kinds ...EventKind) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, e := range t.events {
		if len(kinds) == 0 || containsKind(kinds, e.Kind) {
			out = append(out, e.Text)
		}
	}
	return out
}

// Replay sends every recorded event to s, in order. It does not
// close s.
func (t *Trace) Replay(s Sink) {
	for _, e := range t.Events() {
		e.Emit(s)
	}
}

func containsKind(kinds []EventKind, k EventKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
