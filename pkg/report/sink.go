// Package report provides sinks for the stream of report events an
// evaluation produces: sections, plain and colored lines, verbatim
// program output, and notices. Sinks render the stream to Markdown,
// HTML or a terminal, record it in memory, or fan it out.
package report

import (
	"fmt"
	"io"
	"time"
)

// Color tags a line with its meaning. Renderers map tags to their
// own palette.
type Color string

const (
	ColorNone   Color = ""
	ColorPass   Color = "OliveGreen"
	ColorReject Color = "YellowOrange"
	ColorHalt   Color = "Maroon"
)

// Sink receives report events in order. A Sink is opened by its
// constructor and must be closed once the evaluation ends. Write
// failures are sticky and returned by Close.
type Sink interface {
	BeginSection(title string)
	BeginSubsection(title string)
	WriteLine(text string, color Color)
	WriteVerbatim(text string)
	Info(text string)
	Warn(text string)
	Error(text string)
	Close() error
}

// EventKind identifies a report event.
type EventKind string

const (
	KindSection    EventKind = "section"
	KindSubsection EventKind = "subsection"
	KindLine       EventKind = "line"
	KindVerbatim   EventKind = "verbatim"
	KindInfo       EventKind = "info"
	KindWarn       EventKind = "warn"
	KindError      EventKind = "error"
)

// Event is one recorded report event.
type Event struct {
	Kind      EventKind `json:"kind"`
	Text      string    `json:"text"`
	Color     Color     `json:"color,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Emit sends the event to a sink.
func (e Event) Emit(s Sink) {
	switch e.Kind {
	case KindSection:
		s.BeginSection(e.Text)
	case KindSubsection:
		s.BeginSubsection(e.Text)
	case KindLine:
		s.WriteLine(e.Text, e.Color)
	case KindVerbatim:
		s.WriteVerbatim(e.Text)
	case KindInfo:
		s.Info(e.Text)
	case KindWarn:
		s.Warn(e.Text)
	case KindError:
		s.Error(e.Text)
	}
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) BeginSection(string)     {}
func (discard) BeginSubsection(string)  {}
func (discard) WriteLine(string, Color) {}
func (discard) WriteVerbatim(string)    {}
func (discard) Info(string)             {}
func (discard) Warn(string)             {}
func (discard) Error(string)            {}
func (discard) Close() error            { return nil }

// errWriter remembers the first write error so renderers can emit
// freely and report once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	ew.printf("%s\n", s)
}

// closeWriter closes w when it is an io.Closer.
func closeWriter(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
