package report

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console palette.
var (
	colorOlive  = lipgloss.Color("#6B8E23")
	colorOrange = lipgloss.Color("#F39C12")
	colorMaroon = lipgloss.Color("#B03A2E")
	colorTitle  = lipgloss.Color("#2980B9")
	colorMuted  = lipgloss.Color("#7F8C8D")
	colorError  = lipgloss.Color("#E74C3C")
)

type consoleStyles struct {
	section    lipgloss.Style
	subsection lipgloss.Style
	pass       lipgloss.Style
	reject     lipgloss.Style
	halt       lipgloss.Style
	verbatim   lipgloss.Style
	info       lipgloss.Style
	warn       lipgloss.Style
	err        lipgloss.Style
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		section: r.NewStyle().Bold(true).Underline(true).
			Foreground(colorTitle),
		subsection: r.NewStyle().Bold(true),
		pass:       r.NewStyle().Foreground(colorOlive),
		reject:     r.NewStyle().Foreground(colorOrange).Bold(true),
		halt:       r.NewStyle().Foreground(colorMaroon).Bold(true),
		verbatim:   r.NewStyle().Foreground(colorMuted).PaddingLeft(4),
		info:       r.NewStyle().Foreground(colorMuted),
		warn:       r.NewStyle().Foreground(colorOrange),
		err:        r.NewStyle().Foreground(colorError).Bold(true),
	}
}

// ConsoleSink renders events for a terminal. Colors are used only
// when w is a terminal that supports them.
type ConsoleSink struct {
	out    *errWriter
	styles consoleStyles
}

// NewConsoleSink creates a ConsoleSink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{
		out:    &errWriter{w: w},
		styles: newConsoleStyles(lipgloss.NewRenderer(w)),
	}
}

func (s *ConsoleSink) BeginSection(title string) {
	s.out.printf("\n%s\n", s.styles.section.Render(title))
}

func (s *ConsoleSink) BeginSubsection(title string) {
	s.out.printf("\n%s\n", s.styles.subsection.Render(title))
}

func (s *ConsoleSink) WriteLine(text string, color Color) {
	switch color {
	case ColorPass:
		text = s.styles.pass.Render(text)
	case ColorReject:
		text = s.styles.reject.Render(text)
	case ColorHalt:
		text = s.styles.halt.Render(text)
	}
	s.out.println(text)
}

func (s *ConsoleSink) WriteVerbatim(text string) {
	for _, line := range strings.Split(text, "\n") {
		s.out.println(s.styles.verbatim.Render(line))
	}
}

func (s *ConsoleSink) Info(text string) {
	s.out.println(s.styles.info.Render(text))
}

func (s *ConsoleSink) Warn(text string) {
	s.out.println(s.styles.warn.Render("warning: " + text))
}

func (s *ConsoleSink) Error(text string) {
	s.out.println(s.styles.err.Render("error: " + text))
}

// Close reports the first write error. The writer is left open.
func (s *ConsoleSink) Close() error {
	return s.out.err
}
