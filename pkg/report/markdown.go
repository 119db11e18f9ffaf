package report

import (
	"io"
	"strings"
)

// MarkdownSink renders events as a Markdown document. Colored
// lines are set in bold; verbatim text goes into fenced blocks.
type MarkdownSink struct {
	out *errWriter
	raw io.Writer
}

// NewMarkdownSink writes a document titled title to w. Close closes
// w when it is an io.Closer.
func NewMarkdownSink(w io.Writer, title string) *MarkdownSink {
	s := &MarkdownSink{out: &errWriter{w: w}, raw: w}
	if title != "" {
		s.out.printf("# %s\n\n", title)
	}
	return s
}

func (s *MarkdownSink) BeginSection(title string) {
	s.out.printf("## %s\n\n", title)
}

func (s *MarkdownSink) BeginSubsection(title string) {
	s.out.printf("### %s\n\n", title)
}

func (s *MarkdownSink) WriteLine(text string, color Color) {
	if text == "" {
		return
	}
	if color != ColorNone {
		text = "**" + text + "**"
	}
	s.out.printf("%s\n\n", text)
}

func (s *MarkdownSink) WriteVerbatim(text string) {
	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	s.out.printf("%s\n%s\n%s\n\n", fence, text, fence)
}

func (s *MarkdownSink) Info(text string) {
	s.out.printf("> %s\n\n", text)
}

func (s *MarkdownSink) Warn(text string) {
	s.out.printf("> **Warning:** %s\n\n", text)
}

func (s *MarkdownSink) Error(text string) {
	s.out.printf("> **Error:** %s\n\n", text)
}

func (s *MarkdownSink) Close() error {
	if err := closeWriter(s.raw); err != nil && s.out.err == nil {
		return err
	}
	return s.out.err
}
