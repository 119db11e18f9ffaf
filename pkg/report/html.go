package report

import (
	"html"
	"io"
)

// HTMLSink renders events as a standalone HTML page.
type HTMLSink struct {
	out *errWriter
	raw io.Writer
}

// NewHTMLSink writes the page head immediately; Close writes the
// footer and closes w when it is an io.Closer.
func NewHTMLSink(w io.Writer, title string) *HTMLSink {
	s := &HTMLSink{out: &errWriter{w: w}, raw: w}
	s.writeHeader(title)
	if title != "" {
		s.out.printf("<h1>%s</h1>\n", html.EscapeString(title))
	}
	return s
}

func colorClass(c Color) string {
	switch c {
	case ColorPass:
		return "pass"
	case ColorReject:
		return "reject"
	case ColorHalt:
		return "halt"
	}
	return ""
}

func (s *HTMLSink) BeginSection(title string) {
	s.out.printf("<h2>%s</h2>\n", html.EscapeString(title))
}

func (s *HTMLSink) BeginSubsection(title string) {
	s.out.printf("<h3>%s</h3>\n", html.EscapeString(title))
}

func (s *HTMLSink) WriteLine(text string, color Color) {
	if cls := colorClass(color); cls != "" {
		s.out.printf(
			"<p class=\"%s\">%s</p>\n", cls, html.EscapeString(text),
		)
		return
	}
	s.out.printf("<p>%s</p>\n", html.EscapeString(text))
}

func (s *HTMLSink) WriteVerbatim(text string) {
	s.out.printf("<pre><code>%s</code></pre>\n", html.EscapeString(text))
}

func (s *HTMLSink) Info(text string) {
	s.notice("info", text)
}

func (s *HTMLSink) Warn(text string) {
	s.notice("warn", text)
}

func (s *HTMLSink) Error(text string) {
	s.notice("error", text)
}

func (s *HTMLSink) notice(cls, text string) {
	s.out.printf(
		"<div class=\"notice %s\">%s</div>\n",
		cls, html.EscapeString(text),
	)
}

// Close writes the footer.
func (s *HTMLSink) Close() error {
	s.writeFooter()
	if err := closeWriter(s.raw); err != nil && s.out.err == nil {
		return err
	}
	return s.out.err
}

func (s *HTMLSink) writeHeader(title string) {
	s.out.printf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body {
  font-family: -apple-system, BlinkMacSystemFont,
    "Segoe UI", Roboto, sans-serif;
  max-width: 960px;
  margin: 0 auto;
  padding: 20px;
  color: #333;
  background: #f9f9f9;
}
h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
h2 { color: #2c3e50; margin-top: 30px; }
h3 { color: #34495e; }
p { margin: 4px 0; }
pre {
  background: #ecf0f1;
  padding: 6px 10px;
  border-radius: 3px;
  white-space: pre-wrap;
}
.pass { color: #6b8e23; font-weight: bold; }
.reject { color: #f39c12; font-weight: bold; }
.halt { color: #800000; font-weight: bold; }
.notice { padding: 6px 10px; margin: 6px 0; border-left: 4px solid #3498db; }
.notice.warn { border-color: #f39c12; }
.notice.error { border-color: #e74c3c; color: #e74c3c; }
footer {
  margin-top: 40px;
  padding-top: 10px;
  border-top: 1px solid #ddd;
  color: #7f8c8d;
  font-size: 0.9em;
}
</style>
</head>
<body>
`, html.EscapeString(title))
}

func (s *HTMLSink) writeFooter() {
	s.out.println("<footer>")
	s.out.println("<p>Generated by progeval</p>")
	s.out.println("</footer>")
	s.out.println("</body>")
	s.out.println("</html>")
}
