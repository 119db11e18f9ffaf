package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type levelStyles struct {
	ts     lipgloss.Style
	fields lipgloss.Style
	levels map[LogLevel]lipgloss.Style
}

func newLevelStyles(r *lipgloss.Renderer) *levelStyles {
	return &levelStyles{
		ts:     r.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
		fields: r.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
		levels: map[LogLevel]lipgloss.Style{
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("#7F8C8D")),
			LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("#3498DB")),
			LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
			LevelError: r.NewStyle().Foreground(lipgloss.Color("#E74C3C")).Bold(true),
		},
	}
}

// ConsoleLogger writes human-readable log lines. Level tags are
// colored when the output is a terminal.
type ConsoleLogger struct {
	mu     *sync.Mutex
	output io.Writer
	level  LogLevel
	fields map[string]any
	styles *levelStyles
	now    func() time.Time
}

// NewConsoleLogger creates a console logger writing to stderr.
// When verbose is true, debug messages are emitted.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	return NewConsoleLoggerTo(os.Stderr, level)
}

// NewConsoleLoggerTo creates a console logger writing entries at
// or above level to w.
func NewConsoleLoggerTo(w io.Writer, level LogLevel) *ConsoleLogger {
	return &ConsoleLogger{
		mu:     &sync.Mutex{},
		output: w,
		level:  level,
		fields: make(map[string]any),
		styles: newLevelStyles(lipgloss.NewRenderer(w)),
		now:    time.Now,
	}
}

func (c *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	if level < c.level {
		return
	}

	all := mergeFields(c.fields, fields)

	var fieldStr string
	if len(all) > 0 {
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, all[k]))
		}
		fieldStr = " " + c.styles.fields.Render(
			"{"+strings.Join(parts, ", ")+"}",
		)
	}

	tag := c.styles.levels[level].Render(fmt.Sprintf("%-5s", level))

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(
		c.output, "%s [%s] %s%s\n",
		c.styles.ts.Render(c.now().Format("15:04:05")),
		tag, msg, fieldStr,
	)
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(msg string, fields ...Field) {
	c.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (c *ConsoleLogger) Warn(msg string, fields ...Field) {
	c.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(msg string, fields ...Field) {
	c.log(LevelError, msg, fields...)
}

// Debug logs a debug message.
func (c *ConsoleLogger) Debug(msg string, fields ...Field) {
	c.log(LevelDebug, msg, fields...)
}

// WithFields returns a new Logger with additional default
// fields. It shares the output and its lock with c.
func (c *ConsoleLogger) WithFields(fields ...Field) Logger {
	return &ConsoleLogger{
		mu:     c.mu,
		output: c.output,
		level:  c.level,
		fields: mergeFields(c.fields, fields),
		styles: c.styles,
		now:    c.now,
	}
}

// Close is a no-op for ConsoleLogger.
func (c *ConsoleLogger) Close() error {
	return nil
}
