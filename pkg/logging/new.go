package logging

import (
	"fmt"
	"io"
	"os"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatNone    = "none"
)

// Config selects and configures a Logger.
type Config struct {
	// Level is a level name understood by ParseLevel.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Format is console, json or none.
	Format string `yaml:"format" validate:"omitempty,oneof=console json none"`

	// File additionally writes JSON Lines to this path.
	File string `yaml:"file"`
}

// New builds the Logger described by cfg. Console and JSON
// output go to w, or stderr when w is nil.
func New(cfg Config, w io.Writer) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	var primary Logger
	switch cfg.Format {
	case "", FormatConsole:
		primary = NewConsoleLoggerTo(w, level)
	case FormatJSON:
		primary, err = NewJSONLogger(LoggerConfig{Output: w, Level: level})
		if err != nil {
			return nil, err
		}
	case FormatNone:
		primary = NullLogger{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File == "" {
		return primary, nil
	}

	file, err := NewJSONLogger(LoggerConfig{
		OutputPath: cfg.File,
		Level:      level,
	})
	if err != nil {
		return nil, err
	}
	return NewMultiLogger(primary, file), nil
}
