// Package config holds progeval's runtime settings. Settings are
// read from a YAML file, overridden by PROGEVAL_* environment
// variables and validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"digital.vasic.progeval/pkg/env"
	"digital.vasic.progeval/pkg/logging"
)

// Report formats.
const (
	FormatConsole  = "console"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// Config holds runtime configuration for evaluations.
type Config struct {
	// Interpreter overrides the interpreter of interpreted
	// languages.
	Interpreter string `yaml:"interpreter"`

	// WorkDir receives built executables. Empty means next to
	// the source.
	WorkDir string `yaml:"work_dir"`

	// KeepArtifacts leaves built executables on disk.
	KeepArtifacts bool `yaml:"keep_artifacts"`

	// DefaultTimeout applies to test runs that declare none.
	DefaultTimeout time.Duration `yaml:"default_timeout" validate:"gt=0"`

	// BuildTimeout bounds a single build.
	BuildTimeout time.Duration `yaml:"build_timeout" validate:"gt=0"`

	// NegatedDifferent makes different() the negation of
	// equals().
	NegatedDifferent bool `yaml:"negated_different"`

	Report  ReportConfig   `yaml:"report"`
	Log     logging.Config `yaml:"log"`
	Metrics ListenConfig   `yaml:"metrics"`
	Monitor ListenConfig   `yaml:"monitor"`
}

// ReportConfig selects where and how reports are written.
type ReportConfig struct {
	// OutputDir receives report files. Empty means the current
	// directory.
	OutputDir string `yaml:"output_dir"`

	// Formats lists the renderers used for each evaluation.
	Formats []string `yaml:"formats" validate:"dive,oneof=console markdown html json"`

	// HistoryFile, when set, receives one JSON line per
	// evaluation.
	HistoryFile string `yaml:"history_file"`
}

// ListenConfig is an optional HTTP listen address.
type ListenConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultTimeout: 5 * time.Second,
		BuildTimeout:   60 * time.Second,
		Report: ReportConfig{
			Formats: []string{FormatConsole},
		},
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment overrides
// from loader, then validation.
func Load(path string, loader env.Loader) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if loader != nil {
		if err := cfg.ApplyEnv(loader); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from environment variables:
// INTERPRETER, WORK_DIR, KEEP_ARTIFACTS, DEFAULT_TIMEOUT,
// BUILD_TIMEOUT, NEGATED_DIFFERENT, OUTPUT_DIR, FORMATS
// (comma separated), HISTORY_FILE, LOG_LEVEL, LOG_FORMAT,
// LOG_FILE, METRICS_ADDR and MONITOR_ADDR, each under the
// loader's prefix.
func (c *Config) ApplyEnv(loader env.Loader) error {
	strs := map[string]*string{
		"INTERPRETER":  &c.Interpreter,
		"WORK_DIR":     &c.WorkDir,
		"OUTPUT_DIR":   &c.Report.OutputDir,
		"HISTORY_FILE": &c.Report.HistoryFile,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FORMAT":   &c.Log.Format,
		"LOG_FILE":     &c.Log.File,
		"METRICS_ADDR": &c.Metrics.Addr,
		"MONITOR_ADDR": &c.Monitor.Addr,
	}
	for key, dst := range strs {
		if v, ok := loader.Lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"KEEP_ARTIFACTS":    &c.KeepArtifacts,
		"NEGATED_DIFFERENT": &c.NegatedDifferent,
	}
	for key, dst := range bools {
		b, set, err := loader.GetBool(key)
		if err != nil {
			return fmt.Errorf("invalid environment: %w", err)
		}
		if set {
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"DEFAULT_TIMEOUT": &c.DefaultTimeout,
		"BUILD_TIMEOUT":   &c.BuildTimeout,
	}
	for key, dst := range durations {
		d, set, err := loader.GetDuration(key)
		if err != nil {
			return fmt.Errorf("invalid environment: %w", err)
		}
		if set {
			*dst = d
		}
	}

	if v, ok := loader.Lookup("FORMATS"); ok {
		c.Report.Formats = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ValidationError lists the settings that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

// Validate checks every setting.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		ve.Fields = append(ve.Fields, fmt.Sprintf(
			"%s fails %s", path, fe.Tag(),
		))
	}
	return ve
}

// HasFormat reports whether the report format f is enabled.
func (c *Config) HasFormat(f string) bool {
	for _, v := range c.Report.Formats {
		if v == f {
			return true
		}
	}
	return false
}
