// Package env reads settings from the process environment and
// an optional .env file. Keys are looked up under a common
// prefix, e.g. "TIMEOUT" resolves to "PROGEVAL_TIMEOUT".
package env

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "PROGEVAL_"

// Loader defines the interface for environment variable management.
type Loader interface {
	// Load reads environment variables from a .env file.
	Load(filepath string) error
	// Lookup retrieves a variable and reports whether it is set.
	Lookup(key string) (string, bool)
	// Get retrieves an environment variable value.
	Get(key string) string
	// GetWithDefault retrieves an environment variable with a default fallback.
	GetWithDefault(key, defaultValue string) string
	// GetBool parses a boolean variable. Unset yields false.
	GetBool(key string) (bool, bool, error)
	// GetDuration parses a duration such as "2s" or a number of
	// seconds.
	GetDuration(key string) (time.Duration, bool, error)
	// Set sets an environment variable.
	Set(key, value string) error
	// All returns all variables loaded from files.
	All() map[string]string
}

// DefaultLoader implements Loader with .env file support.
type DefaultLoader struct {
	mu     sync.RWMutex
	vars   map[string]string
	loaded bool
	prefix string
}

// NewLoader creates a DefaultLoader using DefaultPrefix.
func NewLoader() *DefaultLoader {
	return NewLoaderWithPrefix(DefaultPrefix)
}

// NewLoaderWithPrefix creates a loader with a custom key prefix.
// An empty prefix looks keys up verbatim.
func NewLoaderWithPrefix(prefix string) *DefaultLoader {
	return &DefaultLoader{
		vars:   make(map[string]string),
		prefix: prefix,
	}
}

func (l *DefaultLoader) key(k string) string {
	if l.prefix == "" || strings.HasPrefix(k, l.prefix) {
		return k
	}
	return l.prefix + k
}

func (l *DefaultLoader) Load(filepath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", filepath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		// Remove surrounding quotes
		value = strings.Trim(value, `"'`)
		l.vars[key] = value
	}

	l.loaded = true
	return scanner.Err()
}

// Lookup resolves key under the prefix. The process environment
// takes precedence over loaded files.
func (l *DefaultLoader) Lookup(key string) (string, bool) {
	k := l.key(key)
	if v, ok := os.LookupEnv(k); ok {
		return v, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vars[k]
	return v, ok
}

func (l *DefaultLoader) Get(key string) string {
	v, _ := l.Lookup(key)
	return v
}

func (l *DefaultLoader) GetWithDefault(key, defaultValue string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return defaultValue
}

// GetBool parses key with strconv.ParseBool. The second result
// reports whether the variable was set to a non-empty value.
func (l *DefaultLoader) GetBool(key string) (bool, bool, error) {
	v := strings.TrimSpace(l.Get(key))
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%s: %w", l.key(key), err)
	}
	return b, true, nil
}

// GetDuration parses key as a Go duration, or as seconds when it
// is a plain number.
func (l *DefaultLoader) GetDuration(key string) (time.Duration, bool, error) {
	v := strings.TrimSpace(l.Get(key))
	if v == "" {
		return 0, false, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", l.key(key), err)
	}
	return d, true, nil
}

func (l *DefaultLoader) Set(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(key)
	l.vars[k] = value
	return os.Setenv(k, value)
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		result[k] = v
	}
	return result
}
