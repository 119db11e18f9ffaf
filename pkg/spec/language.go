package spec

import (
	"fmt"
	"strings"
)

// Language is the programming language of a submission. The set
// is closed; each value carries its own build behaviour.
type Language int

// Supported languages.
const (
	LanguageUnknown Language = iota
	LanguageC
	LanguageCPP
	LanguagePython
)

type languageInfo struct {
	name        string
	buildTool   string
	interpreter string
	extensions  []string
}

var languages = map[Language]languageInfo{
	LanguageC: {
		name:       "C",
		buildTool:  "gcc",
		extensions: []string{".c"},
	},
	LanguageCPP: {
		name:       "C++",
		buildTool:  "g++",
		extensions: []string{".cpp", ".cc", ".cxx", ".c++"},
	},
	LanguagePython: {
		name:        "Python",
		interpreter: "python3",
		extensions:  []string{".py"},
	},
}

// ParseLanguage resolves the language attribute of a
// specification. Matching is case-insensitive and ignores
// surrounding whitespace.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c":
		return LanguageC, nil
	case "c++", "cpp":
		return LanguageCPP, nil
	case "python", "python3":
		return LanguagePython, nil
	}
	return LanguageUnknown, &UnsupportedLanguageError{Language: s}
}

// String returns the display name of the language.
func (l Language) String() string {
	if info, ok := languages[l]; ok {
		return info.name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// BuildTool returns the default compiler for the language, or
// the empty string for interpreted languages.
func (l Language) BuildTool() string {
	return languages[l].buildTool
}

// Compiled reports whether submissions must be built before
// they can run.
func (l Language) Compiled() bool {
	return languages[l].buildTool != ""
}

// Interpreter returns the command that runs an interpreted
// submission.
func (l Language) Interpreter() string {
	return languages[l].interpreter
}

// HasSourceExt reports whether the file name carries one of the
// language's source extensions.
func (l Language) HasSourceExt(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range languages[l].extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// UnsupportedLanguageError is returned when a specification
// names a language outside the supported set.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Language)
}
