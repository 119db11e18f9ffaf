// Package assertion implements the predicate language used to
// check captured program output. An assertion is written as a
// function call such as "between(3, 5)" or "anyof(yes, no)";
// any other text is an implicit "equals" of the whole string.
// The package ships with 16 built-in functions and supports
// registering custom ones on an Engine.
package assertion

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names the predicate function of an assertion.
type Kind string

// Built-in predicate functions.
const (
	KindEquals    Kind = "equals"
	KindDifferent Kind = "different"
	KindMinLength Kind = "minlength"
	KindMaxLength Kind = "maxlength"
	KindAround    Kind = "around"
	KindBetween   Kind = "between"
	KindLT        Kind = "lt"
	KindLEQ       Kind = "leq"
	KindGT        Kind = "gt"
	KindGEQ       Kind = "geq"
	KindContains  Kind = "contains"
	KindAnyOf     Kind = "anyof"
	KindIn        Kind = "in"
	KindNoneOf    Kind = "noneof"
	KindNotIn     Kind = "notin"
	KindMatches   Kind = "matches"
)

// ArgType constrains the arguments accepted by a function.
type ArgType int

const (
	// ArgAny auto-converts bare tokens to int64 or float64
	// and keeps everything else as a string.
	ArgAny ArgType = iota
	// ArgString keeps every argument as a string.
	ArgString
	// ArgInt requires every argument to parse as an integer.
	ArgInt
	// ArgFloat requires every argument to parse as a number.
	ArgFloat
)

// String returns the name used in parse error messages.
func (t ArgType) String() string {
	switch t {
	case ArgString:
		return "string"
	case ArgInt:
		return "integer"
	case ArgFloat:
		return "float"
	default:
		return "any"
	}
}

// Variadic is the Signature.Arity of functions accepting one or
// more arguments.
const Variadic = -1

// Signature describes the arity and argument type of a function.
type Signature struct {
	// Arity is the exact number of arguments, or Variadic.
	Arity int

	// Type is applied to every argument.
	Type ArgType
}

// Assertion is a parsed, immutable predicate over one captured
// string value. Args holds string, int64 or float64 values.
type Assertion struct {
	// Kind is the predicate function name.
	Kind Kind `json:"kind"`

	// Args are the typed function arguments.
	Args []any `json:"args"`

	eval Evaluator
}

// Matches reports whether candidate satisfies the assertion. A
// nil assertion matches everything. Matches never fails: any
// conversion problem makes it return false.
func (a *Assertion) Matches(candidate string) bool {
	if a == nil {
		return true
	}
	if a.eval == nil {
		return false
	}
	passed, _ := a.eval(candidate)
	return passed
}

// String renders the canonical call form of the assertion.
// Parsing the result yields an equivalent assertion.
func (a *Assertion) String() string {
	if a == nil {
		return ""
	}
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = formatArg(arg)
	}
	return string(a.Kind) + "(" + strings.Join(parts, ", ") + ")"
}

// Result captures the outcome of evaluating an assertion
// against a value.
type Result struct {
	// Kind is the predicate function that was evaluated.
	Kind Kind `json:"kind"`

	// Target names the checked channel (stdout, stderr,
	// exit code) when evaluated through a Check.
	Target string `json:"target,omitempty"`

	// Expected holds the assertion arguments.
	Expected []any `json:"expected"`

	// Actual is the observed value.
	Actual string `json:"actual"`

	// Passed indicates whether the assertion succeeded.
	Passed bool `json:"passed"`

	// Message is a human-readable description of the outcome.
	Message string `json:"message"`
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s
	case string:
		return quoteArg(v)
	}
	return quoteArg(fmt.Sprint(arg))
}

func quoteArg(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
