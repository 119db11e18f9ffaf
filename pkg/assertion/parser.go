package assertion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	callPattern  = regexp.MustCompile(`^(\w+)\s*\((.*)\)$`)
	intPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	floatPattern = regexp.MustCompile(
		`^[+-]?\d+\.\d+([eE][+-]?\d+)?$`,
	)
)

// ParseError reports assertion text that names a known function
// with arguments that do not fit its signature.
type ParseError struct {
	// Text is the original assertion text.
	Text string

	// Kind is the function that rejected the arguments.
	Kind Kind

	// Reason describes the mismatch.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"parse assertion %q: %s: %s", e.Text, e.Kind, e.Reason,
	)
}

// Parse turns assertion text into a bound Assertion.
//
// Text of the form "name(args)" where name is a registered
// function is parsed as a call. Anything else, including calls
// to unknown names, becomes an "equals" assertion whose single
// argument is the whole trimmed text.
//
// Examples:
//
//	"between(3, 5)"       -> between(3.0, 5.0)
//	"anyof(yes, 'no')"    -> anyof("yes", "no")
//	"42"                  -> equals(42)
//	"foo(1,2)"            -> equals("foo(1,2)")
func (e *DefaultEngine) Parse(text string) (*Assertion, error) {
	trimmed := strings.TrimSpace(text)

	if m := callPattern.FindStringSubmatch(trimmed); m != nil {
		kind := Kind(m[1])
		if fn, ok := e.lookup(kind); ok {
			return e.parseCall(text, kind, fn, m[2])
		}
	}

	fn, _ := e.lookup(KindEquals)
	return e.bind(text, KindEquals, fn, []any{autoconvert(trimmed)})
}

func (e *DefaultEngine) parseCall(
	text string,
	kind Kind,
	fn function,
	argText string,
) (*Assertion, error) {
	tokens, err := tokenize(argText)
	if err != nil {
		return nil, &ParseError{
			Text: text, Kind: kind, Reason: err.Error(),
		}
	}

	args, err := convertArgs(tokens, fn.sig)
	if err != nil {
		return nil, &ParseError{
			Text: text, Kind: kind, Reason: err.Error(),
		}
	}

	return e.bind(text, kind, fn, args)
}

func (e *DefaultEngine) bind(
	text string,
	kind Kind,
	fn function,
	args []any,
) (*Assertion, error) {
	eval, err := fn.bind(args)
	if err != nil {
		return nil, &ParseError{
			Text: text, Kind: kind, Reason: err.Error(),
		}
	}
	return &Assertion{Kind: kind, Args: args, eval: eval}, nil
}

// convertArgs checks arity and converts tokens to the types the
// signature demands.
func convertArgs(tokens []token, sig Signature) ([]any, error) {
	switch {
	case sig.Arity == Variadic && len(tokens) == 0:
		return nil, fmt.Errorf("expects at least one argument")
	case sig.Arity != Variadic && len(tokens) != sig.Arity:
		return nil, fmt.Errorf(
			"expects %d argument(s), got %d",
			sig.Arity, len(tokens),
		)
	}

	args := make([]any, len(tokens))
	for i, tok := range tokens {
		switch sig.Type {
		case ArgString:
			args[i] = tok.text
		case ArgInt:
			n, err := strconv.ParseInt(
				strings.TrimSpace(tok.text), 10, 64,
			)
			if err != nil {
				return nil, fmt.Errorf(
					"argument %d: %q is not an %s",
					i+1, tok.text, sig.Type,
				)
			}
			args[i] = n
		case ArgFloat:
			f, err := strconv.ParseFloat(
				strings.TrimSpace(tok.text), 64,
			)
			if err != nil {
				return nil, fmt.Errorf(
					"argument %d: %q is not a %s",
					i+1, tok.text, sig.Type,
				)
			}
			args[i] = f
		default:
			if tok.literal() {
				args[i] = tok.text
			} else {
				args[i] = autoconvert(tok.text)
			}
		}
	}
	return args, nil
}

// autoconvert turns integer- and decimal-looking text into
// int64 and float64. Other text is kept as a string with its
// \n, \r and \t escapes resolved.
func autoconvert(s string) any {
	switch {
	case intPattern.MatchString(s):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case floatPattern.MatchString(s):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return unescapeControl(s)
}
