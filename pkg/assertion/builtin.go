package assertion

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// bindEquals compares the value against the single argument.
// A numeric argument makes the comparison numeric; values that
// do not parse as numbers then fail.
func bindEquals(args []any) (Evaluator, error) {
	expected := args[0]
	return func(value string) (bool, string) {
		return compareEqual(expected, value, false)
	}, nil
}

// bindDifferent returns the binder for "different". Unless
// negate is set it performs the same comparison as "equals",
// which is what existing test specifications were graded with.
func bindDifferent(negate bool) Binder {
	return func(args []any) (Evaluator, error) {
		expected := args[0]
		return func(value string) (bool, string) {
			return compareEqual(expected, value, negate)
		}, nil
	}
}

func compareEqual(
	expected any,
	value string,
	negate bool,
) (bool, string) {
	var equal bool
	var msg string

	if want, ok := toFloat64(expected); ok {
		got, ok := parseNumber(value)
		if !ok {
			return false, fmt.Sprintf(
				"%q is not a number", value,
			)
		}
		equal = got == want
		msg = fmt.Sprintf(
			"%s %s %s", formatNumber(got),
			equalitySymbol(equal), formatNumber(want),
		)
	} else {
		want := fmt.Sprint(expected)
		equal = value == want
		msg = fmt.Sprintf(
			"%q %s %q", value, equalitySymbol(equal), want,
		)
	}

	return equal != negate, msg
}

func equalitySymbol(equal bool) string {
	if equal {
		return "=="
	}
	return "!="
}

// bindMinLength checks the character count of the value.
func bindMinLength(args []any) (Evaluator, error) {
	limit := args[0].(int64)
	return func(value string) (bool, string) {
		n := int64(utf8.RuneCountInString(value))
		if n >= limit {
			return true, fmt.Sprintf("length %d >= %d", n, limit)
		}
		return false, fmt.Sprintf("length %d < %d", n, limit)
	}, nil
}

// bindMaxLength checks the character count of the value.
func bindMaxLength(args []any) (Evaluator, error) {
	limit := args[0].(int64)
	return func(value string) (bool, string) {
		n := int64(utf8.RuneCountInString(value))
		if n <= limit {
			return true, fmt.Sprintf("length %d <= %d", n, limit)
		}
		return false, fmt.Sprintf("length %d > %d", n, limit)
	}, nil
}

// bindAround accepts values within a relative tolerance band:
// |v - center| <= |center * ratio|.
func bindAround(args []any) (Evaluator, error) {
	center := args[0].(float64)
	ratio := args[1].(float64)
	tolerance := math.Abs(center * ratio)
	return func(value string) (bool, string) {
		got, ok := parseNumber(value)
		if !ok {
			return false, fmt.Sprintf("%q is not a number", value)
		}
		diff := math.Abs(got - center)
		if diff <= tolerance {
			return true, fmt.Sprintf(
				"%s within %s of %s", formatNumber(got),
				formatNumber(tolerance), formatNumber(center),
			)
		}
		return false, fmt.Sprintf(
			"%s deviates %s from %s (tolerance %s)",
			formatNumber(got), formatNumber(diff),
			formatNumber(center), formatNumber(tolerance),
		)
	}, nil
}

// bindBetween accepts values in the closed range [lo, hi].
func bindBetween(args []any) (Evaluator, error) {
	lo := args[0].(float64)
	hi := args[1].(float64)
	return func(value string) (bool, string) {
		got, ok := parseNumber(value)
		if !ok {
			return false, fmt.Sprintf("%q is not a number", value)
		}
		if got >= lo && got <= hi {
			return true, fmt.Sprintf(
				"%s in [%s, %s]", formatNumber(got),
				formatNumber(lo), formatNumber(hi),
			)
		}
		return false, fmt.Sprintf(
			"%s not in [%s, %s]", formatNumber(got),
			formatNumber(lo), formatNumber(hi),
		)
	}, nil
}

// bindCompare builds the lt, leq, gt and geq binders.
func bindCompare(
	symbol string,
	cmp func(got, limit float64) bool,
) Binder {
	return func(args []any) (Evaluator, error) {
		limit := args[0].(float64)
		return func(value string) (bool, string) {
			got, ok := parseNumber(value)
			if !ok {
				return false, fmt.Sprintf(
					"%q is not a number", value,
				)
			}
			msg := fmt.Sprintf(
				"%s %s %s", formatNumber(got), symbol,
				formatNumber(limit),
			)
			if cmp(got, limit) {
				return true, msg
			}
			return false, "not " + msg
		}, nil
	}
}

// bindContains performs a case-sensitive substring test.
func bindContains(args []any) (Evaluator, error) {
	needle := args[0].(string)
	return func(value string) (bool, string) {
		if strings.Contains(value, needle) {
			return true, fmt.Sprintf("contains %q", needle)
		}
		return false, fmt.Sprintf("does not contain %q", needle)
	}, nil
}

// bindAnyOf accepts values equal to one of the arguments.
func bindAnyOf(args []any) (Evaluator, error) {
	options := toStrings(args)
	return func(value string) (bool, string) {
		for _, o := range options {
			if value == o {
				return true, fmt.Sprintf("%q is one of %q", value, options)
			}
		}
		return false, fmt.Sprintf("%q is none of %q", value, options)
	}, nil
}

// bindNoneOf is the complement of bindAnyOf.
func bindNoneOf(args []any) (Evaluator, error) {
	anyOf, _ := bindAnyOf(args)
	return func(value string) (bool, string) {
		found, msg := anyOf(value)
		return !found, msg
	}, nil
}

// bindMatches searches the value for the regular expression.
// The pattern is not anchored; use ^ and $ for a full match.
func bindMatches(args []any) (Evaluator, error) {
	pattern := args[0].(string)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return func(value string) (bool, string) {
		if re.MatchString(value) {
			return true, fmt.Sprintf("matches /%s/", pattern)
		}
		return false, fmt.Sprintf("does not match /%s/", pattern)
	}, nil
}

// --- helpers ---

// parseNumber converts a captured value to float64. Surrounding
// whitespace is ignored.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// toFloat64 converts a numeric argument to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func toStrings(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
