package assertion

import "fmt"

// Check pairs an assertion with the named value it applies to.
type Check struct {
	// Target names the value (e.g. "stdout").
	Target string

	// Assertion is the predicate. A nil assertion passes.
	Assertion *Assertion

	// Value is the captured value to test.
	Value string
}

// FirstFailure evaluates checks in order and returns the result
// of the first one that fails. Later checks are not evaluated.
// The boolean is false when every check passed.
func FirstFailure(engine Engine, checks []Check) (Result, bool) {
	for _, c := range checks {
		if c.Assertion == nil {
			continue
		}
		r := engine.Evaluate(c.Assertion, c.Value)
		r.Target = c.Target
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}

// AllPass evaluates every check and summarises the outcome in a
// single Result.
func AllPass(engine Engine, checks []Check) Result {
	evaluated := 0
	for _, c := range checks {
		if c.Assertion == nil {
			continue
		}
		evaluated++
		r := engine.Evaluate(c.Assertion, c.Value)
		if !r.Passed {
			return Result{
				Kind:     r.Kind,
				Target:   c.Target,
				Expected: r.Expected,
				Actual:   r.Actual,
				Passed:   false,
				Message: fmt.Sprintf(
					"assertion '%s' on target '%s' failed: %s",
					r.Kind, c.Target, r.Message,
				),
			}
		}
	}

	return Result{
		Passed: true,
		Message: fmt.Sprintf(
			"all %d assertions passed", evaluated,
		),
	}
}
