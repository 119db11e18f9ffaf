package assertion

import (
	"fmt"
	"sync"
)

// Engine parses and evaluates assertions against a table of
// named predicate functions.
type Engine interface {
	// Parse turns assertion text into a bound Assertion.
	Parse(text string) (*Assertion, error)

	// Evaluate checks an assertion against the given value.
	Evaluate(a *Assertion, value string) Result

	// Register adds a custom function. Returns an error if the
	// name is already registered.
	Register(kind Kind, sig Signature, bind Binder) error
}

type function struct {
	sig  Signature
	bind Binder
}

// DefaultEngine is the standard Engine implementation. It is
// safe for concurrent use.
type DefaultEngine struct {
	mu              sync.RWMutex
	functions       map[Kind]function
	negateDifferent bool
}

// EngineOption configures a DefaultEngine.
type EngineOption func(*DefaultEngine)

// WithNegatedDifferent makes "different" the negation of
// "equals". Without it "different" keeps the historical
// behaviour of comparing exactly like "equals".
func WithNegatedDifferent() EngineOption {
	return func(e *DefaultEngine) {
		e.negateDifferent = true
	}
}

// NewEngine creates a DefaultEngine with all 16 built-in
// functions pre-registered.
func NewEngine(opts ...EngineOption) *DefaultEngine {
	e := &DefaultEngine{
		functions: make(map[Kind]function),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerDefaults()
	return e
}

// registerDefaults registers all 16 built-in functions.
func (e *DefaultEngine) registerDefaults() {
	one := func(t ArgType) Signature {
		return Signature{Arity: 1, Type: t}
	}
	pair := Signature{Arity: 2, Type: ArgFloat}
	list := Signature{Arity: Variadic, Type: ArgString}

	e.functions[KindEquals] = function{one(ArgAny), bindEquals}
	e.functions[KindDifferent] = function{
		one(ArgAny), bindDifferent(e.negateDifferent),
	}
	e.functions[KindMinLength] = function{one(ArgInt), bindMinLength}
	e.functions[KindMaxLength] = function{one(ArgInt), bindMaxLength}
	e.functions[KindAround] = function{pair, bindAround}
	e.functions[KindBetween] = function{pair, bindBetween}
	e.functions[KindLT] = function{one(ArgFloat), bindCompare(
		"<", func(a, b float64) bool { return a < b },
	)}
	e.functions[KindLEQ] = function{one(ArgFloat), bindCompare(
		"<=", func(a, b float64) bool { return a <= b },
	)}
	e.functions[KindGT] = function{one(ArgFloat), bindCompare(
		">", func(a, b float64) bool { return a > b },
	)}
	e.functions[KindGEQ] = function{one(ArgFloat), bindCompare(
		">=", func(a, b float64) bool { return a >= b },
	)}
	e.functions[KindContains] = function{one(ArgString), bindContains}
	e.functions[KindAnyOf] = function{list, bindAnyOf}
	e.functions[KindIn] = function{list, bindAnyOf}
	e.functions[KindNoneOf] = function{list, bindNoneOf}
	e.functions[KindNotIn] = function{list, bindNoneOf}
	e.functions[KindMatches] = function{one(ArgString), bindMatches}
}

// Register adds a custom function. Returns an error if the name
// is already registered or the signature is invalid.
func (e *DefaultEngine) Register(
	kind Kind,
	sig Signature,
	bind Binder,
) error {
	if sig.Arity < 1 && sig.Arity != Variadic {
		return fmt.Errorf(
			"function %s: invalid arity %d", kind, sig.Arity,
		)
	}
	if bind == nil {
		return fmt.Errorf("function %s: nil binder", kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.functions[kind]; exists {
		return fmt.Errorf(
			"assertion function already registered: %s", kind,
		)
	}

	e.functions[kind] = function{sig: sig, bind: bind}
	return nil
}

// HasFunction returns true if kind names a registered function.
func (e *DefaultEngine) HasFunction(kind Kind) bool {
	_, ok := e.lookup(kind)
	return ok
}

func (e *DefaultEngine) lookup(kind Kind) (function, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.functions[kind]
	return fn, ok
}

// Evaluate runs an assertion against the provided value. A nil
// assertion always passes.
func (e *DefaultEngine) Evaluate(
	a *Assertion,
	value string,
) Result {
	if a == nil {
		return Result{
			Actual:  value,
			Passed:  true,
			Message: "no assertion",
		}
	}

	if a.eval == nil {
		return Result{
			Kind:     a.Kind,
			Expected: a.Args,
			Actual:   value,
			Passed:   false,
			Message: fmt.Sprintf(
				"assertion %s was not parsed", a.Kind,
			),
		}
	}

	passed, message := a.eval(value)

	return Result{
		Kind:     a.Kind,
		Expected: a.Args,
		Actual:   value,
		Passed:   passed,
		Message:  message,
	}
}

var defaultEngine = NewEngine()

// Parse parses assertion text with the built-in functions.
func Parse(text string) (*Assertion, error) {
	return defaultEngine.Parse(text)
}

// MustParse is like Parse but panics on error. It is intended
// for tests and static tables.
func MustParse(text string) *Assertion {
	a, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}
