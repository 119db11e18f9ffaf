package assertion

// Evaluator is a predicate bound to the arguments of one
// assertion. It returns whether the value passed and a
// human-readable explanation.
type Evaluator func(value string) (bool, string)

// Binder builds the Evaluator of a function from its converted
// arguments. A Binder error rejects the assertion at parse time
// (e.g. an invalid regular expression).
type Binder func(args []any) (Evaluator, error)
