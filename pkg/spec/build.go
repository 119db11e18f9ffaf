package spec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/shlex"

	"digital.vasic.progeval/pkg/assertion"
)

// schemaValidate checks Documents. Field names in its errors are
// the YAML keys.
var schemaValidate = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Builder turns Documents into Specifications.
type Builder struct {
	engine         assertion.Engine
	defaultTimeout time.Duration
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithEngine sets the assertion engine used to parse checks.
func WithEngine(e assertion.Engine) BuilderOption {
	return func(b *Builder) {
		b.engine = e
	}
}

// WithDefaultTimeout sets the timeout of runs that declare none.
func WithDefaultTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d > 0 {
			b.defaultTimeout = d
		}
	}
}

// NewBuilder creates a Builder using the built-in assertion
// functions and DefaultTimeout.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		engine:         assertion.NewEngine(),
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build materialises a Document with the default Builder.
func Build(doc *Document) (*Specification, error) {
	return NewBuilder().Build(doc)
}

// Build validates the document and materialises it. Testbeds with
// fewer than MinRunsPerTestbed runs are left out of the result and
// listed in Dropped. Unnamed testbeds are named "Testset i",
// counting every declared testbed from 1.
func (b *Builder) Build(doc *Document) (*Specification, error) {
	if doc == nil {
		return nil, &SpecificationError{Message: "empty document"}
	}

	if err := schemaValidate.Struct(doc); err != nil {
		return nil, schemaError(err)
	}

	lang, err := ParseLanguage(doc.Language)
	if err != nil {
		return nil, err
	}

	s := &Specification{
		Language:  lang,
		BuildTool: lang.BuildTool(),
	}

	if doc.Build != nil {
		if doc.Build.Tool != "" {
			if !lang.Compiled() {
				return nil, &SpecificationError{
					Path: "build.tool",
					Message: fmt.Sprintf(
						"%s programs are not built", lang,
					),
				}
			}
			s.BuildTool = doc.Build.Tool
		}
		s.BuildScore = doc.Build.Score
		s.BuildFlags = strings.Fields(doc.Build.Flags)
	}

	for i := range doc.Testbeds {
		tb, err := b.buildTestbed(i, &doc.Testbeds[i])
		if err != nil {
			return nil, err
		}
		if len(tb.Runs) < MinRunsPerTestbed {
			s.Dropped = append(s.Dropped, tb.Name)
			continue
		}
		s.Testbeds = append(s.Testbeds, tb)
	}

	return s, nil
}

func (b *Builder) buildTestbed(
	index int,
	doc *TestbedDoc,
) (Testbed, error) {
	tb := Testbed{
		Name:     strings.TrimSpace(doc.Name),
		MaxScore: doc.Score,
		Scoring:  AllOrNothing,
		OnError:  PolicyHalt,
	}
	if tb.Name == "" {
		tb.Name = fmt.Sprintf("Testset %d", index+1)
	}
	if doc.Type != "" {
		tb.Scoring = ScoringMode(doc.Type)
	}
	if doc.OnError != "" {
		tb.OnError = ErrorPolicy(doc.OnError)
	}

	for j := range doc.Runs {
		path := fmt.Sprintf("testbeds[%d].testruns[%d]", index, j)
		run, err := b.buildTestRun(path, &doc.Runs[j])
		if err != nil {
			return Testbed{}, err
		}
		tb.Runs = append(tb.Runs, run)
	}
	return tb, nil
}

func (b *Builder) buildTestRun(
	path string,
	doc *TestRunDoc,
) (TestRun, error) {
	run := TestRun{Timeout: b.defaultTimeout}

	args, err := shlex.Split(doc.Args)
	if err != nil {
		return TestRun{}, &SpecificationError{
			Path: path + ".args", Message: "bad arguments", Err: err,
		}
	}
	run.Args = args

	if doc.Timeout != nil {
		run.Timeout = time.Duration(*doc.Timeout * float64(time.Second))
	}

	checks := []struct {
		field string
		text  string
		dst   **assertion.Assertion
	}{
		{"cout", doc.Cout, &run.Stdout},
		{"cerr", doc.Cerr, &run.Stderr},
		{"retval", doc.Retval, &run.ExitCode},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.text) == "" {
			continue
		}
		a, err := b.engine.Parse(c.text)
		if err != nil {
			return TestRun{}, &SpecificationError{
				Path: path + "." + c.field, Err: err,
			}
		}
		*c.dst = a
	}

	return run, nil
}

func schemaError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &SpecificationError{Err: err}
	}

	fe := verrs[0]
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "oneof":
		msg = fmt.Sprintf("must be one of [%s], got %q",
			fe.Param(), fmt.Sprint(fe.Value()))
	case "gte":
		msg = fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		msg = fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		msg = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return &SpecificationError{Path: path, Message: msg}
}
