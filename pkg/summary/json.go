// Package summary persists evaluation results: a JSON document
// per evaluation, an append-only history and class summaries of
// a batch of submissions.
package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"digital.vasic.progeval/pkg/evaluator"
)

// JSONReporter renders evaluation results as JSON.
type JSONReporter struct {
	pretty       bool
	includeTrace bool
}

// NewJSONReporter creates a JSON reporter. When pretty is true,
// output is indented for readability. The report trace is left
// out unless includeTrace is set.
func NewJSONReporter(pretty, includeTrace bool) *JSONReporter {
	return &JSONReporter{pretty: pretty, includeTrace: includeTrace}
}

// GenerateReport encodes a single result.
func (r *JSONReporter) GenerateReport(
	result *evaluator.Result,
) ([]byte, error) {
	doc := *result
	if !r.includeTrace {
		doc.Trace = nil
	}
	if r.pretty {
		return json.MarshalIndent(&doc, "", "  ")
	}
	return json.Marshal(&doc)
}

// WriteReport writes a JSON report to w.
func (r *JSONReporter) WriteReport(
	w io.Writer,
	result *evaluator.Result,
) error {
	data, err := r.GenerateReport(result)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// WriteFile writes a JSON report to path, creating parent
// directories as needed.
func (r *JSONReporter) WriteFile(
	path string,
	result *evaluator.Result,
) error {
	data, err := r.GenerateReport(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
