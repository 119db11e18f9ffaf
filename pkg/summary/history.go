package summary

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"digital.vasic.progeval/pkg/evaluator"
)

// HistoricalEntry represents a single evaluation in the
// historical log.
type HistoricalEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	EvaluationID string    `json:"evaluation_id"`
	Source       string    `json:"source"`
	SHA1         string    `json:"sha1"`
	Spec         string    `json:"spec"`
	Status       string    `json:"status"`
	Score        float64   `json:"score"`
	MaxScore     float64   `json:"max_score"`
	RunsPassed   int       `json:"runs_passed"`
	RunsTotal    int       `json:"runs_total"`
	Duration     string    `json:"duration"`
	ReportPath   string    `json:"report_path,omitempty"`
}

// NewHistoricalEntry summarises result for the history log.
func NewHistoricalEntry(
	result *evaluator.Result,
	reportPath string,
) HistoricalEntry {
	total := 0
	for _, tb := range result.Testbeds {
		total += tb.TotalCount
	}
	return HistoricalEntry{
		Timestamp:    result.EndTime,
		EvaluationID: result.ID,
		Source:       result.Header.SourceFile,
		SHA1:         result.Header.SHA1,
		Spec:         result.Spec,
		Status:       string(result.Status),
		Score:        result.TotalScore,
		MaxScore:     result.MaxScore,
		RunsPassed:   result.PassCount(),
		RunsTotal:    total,
		Duration:     result.Duration.String(),
		ReportPath:   reportPath,
	}
}

// AppendToHistory adds an entry to the historical log stored
// at historyPath. Each entry is a single JSON line.
func AppendToHistory(
	historyPath string,
	result *evaluator.Result,
	reportPath string,
) error {
	data, err := json.Marshal(NewHistoricalEntry(result, reportPath))
	if err != nil {
		return fmt.Errorf(
			"failed to marshal history entry: %w", err,
		)
	}

	if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
		return fmt.Errorf(
			"failed to create history directory: %w", err,
		)
	}
	file, err := os.OpenFile(
		historyPath,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}

// ReadHistory loads every entry of a history log. A missing
// file yields no entries.
func ReadHistory(historyPath string) ([]HistoricalEntry, error) {
	file, err := os.Open(historyPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(
			"failed to open history file: %w", err,
		)
	}
	defer func() { _ = file.Close() }()

	var entries []HistoricalEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e HistoricalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return entries, fmt.Errorf(
				"history line %d: %w", line, err,
			)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
