package summary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"digital.vasic.progeval/pkg/evaluator"
)

// ClassSummary aggregates the evaluations of a batch of
// submissions graded against one specification.
type ClassSummary struct {
	ID           string              `json:"id"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Spec         string              `json:"spec"`
	Submissions  []SubmissionSummary `json:"submissions"`
	Total        int                 `json:"total"`
	FullScore    int                 `json:"full_score"`
	BuildFailed  int                 `json:"build_failed"`
	Errors       int                 `json:"errors"`
	MaxScore     float64             `json:"max_score"`
	AverageScore float64             `json:"average_score"`
	MedianScore  float64             `json:"median_score"`
	TotalTime    time.Duration       `json:"total_duration"`
}

// SubmissionSummary is one row of a ClassSummary.
type SubmissionSummary struct {
	Source     string        `json:"source"`
	Author     string        `json:"author"`
	SHA1       string        `json:"sha1"`
	Status     string        `json:"status"`
	Score      float64       `json:"score"`
	MaxScore   float64       `json:"max_score"`
	RunsPassed int           `json:"runs_passed"`
	RunsTotal  int           `json:"runs_total"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// BuildClassSummary creates a class summary from evaluation
// results. Submissions are listed by descending score, then by
// source name.
func BuildClassSummary(
	specPath string,
	results []*evaluator.Result,
) *ClassSummary {
	now := time.Now()
	summary := &ClassSummary{
		ID: fmt.Sprintf(
			"summary_%s", now.Format("20060102_150405"),
		),
		GeneratedAt: now,
		Spec:        specPath,
		Submissions: make([]SubmissionSummary, 0, len(results)),
	}

	scores := make([]float64, 0, len(results))
	for _, r := range results {
		entry := NewHistoricalEntry(r, "")
		s := SubmissionSummary{
			Source:     r.Header.SourceFile,
			Author:     r.Header.Author,
			SHA1:       r.Header.SHA1,
			Status:     string(r.Status),
			Score:      r.TotalScore,
			MaxScore:   r.MaxScore,
			RunsPassed: entry.RunsPassed,
			RunsTotal:  entry.RunsTotal,
			Duration:   r.Duration,
			Error:      r.Error,
		}
		if s.Source == "" {
			s.Source = filepath.Base(r.Source)
		}

		summary.Submissions = append(summary.Submissions, s)
		summary.Total++
		summary.TotalTime += r.Duration
		if r.MaxScore > summary.MaxScore {
			summary.MaxScore = r.MaxScore
		}
		switch r.Status {
		case evaluator.StatusBuildFailed:
			summary.BuildFailed++
		case evaluator.StatusError:
			summary.Errors++
		}
		if r.MaxScore > 0 && r.TotalScore >= r.MaxScore {
			summary.FullScore++
		}
		scores = append(scores, r.TotalScore)
	}

	sort.SliceStable(summary.Submissions, func(i, j int) bool {
		a, b := summary.Submissions[i], summary.Submissions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Source < b.Source
	})

	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		summary.AverageScore = sum / float64(len(scores))

		sort.Float64s(scores)
		mid := len(scores) / 2
		if len(scores)%2 == 1 {
			summary.MedianScore = scores[mid]
		} else {
			summary.MedianScore = (scores[mid-1] + scores[mid]) / 2
		}
	}

	return summary
}

// SaveClassSummary saves the summary to both JSON and Markdown
// files in outputDir and points latest_summary.* at them.
func SaveClassSummary(
	summary *ClassSummary,
	outputDir string,
) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	ts := summary.GeneratedAt.Format("20060102_150405")

	jsonPath := filepath.Join(
		outputDir, fmt.Sprintf("class_summary_%s.json", ts),
	)
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"failed to marshal summary: %w", err,
		)
	}
	if err := os.WriteFile(jsonPath, jsonData, 0644); err != nil {
		return fmt.Errorf(
			"failed to write JSON summary: %w", err,
		)
	}

	mdPath := filepath.Join(
		outputDir, fmt.Sprintf("class_summary_%s.md", ts),
	)
	md := GenerateMarkdown(summary)
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		return fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")

	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)

	return nil
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GenerateMarkdown renders a class summary as Markdown.
func GenerateMarkdown(summary *ClassSummary) string {
	var sb strings.Builder

	sb.WriteString("# Class Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Summary ID:** %s\n\n", summary.ID))
	if summary.Spec != "" {
		sb.WriteString(fmt.Sprintf(
			"**Specification:** %s\n\n", filepath.Base(summary.Spec),
		))
	}
	sb.WriteString(fmt.Sprintf(
		"**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339),
	))

	sb.WriteString("## Submissions\n\n")
	sb.WriteString("| Source | Author | Status | Score | Runs |\n")
	sb.WriteString("|--------|--------|--------|-------|------|\n")
	for _, s := range summary.Submissions {
		sb.WriteString(fmt.Sprintf(
			"| %s | %s | %s | %s/%s | %d/%d |\n",
			s.Source, s.Author, strings.ToUpper(s.Status),
			score(s.Score), score(s.MaxScore),
			s.RunsPassed, s.RunsTotal,
		))
	}

	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Submissions | %d |\n", summary.Total))
	sb.WriteString(fmt.Sprintf("| Full Score | %d |\n", summary.FullScore))
	sb.WriteString(fmt.Sprintf("| Build Failed | %d |\n", summary.BuildFailed))
	sb.WriteString(fmt.Sprintf("| Errors | %d |\n", summary.Errors))
	sb.WriteString(fmt.Sprintf(
		"| Average Score | %.2f |\n", summary.AverageScore,
	))
	sb.WriteString(fmt.Sprintf(
		"| Median Score | %s |\n", score(summary.MedianScore),
	))
	sb.WriteString(fmt.Sprintf(
		"| Total Duration | %v |\n", summary.TotalTime,
	))

	sb.WriteString("\n---\n\n")
	sb.WriteString("*Generated by progeval*\n")

	return sb.String()
}
