package monitor

import (
	"time"

	"digital.vasic.progeval/pkg/report"
)

// EventType represents the type of evaluation event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventReport   EventType = "report"
	EventFinished EventType = "finished"
)

// EvaluationEvent is a lifecycle or report event of one
// evaluation.
type EvaluationEvent struct {
	Type         EventType     `json:"type"`
	EvaluationID string        `json:"evaluation_id"`
	Source       string        `json:"source,omitempty"`
	Status       string        `json:"status,omitempty"`
	Report       *report.Event `json:"report,omitempty"`
	Score        float64       `json:"score,omitempty"`
	MaxScore     float64       `json:"max_score,omitempty"`
	Message      string        `json:"message,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
