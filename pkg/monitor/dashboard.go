package monitor

import (
	"sync"
	"time"

	"digital.vasic.progeval/pkg/evaluator"
	"digital.vasic.progeval/pkg/report"
)

// Evaluation states shown on the dashboard besides the
// evaluator's own statuses.
const (
	StateRunning = "running"
)

// DashboardData holds the real-time state of the evaluations of
// one progeval process.
type DashboardData struct {
	mu          sync.RWMutex
	runID       string
	startTime   time.Time
	status      string
	evaluations map[string]EvaluationState
	order       []string
}

// DashboardSnapshot is a point-in-time copy of DashboardData.
type DashboardSnapshot struct {
	RunID       string                     `json:"run_id"`
	StartTime   time.Time                  `json:"start_time"`
	Status      string                     `json:"status"`
	Evaluations map[string]EvaluationState `json:"evaluations"`
	Order       []string                   `json:"order"`
	Summary     DashboardSummary           `json:"summary"`
}

// EvaluationState is the current state of one evaluation.
type EvaluationState struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Status   string `json:"status"`
	Section  string `json:"section,omitempty"`
	LastLine string `json:"last_line,omitempty"`
	Rejected int    `json:"rejected"`

	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`

	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Total        int     `json:"total"`
	Running      int     `json:"running"`
	Completed    int     `json:"completed"`
	BuildFailed  int     `json:"build_failed"`
	Errors       int     `json:"errors"`
	FullScore    int     `json:"full_score"`
	AverageScore float64 `json:"average_score"`
	Elapsed      string  `json:"elapsed"`
}

// NewDashboardData creates a new dashboard data instance.
func NewDashboardData(runID string) *DashboardData {
	return &DashboardData{
		runID:       runID,
		startTime:   time.Now(),
		status:      StateRunning,
		evaluations: make(map[string]EvaluationState),
	}
}

// UpdateFromEvent updates dashboard state from an evaluation
// event.
func (d *DashboardData) UpdateFromEvent(event EvaluationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	state, exists := d.evaluations[event.EvaluationID]
	if !exists {
		state = EvaluationState{ID: event.EvaluationID, Status: StateRunning}
		d.order = append(d.order, event.EvaluationID)
	}
	if event.Source != "" {
		state.Source = event.Source
	}

	switch event.Type {
	case EventStarted:
		state.Status = StateRunning
		state.StartTime = &ts
		state.MaxScore = event.MaxScore
	case EventReport:
		if event.Report != nil {
			applyReport(&state, *event.Report)
		}
	case EventFinished:
		state.Status = event.Status
		state.EndTime = &ts
		state.Duration = event.Duration
		state.Score = event.Score
		state.MaxScore = event.MaxScore
		state.Message = event.Message
	}

	d.evaluations[event.EvaluationID] = state
}

func applyReport(state *EvaluationState, ev report.Event) {
	switch ev.Kind {
	case report.KindSection:
		state.Section = ev.Text
	case report.KindSubsection:
		state.Section = ev.Text
	case report.KindLine:
		state.LastLine = ev.Text
		if ev.Color == report.ColorReject {
			state.Rejected++
		}
	case report.KindError:
		state.Message = ev.Text
	}
}

func (d *DashboardData) summary() DashboardSummary {
	s := DashboardSummary{}
	var scored float64
	for _, ev := range d.evaluations {
		s.Total++
		switch evaluator.Status(ev.Status) {
		case evaluator.StatusCompleted:
			s.Completed++
		case evaluator.StatusBuildFailed:
			s.BuildFailed++
		case evaluator.StatusError:
			s.Errors++
		default:
			s.Running++
			continue
		}
		scored += ev.Score
		if ev.MaxScore > 0 && ev.Score >= ev.MaxScore {
			s.FullScore++
		}
	}
	if done := s.Total - s.Running; done > 0 {
		s.AverageScore = scored / float64(done)
	}
	s.Elapsed = time.Since(d.startTime).Round(time.Millisecond).String()
	return s
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() DashboardSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := DashboardSnapshot{
		RunID:       d.runID,
		StartTime:   d.startTime,
		Status:      d.status,
		Evaluations: make(map[string]EvaluationState, len(d.evaluations)),
		Order:       append([]string(nil), d.order...),
		Summary:     d.summary(),
	}
	for k, v := range d.evaluations {
		snap.Evaluations[k] = v
	}
	return snap
}

// SetStatus sets the overall run status.
func (d *DashboardData) SetStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// BuildDashboardData creates a DashboardData from an
// EventCollector by replaying all collected events.
func BuildDashboardData(
	collector *EventCollector,
) *DashboardData {
	data := NewDashboardData("snapshot")
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
