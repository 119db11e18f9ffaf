package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_RecordEvaluation(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordEvaluation("c", "completed", 7.5, 2*time.Second)
	m.RecordEvaluation("c", "completed", 10, time.Second)
	m.RecordEvaluation("python", "error", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.evaluations.WithLabelValues("c", "completed"),
	))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.evaluations.WithLabelValues("python", "error"),
	))
	assert.Equal(t, 1, testutil.CollectAndCount(m.scores))
}

func TestPrometheusMetrics_RecordBuild(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordBuild("c", BuildSucceeded, time.Second)
	m.RecordBuild("c", BuildFailed, time.Second)
	m.RecordBuild("python", BuildNotNeeded, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.builds.WithLabelValues("c", BuildSucceeded),
	))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.builds.WithLabelValues("python", BuildNotNeeded),
	))

	count, err := testutil.GatherAndCount(m.Registry(), "progeval_build_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_RecordRun(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordRun(OutcomePass, 10*time.Millisecond)
	m.RecordRun(OutcomePass, 20*time.Millisecond)
	m.RecordRun(OutcomeReject, 5*time.Millisecond)
	m.RecordRun(OutcomeNotRun, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomePass)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeReject)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(OutcomeNotRun)))
}

func TestPrometheusMetrics_ActiveAndTestbed(t *testing.T) {
	m := NewPrometheusMetrics()
	m.SetActiveEvaluations(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.active))

	m.RecordTestbed(7.5, 10)
	m.RecordTestbed(0, 0)
	count, err := testutil.GatherAndCount(m.Registry(), "progeval_testbed_score_ratio")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordRun(OutcomeTimeout, time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(
		string(body), `progeval_run_total{outcome="timeout"} 1`,
	))
}

func TestPrometheusMetrics_SeparateRegistries(t *testing.T) {
	a := NewPrometheusMetrics()
	b := NewPrometheusMetrics()
	a.RecordRun(OutcomePass, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.runs.WithLabelValues(OutcomePass)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.runs.WithLabelValues(OutcomePass)))
}

func TestNoopMetrics(t *testing.T) {
	var m EvaluationMetrics = NoopMetrics{}
	// Should not panic
	m.RecordEvaluation("c", "completed", 1, time.Second)
	m.RecordBuild("c", BuildFailed, time.Second)
	m.RecordRun(OutcomePass, time.Second)
	m.RecordTestbed(1, 2)
	m.SetActiveEvaluations(0)
}
