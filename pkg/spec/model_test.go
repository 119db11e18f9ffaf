package spec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.progeval/pkg/assertion"
)

func testbedOf(n int, mode ScoringMode) *Testbed {
	return &Testbed{
		MaxScore: 10,
		Scoring:  mode,
		Runs:     make([]TestRun, n),
	}
}

func TestTestbed_AwardedScore(t *testing.T) {
	tests := []struct {
		name     string
		mode     ScoringMode
		runs     int
		passed   int
		expected float64
	}{
		{"proportional partial", Proportional, 4, 3, 7.5},
		{"proportional none", Proportional, 4, 0, 0},
		{"proportional all", Proportional, 4, 4, 10},
		{"all-or-nothing partial", AllOrNothing, 4, 3, 0},
		{"all-or-nothing all", AllOrNothing, 4, 4, 10},
		{"no runs", Proportional, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := testbedOf(tt.runs, tt.mode)
			assert.InDelta(t, tt.expected, tb.AwardedScore(tt.passed), 1e-9)
		})
	}
}

func TestErrorPolicy(t *testing.T) {
	assert.False(t, PolicyContinue.StopsTestbed())
	assert.True(t, PolicySkip.StopsTestbed())
	assert.True(t, PolicyAbort.StopsTestbed())
	assert.False(t, PolicyHalt.StopsTestbed())

	assert.False(t, PolicyContinue.StopsEvaluation())
	assert.False(t, PolicySkip.StopsEvaluation())
	assert.True(t, PolicyAbort.StopsEvaluation())
	assert.True(t, PolicyHalt.StopsEvaluation())
}

func TestTestRun_Checks(t *testing.T) {
	r := &TestRun{
		Stdout:   assertion.MustParse("42"),
		ExitCode: assertion.MustParse("0"),
	}

	checks := r.Checks("42", "warn", 3)
	require.Len(t, checks, 3)
	assert.Equal(t, ChannelStdout, checks[0].Target)
	assert.Equal(t, ChannelStderr, checks[1].Target)
	assert.Nil(t, checks[1].Assertion)
	assert.Equal(t, ChannelExitCode, checks[2].Target)
	assert.Equal(t, "3", checks[2].Value)
}

func TestSpecification_MaxScore(t *testing.T) {
	s := &Specification{
		Language:   LanguageC,
		BuildScore: 5,
		Testbeds:   []Testbed{{MaxScore: 10}, {MaxScore: 2.5}},
	}
	assert.Equal(t, 17.5, s.MaxScore())
}

func TestSpecificationError(t *testing.T) {
	cause := errors.New("boom")
	err := &SpecificationError{Path: "build.score", Message: "bad", Err: cause}

	assert.Equal(t, "invalid specification: build.score: bad: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &SpecificationError{Err: cause}
	assert.Equal(t, "invalid specification: boom", bare.Error())
}
