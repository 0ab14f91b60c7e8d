package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedCountsHitsAndMisses(t *testing.T) {
	m := New(nil)

	m.Resolved("class", 3)
	m.Resolved("class", 0)
	m.Resolved("predicate", 6)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("class", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("class", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("predicate", "hit")))
}

func TestQuestionOutcomes(t *testing.T) {
	m := New(nil)

	m.Question(OutcomeAnswered)
	m.Question(OutcomeNoAnswer)
	m.Question(OutcomeNoAnswer)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.questions.WithLabelValues(OutcomeNoAnswer)))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Question(OutcomeAnswered)
	m.Stage("analyse", 5*time.Millisecond)
	m.Resolved("pivot", 1)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Resolved("class", 1)
		m.Question(OutcomeError)
		m.Stage("build", time.Second)
	})
}
