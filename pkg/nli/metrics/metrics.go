// Package metrics exposes Prometheus collectors for the query pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nli"

// Question outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeNoAnswer = "no_answer"
	OutcomeError    = "error"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	questions   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	candidates  *prometheus.HistogramVec
	stages      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions processed, by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Binding searches run by the resolver, by kind and result.",
		}, []string{"kind", "result"}),
		candidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_candidates",
			Help:      "Candidates returned per binding search.",
			Buckets:   []float64{0, 1, 2, 3, 6, 10, 25, 50},
		}, []string{"kind"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.questions, m.resolutions, m.candidates, m.stages)
	}
	return m
}

// Resolved records one resolver search. It satisfies resolve.Observer.
func (m *Metrics) Resolved(kind string, candidates int) {
	if m == nil {
		return
	}
	result := "hit"
	if candidates == 0 {
		result = "miss"
	}
	m.resolutions.WithLabelValues(kind, result).Inc()
	m.candidates.WithLabelValues(kind).Observe(float64(candidates))
}

// Question records the outcome of one question.
func (m *Metrics) Question(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

// Stage records how long a pipeline stage took.
func (m *Metrics) Stage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}
