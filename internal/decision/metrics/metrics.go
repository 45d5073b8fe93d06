package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision pipeline.
type Metrics struct {
	// Per-stage latency: encode, score, explain, notice, counterfactual
	StageLatency *prometheus.HistogramVec

	// Decision outcomes by channel and label
	DecisionOutcome *prometheus.CounterVec

	// Risk grades issued
	GradeIssued *prometheus.CounterVec

	// End-to-end assessment latency by channel
	AssessLatency *prometheus.HistogramVec

	// Requests rejected before scoring, by reason
	Rejected *prometheus.CounterVec

	// Explanation strategy fallbacks and outright failures
	ExplainFallback    *prometheus.CounterVec
	ExplainUnavailable prometheus.Counter

	BatchSize prometheus.Histogram
}

// New registers the decision metrics with reg. A nil reg leaves them
// unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditrisk_decision_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"stage"}),

		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_decision_outcomes_total",
			Help: "Total decision outcomes by channel and decision",
		}, []string{"channel", "decision"}),

		GradeIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_decision_grades_total",
			Help: "Total risk grades issued",
		}, []string{"grade"}),

		AssessLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "creditrisk_decision_assess_duration_seconds",
			Help:    "Duration of a full assessment including explanation and notice",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"channel"}),

		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_decision_rejected_total",
			Help: "Applications rejected before a decision was made",
		}, []string{"reason"}),

		ExplainFallback: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_decision_explain_fallback_total",
			Help: "Explanations served by the fallback strategy",
		}, []string{"from", "to"}),

		ExplainUnavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "creditrisk_decision_explain_unavailable_total",
			Help: "Decisions returned without any explanation",
		}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditrisk_decision_batch_size",
			Help:    "Number of applications per batch request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementOutcome records a decision and the grade it carried.
func (m *Metrics) IncrementOutcome(channel, decision, grade string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(channel, decision).Inc()
		m.GradeIssued.WithLabelValues(grade).Inc()
	}
}

// ObserveAssessLatency records the total assessment duration.
func (m *Metrics) ObserveAssessLatency(channel string, d time.Duration) {
	if m != nil {
		m.AssessLatency.WithLabelValues(channel).Observe(d.Seconds())
	}
}

// IncrementRejected records an application that never reached the policy.
func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.Rejected.WithLabelValues(reason).Inc()
	}
}

// IncrementExplainFallback records a switch from one strategy to another.
func (m *Metrics) IncrementExplainFallback(from, to string) {
	if m != nil {
		m.ExplainFallback.WithLabelValues(from, to).Inc()
	}
}

// IncrementExplainUnavailable records a decision served without attributions.
func (m *Metrics) IncrementExplainUnavailable() {
	if m != nil {
		m.ExplainUnavailable.Inc()
	}
}

// ObserveBatchSize records the size of a batch request.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
