package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for API-key quotas.
type Metrics struct {
	Checks         *prometheus.CounterVec
	StoreErrors    prometheus.Counter
	FallbackActive prometheus.Gauge
	BreakerChanges *prometheus.CounterVec
}

// New registers the rate limit metrics with reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_ratelimit_checks_total",
			Help: "Quota checks by tier and outcome",
		}, []string{"tier", "outcome"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "creditrisk_ratelimit_store_errors_total",
			Help: "Errors returned by the primary bucket store",
		}),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "creditrisk_ratelimit_fallback_active",
			Help: "1 while quotas are counted in memory because the primary store is failing",
		}),
		BreakerChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "creditrisk_ratelimit_breaker_transitions_total",
			Help: "Circuit breaker transitions by new state",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncrementCheck(tier, outcome string) {
	if m == nil {
		return
	}
	m.Checks.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetFallbackActive(active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	m.FallbackActive.Set(v)
}

func (m *Metrics) IncrementBreakerChange(state string) {
	if m == nil {
		return
	}
	m.BreakerChanges.WithLabelValues(state).Inc()
}
