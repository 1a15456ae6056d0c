package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
	OutcomeSkipped = "skipped"
)

// EngineMetrics records pricing and order activity of the shopping engine.
// A nil receiver, or one built without a registerer, records nothing.
type EngineMetrics struct {
	pricingDuration *prometheus.HistogramVec
	pricingOutcomes *prometheus.CounterVec
	debounceResets  prometheus.Counter
	orderOutcomes   *prometheus.CounterVec
	orderDuration   prometheus.Histogram
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	pricingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_request_duration_seconds",
		Help:    "Duration of pricing requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	pricingOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_results_total",
		Help: "Pricing results by outcome, including stale discards.",
	}, []string{"outcome"})
	debounceResets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_debounce_resets_total",
		Help: "Selection changes that restarted a pending debounce window.",
	})
	orderOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by outcome and response shape.",
	}, []string{"outcome", "shape"})
	orderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submission_duration_seconds",
		Help:    "Duration of order submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(pricingDuration, pricingOutcomes, debounceResets, orderOutcomes, orderDuration)
	return &EngineMetrics{
		pricingDuration: pricingDuration,
		pricingOutcomes: pricingOutcomes,
		debounceResets:  debounceResets,
		orderOutcomes:   orderOutcomes,
		orderDuration:   orderDuration,
	}
}

// ObservePricing records one pricing result and, when known, how long the request took.
func (m *EngineMetrics) ObservePricing(outcome string, duration time.Duration) {
	if m == nil || m.pricingOutcomes == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.pricingOutcomes.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.pricingDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}

// IncDebounceReset counts a restarted debounce window.
func (m *EngineMetrics) IncDebounceReset() {
	if m == nil || m.debounceResets == nil {
		return
	}
	m.debounceResets.Inc()
}

// ObserveOrder records one order submission.
func (m *EngineMetrics) ObserveOrder(outcome, shape string, duration time.Duration) {
	if m == nil || m.orderOutcomes == nil {
		return
	}
	m.orderOutcomes.WithLabelValues(normalizeLabel(outcome), normalizeLabel(shape)).Inc()
	if duration > 0 {
		m.orderDuration.Observe(duration.Seconds())
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
