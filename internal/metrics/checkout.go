// Package metrics holds the Prometheus collectors for the checkout flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// CheckoutMetrics records checkout results. A nil *CheckoutMetrics is valid
// and records nothing.
type CheckoutMetrics struct {
	requests   *prometheus.CounterVec
	duration   prometheus.Histogram
	promotions *prometheus.CounterVec
	retries    prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout requests in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_promotions_applied_total",
		Help: "Promotions applied to committed orders by source.",
	}, []string{"source"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_promotion_retries_total",
		Help: "Checkouts re-resolved after the chosen promotion was exhausted.",
	})

	reg.MustRegister(requests, duration, promotions, retries)

	return &CheckoutMetrics{
		requests:   requests,
		duration:   duration,
		promotions: promotions,
		retries:    retries,
	}
}

// Observe records one finished checkout.
func (m *CheckoutMetrics) Observe(outcome string, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncPromotionApplied counts a committed order that carries a promotion.
func (m *CheckoutMetrics) IncPromotionApplied(source string) {
	if m == nil || m.promotions == nil {
		return
	}
	m.promotions.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncRetry counts a re-resolution after promotion exhaustion.
func (m *CheckoutMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
