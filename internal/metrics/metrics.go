package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSucceeded        = "succeeded"
	OutcomeValidationFailed = "validation_failed"
	OutcomeTransportFailed  = "transport_failed"

	EffectCartClear    = "cart_clear"
	EffectLoyalty      = "loyalty_award"
	EffectJournal      = "journal"
	EffectLoyaltyDedup = "loyalty_ledger"
)

type CheckoutMetrics struct {
	Transitions       *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	SubmitLatencyMS   prometheus.Histogram
	SideEffectErrors  *prometheus.CounterVec
	SessionsAbandoned prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "transitions_total",
			Help:      "Checkout state machine transitions.",
		}, []string{"from", "to"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "order_submissions_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		SubmitLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "order_submit_duration_ms",
			Help:      "Order service call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		SideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "side_effect_errors_total",
			Help:      "Best-effort side effects that failed and were swallowed.",
		}, []string{"effect"}),
		SessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "sessions_abandoned_total",
			Help:      "Checkout sessions abandoned before completion.",
		}),
	}
	reg.MustRegister(m.Transitions, m.Submissions, m.SubmitLatencyMS, m.SideEffectErrors, m.SessionsAbandoned)
	return m
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
