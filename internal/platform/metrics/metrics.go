// Package metrics holds the Prometheus instruments shared by the services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"storefront/internal/platform/resilience"
)

// Metrics registers and holds all counters for one process. It implements
// resilience.Notifier so the policy engine reports retries here.
type Metrics struct {
	RetriesTotal         *prometheus.CounterVec
	RetryDelaySeconds    *prometheus.HistogramVec
	BreakerTransitions   *prometheus.CounterVec
	AuthResults          *prometheus.CounterVec
	TokensIssued         prometheus.Counter
	PriceEventsApplied   prometheus.Counter
	PriceEventsStale     prometheus.Counter
	PriceEventsMalformed prometheus.Counter
}

// New creates and registers all metrics against reg. Pass
// prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_retries_total",
			Help: "Total retries scheduled by the policy engine, by resource class.",
		}, []string{"class"}),
		RetryDelaySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_retry_delay_seconds",
			Help:    "Backoff delay chosen for each scheduled retry.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"class"}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_breaker_transitions_total",
			Help: "Circuit breaker state transitions, by resource class and new state.",
		}, []string{"class", "state"}),
		AuthResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_results_total",
			Help: "Authentication middleware outcomes by result.",
		}, []string{"result"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_tokens_issued_total",
			Help: "Total bearer tokens issued by the identity service.",
		}),
		PriceEventsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_price_events_applied_total",
			Help: "Price change events applied to cart line items.",
		}),
		PriceEventsStale: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_price_events_stale_total",
			Help: "Price change events discarded as stale or duplicate.",
		}),
		PriceEventsMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_price_events_malformed_total",
			Help: "Price change payloads that failed to deserialize.",
		}),
	}
}

// OnRetry implements resilience.Notifier.
func (m *Metrics) OnRetry(class resilience.Class, _ int, delay time.Duration) {
	m.RetriesTotal.WithLabelValues(string(class)).Inc()
	m.RetryDelaySeconds.WithLabelValues(string(class)).Observe(delay.Seconds())
}

// OnBreakerTransition implements resilience.BreakerObserver.
func (m *Metrics) OnBreakerTransition(class resilience.Class, state resilience.State) {
	m.BreakerTransitions.WithLabelValues(string(class), state.String()).Inc()
}

// RecordAuthResult increments the auth outcome counter.
func (m *Metrics) RecordAuthResult(result string) {
	m.AuthResults.WithLabelValues(result).Inc()
}

// Price propagation outcomes, reported by the cart event consumer.

func (m *Metrics) PriceEventApplied()   { m.PriceEventsApplied.Inc() }
func (m *Metrics) PriceEventStale()     { m.PriceEventsStale.Inc() }
func (m *Metrics) PriceEventMalformed() { m.PriceEventsMalformed.Inc() }
