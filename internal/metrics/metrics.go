// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the marketplace counters exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	plansCreated       prometheus.Counter
	subscriptionEvents *prometheus.CounterVec
	paymentVolume      *prometheus.CounterVec
	feeVolume          *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry: registry,
		plansCreated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "subpass_plans_created_total",
			Help: "The total number of plans created",
		}),
		subscriptionEvents: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "subpass_subscription_events_total",
			Help: "The total number of subscription events by kind",
		}, []string{"kind"}),
		paymentVolume: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "subpass_payment_volume_base_units",
			Help: "Cumulative payment volume per token, in base units",
		}, []string{"token"}),
		feeVolume: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "subpass_fee_volume_base_units",
			Help: "Cumulative protocol fee volume per token, in base units",
		}, []string{"token"}),
	}
}

func (m *Metrics) IncPlanCreated() {
	m.plansCreated.Inc()
}

func (m *Metrics) IncSubscriptionEvent(kind string) {
	m.subscriptionEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddPaymentVolume(token string, amount, fee int64) {
	m.paymentVolume.WithLabelValues(token).Add(float64(amount))
	m.feeVolume.WithLabelValues(token).Add(float64(fee))
}
