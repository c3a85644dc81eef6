package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine-level counters exposed on /metrics.
type Metrics struct {
	Authorizations *prometheus.CounterVec
	Withdrawals    *prometheus.CounterVec
	SessionSpends  *prometheus.CounterVec
	FrozenVaults   prometheus.Gauge
	QueuedPending  prometheus.Gauge
}

// NewMetrics registers the vault metrics against the registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Authorizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardvault",
			Name:      "authorizations_total",
			Help:      "Withdrawal authorization attempts by outcome.",
		}, []string{"outcome"}),
		Withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardvault",
			Name:      "withdrawals_total",
			Help:      "Settled and queued withdrawals by path.",
		}, []string{"path"}),
		SessionSpends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guardvault",
			Name:      "session_spends_total",
			Help:      "Spending session draws by outcome.",
		}, []string{"outcome"}),
		FrozenVaults: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardvault",
			Name:      "frozen_vaults",
			Help:      "Vaults currently halted by the emergency freeze ballot.",
		}),
		QueuedPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "guardvault",
			Name:      "queued_withdrawals_pending",
			Help:      "Time-locked withdrawals not yet executed or cancelled.",
		}),
	}
}
