package observability

import (
	"guardvault/core/events"
)

// EventMetrics is an events.Emitter that feeds engine transitions into the
// prometheus counters, so every wired emitter sees the same stream.
type EventMetrics struct {
	metrics *Metrics
	next    events.Emitter
}

// NewEventMetrics wraps an optional downstream emitter with metric recording.
func NewEventMetrics(m *Metrics, next events.Emitter) *EventMetrics {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &EventMetrics{metrics: m, next: next}
}

// Emit implements events.Emitter.
func (e *EventMetrics) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	if e.metrics != nil {
		switch evt.EventType() {
		case events.TypeWithdrawalAuthorized:
			e.metrics.Authorizations.WithLabelValues("ok").Inc()
		case events.TypeWithdrawalExecuted:
			e.metrics.Withdrawals.WithLabelValues("executed").Inc()
			if executed, ok := evt.(events.WithdrawalExecuted); ok && executed.QueueID != 0 {
				e.metrics.QueuedPending.Dec()
			}
		case events.TypeWithdrawalQueued:
			e.metrics.Withdrawals.WithLabelValues("queued").Inc()
			e.metrics.QueuedPending.Inc()
		case events.TypeWithdrawalCancelled:
			e.metrics.Withdrawals.WithLabelValues("cancelled").Inc()
			e.metrics.QueuedPending.Dec()
		case events.TypeVaultFrozen:
			e.metrics.FrozenVaults.Inc()
		case events.TypeVaultUnfrozen:
			e.metrics.FrozenVaults.Dec()
		case events.TypeSessionSpend:
			e.metrics.SessionSpends.WithLabelValues("ok").Inc()
		}
	}
	e.next.Emit(evt)
}
