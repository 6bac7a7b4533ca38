// Package metrics exposes Prometheus counters for the booking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine counters. A nil *Metrics is valid and records
// nothing, so callers never have to guard instrumentation sites.
type Metrics struct {
	reservationsCreated   *prometheus.CounterVec
	slotConflicts         prometheus.Counter
	matchesFormed         prometheus.Counter
	reservationsCancelled prometheus.Counter
	cancellationsDenied   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reservationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtmatch_reservations_created_total",
			Help: "Reservations created, by kind (direct or matchmaking).",
		}, []string{"kind"}),
		slotConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_slot_conflicts_total",
			Help: "Booking attempts rejected because the slot was held.",
		}),
		matchesFormed: factory.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_matches_formed_total",
			Help: "Matchmaking pairs formed.",
		}),
		reservationsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_reservations_cancelled_total",
			Help: "Reservations cancelled by their owner.",
		}),
		cancellationsDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "courtmatch_cancellations_denied_total",
			Help: "Cancellation attempts denied by policy.",
		}),
	}
}

func (m *Metrics) ReservationCreated(kind string) {
	if m == nil {
		return
	}
	m.reservationsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) SlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *Metrics) MatchFormed() {
	if m == nil {
		return
	}
	m.matchesFormed.Inc()
}

func (m *Metrics) ReservationCancelled() {
	if m == nil {
		return
	}
	m.reservationsCancelled.Inc()
}

func (m *Metrics) CancellationDenied() {
	if m == nil {
		return
	}
	m.cancellationsDenied.Inc()
}
