// Package events is the push-notification side of the engine. Broadcasts fire
// after a ledger transaction commits and are freshness hints only: viewers
// re-resolve availability, they never trust event payloads as state.
package events

import "context"

// Topic names, relative to the configured prefix.
const (
	TopicSlotStateChanged = "slot-state-changed"
	TopicMatchFound       = "match-found"
	TopicBookingCancelled = "booking-cancelled"
)

// SlotStateChanged tells viewers of a court/date that a slot transitioned and
// availability should be re-read.
type SlotStateChanged struct {
	CourtID     int64  `msgpack:"court_id"`
	BookingDate string `msgpack:"booking_date"`
	TeamSize    int64  `msgpack:"team_size"`
	SlotIndex   int64  `msgpack:"slot_index"`
}

// MatchFound is delivered to both halves of a freshly formed pair.
type MatchFound struct {
	ReservationID int64  `msgpack:"reservation_id"`
	OpponentName  string `msgpack:"opponent_name"`
}

// BookingCancelled is delivered to the owner of a cancelled reservation.
type BookingCancelled struct {
	ReservationID int64 `msgpack:"reservation_id"`
}

// Broadcaster delivers push events with an at-least-once contract. Delivery
// failures are logged by implementations, never surfaced to the booking flow.
type Broadcaster interface {
	SlotStateChanged(ctx context.Context, event SlotStateChanged) error
	MatchFound(ctx context.Context, event MatchFound) error
	BookingCancelled(ctx context.Context, event BookingCancelled) error
}

// Noop discards all events. Used when no transport is configured.
type Noop struct{}

func (Noop) SlotStateChanged(context.Context, SlotStateChanged) error { return nil }
func (Noop) MatchFound(context.Context, MatchFound) error             { return nil }
func (Noop) BookingCancelled(context.Context, BookingCancelled) error { return nil }
