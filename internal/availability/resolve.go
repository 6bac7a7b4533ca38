// Package availability computes the display state of every catalog slot for a
// court day. It is a pure read: callers re-resolve after any ledger mutation,
// push events only signal that a re-resolve is due.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/mka1601/courtmatch/internal/booking"
	"github.com/mka1601/courtmatch/internal/catalog"
	"github.com/mka1601/courtmatch/internal/db"
)

// Slot display states, in precedence order.
const (
	StatusPast        = "past"
	StatusBooked      = "booked"
	StatusFindingTeam = "finding_team"
	StatusAvailable   = "available"
)

// SlotView is the resolved state of one catalog slot. TeamName is set only
// for finding_team slots, so a second team can decide to join. Price is nil
// when the catalog has no price for the combination.
type SlotView struct {
	SlotIndex int64  `json:"slot_index"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Status    string `json:"status"`
	TeamName  string `json:"occupant_team_name,omitempty"`
	Price     *int64 `json:"price,omitempty"`
}

// Resolve computes the status of every catalog slot for (court, date, team
// size) as of now. Precedence per slot: past, then booked, then
// finding_team, then available.
func Resolve(ctx context.Context, q *db.Queries, courtID int64, date time.Time, teamSize int64, now time.Time) ([]SlotView, error) {
	reservations, err := q.ListActiveReservationsForDay(ctx, db.DayParams{
		CourtID:     courtID,
		BookingDate: date.Format("2006-01-02"),
		TeamSize:    teamSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	occupants := make(map[int64][]db.Reservation, len(reservations))
	for _, r := range reservations {
		occupants[r.SlotIndex] = append(occupants[r.SlotIndex], r)
	}

	views := make([]SlotView, 0, catalog.SlotCount)
	for _, slot := range catalog.Slots() {
		view := SlotView{
			SlotIndex: slot.Index,
			StartHour: slot.StartHour,
			EndHour:   slot.EndHour,
		}

		price, priced, err := catalog.PriceFor(ctx, q, courtID, teamSize, date, slot.Index)
		if err != nil {
			return nil, err
		}
		if priced {
			view.Price = &price
		}

		view.Status, view.TeamName = slotStatus(occupants[slot.Index], catalog.SlotStart(date, slot.Index), now)
		views = append(views, view)
	}
	return views, nil
}

func slotStatus(occupants []db.Reservation, start, now time.Time) (status, teamName string) {
	if !start.After(now) {
		return StatusPast, ""
	}
	for _, r := range occupants {
		if r.Status == booking.StatusConfirmed {
			// Direct booking or half of a confirmed pair.
			return StatusBooked, ""
		}
	}
	for _, r := range occupants {
		if r.Status == booking.StatusFindingTeam {
			return StatusFindingTeam, r.TeamName
		}
	}
	return StatusAvailable, ""
}
