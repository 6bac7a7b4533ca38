// Package catalog enumerates the fixed bookable slots of a court day and
// resolves slot pricing.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mka1601/courtmatch/internal/db"
)

const (
	// SlotCount is the number of bookable hourly intervals per day.
	SlotCount = 15
	// OpeningHour is the local clock hour of the first slot.
	OpeningHour = 6
)

// Slot is one fixed hourly interval. StartHour and EndHour are local clock
// hours (slot 0 runs 06:00-07:00, slot 14 runs 20:00-21:00).
type Slot struct {
	Index     int64
	StartHour int
	EndHour   int
}

// Slots returns the fixed catalog of hourly intervals in order.
func Slots() []Slot {
	slots := make([]Slot, 0, SlotCount)
	for i := 0; i < SlotCount; i++ {
		slots = append(slots, Slot{
			Index:     int64(i),
			StartHour: OpeningHour + i,
			EndHour:   OpeningHour + i + 1,
		})
	}
	return slots
}

// ValidSlotIndex reports whether index selects one of the catalog slots.
func ValidSlotIndex(index int64) bool {
	return index >= 0 && index < SlotCount
}

// SlotStart returns the wall-clock start of a slot on the given day, in the
// day's location.
func SlotStart(date time.Time, index int64) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), OpeningHour+int(index), 0, 0, 0, date.Location())
}

// SlotEnd returns the wall-clock end of a slot on the given day.
func SlotEnd(date time.Time, index int64) time.Time {
	return SlotStart(date, index).Add(time.Hour)
}

// PriceFor resolves the price of a slot for a team size on a date. A flat
// Saturday price overrides the hourly table whenever the date falls on a
// Saturday; the hourly table applies otherwise, including on Saturdays with
// no flat price configured. ok is false when neither price exists; that is a
// catalog gap, not an error — the ledger rejects unpriced bookings at write
// time.
func PriceFor(ctx context.Context, q *db.Queries, courtID, teamSize int64, date time.Time, slotIndex int64) (price int64, ok bool, err error) {
	if date.Weekday() == time.Saturday {
		price, err := q.GetSaturdayPrice(ctx, db.GetSaturdayPriceParams{
			CourtID:  courtID,
			TeamSize: teamSize,
		})
		if err == nil {
			return price, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("resolve saturday price: %w", err)
		}
	}

	price, err = q.GetHourlyPrice(ctx, db.GetHourlyPriceParams{
		CourtID:   courtID,
		TeamSize:  teamSize,
		SlotIndex: slotIndex,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve hourly price: %w", err)
	}
	return price, true, nil
}
