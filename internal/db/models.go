package db

import (
	"database/sql"
	"time"
)

type Court struct {
	ID            int64
	Name          string
	Slug          string
	SupportsFive  bool
	SupportsSeven bool
	Active        bool
	CreatedAt     time.Time
}

// Reservation is a booking row. BookingDate is stored as YYYY-MM-DD in the
// court's local calendar; Side is the slot occupancy lane (0 for the original
// booking, 1 for a matchmaking joiner).
type Reservation struct {
	ID            int64
	PublicID      string
	CourtID       int64
	BookingDate   string
	TeamSize      int64
	SlotIndex     int64
	Side          int64
	RequesterID   string
	TeamName      string
	ContactPhone  sql.NullString
	ContactEmail  sql.NullString
	IsMatchmaking bool
	Status        string
	PairedWith    sql.NullInt64
	Price         int64
	PaymentState  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
