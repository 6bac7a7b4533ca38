// Package booking is the reservation ledger and matchmaking coordinator: it
// owns every mutation of slot state and the policy windows around them.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/mka1601/courtmatch/internal/catalog"
	"github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/events"
	"github.com/mka1601/courtmatch/internal/metrics"
)

// Reservation lifecycle states.
const (
	StatusFindingTeam = "finding_team"
	StatusConfirmed   = "confirmed"
	StatusCancelled   = "cancelled"
	StatusCompleted   = "completed"
)

// Payment states. Payment is orthogonal to slot state: a confirmed
// reservation occupies its slot regardless of payment completion.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

const (
	// A direct booking may be cancelled only this far before its start.
	minCancelLead = time.Hour
	// A direct booking may be opened for an opponent only this far before
	// its start.
	minMatchmakingLead = 2 * time.Hour

	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Clock abstracts time for testing time-dependent policy windows.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine serializes all mutations of a SlotKey through short transactions and
// broadcasts state transitions after commit. It holds no session state; the
// requester identity is passed into every call.
type Engine struct {
	db          *db.DB
	broadcaster events.Broadcaster
	metrics     *metrics.Metrics
	clock       Clock
}

type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMetrics attaches engine counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(database *db.DB, broadcaster events.Broadcaster, opts ...Option) (*Engine, error) {
	if database == nil {
		return nil, errors.New("booking engine requires a database")
	}
	if broadcaster == nil {
		broadcaster = events.Noop{}
	}
	e := &Engine{
		db:          database,
		broadcaster: broadcaster,
		clock:       realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CreateRequest is a booking attempt for one slot.
type CreateRequest struct {
	CourtID      int64
	Date         time.Time
	TeamSize     int64
	SlotIndex    int64
	Matchmaking  bool
	RequesterID  string
	TeamName     string
	ContactPhone string
	ContactEmail string
}

// Create books a slot. The free-check and insert run in one transaction, so
// two concurrent requests for the same SlotKey cannot both succeed; the loser
// gets ErrSlotConflict. A matchmaking booking starts in finding_team, a
// direct booking in confirmed with payment pending.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*db.Reservation, error) {
	if !catalog.ValidSlotIndex(req.SlotIndex) {
		return nil, ErrInvalidSlotIndex
	}
	court, err := e.db.Queries.GetCourt(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "load court", Err: err}
	}
	if !teamSizeSupported(court, req.TeamSize) {
		return nil, ErrUnsupportedTeamSize
	}

	now := e.clock.Now()
	start := catalog.SlotStart(req.Date, req.SlotIndex)
	if !start.After(now) {
		return nil, ErrStaleSlot
	}

	price, priced, err := catalog.PriceFor(ctx, e.db.Queries, req.CourtID, req.TeamSize, req.Date, req.SlotIndex)
	if err != nil {
		return nil, &StorageError{Op: "resolve price", Err: err}
	}
	if !priced {
		return nil, ErrPricingUnavailable
	}

	status := StatusConfirmed
	if req.Matchmaking {
		status = StatusFindingTeam
	}
	bookingDate := req.Date.Format(dateLayout)

	var created db.Reservation
	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		occupants, err := txdb.Queries.ListActiveReservationsForSlot(ctx, db.SlotKeyParams{
			CourtID:     req.CourtID,
			BookingDate: bookingDate,
			TeamSize:    req.TeamSize,
			SlotIndex:   req.SlotIndex,
		})
		if err != nil {
			return &StorageError{Op: "check slot occupancy", Err: err}
		}
		if len(occupants) > 0 {
			return ErrSlotConflict
		}

		created, err = txdb.Queries.CreateReservation(ctx, db.CreateReservationParams{
			PublicID:      uuid.NewString(),
			CourtID:       req.CourtID,
			BookingDate:   bookingDate,
			TeamSize:      req.TeamSize,
			SlotIndex:     req.SlotIndex,
			Side:          0,
			RequesterID:   req.RequesterID,
			TeamName:      strings.TrimSpace(req.TeamName),
			ContactPhone:  toNullString(req.ContactPhone),
			ContactEmail:  toNullString(req.ContactEmail),
			IsMatchmaking: req.Matchmaking,
			Status:        status,
			Price:         price,
			PaymentState:  PaymentPending,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return ErrSlotConflict
			}
			return &StorageError{Op: "insert reservation", Err: err}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			e.metrics.SlotConflict()
		}
		return nil, err
	}

	kind := "direct"
	if req.Matchmaking {
		kind = "matchmaking"
	}
	e.metrics.ReservationCreated(kind)
	e.broadcastSlotChange(ctx, created)

	return &created, nil
}

// JoinRequest is a second team's attempt to join an open reservation.
type JoinRequest struct {
	RequesterID  string
	TeamName     string
	ContactPhone string
	ContactEmail string
}

// Join pairs a finding_team reservation with a second team. The status is
// re-checked inside the transaction that creates the joiner and confirms
// both rows, so of two simultaneous joins exactly one wins; the loser gets
// ErrPairingRaceLost. This is the only path that puts two active
// reservations on one SlotKey.
func (e *Engine) Join(ctx context.Context, reservationID int64, req JoinRequest) (host, joiner *db.Reservation, err error) {
	now := e.clock.Now()

	var hostRow, joinerRow db.Reservation
	err = e.db.RunInTx(ctx, func(txdb *db.DB) error {
		target, err := txdb.Queries.GetReservationByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return &StorageError{Op: "load reservation", Err: err}
		}
		if target.RequesterID == req.RequesterID {
			return ErrSelfJoin
		}
		if target.Status != StatusFindingTeam {
			if target.Status == StatusConfirmed && target.PairedWith.Valid {
				return ErrPairingRaceLost
			}
			return ErrSlotConflict
		}

		start, err := slotStartOf(target)
		if err != nil {
			return &StorageError{Op: "parse booking date", Err: err}
		}
		if !start.After(now) {
			return ErrStaleSlot
		}

		joinerRow, err = txdb.Queries.CreateReservation(ctx, db.CreateReservationParams{
			PublicID:      uuid.NewString(),
			CourtID:       target.CourtID,
			BookingDate:   target.BookingDate,
			TeamSize:      target.TeamSize,
			SlotIndex:     target.SlotIndex,
			Side:          1,
			RequesterID:   req.RequesterID,
			TeamName:      strings.TrimSpace(req.TeamName),
			ContactPhone:  toNullString(req.ContactPhone),
			ContactEmail:  toNullString(req.ContactEmail),
			IsMatchmaking: true,
			Status:        StatusConfirmed,
			PairedWith:    sql.NullInt64{Int64: target.ID, Valid: true},
			Price:         target.Price,
			PaymentState:  PaymentPending,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return ErrPairingRaceLost
			}
			return &StorageError{Op: "insert joining reservation", Err: err}
		}

		hostRow, err = txdb.Queries.PairReservation(ctx, db.PairReservationParams{
			ID:         target.ID,
			PairedWith: joinerRow.ID,
			Status:     StatusConfirmed,
		})
		if err != nil {
			return &StorageError{Op: "confirm pairing", Err: err}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			e.metrics.SlotConflict()
		}
		return nil, nil, err
	}

	e.metrics.MatchFormed()
	e.broadcastSlotChange(ctx, hostRow)
	e.broadcastMatchFound(ctx, hostRow, joinerRow)

	return &hostRow, &joinerRow, nil
}

// Cancel transitions a reservation to cancelled, freeing its slot. A paired
// reservation is never cancellable. A direct booking is cancellable only
// more than an hour before its start; an unpaired finding_team booking is
// cancellable any time. Only the owner may cancel.
func (e *Engine) Cancel(ctx context.Context, reservationID int64, requesterID string) (*db.Reservation, error) {
	now := e.clock.Now()

	var cancelled db.Reservation
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		target, err := txdb.Queries.GetReservationByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return &StorageError{Op: "load reservation", Err: err}
		}
		if target.RequesterID != requesterID {
			return ErrCancellationDenied
		}
		if target.PairedWith.Valid {
			// A formed match is immutable; this protects the opponent.
			return ErrCancellationDenied
		}

		switch target.Status {
		case StatusFindingTeam:
			// Cancellable any time before a partner joins.
		case StatusConfirmed:
			start, err := slotStartOf(target)
			if err != nil {
				return &StorageError{Op: "parse booking date", Err: err}
			}
			if start.Sub(now) <= minCancelLead {
				return ErrCancellationDenied
			}
		default:
			return ErrCancellationDenied
		}

		cancelled, err = txdb.Queries.UpdateReservationStatus(ctx, db.UpdateReservationStatusParams{
			ID:     target.ID,
			Status: StatusCancelled,
		})
		if err != nil {
			return &StorageError{Op: "cancel reservation", Err: err}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCancellationDenied) {
			e.metrics.CancellationDenied()
		}
		return nil, err
	}

	e.metrics.ReservationCancelled()
	e.broadcastSlotChange(ctx, cancelled)
	if err := e.broadcaster.BookingCancelled(ctx, events.BookingCancelled{ReservationID: cancelled.ID}); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("reservation_id", cancelled.ID).Msg("Failed to broadcast cancellation")
	}

	return &cancelled, nil
}

// OpenForMatch reopens a direct booking as seeking an opponent. Allowed only
// for the owner, on an unpaired confirmed booking that starts at least two
// hours from now.
func (e *Engine) OpenForMatch(ctx context.Context, reservationID int64, requesterID string) (*db.Reservation, error) {
	now := e.clock.Now()

	var opened db.Reservation
	err := e.db.RunInTx(ctx, func(txdb *db.DB) error {
		target, err := txdb.Queries.GetReservationByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return &StorageError{Op: "load reservation", Err: err}
		}
		if target.RequesterID != requesterID {
			return ErrCancellationDenied
		}
		if target.Status != StatusConfirmed || target.PairedWith.Valid || target.IsMatchmaking {
			return ErrCancellationDenied
		}

		start, err := slotStartOf(target)
		if err != nil {
			return &StorageError{Op: "parse booking date", Err: err}
		}
		if start.Sub(now) < minMatchmakingLead {
			return ErrMatchmakingWindowClosed
		}

		opened, err = txdb.Queries.MarkReservationMatchmaking(ctx, target.ID)
		if err != nil {
			return &StorageError{Op: "open reservation for matchmaking", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.broadcastSlotChange(ctx, opened)
	return &opened, nil
}

// SetPaymentState records the payment collaborator's verdict. Slot state is
// untouched: a confirmed reservation holds its slot whether or not payment
// has completed.
func (e *Engine) SetPaymentState(ctx context.Context, reservationID int64, state string) (*db.Reservation, error) {
	switch state {
	case PaymentPending, PaymentPaid, PaymentFailed:
	default:
		return nil, ErrInvalidPaymentState
	}

	updated, err := e.db.Queries.UpdatePaymentState(ctx, db.UpdatePaymentStateParams{
		ID:           reservationID,
		PaymentState: state,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "update payment state", Err: err}
	}
	return &updated, nil
}

// MarkCompleted sweeps every active reservation whose slot has ended into the
// completed state. Purely informational housekeeping.
func (e *Engine) MarkCompleted(ctx context.Context) (int64, error) {
	count, err := e.db.Queries.CompletePastReservations(ctx, e.clock.Now().Format(datetimeLayout))
	if err != nil {
		return 0, &StorageError{Op: "complete past reservations", Err: err}
	}
	if count > 0 {
		log.Ctx(ctx).Info().Int64("count", count).Msg("Marked past reservations completed")
	}
	return count, nil
}

// Get returns a reservation by id.
func (e *Engine) Get(ctx context.Context, reservationID int64) (*db.Reservation, error) {
	r, err := e.db.Queries.GetReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "load reservation", Err: err}
	}
	return &r, nil
}

func (e *Engine) broadcastSlotChange(ctx context.Context, r db.Reservation) {
	err := e.broadcaster.SlotStateChanged(ctx, events.SlotStateChanged{
		CourtID:     r.CourtID,
		BookingDate: r.BookingDate,
		TeamSize:    r.TeamSize,
		SlotIndex:   r.SlotIndex,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Int64("court_id", r.CourtID).
			Str("booking_date", r.BookingDate).
			Int64("slot_index", r.SlotIndex).
			Msg("Failed to broadcast slot state change")
	}
}

func (e *Engine) broadcastMatchFound(ctx context.Context, host, joiner db.Reservation) {
	logger := log.Ctx(ctx)
	if err := e.broadcaster.MatchFound(ctx, events.MatchFound{
		ReservationID: host.ID,
		OpponentName:  joiner.TeamName,
	}); err != nil {
		logger.Error().Err(err).Int64("reservation_id", host.ID).Msg("Failed to broadcast match found")
	}
	if err := e.broadcaster.MatchFound(ctx, events.MatchFound{
		ReservationID: joiner.ID,
		OpponentName:  host.TeamName,
	}); err != nil {
		logger.Error().Err(err).Int64("reservation_id", joiner.ID).Msg("Failed to broadcast match found")
	}
}

func slotStartOf(r db.Reservation) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, r.BookingDate, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return catalog.SlotStart(date, r.SlotIndex), nil
}

func teamSizeSupported(court db.Court, teamSize int64) bool {
	switch teamSize {
	case 5:
		return court.SupportsFive
	case 7:
		return court.SupportsSeven
	default:
		return false
	}
}

func toNullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
