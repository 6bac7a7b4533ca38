package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same query methods work
// inside and outside transactions.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const courtColumns = `id, name, slug, supports_five, supports_seven, active, created_at`

func scanCourt(row interface{ Scan(...any) error }) (Court, error) {
	var c Court
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&c.SupportsFive,
		&c.SupportsSeven,
		&c.Active,
		&c.CreatedAt,
	)
	return c, err
}

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+courtColumns+` FROM courts WHERE id = ?`, id)
	return scanCourt(row)
}

func (q *Queries) ListCourts(ctx context.Context) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+courtColumns+` FROM courts WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

type CreateCourtParams struct {
	Name          string
	Slug          string
	SupportsFive  bool
	SupportsSeven bool
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO courts (name, slug, supports_five, supports_seven)
		 VALUES (?, ?, ?, ?)
		 RETURNING `+courtColumns,
		arg.Name, arg.Slug, arg.SupportsFive, arg.SupportsSeven)
	return scanCourt(row)
}

type SetHourlyPriceParams struct {
	CourtID   int64
	TeamSize  int64
	SlotIndex int64
	Price     int64
}

func (q *Queries) SetHourlyPrice(ctx context.Context, arg SetHourlyPriceParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO court_prices (court_id, team_size, slot_index, price)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (court_id, team_size, slot_index) DO UPDATE SET price = excluded.price`,
		arg.CourtID, arg.TeamSize, arg.SlotIndex, arg.Price)
	return err
}

type SetSaturdayPriceParams struct {
	CourtID  int64
	TeamSize int64
	Price    int64
}

func (q *Queries) SetSaturdayPrice(ctx context.Context, arg SetSaturdayPriceParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO court_saturday_prices (court_id, team_size, price)
		 VALUES (?, ?, ?)
		 ON CONFLICT (court_id, team_size) DO UPDATE SET price = excluded.price`,
		arg.CourtID, arg.TeamSize, arg.Price)
	return err
}

type GetHourlyPriceParams struct {
	CourtID   int64
	TeamSize  int64
	SlotIndex int64
}

func (q *Queries) GetHourlyPrice(ctx context.Context, arg GetHourlyPriceParams) (int64, error) {
	var price int64
	err := q.db.QueryRowContext(ctx,
		`SELECT price FROM court_prices WHERE court_id = ? AND team_size = ? AND slot_index = ?`,
		arg.CourtID, arg.TeamSize, arg.SlotIndex).Scan(&price)
	return price, err
}

type GetSaturdayPriceParams struct {
	CourtID  int64
	TeamSize int64
}

func (q *Queries) GetSaturdayPrice(ctx context.Context, arg GetSaturdayPriceParams) (int64, error) {
	var price int64
	err := q.db.QueryRowContext(ctx,
		`SELECT price FROM court_saturday_prices WHERE court_id = ? AND team_size = ?`,
		arg.CourtID, arg.TeamSize).Scan(&price)
	return price, err
}

const reservationColumns = `id, public_id, court_id, booking_date, team_size, slot_index, side,
	requester_id, team_name, contact_phone, contact_email, is_matchmaking,
	status, paired_with, price, payment_state, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (Reservation, error) {
	var r Reservation
	err := row.Scan(
		&r.ID,
		&r.PublicID,
		&r.CourtID,
		&r.BookingDate,
		&r.TeamSize,
		&r.SlotIndex,
		&r.Side,
		&r.RequesterID,
		&r.TeamName,
		&r.ContactPhone,
		&r.ContactEmail,
		&r.IsMatchmaking,
		&r.Status,
		&r.PairedWith,
		&r.Price,
		&r.PaymentState,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

type CreateReservationParams struct {
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
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO reservations (
			public_id, court_id, booking_date, team_size, slot_index, side,
			requester_id, team_name, contact_phone, contact_email, is_matchmaking,
			status, paired_with, price, payment_state
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+reservationColumns,
		arg.PublicID, arg.CourtID, arg.BookingDate, arg.TeamSize, arg.SlotIndex, arg.Side,
		arg.RequesterID, arg.TeamName, arg.ContactPhone, arg.ContactEmail, arg.IsMatchmaking,
		arg.Status, arg.PairedWith, arg.Price, arg.PaymentState)
	return scanReservation(row)
}

func (q *Queries) GetReservationByID(ctx context.Context, id int64) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

func (q *Queries) GetReservationByPublicID(ctx context.Context, publicID string) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE public_id = ?`, publicID)
	return scanReservation(row)
}

type SlotKeyParams struct {
	CourtID     int64
	BookingDate string
	TeamSize    int64
	SlotIndex   int64
}

// ListActiveReservationsForSlot returns the reservations currently occupying a
// slot, ordered by side so the original booking comes first.
func (q *Queries) ListActiveReservationsForSlot(ctx context.Context, arg SlotKeyParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE court_id = ? AND booking_date = ? AND team_size = ? AND slot_index = ?
		   AND status IN ('finding_team', 'confirmed')
		 ORDER BY side`,
		arg.CourtID, arg.BookingDate, arg.TeamSize, arg.SlotIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

type DayParams struct {
	CourtID     int64
	BookingDate string
	TeamSize    int64
}

func (q *Queries) ListActiveReservationsForDay(ctx context.Context, arg DayParams) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE court_id = ? AND booking_date = ? AND team_size = ?
		   AND status IN ('finding_team', 'confirmed')
		 ORDER BY slot_index, side`,
		arg.CourtID, arg.BookingDate, arg.TeamSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]Reservation, error) {
	var reservations []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

type UpdateReservationStatusParams struct {
	ID     int64
	Status string
}

func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+reservationColumns,
		arg.Status, arg.ID)
	return scanReservation(row)
}

type PairReservationParams struct {
	ID         int64
	PairedWith int64
	Status     string
}

func (q *Queries) PairReservation(ctx context.Context, arg PairReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE reservations SET status = ?, paired_with = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+reservationColumns,
		arg.Status, arg.PairedWith, arg.ID)
	return scanReservation(row)
}

// MarkReservationMatchmaking reopens a direct booking as seeking an opponent.
func (q *Queries) MarkReservationMatchmaking(ctx context.Context, id int64) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE reservations SET is_matchmaking = 1, status = 'finding_team', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+reservationColumns,
		id)
	return scanReservation(row)
}

type UpdatePaymentStateParams struct {
	ID           int64
	PaymentState string
}

func (q *Queries) UpdatePaymentState(ctx context.Context, arg UpdatePaymentStateParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE reservations SET payment_state = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING `+reservationColumns,
		arg.PaymentState, arg.ID)
	return scanReservation(row)
}

// CompletePastReservations transitions every active reservation whose slot end
// time is at or before now to completed and reports how many rows changed.
// Slot N covers hour 6+N to 7+N local time.
func (q *Queries) CompletePastReservations(ctx context.Context, now string) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`UPDATE reservations SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		 WHERE status IN ('finding_team', 'confirmed')
		   AND datetime(booking_date || printf(' %02d:00:00', slot_index + 7)) <= datetime(?)`,
		now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
