// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mka1601/courtmatch/internal/api/apiutil"
	"github.com/mka1601/courtmatch/internal/api/authn"
	"github.com/mka1601/courtmatch/internal/booking"
	appdb "github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/email"
	"github.com/mka1601/courtmatch/internal/phone"
)

var (
	engine      *booking.Engine
	emailClient email.Sender
	initOnce    sync.Once
)

const bookingQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
// emailSender may be nil; booking notices are then skipped.
func InitHandlers(e *booking.Engine, emailSender email.Sender) {
	if e == nil {
		return
	}
	initOnce.Do(func() {
		engine = e
		emailClient = emailSender
	})
}

type bookingResponse struct {
	ID           int64  `json:"id"`
	PublicID     string `json:"public_id"`
	CourtID      int64  `json:"court_id"`
	Date         string `json:"date"`
	TeamSize     int64  `json:"team_size"`
	SlotIndex    int64  `json:"slot_index"`
	TeamName     string `json:"team_name"`
	Matchmaking  bool   `json:"matchmaking"`
	Status       string `json:"status"`
	PairedWith   *int64 `json:"paired_with,omitempty"`
	Price        int64  `json:"price"`
	PaymentState string `json:"payment_state"`
}

func newBookingResponse(r *appdb.Reservation) bookingResponse {
	resp := bookingResponse{
		ID:           r.ID,
		PublicID:     r.PublicID,
		CourtID:      r.CourtID,
		Date:         r.BookingDate,
		TeamSize:     r.TeamSize,
		SlotIndex:    r.SlotIndex,
		TeamName:     r.TeamName,
		Matchmaking:  r.IsMatchmaking,
		Status:       r.Status,
		Price:        r.Price,
		PaymentState: r.PaymentState,
	}
	if r.PairedWith.Valid {
		value := r.PairedWith.Int64
		resp.PairedWith = &value
	}
	return resp
}

type createBookingRequest struct {
	CourtID      int64  `json:"court_id"`
	Date         string `json:"date"`
	TeamSize     int64  `json:"team_size"`
	SlotIndex    int64  `json:"slot_index"`
	Matchmaking  bool   `json:"matchmaking"`
	TeamName     string `json:"team_name"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	requester, ok := authn.RequireRequester(w, r)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	date, err := validateCreateRequest(&req)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	created, err := e.Create(ctx, booking.CreateRequest{
		CourtID:      req.CourtID,
		Date:         date,
		TeamSize:     req.TeamSize,
		SlotIndex:    req.SlotIndex,
		Matchmaking:  req.Matchmaking,
		RequesterID:  requester.ID,
		TeamName:     req.TeamName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	if created.Status == booking.StatusConfirmed {
		email.SendBookingConfirmation(emailClient, *created, logger)
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, newBookingResponse(created)); err != nil {
		logger.Error().Err(err).Int64("reservation_id", created.ID).Msg("Failed to write booking response")
	}
}

type joinRequest struct {
	TeamName     string `json:"team_name"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

type joinResponse struct {
	Reservation bookingResponse `json:"reservation"`
	Opponent    bookingResponse `json:"opponent"`
}

// POST /api/v1/bookings/{id}/join
func HandleBookingJoin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	requester, ok := authn.RequireRequester(w, r)
	if !ok {
		return
	}

	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	var req joinRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}
	req.TeamName = strings.TrimSpace(req.TeamName)
	if req.TeamName == "" {
		apiutil.WriteFieldError(w, r, apiutil.FieldError{Field: "team_name", Reason: "is required"})
		return
	}
	if req.ContactPhone, err = normalizeContactPhone(req.ContactPhone); err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	host, joiner, err := e.Join(ctx, reservationID, booking.JoinRequest{
		RequesterID:  requester.ID,
		TeamName:     req.TeamName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	email.SendMatchFoundNotice(emailClient, *host, joiner.TeamName, logger)
	email.SendMatchFoundNotice(emailClient, *joiner, host.TeamName, logger)

	if err := apiutil.WriteJSON(w, http.StatusOK, joinResponse{
		Reservation: newBookingResponse(joiner),
		Opponent:    newBookingResponse(host),
	}); err != nil {
		logger.Error().Err(err).Int64("reservation_id", joiner.ID).Msg("Failed to write join response")
	}
}

// POST /api/v1/bookings/{id}/open-match
func HandleBookingOpenMatch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	requester, ok := authn.RequireRequester(w, r)
	if !ok {
		return
	}

	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	opened, err := e.OpenForMatch(ctx, reservationID, requester.ID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newBookingResponse(opened)); err != nil {
		logger.Error().Err(err).Int64("reservation_id", opened.ID).Msg("Failed to write open-match response")
	}
}

// PUT /api/v1/bookings/{id}/cancel
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	requester, ok := authn.RequireRequester(w, r)
	if !ok {
		return
	}

	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	cancelled, err := e.Cancel(ctx, reservationID, requester.ID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	email.SendCancellationNotice(emailClient, *cancelled, logger)

	if err := apiutil.WriteJSON(w, http.StatusOK, newBookingResponse(cancelled)); err != nil {
		logger.Error().Err(err).Int64("reservation_id", cancelled.ID).Msg("Failed to write cancel response")
	}
}

type paymentRequest struct {
	State string `json:"state"`
}

// POST /api/v1/bookings/{id}/payment — payment collaborator callback.
func HandleBookingPayment(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	var req paymentRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	updated, err := e.SetPaymentState(ctx, reservationID, req.State)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newBookingResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("reservation_id", updated.ID).Msg("Failed to write payment response")
	}
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	e := engine
	if e == nil {
		logger.Error().Msg("Booking engine not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	reservationID, err := reservationIDFromRequest(r)
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	reservation, err := e.Get(ctx, reservationID)
	if err != nil {
		apiutil.WriteEngineError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, newBookingResponse(reservation)); err != nil {
		logger.Error().Err(err).Int64("reservation_id", reservation.ID).Msg("Failed to write booking response")
	}
}

func validateCreateRequest(req *createBookingRequest) (time.Time, error) {
	req.TeamName = strings.TrimSpace(req.TeamName)
	switch {
	case req.CourtID <= 0:
		return time.Time{}, apiutil.FieldError{Field: "court_id", Reason: "must be a positive integer"}
	case req.TeamSize != 5 && req.TeamSize != 7:
		return time.Time{}, apiutil.FieldError{Field: "team_size", Reason: "must be 5 or 7"}
	case req.SlotIndex < 0 || req.SlotIndex > 14:
		return time.Time{}, apiutil.FieldError{Field: "slot_index", Reason: "must be between 0 and 14"}
	case req.TeamName == "":
		return time.Time{}, apiutil.FieldError{Field: "team_name", Reason: "is required"}
	}

	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.Date), time.Local)
	if err != nil {
		return time.Time{}, apiutil.FieldError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}

	req.ContactPhone, err = normalizeContactPhone(req.ContactPhone)
	if err != nil {
		return time.Time{}, err
	}

	return date, nil
}

func normalizeContactPhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	normalized := phone.NormalizePhone(raw)
	if normalized == "" {
		return "", apiutil.FieldError{Field: "contact_phone", Reason: "must be a valid phone number"}
	}
	return normalized, nil
}

func reservationIDFromRequest(r *http.Request) (int64, error) {
	pathID := strings.TrimSpace(r.PathValue("id"))
	if pathID == "" {
		return 0, apiutil.FieldError{Field: "id", Reason: "is required"}
	}
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil || id <= 0 {
		return 0, apiutil.FieldError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}
