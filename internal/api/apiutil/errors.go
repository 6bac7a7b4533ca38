package apiutil

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mka1601/courtmatch/internal/booking"
)

// errorBody carries a machine-readable code alongside the message so clients
// can tell a lost slot (refresh availability) apart from bad input (fix the
// form field).
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteEngineError translates a booking engine error into an HTTP response.
// Order matters: wrapped sentinels (pairing race, matchmaking window) are
// matched before their parents.
func WriteEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, booking.ErrPairingRaceLost):
		status, code = http.StatusConflict, "pairing_race_lost"
	case errors.Is(err, booking.ErrSlotConflict):
		status, code = http.StatusConflict, "slot_conflict"
	case errors.Is(err, booking.ErrMatchmakingWindowClosed):
		status, code = http.StatusForbidden, "matchmaking_window_closed"
	case errors.Is(err, booking.ErrCancellationDenied):
		status, code = http.StatusForbidden, "cancellation_denied"
	case errors.Is(err, booking.ErrStaleSlot):
		status, code = http.StatusUnprocessableEntity, "stale_slot"
	case errors.Is(err, booking.ErrPricingUnavailable):
		status, code = http.StatusUnprocessableEntity, "pricing_unavailable"
	case errors.Is(err, booking.ErrSelfJoin):
		status, code = http.StatusBadRequest, "self_join"
	case errors.Is(err, booking.ErrUnsupportedTeamSize):
		status, code = http.StatusBadRequest, "unsupported_team_size"
	case errors.Is(err, booking.ErrInvalidSlotIndex):
		status, code = http.StatusBadRequest, "invalid_slot_index"
	case errors.Is(err, booking.ErrInvalidPaymentState):
		status, code = http.StatusBadRequest, "invalid_payment_state"
	case errors.Is(err, booking.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Booking engine failure")
		if writeErr := WriteJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal error",
			Code:  "storage_error",
		}); writeErr != nil {
			log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
		}
		return
	}

	if writeErr := WriteJSON(w, status, errorBody{Error: err.Error(), Code: code}); writeErr != nil {
		log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// WriteFieldError reports an input-validation failure distinguishably from
// slot-state conflicts.
func WriteFieldError(w http.ResponseWriter, r *http.Request, err error) {
	if writeErr := WriteJSON(w, http.StatusBadRequest, errorBody{
		Error: err.Error(),
		Code:  "invalid_field",
	}); writeErr != nil {
		log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
	}
}
