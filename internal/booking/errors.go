package booking

import (
	"errors"
	"fmt"
)

// The engine never retries and never fails fatally: every error below is a
// recoverable, caller-decidable condition.
var (
	// ErrSlotConflict means the slot is already held by an active reservation.
	ErrSlotConflict = errors.New("slot already held")

	// ErrPairingRaceLost means another team joined the open slot first. It is
	// a slot conflict for callers that only branch on errors.Is(ErrSlotConflict).
	ErrPairingRaceLost = fmt.Errorf("another team joined first: %w", ErrSlotConflict)

	// ErrStaleSlot means the slot's start time is not in the future.
	ErrStaleSlot = errors.New("slot start time already passed")

	// ErrPricingUnavailable means the catalog has no price for the combination.
	ErrPricingUnavailable = errors.New("no price configured for slot")

	// ErrCancellationDenied covers every policy refusal: cancel window passed,
	// actor is not the owner, or the reservation is half of a confirmed pair.
	ErrCancellationDenied = errors.New("cancellation not permitted")

	// ErrMatchmakingWindowClosed means the booking starts too soon to open it
	// for an opponent. Policy refusals share a root for uniform handling.
	ErrMatchmakingWindowClosed = fmt.Errorf("too close to start time to seek an opponent: %w", ErrCancellationDenied)

	// ErrSelfJoin means a team tried to join its own open reservation.
	ErrSelfJoin = errors.New("cannot join your own reservation")

	// ErrUnsupportedTeamSize means the court does not offer the team size.
	ErrUnsupportedTeamSize = errors.New("court does not support team size")

	// ErrInvalidSlotIndex means the slot index is outside the catalog.
	ErrInvalidSlotIndex = errors.New("slot index outside catalog")

	// ErrInvalidPaymentState means the payment collaborator reported an
	// unknown state.
	ErrInvalidPaymentState = errors.New("invalid payment state")

	// ErrNotFound means no reservation (or court) matches the identifier.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps an unexpected failure from the transactional store. The
// operation is guaranteed not-applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
