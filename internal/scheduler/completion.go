package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mka1601/courtmatch/internal/booking"
)

// Cron expression for the reservation completion sweep.
const CompletionSweepCron = "*/10 * * * *"

const completionSweepTimeout = 30 * time.Second

// SweepCompletedReservations marks active reservations whose slot has ended
// as completed. Running it more than once over the same rows is harmless.
func SweepCompletedReservations(ctx context.Context, engine *booking.Engine) error {
	if engine == nil {
		return fmt.Errorf("completion sweep requires booking engine")
	}

	swept, err := engine.MarkCompleted(ctx)
	if err != nil {
		return fmt.Errorf("sweep completed reservations: %w", err)
	}

	if swept > 0 {
		log.Ctx(ctx).Info().Int64("completed_reservations", swept).Msg("Swept ended reservations")
	}
	return nil
}

// RegisterCompletionSweep wires the completion sweep onto the singleton
// scheduler. Init must have been called first.
func RegisterCompletionSweep(engine *booking.Engine) error {
	_, err := AddJob("reservation-completion-sweep", CompletionSweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), completionSweepTimeout)
		defer cancel()
		if err := SweepCompletedReservations(ctx, engine); err != nil {
			log.Error().Err(err).Msg("Reservation completion sweep failed")
		}
	})
	return err
}
