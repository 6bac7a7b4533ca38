package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mka1601/courtmatch/internal/db"
)

const noticeTimeout = 5 * time.Second

// SendBookingConfirmation mails a booking notice to the reservation's contact
// address, if one is on file. Delivery is asynchronous and best-effort:
// failures are logged, never surfaced to the booking flow.
func SendBookingConfirmation(client Sender, r db.Reservation, logger *zerolog.Logger) {
	subject := "Booking confirmed"
	body := fmt.Sprintf(
		"Your booking for %s, slot %02d:00, is confirmed for team %s. Price: %d.",
		r.BookingDate, 6+r.SlotIndex, r.TeamName, r.Price,
	)
	sendNotice(client, r, subject, body, logger)
}

// SendMatchFoundNotice mails both halves of a freshly formed pair.
func SendMatchFoundNotice(client Sender, r db.Reservation, opponentName string, logger *zerolog.Logger) {
	subject := "Opponent found"
	body := fmt.Sprintf(
		"Team %s has joined your slot on %s at %02d:00. Your match is confirmed.",
		opponentName, r.BookingDate, 6+r.SlotIndex,
	)
	sendNotice(client, r, subject, body, logger)
}

// SendCancellationNotice mails the owner of a cancelled reservation.
func SendCancellationNotice(client Sender, r db.Reservation, logger *zerolog.Logger) {
	subject := "Booking cancelled"
	body := fmt.Sprintf(
		"Your booking for %s at %02d:00 has been cancelled.",
		r.BookingDate, 6+r.SlotIndex,
	)
	sendNotice(client, r, subject, body, logger)
}

func sendNotice(client Sender, r db.Reservation, subject, body string, logger *zerolog.Logger) {
	if client == nil {
		return
	}
	if !r.ContactEmail.Valid || r.ContactEmail.String == "" {
		return
	}
	recipient := r.ContactEmail.String

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), noticeTimeout)
		defer cancel()
		if err := client.Send(sendCtx, recipient, subject, body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", recipient).Msg("Failed to send booking notice")
		}
	}()
}
