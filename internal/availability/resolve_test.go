package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mka1601/courtmatch/internal/booking"
	"github.com/mka1601/courtmatch/internal/catalog"
	"github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/testutil"
)

func TestResolveStatuses(t *testing.T) {
	database := testutil.NewTestDB(t)
	court := testutil.SeedCourt(t, database, "east-court")
	testutil.SeedHourlyPrices(t, database, court.ID, 5, 40000)

	ctx := context.Background()
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local)

	seedReservation(t, database, court.ID, "2026-03-10", 5, booking.StatusConfirmed, "Blockers", false)
	seedReservation(t, database, court.ID, "2026-03-10", 8, booking.StatusFindingTeam, "Seekers", true)
	seedReservation(t, database, court.ID, "2026-03-10", 10, booking.StatusCancelled, "Quitters", false)

	// 09:30 local: slots 0-3 have started or passed.
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.Local)

	views, err := Resolve(ctx, database.Queries, court.ID, date, 5, now)
	require.NoError(t, err)
	require.Len(t, views, catalog.SlotCount)

	assert.Equal(t, StatusPast, views[0].Status)
	assert.Equal(t, StatusPast, views[3].Status)
	assert.Equal(t, StatusAvailable, views[4].Status)

	assert.Equal(t, StatusBooked, views[5].Status)
	assert.Empty(t, views[5].TeamName)

	assert.Equal(t, StatusFindingTeam, views[8].Status)
	assert.Equal(t, "Seekers", views[8].TeamName)

	// A cancelled reservation does not occupy its slot.
	assert.Equal(t, StatusAvailable, views[10].Status)

	for _, view := range views {
		require.NotNil(t, view.Price, "slot %d should carry a price", view.SlotIndex)
		assert.Equal(t, int64(40000), *view.Price)
	}
}

func TestResolvePastWinsOverOccupants(t *testing.T) {
	database := testutil.NewTestDB(t)
	court := testutil.SeedCourt(t, database, "east-court")
	testutil.SeedHourlyPrices(t, database, court.ID, 5, 40000)

	seedReservation(t, database, court.ID, "2026-03-10", 2, booking.StatusConfirmed, "Early Birds", false)

	// End of day: even booked slots read as past.
	now := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.Local)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local)

	views, err := Resolve(context.Background(), database.Queries, court.ID, date, 5, now)
	require.NoError(t, err)
	for _, view := range views {
		assert.Equal(t, StatusPast, view.Status, "slot %d", view.SlotIndex)
	}
}

func TestResolveOtherTeamSizeInvisible(t *testing.T) {
	database := testutil.NewTestDB(t)
	court := testutil.SeedCourt(t, database, "east-court")
	testutil.SeedHourlyPrices(t, database, court.ID, 5, 40000)
	testutil.SeedHourlyPrices(t, database, court.ID, 7, 55000)

	seedReservation(t, database, court.ID, "2026-03-10", 5, booking.StatusConfirmed, "Fives", false)

	now := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.Local)
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local)

	views, err := Resolve(context.Background(), database.Queries, court.ID, date, 7, now)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, views[5].Status)
}

func seedReservation(t *testing.T, database *db.DB, courtID int64, date string, slotIndex int64, status, teamName string, matchmaking bool) {
	t.Helper()
	_, err := database.Queries.CreateReservation(context.Background(), db.CreateReservationParams{
		PublicID:      teamName + "-" + date,
		CourtID:       courtID,
		BookingDate:   date,
		TeamSize:      5,
		SlotIndex:     slotIndex,
		Side:          0,
		RequesterID:   teamName,
		TeamName:      teamName,
		IsMatchmaking: matchmaking,
		Status:        status,
		Price:         40000,
		PaymentState:  booking.PaymentPending,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
}
