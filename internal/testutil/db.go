package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mka1601/courtmatch/internal/catalog"
	"github.com/mka1601/courtmatch/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedCourt inserts a court supporting both team sizes.
func SeedCourt(t *testing.T, database *db.DB, name string) db.Court {
	t.Helper()

	court, err := database.Queries.CreateCourt(context.Background(), db.CreateCourtParams{
		Name:          name,
		Slug:          name,
		SupportsFive:  true,
		SupportsSeven: true,
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}

// SeedHourlyPrices sets the same hourly price for every slot of a team size.
func SeedHourlyPrices(t *testing.T, database *db.DB, courtID, teamSize, price int64) {
	t.Helper()

	for i := int64(0); i < catalog.SlotCount; i++ {
		err := database.Queries.SetHourlyPrice(context.Background(), db.SetHourlyPriceParams{
			CourtID:   courtID,
			TeamSize:  teamSize,
			SlotIndex: i,
			Price:     price,
		})
		if err != nil {
			t.Fatalf("seed hourly price for slot %d: %v", i, err)
		}
	}
}

// SeedSaturdayPrice sets the flat Saturday price for a team size.
func SeedSaturdayPrice(t *testing.T, database *db.DB, courtID, teamSize, price int64) {
	t.Helper()

	err := database.Queries.SetSaturdayPrice(context.Background(), db.SetSaturdayPriceParams{
		CourtID:  courtID,
		TeamSize: teamSize,
		Price:    price,
	})
	if err != nil {
		t.Fatalf("seed saturday price: %v", err)
	}
}
