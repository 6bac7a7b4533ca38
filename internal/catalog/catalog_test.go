package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mka1601/courtmatch/internal/db"
)

func TestSlots(t *testing.T) {
	slots := Slots()
	if len(slots) != SlotCount {
		t.Fatalf("expected %d slots, got %d", SlotCount, len(slots))
	}
	if slots[0].StartHour != 6 || slots[0].EndHour != 7 {
		t.Errorf("slot 0 should run 06:00-07:00, got %d:00-%d:00", slots[0].StartHour, slots[0].EndHour)
	}
	last := slots[len(slots)-1]
	if last.StartHour != 20 || last.EndHour != 21 {
		t.Errorf("last slot should run 20:00-21:00, got %d:00-%d:00", last.StartHour, last.EndHour)
	}
	for i, slot := range slots {
		if slot.Index != int64(i) {
			t.Errorf("slot at position %d has index %d", i, slot.Index)
		}
		if slot.EndHour != slot.StartHour+1 {
			t.Errorf("slot %d is not one hour long", i)
		}
	}
}

func TestValidSlotIndex(t *testing.T) {
	tests := []struct {
		index int64
		want  bool
	}{
		{-1, false},
		{0, true},
		{7, true},
		{14, true},
		{15, false},
		{100, false},
	}
	for _, tt := range tests {
		if got := ValidSlotIndex(tt.index); got != tt.want {
			t.Errorf("ValidSlotIndex(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestSlotStart(t *testing.T) {
	date := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local)

	start := SlotStart(date, 0)
	if start.Hour() != 6 {
		t.Errorf("slot 0 should start at 06:00, got %02d:00", start.Hour())
	}

	start = SlotStart(date, 14)
	if start.Hour() != 20 {
		t.Errorf("slot 14 should start at 20:00, got %02d:00", start.Hour())
	}
	if end := SlotEnd(date, 14); end.Hour() != 21 {
		t.Errorf("slot 14 should end at 21:00, got %02d:00", end.Hour())
	}
}

// Pricing tests live here rather than in a db test because PriceFor holds the
// Saturday-override rule.
func TestPriceFor(t *testing.T) {
	database := newPricingDB(t)
	ctx := context.Background()

	court := seedCourt(t, database)
	seedHourly(t, database, court.ID, 5, 3, 40000)
	seedSaturday(t, database, court.ID, 5, 90000)

	// 2026-03-11 is a Wednesday, 2026-03-14 a Saturday.
	weekday := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.Local)
	saturday := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.Local)

	price, ok, err := PriceFor(ctx, database.Queries, court.ID, 5, weekday, 3)
	if err != nil || !ok {
		t.Fatalf("weekday price: ok=%v err=%v", ok, err)
	}
	if price != 40000 {
		t.Errorf("weekday price = %d, want 40000", price)
	}

	price, ok, err = PriceFor(ctx, database.Queries, court.ID, 5, saturday, 3)
	if err != nil || !ok {
		t.Fatalf("saturday price: ok=%v err=%v", ok, err)
	}
	if price != 90000 {
		t.Errorf("saturday flat price = %d, want 90000 (hourly must not apply on saturdays)", price)
	}

	// Saturday with no flat price configured falls back to the hourly table.
	seedHourly(t, database, court.ID, 7, 3, 55000)
	price, ok, err = PriceFor(ctx, database.Queries, court.ID, 7, saturday, 3)
	if err != nil || !ok {
		t.Fatalf("saturday fallback price: ok=%v err=%v", ok, err)
	}
	if price != 55000 {
		t.Errorf("saturday fallback price = %d, want 55000", price)
	}

	// No price configured at all is a gap, not an error.
	_, ok, err = PriceFor(ctx, database.Queries, court.ID, 5, weekday, 9)
	if err != nil {
		t.Fatalf("unpriced slot: %v", err)
	}
	if ok {
		t.Error("unpriced slot reported as priced")
	}
}

// Local copies of the testutil seed helpers; testutil imports this package.

func newPricingDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seedCourt(t *testing.T, database *db.DB) db.Court {
	t.Helper()
	court, err := database.Queries.CreateCourt(context.Background(), db.CreateCourtParams{
		Name:          "Center Court",
		Slug:          "center-court",
		SupportsFive:  true,
		SupportsSeven: true,
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return court
}

func seedHourly(t *testing.T, database *db.DB, courtID, teamSize, slotIndex, price int64) {
	t.Helper()
	err := database.Queries.SetHourlyPrice(context.Background(), db.SetHourlyPriceParams{
		CourtID:   courtID,
		TeamSize:  teamSize,
		SlotIndex: slotIndex,
		Price:     price,
	})
	if err != nil {
		t.Fatalf("seed hourly price: %v", err)
	}
}

func seedSaturday(t *testing.T, database *db.DB, courtID, teamSize, price int64) {
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
