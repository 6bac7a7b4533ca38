package bookings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mka1601/courtmatch/internal/api/authn"
	"github.com/mka1601/courtmatch/internal/booking"
	"github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/testutil"
)

var (
	testOnce  sync.Once
	testCourt db.Court
)

// Handler state is package-level, so every test shares one engine and
// court. Tests keep out of each other's way by using distinct slots.
func setupHandlers(t *testing.T) {
	t.Helper()
	testOnce.Do(func() {
		// The DB outlives the first test that runs setup, so it can't
		// live in that test's TempDir (removed at test end).
		dir, err := os.MkdirTemp("", "handlers-db-")
		if err != nil {
			t.Fatalf("create test db dir: %v", err)
		}
		database, err := db.New(dir + "/handlers.db")
		if err != nil {
			t.Fatalf("create test db: %v", err)
		}
		testCourt = testutil.SeedCourt(t, database, "handler-court")
		testutil.SeedHourlyPrices(t, database, testCourt.ID, 5, 40000)
		testutil.SeedHourlyPrices(t, database, testCourt.ID, 7, 55000)

		engine, err := booking.NewEngine(database, nil)
		if err != nil {
			t.Fatalf("create engine: %v", err)
		}
		InitHandlers(engine, nil)
	})
}

func newTestRouter() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/bookings", HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/join", HandleBookingJoin)
	mux.HandleFunc("POST /api/v1/bookings/{id}/open-match", HandleBookingOpenMatch)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/cancel", HandleBookingCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/payment", HandleBookingPayment)
	return authn.Middleware(mux)
}

// A week out, so no slot is ever stale during the test run.
func testDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func doJSON(t *testing.T, router http.Handler, method, path, requesterID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if requesterID != "" {
		req.Header.Set("X-Requester-ID", requesterID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createBody(slotIndex int64, matchmaking bool) map[string]any {
	return map[string]any{
		"court_id":    testCourt.ID,
		"date":        testDate(),
		"team_size":   5,
		"slot_index":  slotIndex,
		"matchmaking": matchmaking,
		"team_name":   fmt.Sprintf("Slot %d Team", slotIndex),
	}
}

func decodeBooking(t *testing.T, w *httptest.ResponseRecorder) bookingResponse {
	t.Helper()
	var resp bookingResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode booking response: %v", err)
	}
	return resp
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Code
}

func TestHandleBookingCreate(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(0, false))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBooking(t, w)
	if created.Status != booking.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", created.Status)
	}
	if created.Price != 40000 {
		t.Errorf("expected price 40000, got %d", created.Price)
	}
	if created.PublicID == "" {
		t.Error("expected a public id")
	}

	// Same slot again conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", "bob", createBody(0, false))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "slot_conflict" {
		t.Errorf("expected slot_conflict, got %s", code)
	}
}

func TestHandleBookingCreateUnauthorized(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "", createBody(1, false))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleBookingCreateValidation(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	body := createBody(2, false)
	body["team_size"] = 6
	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "invalid_field" {
		t.Errorf("expected invalid_field, got %s", code)
	}

	body = createBody(2, false)
	body["team_name"] = "  "
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	body = createBody(2, false)
	body["contact_phone"] = "user@example.com"
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for email in phone field, got %d", w.Code)
	}

	body = createBody(2, false)
	body["unknown_field"] = true
	w = doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", w.Code)
	}
}

func TestHandleBookingCreateStaleSlot(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	body := createBody(3, false)
	body["date"] = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if code := decodeErrorCode(t, w); code != "stale_slot" {
		t.Errorf("expected stale_slot, got %s", code)
	}
}

func TestHandleBookingJoinFlow(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(4, true))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	host := decodeBooking(t, w)
	if host.Status != booking.StatusFindingTeam {
		t.Fatalf("expected finding_team, got %s", host.Status)
	}

	joinPath := fmt.Sprintf("/api/v1/bookings/%d/join", host.ID)
	w = doJSON(t, router, http.MethodPost, joinPath, "bob", map[string]any{"team_name": "Joiners"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var joined joinResponse
	if err := json.NewDecoder(w.Body).Decode(&joined); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	if joined.Reservation.PairedWith == nil || *joined.Reservation.PairedWith != joined.Opponent.ID {
		t.Error("joiner should be paired with the host")
	}
	if joined.Opponent.Status != booking.StatusConfirmed {
		t.Errorf("host should be confirmed, got %s", joined.Opponent.Status)
	}

	// A latecomer loses the race distinguishably.
	w = doJSON(t, router, http.MethodPost, joinPath, "carol", map[string]any{"team_name": "Latecomers"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "pairing_race_lost" {
		t.Errorf("expected pairing_race_lost, got %s", code)
	}

	// And neither half of a formed pair may cancel.
	cancelPath := fmt.Sprintf("/api/v1/bookings/%d/cancel", host.ID)
	w = doJSON(t, router, http.MethodPut, cancelPath, "alice", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "cancellation_denied" {
		t.Errorf("expected cancellation_denied, got %s", code)
	}
}

func TestHandleBookingJoinSelf(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(5, true))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	host := decodeBooking(t, w)

	joinPath := fmt.Sprintf("/api/v1/bookings/%d/join", host.ID)
	w = doJSON(t, router, http.MethodPost, joinPath, "alice", map[string]any{"team_name": "Same Team"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := decodeErrorCode(t, w); code != "self_join" {
		t.Errorf("expected self_join, got %s", code)
	}
}

func TestHandleBookingCancel(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(6, false))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	created := decodeBooking(t, w)

	cancelPath := fmt.Sprintf("/api/v1/bookings/%d/cancel", created.ID)

	// Only the owner may cancel.
	w = doJSON(t, router, http.MethodPut, cancelPath, "mallory", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, cancelPath, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cancelled := decodeBooking(t, w)
	if cancelled.Status != booking.StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestHandleBookingOpenMatch(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(7, false))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	created := decodeBooking(t, w)

	openPath := fmt.Sprintf("/api/v1/bookings/%d/open-match", created.ID)
	w = doJSON(t, router, http.MethodPost, openPath, "alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	opened := decodeBooking(t, w)
	if opened.Status != booking.StatusFindingTeam {
		t.Errorf("expected finding_team, got %s", opened.Status)
	}
	if !opened.Matchmaking {
		t.Error("expected matchmaking flag set")
	}
}

func TestHandleBookingPayment(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(8, false))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	created := decodeBooking(t, w)

	payPath := fmt.Sprintf("/api/v1/bookings/%d/payment", created.ID)
	w = doJSON(t, router, http.MethodPost, payPath, "", map[string]any{"state": "paid"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	paid := decodeBooking(t, w)
	if paid.PaymentState != booking.PaymentPaid {
		t.Errorf("expected paid, got %s", paid.PaymentState)
	}
	if paid.Status != booking.StatusConfirmed {
		t.Errorf("payment must not change status, got %s", paid.Status)
	}

	w = doJSON(t, router, http.MethodPost, payPath, "", map[string]any{"state": "comped"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleBookingGet(t *testing.T) {
	setupHandlers(t)
	router := newTestRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/bookings", "alice", createBody(9, false))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	created := decodeBooking(t, w)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/bookings/999999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
