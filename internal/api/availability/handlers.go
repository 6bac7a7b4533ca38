// internal/api/availability/handlers.go
package availability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	avail "github.com/mka1601/courtmatch/internal/availability"
	"github.com/mka1601/courtmatch/internal/api/apiutil"
	appdb "github.com/mka1601/courtmatch/internal/db"
)

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

const availabilityQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
	})
}

// GET /api/v1/availability?court_id=...&date=...&team_size=...
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	courtID, err := parsePositiveInt64(r.URL.Query().Get("court_id"), "court_id")
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}
	teamSize, err := parsePositiveInt64(r.URL.Query().Get("team_size"), "team_size")
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		apiutil.WriteFieldError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), availabilityQueryTimeout)
	defer cancel()

	views, err := avail.Resolve(ctx, q, courtID, date, teamSize, time.Now())
	if err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to resolve availability")
		http.Error(w, "Failed to resolve availability", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, views); err != nil {
		logger.Error().Err(err).Int64("court_id", courtID).Msg("Failed to write availability response")
	}
}

func parsePositiveInt64(raw, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apiutil.FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, apiutil.FieldError{Field: field, Reason: "must be a positive integer"}
	}
	return value, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apiutil.FieldError{Field: "date", Reason: "is required"}
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, apiutil.FieldError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
	}
	return date, nil
}
