// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mka1601/courtmatch/internal/api"
	"github.com/mka1601/courtmatch/internal/api/authn"
	"github.com/mka1601/courtmatch/internal/api/availability"
	"github.com/mka1601/courtmatch/internal/api/bookings"
	"github.com/mka1601/courtmatch/internal/booking"
	"github.com/mka1601/courtmatch/internal/config"
	"github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/email"
	"github.com/mka1601/courtmatch/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, engine *booking.Engine, emailClient email.Sender) *http.Server {
	authn.InitClerk(cfg.App.ClerkSecretKey)
	availability.InitHandlers(database)
	bookings.InitHandlers(engine, emailClient)

	router := http.NewServeMux()
	registerRoutes(router, cfg, ratelimit.New(nil))

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		authn.Middleware,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, limiter *ratelimit.Limiter) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Features.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailability)

	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/payment", bookings.HandleBookingPayment)

	// Player-driven writes go through the rate limiter.
	limited := func(h http.HandlerFunc) http.Handler {
		return limiter.Middleware(h)
	}
	mux.Handle("POST /api/v1/bookings", limited(bookings.HandleBookingCreate))
	mux.Handle("POST /api/v1/bookings/{id}/join", limited(bookings.HandleBookingJoin))
	mux.Handle("POST /api/v1/bookings/{id}/open-match", limited(bookings.HandleBookingOpenMatch))
	mux.Handle("PUT /api/v1/bookings/{id}/cancel", limited(bookings.HandleBookingCancel))
}
