// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mka1601/courtmatch/internal/booking"
	"github.com/mka1601/courtmatch/internal/config"
	"github.com/mka1601/courtmatch/internal/db"
	"github.com/mka1601/courtmatch/internal/email"
	"github.com/mka1601/courtmatch/internal/events"
	"github.com/mka1601/courtmatch/internal/metrics"
	"github.com/mka1601/courtmatch/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.App.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if cfg.Features.EnableDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var broadcaster events.Broadcaster = events.Noop{}
	if cfg.PubSub.ProjectID != "" {
		pubsubBroadcaster, err := events.NewPubSubBroadcaster(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create pub/sub broadcaster")
		}
		defer pubsubBroadcaster.Close()
		broadcaster = pubsubBroadcaster
	} else {
		log.Warn().Msg("No pub/sub project configured, slot events disabled")
	}

	var engineMetrics *metrics.Metrics
	if cfg.Features.EnableMetrics {
		engineMetrics = metrics.New(prometheus.DefaultRegisterer)
	}

	engine, err := booking.NewEngine(database, broadcaster, booking.WithMetrics(engineMetrics))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create booking engine")
	}

	var emailClient email.Sender
	if cfg.Email.Sender != "" {
		sesClient, err := email.NewSESClient(
			cfg.Email.AccessKeyID, cfg.Email.SecretAccessKey, cfg.Email.Region, cfg.Email.Sender)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create email client")
		}
		emailClient = sesClient
	} else {
		log.Warn().Msg("No email sender configured, booking notices disabled")
	}

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterCompletionSweep(engine); err != nil {
		log.Fatal().Err(err).Msg("Failed to register completion sweep")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server := newServer(cfg, database, engine, emailClient)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
