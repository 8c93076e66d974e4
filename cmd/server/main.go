package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackattr/internal/delivery"
	"trackattr/internal/domain"
	"trackattr/internal/infrastructure"
	"trackattr/internal/usecase"
	"trackattr/pkg/config"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	m := metrics.New()

	var (
		touchpoints  domain.TouchpointStore
		attributions domain.AttributionStore
	)
	if cfg.Storage.SQLitePath != "" {
		store, err := infrastructure.OpenSQLiteStore(cfg.Storage.SQLitePath, cfg.Attribution.ExtendedWindow, log)
		if err != nil {
			log.WithError(err).Error("Failed to open sqlite store")
			os.Exit(1)
		}
		defer store.Close()
		touchpoints = store
		attributions = store
		log.WithField("path", cfg.Storage.SQLitePath).Info("Using sqlite storage")
	} else {
		touchpoints = infrastructure.NewTouchpointStore(cfg.Attribution.ExtendedWindow, log)
		attributions = infrastructure.NewAttributionStore(log)
		log.Info("Using in-memory storage")
	}

	credentials := infrastructure.NewEnvCredentialStore(
		cfg.Platforms.FacebookToken,
		cfg.Platforms.GoogleToken,
		cfg.Platforms.SquareToken,
		cfg.Platforms.StripeToken,
	)

	platformClient := infrastructure.NewHTTPClient(infrastructure.Endpoints{
		Facebook:             cfg.Platforms.FacebookAPIURL,
		Google:               cfg.Platforms.GoogleAPIURL,
		Square:               cfg.Platforms.SquareAPIURL,
		Stripe:               cfg.Platforms.StripeAPIURL,
		GoogleDeveloperToken: cfg.Platforms.GoogleDeveloperToken,
	}, cfg.Platforms.FetchTimeout, cfg.Platforms.RateLimitPerSecond, log, m)

	attributionService := usecase.NewAttributionService(
		touchpoints,
		attributions,
		usecase.NewIdentityHasher(cfg.Attribution.IdentitySalt),
		usecase.NewMatcher(),
		usecase.NewConfidenceScorer(cfg.Attribution.Window),
		log,
		m,
		cfg.Attribution.Window,
		cfg.Attribution.ExtendedWindow,
		domain.AttributionModel(cfg.Attribution.DefaultModel),
		cfg.Webhook.Secret,
	)

	reportService := usecase.NewReportService(
		platformClient,
		credentials,
		attributions,
		infrastructure.NewKVStore(),
		log,
		m,
		cfg.Platforms.FetchTimeout,
		cfg.Cache.ReportTTL,
		cfg.Attribution.RecoveryRate,
	)

	handlers := delivery.NewHTTPHandlers(attributionService, reportService, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m, cfg.Server.RequestTimeout, cfg.Server.RateLimitPerMinute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go attributionService.RunPurgeLoop(ctx, cfg.Attribution.PurgeInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRoutes(),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Shutdown incomplete")
	}
}
