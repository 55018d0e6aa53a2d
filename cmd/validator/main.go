package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreschagin/analytics-validator/internal/infrastructure/perfstats"
	"github.com/dreschagin/analytics-validator/internal/infrastructure/tracker"
	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/config"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// Standalone validation daemon without the dashboard surface.
// Runs the cycle on a schedule and exposes the minimal query API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting validation daemon",
		"interval", cfg.Validation.Interval.String(),
	)

	sessionTracker := tracker.NewSessionTracker(log)

	perfCollector, err := perfstats.NewCollector()
	if err != nil {
		log.Fatal("Failed to initialize performance collector", err)
	}

	engine, err := validation.NewEngine(validation.Config{
		Interval:          cfg.Validation.Interval,
		VarianceThreshold: cfg.Validation.VarianceThreshold,
		SyncDelayMax:      cfg.Validation.SyncDelayMax,
		SyncSettleDelay:   cfg.Validation.SyncSettleDelay,
		MemoryLimitBytes:  uint64(cfg.Validation.MemoryLimitMB) * 1024 * 1024,
		ResponseTimeMaxMs: cfg.Validation.ResponseTimeMaxMs,
		SpikeSigma:        cfg.Validation.SpikeSigma,
		TrendWindow:       cfg.Validation.TrendWindow,
		HistoryLimit:      cfg.Validation.HistoryLimit,
		KnownUserTypes:    cfg.Validation.KnownUserTypes,
		ServiceName:       cfg.Validation.ServiceName,
	}, sessionTracker, perfCollector, nil, log)
	if err != nil {
		log.Fatal("Failed to create validation engine", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Initialize(ctx)

	runner := validation.NewRunner(engine, log)
	handler := validation.NewHandler(engine, runner)

	// Первый цикл сразу, чтобы readyz не ждал целый interval
	runner.RunOnce(ctx)

	go runner.Start(ctx)

	port := os.Getenv("VALIDATOR_PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Info("Validation daemon HTTP server started", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Validation daemon HTTP server failed", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Validation daemon HTTP server shutdown failed", err)
	}

	engine.Dispose()

	log.Info("Validation daemon stopped")
}
