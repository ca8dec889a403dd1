// Package main is the entry point for the Coinwatch service.
// It values a crypto ledger against live rates on a cron schedule, alerts
// when the portfolio moved beyond the configured delta, and serves the
// current report over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aristath/coinwatch/internal/config"
	"github.com/aristath/coinwatch/internal/di"
	"github.com/aristath/coinwatch/internal/scheduler"
	"github.com/aristath/coinwatch/internal/server"
	"github.com/aristath/coinwatch/pkg/logger"
)

// storeMaintenanceSchedule runs the SQLite integrity check and WAL checkpoint nightly
const storeMaintenanceSchedule = "30 3 * * *"

// main orchestrates startup:
// 1. Loads configuration and initializes logging
// 2. Wires the store, clients and valuation engine
// 3. Schedules the valuation job, or runs it once when no schedule is set
// 4. Starts the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Float64("alert_delta", cfg.AlertDelta).
		Str("schedule", cfg.CronSchedule).
		Str("timezone", cfg.Timezone).
		Bool("live_mode", cfg.LiveMode).
		Str("currency", cfg.ReferenceCurrency).
		Msg("Starting Coinwatch")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	sched := scheduler.New(cfg.Location(), log)
	var nextRunner server.NextRunner
	var startup sync.WaitGroup

	if cfg.CronSchedule != "" {
		if err := sched.AddJob(cfg.CronSchedule, jobs.Valuation); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.CronSchedule).Msg("Invalid CRON_SCHEDULE")
		}
		nextRunner = sched
	} else {
		// Without a schedule the service values once at startup; later runs
		// only happen on request
		startup.Add(1)
		go func() {
			defer startup.Done()
			if err := sched.RunNow(jobs.Valuation); err != nil {
				log.Error().Err(err).Msg("Startup valuation failed")
			}
		}()
	}

	if jobs.StoreMaintenance != nil {
		if err := sched.AddJob(storeMaintenanceSchedule, jobs.StoreMaintenance); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule store maintenance")
		}
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Jobs:      jobs,
		Scheduler: nextRunner,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for a running valuation to finish
	sched.Stop()
	startup.Wait()

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}

	log.Info().Msg("Server stopped")
}
