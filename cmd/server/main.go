// Package main is the entry point for the Alphaseeker portfolio dashboard server.
// It serves the portfolio, allocation and settlement APIs, streams live events and
// runs the scheduled price refresh, maintenance and backup jobs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/alphaseeker/internal/config"
	"github.com/aristath/alphaseeker/internal/di"
	"github.com/aristath/alphaseeker/internal/server"
	"github.com/aristath/alphaseeker/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// main orchestrates startup:
// 1. Loads configuration from the environment (.env supported)
// 2. Initializes logging
// 3. Wires the database, services and jobs
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", version).Str("data_dir", cfg.DataDir).Msg("Starting Alphaseeker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srvCfg := server.Config{
		Log:          log,
		DataDir:      cfg.DataDir,
		DB:           container.PortfolioDB,
		Portfolio:    container.PortfolioService,
		EventManager: container.EventManager,
		Jobs:         container.Scheduler,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		Version:      version,
	}
	// Assigned only when set so the interfaces stay nil
	if container.BackupService != nil {
		srvCfg.Backups = container.BackupService
	}
	if container.Advisor != nil {
		srvCfg.Advisor = container.Advisor
	}
	srv := server.New(srvCfg)

	container.Scheduler.Start()

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
	cancel()

	// Let in-flight jobs finish before the database closes
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Server stopped")
}
