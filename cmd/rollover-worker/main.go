package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hearth/internal/amqp"
	"hearth/internal/config"
	applog "hearth/internal/log"
	"hearth/internal/services"
	"hearth/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentRollover)
	applog.SetDefault(logger)

	logger.Info("Starting rollover-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	// AMQP client for publishing journal events; the export-worker consumes
	// these and appends to the external journal.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("AMQP client initialized - events will export via export-worker")
		}
	} else {
		logger.Info("AMQP disabled - rollover events will not be journaled")
	}

	driver := services.NewRolloverDriver(sqliteRepo, events, cfg.RolloverConcurrency)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Period rollover driver configured",
		"interval", cfg.RolloverInterval,
		"concurrency", cfg.RolloverConcurrency,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	// Run an initial pass on startup
	logger.Info("Running initial rollover pass...")
	if result, err := driver.Run(ctx); err != nil {
		logger.Error("Initial rollover failed", "error", err)
	} else {
		logger.Info("Initial rollover complete",
			"users_processed", result.UsersProcessed,
			"success_count", result.SuccessCount,
			"error_count", result.ErrorCount,
			"items_created", result.CreatedCount,
			"transfers_posted", result.TransferCount)
	}

	// Periodic rollover passes
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Running periodic rollover pass...")
				result, err := driver.Run(ctx)
				if err != nil {
					logger.Error("Periodic rollover failed", "error", err)
					continue
				}
				logger.Info("Periodic rollover complete",
					"users_processed", result.UsersProcessed,
					"success_count", result.SuccessCount,
					"error_count", result.ErrorCount,
					"items_created", result.CreatedCount,
					"transfers_posted", result.TransferCount,
					"next_check", now.Add(cfg.RolloverInterval).Format("15:04:05"))
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down rollover-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Rollover-worker shutdown complete")
	}
}
