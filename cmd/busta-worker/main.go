package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"busta/internal/amqp"
	"busta/internal/config"
	applog "busta/internal/log"
	"busta/internal/sheets"
	gsheet "busta/internal/sheets/google"
	memsheet "busta/internal/sheets/memory"
	"busta/internal/storage"
	"busta/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("Starting busta-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Plan rows go to Google Sheets when configured, otherwise to an
	// in-memory sink so the queue still drains in local setups.
	var writer sheets.PlanWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshotWorker := worker.NewSnapshotWorker(repo, writer, cfg.DefaultPayday, cfg.SnapshotBatchSize)

	// On startup, drain anything that accumulated while the worker was down.
	logger.Info("Performing startup snapshot check...")
	if err := snapshotWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup snapshot check failed", applog.FieldError, err)
		// Don't exit - continue with normal operation
	}

	go func() {
		handler := func(msg *amqp.PlanChangedMessage) error {
			return snapshotWorker.HandlePlanChanged(ctx, msg)
		}
		if err := amqpClient.ConsumePlanChanged(ctx, handler); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
			cancel()
		}
	}()

	// Periodic drain of the pending-snapshot queue catches changes whose
	// AMQP message was lost.
	ticker := time.NewTicker(cfg.SnapshotInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := snapshotWorker.ProcessPendingSnapshots(ctx); err != nil {
					logger.Error("Periodic snapshot processing failed", applog.FieldError, err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight exports a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
