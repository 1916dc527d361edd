package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendtrail/internal/amqp"
	"spendtrail/internal/archive/sheets"
	"spendtrail/internal/config"
	applog "spendtrail/internal/log"
	"spendtrail/internal/storage"
	"spendtrail/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting spendtrail-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required - the worker has no archive to write to")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	archive, err := sheets.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetBase)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	archiveWorker := worker.NewArchiveWorker(repo, archive, cfg.SyncBatchSize)

	// Catch up on anything that accumulated while the worker was down.
	logger.Info("Performing startup archive check...")
	if err := archiveWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup archive check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	g, ctx := errgroup.WithContext(ctx)

	// AMQP-driven archiving.
	g.Go(func() error {
		err := amqpClient.ConsumeEntries(ctx, func(msg *amqp.LedgerEntryMessage) error {
			return archiveWorker.HandleEntryMessage(ctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic sweep for entries whose announcement was lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := archiveWorker.ProcessPending(ctx); err != nil {
					logger.Error("Pending sweep failed", "error", err)
				}
			}
		}
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
