package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendtrail/internal/amqp"
	"spendtrail/internal/config"
	applog "spendtrail/internal/log"
	"spendtrail/internal/services"
	"spendtrail/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentSubscription})
	applog.SetDefault(logger)

	logger.Info("Starting subscription-worker")

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

	// Generated expenses are announced over AMQP so the archive worker
	// picks them up promptly. Without AMQP the pending sweep covers them.
	var publisher services.ArchivePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without announcements", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - generated entries will sync via pending sweeps")
	}

	processor := services.NewSubscriptionProcessor(repo, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Subscription processor configured",
		"interval", cfg.SubscriptionInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	// Run initial processing on startup
	logger.Info("Running initial subscription processing...")
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "entries_created", count)
	}

	ticker := time.NewTicker(cfg.SubscriptionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscription-worker shutdown complete")
			return
		case now := <-ticker.C:
			count, err := processor.ProcessDue(ctx, now)
			if err != nil {
				logger.Error("Periodic processing failed", "error", err)
				continue
			}
			logger.Info("Periodic processing complete",
				"entries_created", count,
				"next_check", now.Add(cfg.SubscriptionInterval).Format("15:04:05"))
		}
	}
}
