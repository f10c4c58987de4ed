package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"storesync/internal/app"
	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/worker"
	"storesync/internal/worker/processors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Production: cfg.Env == "production",
		File:       cfg.LogFile,
	})
	defer logger.Sync()

	if !cfg.KafkaEnabled() {
		logger.Fatal("KAFKA_BROKERS is not set, nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services: %v", err)
	}
	defer a.Close(context.Background())

	// Initialize worker
	w := worker.New(cfg, logger, processors.NewEventProcessor(a.Search, logger))

	// Start worker
	logger.Info("Starting worker...")
	if err := w.Start(ctx); err != nil {
		logger.Error("Worker stopped: %v", err)
	}

	logger.Info("Shutting down worker...")
	w.Stop()
}
