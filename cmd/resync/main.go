package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storesync/internal/app"
	"storesync/internal/config"
	"storesync/internal/logger"
)

func main() {
	catalogSync := flag.Bool("catalog", true, "sync every commerce product into the document store")
	searchSync := flag.Bool("search", false, "clear and rebuild the search index afterwards")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services: %v", err)
	}
	defer a.Close(context.Background())

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	failed := false

	if *catalogSync {
		if a.Bulk == nil {
			logger.Fatal("SHOPIFY_SHOP_DOMAIN and SHOPIFY_ACCESS_TOKEN are required for a catalog sync")
		}
		report := a.Bulk.Run(ctx)
		a.Writer.Wait()
		if err := out.Encode(report); err != nil {
			logger.Error("Failed to write report: %v", err)
		}
		failed = report.Error != "" || report.Summary.Errors > 0
	}

	if *searchSync {
		report, err := a.Search.Resync(ctx)
		if err != nil {
			logger.Error("Search resync failed: %v", err)
			failed = true
		} else if err := out.Encode(report); err != nil {
			logger.Error("Failed to write report: %v", err)
		}
	}

	if failed {
		a.Close(context.Background())
		os.Exit(1)
	}
}
