// Package app wires the configured backends into the sync services shared by
// the HTTP server, the worker and the resync command.
package app

import (
	"context"
	"fmt"

	"storesync/internal/catalog"
	"storesync/internal/config"
	"storesync/internal/docstore"
	"storesync/internal/events"
	"storesync/internal/logger"
	"storesync/internal/search"
	"storesync/internal/services/shopify"
)

type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     docstore.Store
	Publisher events.Publisher
	Writer    *catalog.CacheWriter
	Syncer    *catalog.Syncer
	// Bulk is nil when no commerce API credentials are configured.
	Bulk   *catalog.BulkSyncer
	Search *search.Service
}

func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	store, err := docstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s document store: %w", cfg.DocumentStore, err)
	}
	return NewWithStore(cfg, logger, store), nil
}

// NewWithStore builds the services around an already opened store.
func NewWithStore(cfg *config.Config, logger *logger.Logger, store docstore.Store) *App {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Publisher: events.New(cfg, logger),
		Writer:    catalog.NewCacheWriter(logger),
	}

	var metafields catalog.MetafieldClient = catalog.DisabledMetafields{}
	var client *shopify.Client
	if cfg.ShopifyShopDomain != "" && cfg.ShopifyAccessToken != "" {
		client = shopify.NewClient(cfg.ShopifyShopDomain, cfg.ShopifyAccessToken, cfg.ShopifyAPIVersion, logger)
		metafields = client
	} else {
		logger.Warn("Shopify API credentials not configured, snapshot cache and bulk sync are disabled")
	}

	a.Syncer = catalog.NewSyncer(store, metafields, a.Writer, a.Publisher, logger)
	if client != nil {
		a.Bulk = catalog.NewBulkSyncer(client, a.Syncer, logger)
	}

	a.Search = search.NewService(store, newIndex(cfg, logger), logger)
	return a
}

func newIndex(cfg *config.Config, logger *logger.Logger) search.Index {
	index, err := search.NewAlgoliaIndex(search.AlgoliaConfig{
		AppID:     cfg.AlgoliaAppID,
		APIKey:    cfg.AlgoliaAPIKey,
		Index:     cfg.AlgoliaIndex,
		BatchSize: cfg.AlgoliaBatchSize,
	})
	if err != nil {
		logger.Warn("Search index not configured (%v), using an in-memory index", err)
		return search.NewMemoryIndex()
	}
	return index
}

// Close flushes pending cache writes and releases the backends.
func (a *App) Close(ctx context.Context) {
	a.Writer.Close()
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error("Failed to close event publisher: %v", err)
	}
	if err := a.Store.Close(ctx); err != nil {
		a.Logger.Error("Failed to close document store: %v", err)
	}
}
