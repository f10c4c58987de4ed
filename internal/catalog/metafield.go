package catalog

import (
	"context"
	"fmt"

	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

const (
	MetafieldNamespace = "sanity"
	MetafieldKey       = "product_sync"
	MetafieldType      = "json"
)

// MetafieldClient is the part of the commerce API the snapshot cache needs.
type MetafieldClient interface {
	GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*shopify.Metafield, error)
	CreateProductMetafield(ctx context.Context, productID int64, metafield shopify.Metafield) (*shopify.Metafield, error)
	UpdateProductMetafield(ctx context.Context, productID int64, metafield shopify.Metafield) (*shopify.Metafield, error)
}

// CachedSnapshot is what the metafield held. MetafieldID is kept even when
// the value could not be decoded, so the next write updates in place.
type CachedSnapshot struct {
	Snapshot    *models.ProductSnapshot
	MetafieldID int64
}

// SnapshotCache keeps the last synced snapshot of each product in a product
// metafield. It is an optimization only: every failure degrades to a miss.
type SnapshotCache struct {
	client MetafieldClient
	logger *logger.Logger
}

func NewSnapshotCache(client MetafieldClient, logger *logger.Logger) *SnapshotCache {
	return &SnapshotCache{client: client, logger: logger}
}

func (c *SnapshotCache) Load(ctx context.Context, productID int64) CachedSnapshot {
	mf, err := c.client.GetProductMetafield(ctx, productID, MetafieldNamespace, MetafieldKey)
	if err != nil {
		c.logger.Warn("Failed to read sync metafield for product %d: %v", productID, err)
		return CachedSnapshot{}
	}
	if mf == nil {
		return CachedSnapshot{}
	}

	snap, err := DecodeSnapshot(mf.Value)
	if err != nil {
		c.logger.Warn("Ignoring unreadable sync metafield for product %d: %v", productID, err)
		return CachedSnapshot{MetafieldID: mf.ID}
	}
	return CachedSnapshot{Snapshot: snap, MetafieldID: mf.ID}
}

// Store writes snap, updating the existing metafield when its id is known.
func (c *SnapshotCache) Store(ctx context.Context, productID, metafieldID int64, snap models.ProductSnapshot) error {
	value, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	if metafieldID != 0 {
		_, err = c.client.UpdateProductMetafield(ctx, productID, shopify.Metafield{
			ID:    metafieldID,
			Value: value,
			Type:  MetafieldType,
		})
	} else {
		_, err = c.client.CreateProductMetafield(ctx, productID, shopify.Metafield{
			Namespace: MetafieldNamespace,
			Key:       MetafieldKey,
			Value:     value,
			Type:      MetafieldType,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to store sync metafield for product %d: %w", productID, err)
	}
	return nil
}

// DisabledMetafields stands in when no commerce API credentials are
// configured: every read misses and writes are dropped, so each delivery
// performs a full reconcile.
type DisabledMetafields struct{}

func (DisabledMetafields) GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*shopify.Metafield, error) {
	return nil, nil
}

func (DisabledMetafields) CreateProductMetafield(ctx context.Context, productID int64, metafield shopify.Metafield) (*shopify.Metafield, error) {
	return &metafield, nil
}

func (DisabledMetafields) UpdateProductMetafield(ctx context.Context, productID int64, metafield shopify.Metafield) (*shopify.Metafield, error) {
	return &metafield, nil
}
