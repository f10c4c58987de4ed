package catalog

import (
	"context"
	"errors"
	"fmt"

	"storesync/internal/docstore"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

// Publisher announces committed document changes.
type Publisher interface {
	Publish(ctx context.Context, events ...models.DocumentEvent) error
}

type Syncer struct {
	store       docstore.Store
	cache       *SnapshotCache
	writer      *CacheWriter
	transformer *shopify.Transformer
	publisher   Publisher
	logger      *logger.Logger
}

func NewSyncer(store docstore.Store, metafields MetafieldClient, writer *CacheWriter, publisher Publisher, logger *logger.Logger) *Syncer {
	return &Syncer{
		store:       store,
		cache:       NewSnapshotCache(metafields, logger),
		writer:      writer,
		transformer: shopify.NewTransformer(),
		publisher:   publisher,
		logger:      logger,
	}
}

// SyncProduct writes one commerce product to the document store, skipping it
// when the cached snapshot matches and its document exists. Only a failed
// commit is returned as an error; cache and event failures are logged.
func (s *Syncer) SyncProduct(ctx context.Context, product *shopify.Product) (models.SyncResult, error) {
	catalogProduct := s.transformer.TransformProduct(product)
	snapshot := catalogProduct.Snapshot()
	log := s.logger.With("product_id", product.ID)

	result := models.SyncResult{
		ProductID:  product.ID,
		DocumentID: catalogProduct.DocumentID,
		Title:      product.Title,
	}

	cached := s.cache.Load(ctx, product.ID)

	exists, err := s.store.Exists(ctx, catalogProduct.DocumentID)
	if err != nil {
		log.Warn("Failed to check document %s, assuming it is missing: %v", catalogProduct.DocumentID, err)
		exists = false
	}

	decision := Decide(cached.Snapshot, snapshot, exists)
	if !decision.Sync {
		log.Debug("Product %d (%s) unchanged, skipping", product.ID, product.Title)
		result.Status = models.SyncStatusSkipped
		result.Reason = decision.Reason
		return result, nil
	}
	if decision.Diff != "" {
		log.Debug("Product %d changed:\n%s", product.ID, decision.Diff)
	}

	existingVariants, err := s.store.ListIDs(ctx, models.DocumentTypeProductVariant, models.FieldProductID, product.ID)
	if err != nil {
		log.Warn("Failed to list variants of product %d, none will be soft-deleted: %v", product.ID, err)
		existingVariants = nil
	}

	rec := Reconcile(catalogProduct, existingVariants)
	if err := s.store.Commit(ctx, rec.Tx); err != nil {
		result.Status = models.SyncStatusError
		result.Error = err.Error()
		return result, fmt.Errorf("failed to commit product %d: %w", product.ID, err)
	}

	log.Info("Synced product %d (%s): %d variants, %d soft-deleted", product.ID, product.Title, len(catalogProduct.Variants), len(rec.DeletedVariants))
	result.Status = models.SyncStatusSynced
	result.VariantsSynced = len(catalogProduct.Variants)
	result.VariantsDeleted = len(rec.DeletedVariants)

	s.publish(ctx, changedEvents(catalogProduct, rec.DeletedVariants)...)

	// an identical snapshot is already cached
	if decision.Reason != ReasonMissing {
		productID, metafieldID := product.ID, cached.MetafieldID
		s.writer.Go(func(ctx context.Context) error {
			return s.cache.Store(ctx, productID, metafieldID, snapshot)
		})
	}

	return result, nil
}

// MarkDeleted soft-deletes a product removed from the commerce platform
// together with every variant document that belongs to it.
func (s *Syncer) MarkDeleted(ctx context.Context, productID int64) (models.SyncResult, error) {
	docID := models.ProductDocumentID(productID)
	result := models.SyncResult{ProductID: productID, DocumentID: docID}

	exists, err := s.store.Exists(ctx, docID)
	if err != nil {
		result.Status = models.SyncStatusError
		result.Error = err.Error()
		return result, fmt.Errorf("failed to check document %s: %w", docID, err)
	}
	variants, err := s.store.ListIDs(ctx, models.DocumentTypeProductVariant, models.FieldProductID, productID)
	if err != nil {
		result.Status = models.SyncStatusError
		result.Error = err.Error()
		return result, fmt.Errorf("failed to list variants of product %d: %w", productID, err)
	}

	if !exists && len(variants) == 0 {
		result.Status = models.SyncStatusSkipped
		result.Reason = ReasonNotFound
		return result, nil
	}

	tx := ReconcileDeletion(docID, exists, variants)
	if err := s.store.Commit(ctx, tx); err != nil {
		result.Status = models.SyncStatusError
		result.Error = err.Error()
		return result, fmt.Errorf("failed to commit deletion of product %d: %w", productID, err)
	}

	s.logger.Info("Soft-deleted product %d and %d variants", productID, len(variants))
	result.Status = models.SyncStatusDeleted
	result.VariantsDeleted = len(variants)

	var events []models.DocumentEvent
	if exists {
		events = append(events, models.NewDocumentEvent(models.DocumentDeleted, docID, models.DocumentTypeProduct))
	}
	for _, vid := range variants {
		events = append(events, models.NewDocumentEvent(models.DocumentDeleted, vid, models.DocumentTypeProductVariant))
	}
	s.publish(ctx, events...)

	return result, nil
}

func (s *Syncer) publish(ctx context.Context, events ...models.DocumentEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish %d document events: %v", len(events), err)
	}
}

func changedEvents(product *shopify.CatalogProduct, deletedVariants []string) []models.DocumentEvent {
	events := []models.DocumentEvent{
		models.NewDocumentEvent(models.DocumentChanged, product.DocumentID, models.DocumentTypeProduct),
	}
	for _, v := range product.Variants {
		events = append(events, models.NewDocumentEvent(models.DocumentChanged, v.DocumentID, models.DocumentTypeProductVariant))
	}
	for _, vid := range deletedVariants {
		events = append(events, models.NewDocumentEvent(models.DocumentDeleted, vid, models.DocumentTypeProductVariant))
	}
	return events
}

// StoreErrorOf extracts the document store error behind err, if any.
func StoreErrorOf(err error) (*docstore.StoreError, bool) {
	var storeErr *docstore.StoreError
	if errors.As(err, &storeErr) {
		return storeErr, true
	}
	return nil, false
}
