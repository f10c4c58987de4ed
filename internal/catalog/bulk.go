package catalog

import (
	"context"

	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

// BulkPageSize is the largest page the products endpoint returns.
const BulkPageSize = 250

// ProductLister pages through the commerce catalog.
type ProductLister interface {
	ListProducts(ctx context.Context, limit int, pageInfo string) (*shopify.ProductsPage, error)
}

type BulkReport struct {
	Summary models.BulkSummary  `json:"summary"`
	Results []models.SyncResult `json:"results"`
	// Error is set when paging stopped early; Results holds what was done.
	Error string `json:"error,omitempty"`
}

type BulkSyncer struct {
	lister ProductLister
	syncer *Syncer
	logger *logger.Logger
}

func NewBulkSyncer(lister ProductLister, syncer *Syncer, logger *logger.Logger) *BulkSyncer {
	return &BulkSyncer{lister: lister, syncer: syncer, logger: logger}
}

// Run syncs every product, one at a time, following the page cursor until
// the last page. A failed product is recorded and the run continues.
func (b *BulkSyncer) Run(ctx context.Context) *BulkReport {
	report := &BulkReport{Results: []models.SyncResult{}}
	pageInfo := ""
	page := 0

	for {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			break
		}

		products, err := b.lister.ListProducts(ctx, BulkPageSize, pageInfo)
		if err != nil {
			b.logger.Error("Failed to fetch product page %d: %v", page+1, err)
			report.Error = err.Error()
			break
		}
		page++
		b.logger.Info("Bulk sync page %d: %d products", page, len(products.Products))

		for i := range products.Products {
			result := b.syncOne(ctx, &products.Products[i])
			report.Summary.Add(result)
			report.Results = append(report.Results, result)
		}

		if products.NextPageInfo == "" {
			break
		}
		pageInfo = products.NextPageInfo
	}

	b.logger.Info("Bulk sync finished: %d total, %d synced, %d skipped, %d errors",
		report.Summary.Total, report.Summary.Synced, report.Summary.Skipped, report.Summary.Errors)
	return report
}

func (b *BulkSyncer) syncOne(ctx context.Context, product *shopify.Product) models.SyncResult {
	if err := product.Validate(); err != nil {
		return models.SyncResult{
			ProductID:  product.ID,
			DocumentID: models.ProductDocumentID(product.ID),
			Title:      product.Title,
			Status:     models.SyncStatusError,
			Error:      err.Error(),
		}
	}

	result, err := b.syncer.SyncProduct(ctx, product)
	if err != nil {
		b.logger.Error("Failed to sync product %d: %v", product.ID, err)
	}
	return result
}
