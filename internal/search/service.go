package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"storesync/internal/docstore"
	"storesync/internal/logger"
	"storesync/internal/models"
)

// IndexedTypes are the document types that appear in search.
var IndexedTypes = []string{"article", "tutorial", models.DocumentTypeProduct}

type Outcome string

const (
	OutcomeIndexed Outcome = "indexed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeDeleted Outcome = "deleted"
)

type ResyncReport struct {
	Indexed int            `json:"indexed"`
	Skipped int            `json:"skipped"`
	ByType  map[string]int `json:"byType"`
}

type Service struct {
	store       docstore.Store
	index       Index
	transformer *Transformer
	logger      *logger.Logger
}

func NewService(store docstore.Store, index Index, logger *logger.Logger) *Service {
	return &Service{
		store:       store,
		index:       index,
		transformer: NewTransformer(logger),
		logger:      logger,
	}
}

// IsIndexedType reports whether documents of docType belong in search.
func IsIndexedType(docType string) bool {
	for _, t := range IndexedTypes {
		if t == docType {
			return true
		}
	}
	return false
}

// SyncDocument applies one document change to the index: drafts are left
// alone, deleted documents are removed, everything else is upserted.
func (s *Service) SyncDocument(ctx context.Context, doc *CMSDocument) (Outcome, error) {
	if doc.IsDraftDocument() {
		s.logger.Debug("Skipping draft %s", doc.ID)
		return OutcomeSkipped, nil
	}
	if doc.WasDeleted {
		if err := s.index.DeleteObject(ctx, doc.ID); err != nil {
			return "", fmt.Errorf("failed to delete %s from search: %w", doc.ID, err)
		}
		s.logger.Info("Removed %s from search", doc.ID)
		return OutcomeDeleted, nil
	}

	record := s.transformer.Transform(doc)
	if err := s.index.SaveObject(ctx, record); err != nil {
		return "", fmt.Errorf("failed to index %s: %w", doc.ID, err)
	}
	s.logger.Info("Indexed %s %s", doc.Type, doc.ID)
	return OutcomeIndexed, nil
}

// SyncByID re-reads a document from the store and syncs it. A document that
// no longer exists is removed from the index.
func (s *Service) SyncByID(ctx context.Context, id string) (Outcome, error) {
	stored, err := s.store.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return OutcomeDeleted, s.Delete(ctx, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", id, err)
	}

	doc, err := FromStore(stored)
	if err != nil {
		return "", err
	}
	if !IsIndexedType(doc.Type) {
		return OutcomeSkipped, nil
	}
	return s.SyncDocument(ctx, doc)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.index.DeleteObject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete %s from search: %w", id, err)
	}
	return nil
}

// Resync clears the index and uploads every indexable document again.
// Search returns partial results until the upload completes.
func (s *Service) Resync(ctx context.Context) (*ResyncReport, error) {
	var mu sync.Mutex
	var records []models.SearchIndexRecord
	report := &ResyncReport{ByType: make(map[string]int)}

	g, gctx := errgroup.WithContext(ctx)
	for _, docType := range IndexedTypes {
		docType := docType
		g.Go(func() error {
			docs, err := s.store.ListByType(gctx, docType)
			if err != nil {
				return fmt.Errorf("failed to load %s documents: %w", docType, err)
			}

			var batch []models.SearchIndexRecord
			skipped := 0
			for _, stored := range docs {
				doc, err := FromStore(stored)
				if err != nil {
					s.logger.Warn("Skipping unreadable document %s: %v", stored.ID(), err)
					skipped++
					continue
				}
				if doc.IsDraftDocument() || doc.WasDeleted {
					skipped++
					continue
				}
				batch = append(batch, s.transformer.Transform(doc))
			}

			mu.Lock()
			defer mu.Unlock()
			records = append(records, batch...)
			report.ByType[docType] = len(batch)
			report.Skipped += skipped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ObjectID < records[j].ObjectID
	})

	if err := s.index.ClearObjects(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear search index: %w", err)
	}
	if err := s.index.SaveObjects(ctx, records); err != nil {
		return nil, err
	}

	report.Indexed = len(records)
	s.logger.Info("Search resync complete: %d indexed, %d skipped", report.Indexed, report.Skipped)
	return report, nil
}
