package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	algolia "github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/transport"

	"storesync/internal/models"
)

// Index is the hosted search index, keyed by object id.
type Index interface {
	SaveObject(ctx context.Context, record models.SearchIndexRecord) error
	DeleteObject(ctx context.Context, objectID string) error
	ClearObjects(ctx context.Context) error
	SaveObjects(ctx context.Context, records []models.SearchIndexRecord) error
}

// AlgoliaIndex writes records through the Algolia search client, which
// batches uploads and retries across the application's hosts.
type AlgoliaIndex struct {
	index *algolia.Index
}

type AlgoliaConfig struct {
	AppID     string
	APIKey    string
	Index     string
	BatchSize int
	// Requester replaces the client's HTTP requester.
	Requester transport.Requester
}

func NewAlgoliaIndex(cfg AlgoliaConfig) (*AlgoliaIndex, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("algolia app id and api key are required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("algolia index name is required")
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	client := algolia.NewClientWithConfig(algolia.Configuration{
		AppID:        cfg.AppID,
		APIKey:       cfg.APIKey,
		MaxBatchSize: batch,
		Requester:    cfg.Requester,
	})
	return &AlgoliaIndex{index: client.InitIndex(cfg.Index)}, nil
}

func (a *AlgoliaIndex) SaveObject(ctx context.Context, record models.SearchIndexRecord) error {
	if _, err := a.index.SaveObject(record, ctx); err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.ObjectID, err)
	}
	return nil
}

func (a *AlgoliaIndex) DeleteObject(ctx context.Context, objectID string) error {
	if _, err := a.index.DeleteObject(objectID, ctx); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", objectID, err)
	}
	return nil
}

func (a *AlgoliaIndex) ClearObjects(ctx context.Context) error {
	if _, err := a.index.ClearObjects(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// SaveObjects uploads records in batches of the configured size.
func (a *AlgoliaIndex) SaveObjects(ctx context.Context, records []models.SearchIndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := a.index.SaveObjects(records, ctx); err != nil {
		return fmt.Errorf("failed to upload %d records: %w", len(records), err)
	}
	return nil
}

// MemoryIndex is an in-process Index for local runs without search credentials.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]models.SearchIndexRecord
	clears  int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]models.SearchIndexRecord)}
}

func (m *MemoryIndex) SaveObject(ctx context.Context, record models.SearchIndexRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ObjectID] = record
	return nil
}

func (m *MemoryIndex) DeleteObject(ctx context.Context, objectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, objectID)
	return nil
}

func (m *MemoryIndex) ClearObjects(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]models.SearchIndexRecord)
	m.clears++
	return nil
}

func (m *MemoryIndex) SaveObjects(ctx context.Context, records []models.SearchIndexRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ObjectID] = r
	}
	return nil
}

func (m *MemoryIndex) Get(objectID string) (models.SearchIndexRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[objectID]
	return r, ok
}

// ObjectIDs lists the indexed ids in sorted order.
func (m *MemoryIndex) ObjectIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemoryIndex) Clears() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clears
}
