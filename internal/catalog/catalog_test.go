package catalog

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"storesync/internal/docstore"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

type fakeMetafields struct {
	mu       sync.Mutex
	fields   map[int64]*shopify.Metafield
	nextID   int64
	getErr   error
	writeErr error
	creates  int
	updates  int
}

func newFakeMetafields() *fakeMetafields {
	return &fakeMetafields{fields: map[int64]*shopify.Metafield{}, nextID: 100}
}

func (f *fakeMetafields) GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	mf, ok := f.fields[productID]
	if !ok {
		return nil, nil
	}
	cp := *mf
	return &cp, nil
}

func (f *fakeMetafields) CreateProductMetafield(ctx context.Context, productID int64, mf shopify.Metafield) (*shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.nextID++
	mf.ID = f.nextID
	f.fields[productID] = &mf
	return &mf, nil
}

func (f *fakeMetafields) UpdateProductMetafield(ctx context.Context, productID int64, mf shopify.Metafield) (*shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	existing, ok := f.fields[productID]
	if !ok || existing.ID != mf.ID {
		return nil, &shopify.HTTPStatusError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	existing.Value = mf.Value
	return existing, nil
}

func (f *fakeMetafields) set(productID int64, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.fields[productID] = &shopify.Metafield{ID: f.nextID, Namespace: MetafieldNamespace, Key: MetafieldKey, Value: value}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DocumentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...models.DocumentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) byType(t models.DocumentEventType) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for _, e := range p.events {
		if e.Type == t {
			ids = append(ids, e.DocumentID)
		}
	}
	return ids
}

type failingStore struct {
	*docstore.MemoryStore
	err error
}

func (s failingStore) Commit(ctx context.Context, tx *docstore.Transaction) error {
	return s.err
}

type fixture struct {
	store      *docstore.MemoryStore
	metafields *fakeMetafields
	writer     *CacheWriter
	publisher  *recordingPublisher
	syncer     *Syncer
	logs       *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	f := &fixture{
		store:      docstore.NewMemoryStore(),
		metafields: newFakeMetafields(),
		writer:     NewCacheWriter(log),
		publisher:  &recordingPublisher{},
		logs:       logs,
	}
	f.syncer = NewSyncer(f.store, f.metafields, f.writer, f.publisher, log)
	t.Cleanup(f.writer.Close)
	return f
}

func (f *fixture) sync(t *testing.T, p *shopify.Product) models.SyncResult {
	t.Helper()
	result, err := f.syncer.SyncProduct(context.Background(), p)
	require.NoError(t, err)
	f.writer.Wait()
	return result
}

func (f *fixture) doc(t *testing.T, id string) docstore.Document {
	t.Helper()
	doc, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func strPtr(s string) *string { return &s }

func money(amount float64) shopify.Money {
	return shopify.Money{Amount: amount, Valid: true}
}

func twoVariantProduct() *shopify.Product {
	return &shopify.Product{
		ID:     1001,
		Title:  "Trail Shoe",
		Handle: "trail-shoe",
		Status: "active",
		Options: []shopify.Option{
			{Name: "Size", Position: 1, Values: []string{"9", "10"}},
		},
		Variants: []shopify.Variant{
			{ID: 21, Title: "10", Price: money(21), Sku: "TS-10", InventoryQuantity: 8, Option1: strPtr("10")},
			{ID: 20, Title: "9", Price: money(19.99), Sku: "TS-9", InventoryQuantity: 2, Option1: strPtr("9")},
		},
	}
}
