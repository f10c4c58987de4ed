package search

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/docstore"
	"storesync/internal/logger"
	"storesync/internal/models"
)

func seedStore(t *testing.T, docs ...docstore.Document) *docstore.MemoryStore {
	t.Helper()
	store := docstore.NewMemoryStore()
	tx := docstore.NewTransaction()
	for _, doc := range docs {
		fields := map[string]interface{}{}
		for k, v := range doc {
			if k != "_id" && k != "_type" {
				fields[k] = v
			}
		}
		tx.CreateIfNotExists(docstore.Document{"_id": doc.ID(), "_type": doc.Type()})
		if len(fields) > 0 {
			tx.Set(doc.ID(), fields)
		}
	}
	require.NoError(t, store.Commit(context.Background(), tx))
	return store
}

func TestSyncDocument(t *testing.T) {
	index := NewMemoryIndex()
	svc := NewService(docstore.NewMemoryStore(), index, logger.NewNop())
	ctx := context.Background()

	outcome, err := svc.SyncDocument(ctx, &CMSDocument{ID: "article-1", Type: "article", Title: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, outcome)
	_, ok := index.Get("article-1")
	assert.True(t, ok)

	outcome, err = svc.SyncDocument(ctx, &CMSDocument{ID: "drafts.article-2", Type: "article"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	outcome, err = svc.SyncDocument(ctx, &CMSDocument{ID: "article-3", Type: "article", IsDraft: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	outcome, err = svc.SyncDocument(ctx, &CMSDocument{ID: "article-1", Type: "article", WasDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Empty(t, index.ObjectIDs())
}

func TestSyncByID(t *testing.T) {
	store := seedStore(t,
		docstore.Document{"_id": "product-1", "_type": "product", "title": "Mug", "price": 1299},
		docstore.Document{"_id": "productVariant-10", "_type": "productVariant", "title": "Default"},
	)
	index := NewMemoryIndex()
	svc := NewService(store, index, logger.NewNop())
	ctx := context.Background()

	outcome, err := svc.SyncByID(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, outcome)
	record, _ := index.Get("product-1")
	assert.Equal(t, int64(1299), record.Price)

	outcome, err = svc.SyncByID(ctx, "productVariant-10")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	store.Delete("product-1")
	outcome, err = svc.SyncByID(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Empty(t, index.ObjectIDs())
}

func TestResyncReplacesIndex(t *testing.T) {
	store := seedStore(t,
		docstore.Document{"_id": "article-1", "_type": "article", "title": "A"},
		docstore.Document{"_id": "article-2", "_type": "article", "title": "B", "isDraft": true},
		docstore.Document{"_id": "tutorial-1", "_type": "tutorial", "title": "T"},
		docstore.Document{"_id": "product-1", "_type": "product", "title": "P"},
		docstore.Document{"_id": "product-2", "_type": "product", "title": "Gone", "wasDeleted": true},
		docstore.Document{"_id": "page-1", "_type": "page", "title": "Not indexed"},
	)
	index := NewMemoryIndex()
	require.NoError(t, index.SaveObject(context.Background(), models.SearchIndexRecord{ObjectID: "stale"}))

	report, err := NewService(store, index, logger.NewNop()).Resync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, map[string]int{"article": 1, "tutorial": 1, "product": 1}, report.ByType)
	assert.Equal(t, []string{"article-1", "product-1", "tutorial-1"}, index.ObjectIDs())
	assert.Equal(t, 1, index.Clears())
}

// localRequester points the search client at a test server.
type localRequester struct {
	target *url.URL
}

func (r localRequester) Request(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = r.target.Host
	return http.DefaultClient.Do(req)
}

func readBody(t *testing.T, r *http.Request) []byte {
	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return nil
		}
		defer gz.Close()
		reader = gz
	}
	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	return body
}

func TestAlgoliaIndex(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	var batches []int
	clearFailures := 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app", r.Header.Get("X-Algolia-Application-Id"))
		assert.Equal(t, "key", r.Header.Get("X-Algolia-API-Key"))
		body := readBody(t, r)

		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)

		switch {
		case strings.Contains(string(body), `"broken"`):
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"Invalid object","status":400}`)
			return
		case r.URL.Path == "/1/indexes/content/clear" && clearFailures > 0:
			clearFailures--
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"message":"unavailable","status":503}`)
			return
		case r.URL.Path == "/1/indexes/content/batch":
			var req struct {
				Requests []json.RawMessage `json:"requests"`
			}
			assert.NoError(t, json.Unmarshal(body, &req))
			batches = append(batches, len(req.Requests))
		}
		fmt.Fprint(w, `{"taskID":1,"objectID":"x","objectIDs":[]}`)
	}))
	defer srv.Close()
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	idx, err := NewAlgoliaIndex(AlgoliaConfig{
		AppID:     "app",
		APIKey:    "key",
		Index:     "content",
		BatchSize: 2,
		Requester: localRequester{target: target},
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.SaveObject(ctx, models.SearchIndexRecord{ObjectID: "article-1"}))
	require.NoError(t, idx.DeleteObject(ctx, "article-1"))
	require.NoError(t, idx.ClearObjects(ctx))
	require.NoError(t, idx.SaveObjects(ctx, []models.SearchIndexRecord{{ObjectID: "a"}, {ObjectID: "b"}, {ObjectID: "c"}}))
	require.NoError(t, idx.SaveObjects(ctx, nil))

	err = idx.SaveObject(ctx, models.SearchIndexRecord{ObjectID: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, calls, "DELETE /1/indexes/content/article-1")
	clears := 0
	for _, call := range calls {
		if call == "POST /1/indexes/content/clear" {
			clears++
		}
	}
	assert.Equal(t, 2, clears, "a 503 is retried")
	assert.Equal(t, []int{2, 1}, batches)
}

func TestNewAlgoliaIndexRequiresCredentials(t *testing.T) {
	_, err := NewAlgoliaIndex(AlgoliaConfig{Index: "content"})
	assert.Error(t, err)
}
