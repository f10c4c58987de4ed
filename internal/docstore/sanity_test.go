package docstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSanity(t *testing.T, handler http.HandlerFunc) *SanityStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSanityStore(SanityConfig{Dataset: "production", APIVersion: "2023-10-01", Token: "tok", BaseURL: srv.URL})
	require.NoError(t, err)
	return s
}

func TestSanityCommitPostsMutations(t *testing.T) {
	var got struct {
		Mutations     []map[string]json.RawMessage `json:"mutations"`
		TransactionID string                       `json:"transactionId"`
	}
	s := newTestSanity(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2023-10-01/data/mutate/production", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"transactionId":"x","results":[]}`))
	})

	tx := NewTransaction().
		CreateIfNotExists(Document{"_id": "product-1", "_type": "product"}).
		Unset("product-1", "options")
	require.NoError(t, s.Commit(context.Background(), tx))

	require.Len(t, got.Mutations, 2)
	assert.Contains(t, got.Mutations[0], "createIfNotExists")
	assert.JSONEq(t, `{"id":"product-1","unset":["options"]}`, string(got.Mutations[1]["patch"]))
	assert.Equal(t, tx.ID, got.TransactionID)
}

func TestSanityCommitSurfacesStoreError(t *testing.T) {
	s := newTestSanity(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"description":"Insufficient permissions","type":"mutationError"}}`))
	})

	err := s.Commit(context.Background(), NewTransaction().Set("product-1", map[string]interface{}{"a": 1}))
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusForbidden, storeErr.StatusCode)
	assert.Equal(t, "Insufficient permissions", storeErr.Message)
}

func TestSanityQueries(t *testing.T) {
	s := newTestSanity(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2023-10-01/data/doc/production/product-1":
			w.Write([]byte(`{"documents":[{"_id":"product-1","_type":"product","shopifyId":1234567890123}]}`))
		case "/v2023-10-01/data/doc/production/product-2":
			w.Write([]byte(`{"documents":[]}`))
		case "/v2023-10-01/data/query/production":
			assert.Equal(t, "1234567890123", r.URL.Query().Get("$value"))
			assert.Equal(t, `"productVariant"`, r.URL.Query().Get("$type"))
			w.Write([]byte(`{"result":["productVariant-1","productVariant-2"]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	doc, err := s.Get(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, "1234567890123", doc["shopifyId"].(json.Number).String())

	ok, err := s.Exists(ctx, "product-2")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.ListIDs(ctx, "productVariant", "productId", int64(1234567890123))
	require.NoError(t, err)
	assert.Equal(t, []string{"productVariant-1", "productVariant-2"}, ids)

	_, err = s.ListIDs(ctx, "productVariant", "productId) || true || (", 1)
	assert.Error(t, err)
}

func TestPatchPipeline(t *testing.T) {
	pipeline := patchPipeline(&Patch{
		ID:           "p",
		Set:          map[string]interface{}{"_id": "x", "price": 100},
		SetIfMissing: map[string]interface{}{"title": "T"},
		Unset:        []string{"options"},
	})
	require.Len(t, pipeline, 3)
	assert.Equal(t, "$set", pipeline[0][0].Key)
	assert.Equal(t, "$unset", pipeline[2][0].Key)
}
