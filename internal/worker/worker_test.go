package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/config"
	"storesync/internal/docstore"
	"storesync/internal/logger"
	"storesync/internal/models"
	"storesync/internal/search"
	"storesync/internal/worker/processors"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func message(t *testing.T, offset int64, event models.DocumentEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func TestWorkerIndexesChangedDocuments(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Commit(context.Background(), docstore.NewTransaction().
		CreateIfNotExists(docstore.Document{"_id": "product-1", "_type": "product"}).
		Set("product-1", map[string]interface{}{"title": "Mug"})))

	index := search.NewMemoryIndex()
	require.NoError(t, index.SaveObject(context.Background(), models.SearchIndexRecord{ObjectID: "product-2"}))

	log := logger.NewNop()
	processor := processors.NewEventProcessor(search.NewService(store, index, log), log)
	reader := newFakeReader(
		message(t, 1, models.NewDocumentEvent(models.DocumentChanged, "product-1", models.DocumentTypeProduct)),
		kafka.Message{Offset: 2, Value: []byte("not json")},
		message(t, 3, models.NewDocumentEvent(models.DocumentChanged, "productVariant-9", models.DocumentTypeProductVariant)),
		message(t, 4, models.NewDocumentEvent(models.DocumentDeleted, "product-2", models.DocumentTypeProduct)),
	)
	w := NewWithReader(&config.Config{KafkaTopic: "document-events"}, log, reader, processor)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain the queue")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
	assert.Equal(t, []string{"product-1"}, index.ObjectIDs())
	record, _ := index.Get("product-1")
	assert.Equal(t, "Mug", record.Title)
}

func TestProcessRejectsUnknownEventType(t *testing.T) {
	log := logger.NewNop()
	processor := processors.NewEventProcessor(search.NewService(docstore.NewMemoryStore(), search.NewMemoryIndex(), log), log)

	err := processor.Process(context.Background(), models.DocumentEvent{Type: "document.archived", DocumentType: "article", DocumentID: "a"})
	assert.Error(t, err)
}
