package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisherWithWriter(w, logger.NewNop())

	changed := models.NewDocumentEvent(models.DocumentChanged, "product-1", models.DocumentTypeProduct)
	deleted := models.NewDocumentEvent(models.DocumentDeleted, "productVariant-2", models.DocumentTypeProductVariant)
	require.NoError(t, p.Publish(context.Background(), changed, deleted))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "product-1", string(w.msgs[0].Key))
	assert.Equal(t, "document.deleted", string(w.msgs[1].Headers[0].Value))

	var decoded models.DocumentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, changed.ID, decoded.ID)
	assert.Equal(t, models.DocumentChanged, decoded.Type)

	require.NoError(t, p.Publish(context.Background()))
	assert.Len(t, w.msgs, 2)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	p := NewPublisherWithWriter(&fakeWriter{err: errors.New("broker down")}, logger.NewNop())
	err := p.Publish(context.Background(), models.NewDocumentEvent(models.DocumentChanged, "product-1", "product"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewWithoutBrokers(t *testing.T) {
	p := New(&config.Config{}, logger.NewNop())
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), models.NewDocumentEvent(models.DocumentChanged, "x", "product")))
}
