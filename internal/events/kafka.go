// Package events publishes document change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"storesync/internal/config"
	"storesync/internal/logger"
	"storesync/internal/models"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer MessageWriter
	logger *logger.Logger
}

func NewKafkaPublisher(cfg *config.Config, logger *logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewPublisherWithWriter(writer, logger)
}

func NewPublisherWithWriter(writer MessageWriter, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes events keyed by document id, so changes to one document
// stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...models.DocumentEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := toMessages(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d events: %w", len(msgs), err)
	}
	p.logger.Debug("Published %d document events", len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessages(events []models.DocumentEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.DocumentID),
			Value: value,
			Time:  e.Timestamp,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}
	return msgs, nil
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, events ...models.DocumentEvent) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

// Publisher is what the service entry points hold on to.
type Publisher interface {
	Publish(ctx context.Context, events ...models.DocumentEvent) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, else a no-op.
func New(cfg *config.Config, logger *logger.Logger) Publisher {
	if !cfg.KafkaEnabled() {
		logger.Info("Kafka not configured, document events are not published")
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg, logger)
}
