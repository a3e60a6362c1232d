// Package events publishes domain events to the event stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Publisher delivers domain events to downstream consumers. Publishing is
// best-effort from the pipeline's point of view: callers log failures but
// never fail imports over them.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// Config holds Kafka publisher configuration.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the topic domain events are written to.
	Topic string
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

// KafkaPublisher writes events to a Kafka topic, keyed by aggregate id so
// events for one job or paper stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher over the given brokers.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger) *KafkaPublisher {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish serializes the event envelope and writes it keyed by aggregate id.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.EventType, err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops all events. Used when event publishing is disabled.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

// Publish discards the event.
func (NoopPublisher) Publish(ctx context.Context, event *domain.Event) error {
	return nil
}

// Close is a no-op.
func (NoopPublisher) Close() error {
	return nil
}
