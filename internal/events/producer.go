// internal/events/producer.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"subpass-service/internal/domain/event"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Topic = "subpass.events"

// Producer publishes marketplace events for downstream consumers (indexers,
// notification services). The websocket hub gets the same events in-process.
type Producer interface {
	Publish(ctx context.Context, e *event.Event) error
	Close() error
}

type kafkaProducer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewKafkaProducer(brokers []string, logger *zap.Logger) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_3_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &kafkaProducer{producer: producer, logger: logger}, nil
}

func (p *kafkaProducer) Publish(ctx context.Context, e *event.Event) error {
	// The hub may be marshalling the same event concurrently. Fill defaults
	// on a copy, never through the shared pointer.
	ev := *e
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	value, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: Topic,
		Key:   sarama.StringEncoder(string(ev.Type)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
		Timestamp: ev.At,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published event",
		zap.String("type", string(ev.Type)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.producer.Close()
}

// NopProducer discards events. Used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, e *event.Event) error { return nil }
func (NopProducer) Close() error                                      { return nil }
