package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/config"
)

// Header names set on every published message when the value provides
// them.
const (
	HeaderEventType = "event-type"
	HeaderRequestID = "x-request-id"
)

// Event is one message bound for a topic. Key picks the partition and
// Value is JSON-encoded.
type Event struct {
	Key   string
	Value any
}

// Typed values publish their type as the event-type header, so consumers
// can route without decoding the body.
type Typed interface {
	EventType() string
}

// Traced values publish the request that caused them.
type Traced interface {
	TraceID() string
}

// Producer publishes JSON-encoded events to one topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		// Catalog topics are created on first publish in development.
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		topic:  topic,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// PublishBatch writes events in a single synchronous call. A value that
// fails to encode aborts the whole batch before anything is written.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(messages), "error", err)
		return fmt.Errorf("publishing %d events to %s: %w", len(messages), p.topic, err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %q: %w", event.Key, err)
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value}
	if t, ok := event.Value.(Typed); ok && t.EventType() != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte(t.EventType())})
	}
	if t, ok := event.Value.(Traced); ok && t.TraceID() != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderRequestID, Value: []byte(t.TraceID())})
	}
	return msg, nil
}

func (p *Producer) Topic() string {
	return p.topic
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
