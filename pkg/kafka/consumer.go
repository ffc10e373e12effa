// Package kafka publishes catalog events to Kafka and consumes them back,
// using segmentio/kafka-go. Values are JSON; the event type and the
// originating request id ride along as headers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
)

// Message is a fetched record with its headers decoded.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Type      string
	RequestID string
	Time      time.Time
}

type MessageHandler func(ctx context.Context, msg Message) error

// Consumer reads one topic as part of a consumer group. A message whose
// handler keeps failing is committed and skipped after a few attempts so
// one bad record cannot stall the partition.
type Consumer struct {
	topic     string
	reader    *kafka.Reader
	handler   MessageHandler
	retry     resilience.RetryConfig
	logger    *slog.Logger
	processed atomic.Int64
	dropped   atomic.Int64
}

// NewConsumer creates a Consumer. With fromStart set, a group without
// committed offsets replays the topic from its first message instead of
// only new ones.
func NewConsumer(cfg config.KafkaConfig, topic string, fromStart bool, handler MessageHandler) *Consumer {
	startOffset := kafka.LastOffset
	if fromStart {
		startOffset = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: startOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r *kafka.Reader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		topic:   topic,
		reader:  r,
		handler: handler,
		retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second},
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "processed", c.processed.Load(), "dropped", c.dropped.Load())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.process(ctx, decode(raw))
		if err := c.reader.CommitMessages(ctx, raw); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				"partition", raw.Partition,
				"offset", raw.Offset,
				"error", err,
			)
		}
	}
}

// process runs the handler with retries and reports whether it succeeded.
func (c *Consumer) process(ctx context.Context, msg Message) bool {
	if msg.RequestID != "" {
		ctx = logger.WithRequestID(ctx, msg.RequestID)
	}
	err := resilience.Retry(ctx, "handle "+msg.Type, c.retry, func() error {
		return c.handler(ctx, msg)
	})
	if err != nil {
		c.dropped.Add(1)
		logger.FromContext(ctx).Error("dropping message",
			"component", "kafka-consumer",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"type", msg.Type,
			"error", err,
		)
		return false
	}
	c.processed.Add(1)
	return true
}

// Counts reports handled and dropped messages since start.
func (c *Consumer) Counts() (processed, dropped int64) {
	return c.processed.Load(), c.dropped.Load()
}

func (c *Consumer) Topic() string {
	return c.topic
}

func decode(raw kafka.Message) Message {
	msg := Message{
		Topic: raw.Topic,
		Key:   raw.Key,
		Value: raw.Value,
		Time:  raw.Time,
	}
	for _, h := range raw.Headers {
		switch h.Key {
		case HeaderEventType:
			msg.Type = string(h.Value)
		case HeaderRequestID:
			msg.RequestID = string(h.Value)
		}
	}
	return msg
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
