package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"
)

// Event is the unit of data published to Kafka. Key is used for partition
// hashing and Value is JSON-serialised.
type Event struct {
	Key   string
	Value any
}

// Producer publishes JSON-encoded events to a Kafka topic.
type Producer struct {
	writer  *kafka.Writer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewProducer creates a Producer for the given topic. When cfg.PublishRate is
// positive, publishing is throttled to that many messages per second with a
// burst of at least minBurst so a full batch can always be admitted.
func NewProducer(cfg config.KafkaConfig, topic string, minBurst int) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Async:        false,

		AllowAutoTopicCreation: true,
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.PublishRate > 0 {
		burst := max(cfg.PublishBurst, minBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), burst)
	}
	return &Producer{
		writer:  w,
		limiter: limiter,
		logger:  slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish serialises a single event and writes it to Kafka synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling event value: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for publish budget: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish message",
			"key", event.Key,
			"error", err,
		)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("message published",
		"key", event.Key,
		"value_size", len(value),
	)
	return nil
}

// PublishBatch writes multiple events to Kafka in a single write call. The
// batch must not exceed the limiter burst.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return fmt.Errorf("marshaling event value: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.Key),
			Value: value,
		})
	}
	if err := p.limiter.WaitN(ctx, len(messages)); err != nil {
		return fmt.Errorf("waiting for publish budget: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch",
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

// PublishRaw writes values verbatim under key, one message each. It seeds
// input topics whose messages are plain text lines.
func (p *Producer) PublishRaw(ctx context.Context, key string, values ...[]byte) error {
	messages := make([]kafka.Message, len(values))
	for i, v := range values {
		messages[i] = kafka.Message{Key: []byte(key), Value: v}
	}
	if err := p.limiter.WaitN(ctx, len(messages)); err != nil {
		return fmt.Errorf("waiting for publish budget: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publishing raw messages to kafka: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
