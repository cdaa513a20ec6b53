package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
)

// EntryMessage is the JSON value of every message the Kafka sink publishes.
// Line carries the same text the text sink would write.
type EntryMessage struct {
	Term     string            `json:"term"`
	Postings index.PostingList `json:"postings"`
	Line     string            `json:"line"`
}

// Kafka publishes one message per entry, keyed by term so that all updates
// of a term land in the same topic partition.
type Kafka struct {
	producer *kafka.Producer
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

func NewKafka(producer *kafka.Producer, retry resilience.RetryConfig) *Kafka {
	return &Kafka{
		producer: producer,
		retry:    retry,
		logger:   logger.WithComponent("kafka-sink"),
	}
}

func (k *Kafka) Name() string {
	return "kafka"
}

func (k *Kafka) Write(ctx context.Context, partition int, entries []index.TermEntry) error {
	events := make([]kafka.Event, 0, len(entries))
	for _, e := range entries {
		events = append(events, kafka.Event{
			Key: e.Term,
			Value: EntryMessage{
				Term:     e.Term,
				Postings: e.Postings,
				Line:     index.FormatLine(e),
			},
		})
	}
	err := resilience.Retry(ctx, "kafka publish", k.retry, func() error {
		return k.producer.PublishBatch(ctx, events)
	})
	if err != nil {
		return fmt.Errorf("%w: partition %d: %w", apperrors.ErrSinkUnavailable, partition, err)
	}
	k.logger.Debug("batch published", "partition", partition, "entries", len(entries))
	return nil
}

func (k *Kafka) Commit(context.Context) error {
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
