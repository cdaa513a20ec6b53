package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
)

// KafkaSource reads a topic where every message value is one input line.
// Each Kafka partition becomes one Partition, so document boundaries are
// tracked per Kafka partition in offset order.
type KafkaSource struct {
	cfg    config.KafkaConfig
	retry  resilience.RetryConfig
	topic  string
	logger *slog.Logger
}

func NewKafkaSource(cfg config.KafkaConfig, retry resilience.RetryConfig, topic string) *KafkaSource {
	return &KafkaSource{
		cfg:    cfg,
		retry:  retry,
		topic:  topic,
		logger: logger.WithComponent("kafka-source").With("topic", topic),
	}
}

func (s *KafkaSource) Partitions(ctx context.Context) ([]Partition, error) {
	var ids []int
	err := resilience.Retry(ctx, "kafka partitions", s.retry, func() error {
		var err error
		ids, err = kafka.Partitions(ctx, s.cfg, s.topic)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	partitions := make([]Partition, 0, len(ids))
	for _, id := range ids {
		partitions = append(partitions, &kafkaPartition{source: s, id: id})
	}
	s.logger.Info("input partitions resolved", "partitions", len(partitions))
	return partitions, nil
}

func (s *KafkaSource) Close() error {
	return nil
}

type kafkaPartition struct {
	source *KafkaSource
	id     int
}

func (p *kafkaPartition) Name() string {
	return fmt.Sprintf("%s/%d", p.source.topic, p.id)
}

func (p *kafkaPartition) Each(ctx context.Context, fn RecordFunc) error {
	var reader *kafka.PartitionReader
	err := resilience.Retry(ctx, "kafka open "+p.Name(), p.source.retry, func() error {
		var err error
		reader, err = kafka.OpenPartition(ctx, p.source.cfg, p.source.topic, p.id)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	defer reader.Close()

	return reader.ReadAll(ctx, func(_ context.Context, offset int64, _ []byte, value []byte) error {
		line := strings.TrimSuffix(string(value), "\n")
		return fn(index.Record{Offset: offset, Text: line})
	})
}
