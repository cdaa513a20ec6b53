// Package kafka provides Kafka clients backed by segmentio/kafka-go. The
// PartitionReader replays one topic partition as a bounded, ordered record
// stream, while the Producer serialises index entries as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message, in offset
// order.
type MessageHandler func(ctx context.Context, offset int64, key []byte, value []byte) error

// Partitions returns the sorted partition IDs of topic.
func Partitions(ctx context.Context, cfg config.KafkaConfig, topic string) ([]int, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	dialer := &kafka.Dialer{Timeout: cfg.DialTimeout}
	var lastErr error
	for _, broker := range cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		parts, err := conn.ReadPartitions(topic)
		conn.Close()
		if err != nil {
			return nil, fmt.Errorf("reading partitions of %s: %w", topic, err)
		}
		ids := make([]int, 0, len(parts))
		for _, p := range parts {
			ids = append(ids, p.ID)
		}
		sort.Ints(ids)
		return ids, nil
	}
	return nil, fmt.Errorf("dialing kafka brokers %v: %w", cfg.Brokers, lastErr)
}

// defaultIdleTimeout is used when the config leaves IdleTimeout unset. It
// must exceed the reader's MaxWait so an empty long poll is not mistaken for
// the end of the range.
const (
	defaultIdleTimeout = 5 * time.Second
	fetchMaxWait       = time.Second
)

// messageFetcher is the part of *kafka.Reader a PartitionReader uses.
type messageFetcher interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// PartitionReader reads one partition from its first offset up to the last
// offset observed when it was opened. Messages produced later are not read.
type PartitionReader struct {
	reader    messageFetcher
	partition int
	first     int64
	last      int64
	idle      time.Duration
	logger    *slog.Logger
}

// OpenPartition resolves the offset range of a partition through its leader
// and positions a reader at the first offset.
func OpenPartition(ctx context.Context, cfg config.KafkaConfig, topic string, partition int) (*PartitionReader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	dialer := &kafka.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialLeader(ctx, "tcp", cfg.Brokers[0], topic, partition)
	if err != nil {
		return nil, fmt.Errorf("dialing leader of %s/%d: %w", topic, partition, err)
	}
	first, last, err := conn.ReadOffsets()
	conn.Close()
	if err != nil {
		return nil, fmt.Errorf("reading offsets of %s/%d: %w", topic, partition, err)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     topic,
		Partition: partition,
		Dialer:    dialer,
		MinBytes:  1,
		MaxBytes:  cfg.MaxMessageSize,
		MaxWait:   fetchMaxWait,
	})
	if err := r.SetOffset(first); err != nil {
		r.Close()
		return nil, fmt.Errorf("seeking %s/%d to offset %d: %w", topic, partition, first, err)
	}
	return newPartitionReader(r, topic, partition, first, last, cfg.IdleTimeout), nil
}

func newPartitionReader(r messageFetcher, topic string, partition int, first, last int64, idle time.Duration) *PartitionReader {
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &PartitionReader{
		reader:    r,
		partition: partition,
		first:     first,
		last:      last,
		idle:      idle,
		logger:    slog.Default().With("component", "kafka-reader", "topic", topic, "partition", partition),
	}
}

// Len returns the number of messages the reader will deliver.
func (p *PartitionReader) Len() int64 {
	return p.last - p.first
}

// ReadAll delivers every message in the offset range to handler and stops at
// the first handler error. Offsets in the range that carry no data, such as
// transaction markers or compacted records, are never delivered; once no
// message has arrived for the idle timeout the replay ends.
func (p *PartitionReader) ReadAll(ctx context.Context, handler MessageHandler) error {
	p.logger.Debug("partition replay started", "first_offset", p.first, "last_offset", p.last)
	next := p.first
	var delivered int64
	for next < p.last {
		msg, err := p.fetch(ctx)
		if errors.Is(err, errIdle) {
			p.logger.Warn("partition replay ended before last offset",
				"next_offset", next,
				"last_offset", p.last,
				"idle", p.idle,
			)
			break
		}
		if err != nil {
			return fmt.Errorf("reading offset %d: %w", next, err)
		}
		if msg.Offset >= p.last {
			break
		}
		if err := handler(ctx, msg.Offset, msg.Key, msg.Value); err != nil {
			return err
		}
		delivered++
		next = msg.Offset + 1
	}
	p.logger.Debug("partition replay finished", "messages", delivered)
	return nil
}

var errIdle = errors.New("no message within idle timeout")

func (p *PartitionReader) fetch(ctx context.Context) (kafka.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.idle)
	defer cancel()
	msg, err := p.reader.ReadMessage(fetchCtx)
	if err != nil && ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		return msg, errIdle
	}
	return msg, err
}

// Close closes the underlying Kafka reader.
func (p *PartitionReader) Close() error {
	return p.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
