package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
)

// Redis stores every entry under keyPrefix+term with the formatted postings
// as its value.
type Redis struct {
	client    *pkgredis.Client
	keyPrefix string
	ttl       time.Duration
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

// NewRedis removes every key under keyPrefix left by an earlier run and
// returns a sink that writes the new index there.
func NewRedis(ctx context.Context, client *pkgredis.Client, keyPrefix string, ttl time.Duration, retry resilience.RetryConfig) (*Redis, error) {
	if keyPrefix == "" {
		return nil, fmt.Errorf("%w: redis key prefix must not be empty", apperrors.ErrInvalidInput)
	}
	r := &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		retry:     retry,
		logger:    logger.WithComponent("redis-sink").With("prefix", keyPrefix),
	}
	deleted, err := client.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: clearing previous index: %w", apperrors.ErrSinkUnavailable, err)
	}
	r.logger.Info("previous index cleared", "keys_deleted", deleted)
	return r, nil
}

func (r *Redis) Name() string {
	return "redis"
}

// Key returns the Redis key holding term.
func (r *Redis) Key(term string) string {
	return r.keyPrefix + term
}

func (r *Redis) Write(ctx context.Context, partition int, entries []index.TermEntry) error {
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[r.Key(e.Term)] = e.Format()
	}
	err := resilience.Retry(ctx, "redis write", r.retry, func() error {
		return r.client.SetMany(ctx, values, r.ttl)
	})
	if err != nil {
		return fmt.Errorf("%w: partition %d: %w", apperrors.ErrSinkUnavailable, partition, err)
	}
	r.logger.Debug("batch written", "partition", partition, "entries", len(entries))
	return nil
}

func (r *Redis) Commit(context.Context) error {
	return nil
}

// Close leaves the client open; it belongs to the caller.
func (r *Redis) Close() error {
	return nil
}
