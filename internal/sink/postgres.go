package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
)

var (
	postingColumns = []postgres.Column{
		{Name: "term", Type: "TEXT NOT NULL"},
		{Name: "doc_id", Type: "TEXT NOT NULL"},
		{Name: "frequency", Type: "INTEGER NOT NULL CHECK (frequency > 0)"},
	}
	postingKey = []string{"term", "doc_id"}
)

// Postgres stores one (term, doc_id, frequency) row per posting. Each batch
// is loaded with one COPY.
type Postgres struct {
	client *postgres.Client
	table  string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewPostgres creates the table if needed and empties it so the table holds
// exactly the index of this run.
func NewPostgres(ctx context.Context, client *postgres.Client, table string, retry resilience.RetryConfig) (*Postgres, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: postgres table must not be empty", apperrors.ErrInvalidInput)
	}
	if err := client.EnsureTable(ctx, table, postingColumns, postingKey, true); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
	}
	return &Postgres{
		client: client,
		table:  table,
		retry:  retry,
		logger: logger.WithComponent("postgres-sink").With("table", table),
	}, nil
}

func (p *Postgres) Name() string {
	return "postgres"
}

func (p *Postgres) Write(ctx context.Context, partition int, entries []index.TermEntry) error {
	rows := postingRows(entries)
	err := resilience.Retry(ctx, "postgres copy", p.retry, func() error {
		return p.client.CopyIn(ctx, p.table, []string{"term", "doc_id", "frequency"}, rows)
	})
	if err != nil {
		return fmt.Errorf("%w: partition %d: %w", apperrors.ErrSinkUnavailable, partition, err)
	}
	p.logger.Debug("batch copied", "partition", partition, "entries", len(entries), "rows", len(rows))
	return nil
}

func postingRows(entries []index.TermEntry) [][]any {
	var rows [][]any
	for _, e := range entries {
		for _, posting := range e.Postings {
			rows = append(rows, []any{e.Term, posting.DocID, posting.Frequency})
		}
	}
	return rows
}

func (p *Postgres) Commit(context.Context) error {
	return nil
}

// Close leaves the client open; it belongs to the caller.
func (p *Postgres) Close() error {
	return nil
}
