// Package postgres wraps a lib/pq connection pool for the PostgreSQL sink:
// table setup, bulk loading with COPY, and a transaction helper.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	"github.com/lib/pq"
)

// connectTimeout bounds the initial ping when ctx has no earlier deadline.
const connectTimeout = 5 * time.Second

type Client struct {
	db *sql.DB
}

// Column is one column of a table created by EnsureTable. Type is the full
// column definition after the name, constraints included.
type Column struct {
	Name string
	Type string
}

// New opens the pool described by cfg and pings it.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{db: db}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.db.Close()
}

// InTx runs fn in a transaction, committing if fn succeeds and rolling back
// otherwise.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// EnsureTable creates table if it does not exist. With truncate set it also
// empties the table in the same transaction.
func (c *Client) EnsureTable(ctx context.Context, table string, columns []Column, primaryKey []string, truncate bool) error {
	ddl, err := createTableSQL(table, columns, primaryKey)
	if err != nil {
		return err
	}
	return c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
		if !truncate {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "TRUNCATE "+pq.QuoteIdentifier(table)); err != nil {
			return fmt.Errorf("truncating table %s: %w", table, err)
		}
		return nil
	})
}

// DropTable removes table if it exists.
func (c *Client) DropTable(ctx context.Context, table string) error {
	_, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table))
	return err
}

// CopyIn loads rows into table with a single COPY in its own transaction.
// Every row holds one value per column, in column order. Either all rows
// are loaded or none are.
func (c *Client) CopyIn(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return c.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", table, err)
		}
		defer stmt.Close()
		for i, row := range rows {
			if len(row) != len(columns) {
				return fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("copying row %d: %w", i, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy into %s: %w", table, err)
		}
		return nil
	})
}

// Query runs query and calls scan for every row.
func (c *Client) Query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func createTableSQL(table string, columns []Column, primaryKey []string) (string, error) {
	if table == "" || len(columns) == 0 {
		return "", fmt.Errorf("table %q needs a name and at least one column", table)
	}
	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		defs = append(defs, pq.QuoteIdentifier(col.Name)+" "+col.Type)
	}
	if len(primaryKey) > 0 {
		keys := make([]string, len(primaryKey))
		for i, k := range primaryKey {
			keys[i] = pq.QuoteIdentifier(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pq.QuoteIdentifier(table), strings.Join(defs, ", ")), nil
}
