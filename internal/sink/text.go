package sink

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
)

// Text writes one "part-r-NNNNN" file per reduce partition, one
// "<term>\t<postings>" line per entry, and a _SUCCESS marker on commit.
type Text struct {
	dir    string
	mu     sync.Mutex
	parts  map[int]*textPart
	logger *slog.Logger
}

type textPart struct {
	file *os.File
	buf  *bufio.Writer
}

// NewText prepares dir and creates an empty part file for every partition so
// that partitions without terms still appear in the output.
func NewText(dir string, partitions int) (*Text, error) {
	if err := prepareOutputDir(dir); err != nil {
		return nil, err
	}
	t := &Text{
		dir:    dir,
		parts:  make(map[int]*textPart, partitions),
		logger: logger.WithComponent("text-sink").With("dir", dir),
	}
	for i := 0; i < partitions; i++ {
		if _, err := t.part(i); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}

func (t *Text) Name() string {
	return "text"
}

func (t *Text) part(partition int) (*textPart, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.parts[partition]; ok {
		return p, nil
	}
	path := filepath.Join(t.dir, PartName(partition))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", apperrors.ErrSinkUnavailable, path, err)
	}
	p := &textPart{file: f, buf: bufio.NewWriterSize(f, 64*1024)}
	t.parts[partition] = p
	return p, nil
}

// Write appends the entries to the partition's file. Only one goroutine
// writes a given partition.
func (t *Text) Write(_ context.Context, partition int, entries []index.TermEntry) error {
	p, err := t.part(partition)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := p.buf.WriteString(index.FormatLine(e)); err != nil {
			return fmt.Errorf("%w: writing %s: %w", apperrors.ErrSinkUnavailable, p.file.Name(), err)
		}
		if err := p.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("%w: writing %s: %w", apperrors.ErrSinkUnavailable, p.file.Name(), err)
		}
	}
	return nil
}

func (t *Text) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.parts {
		if err := p.buf.Flush(); err != nil {
			return fmt.Errorf("%w: flushing partition %d: %w", apperrors.ErrSinkUnavailable, id, err)
		}
		if err := p.file.Sync(); err != nil {
			return fmt.Errorf("%w: syncing partition %d: %w", apperrors.ErrSinkUnavailable, id, err)
		}
	}
	marker := filepath.Join(t.dir, SuccessMarker)
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return fmt.Errorf("%w: writing success marker: %w", apperrors.ErrSinkUnavailable, err)
	}
	t.logger.Info("text output committed", "partitions", len(t.parts))
	return nil
}

func (t *Text) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for id, p := range t.parts {
		if err := p.buf.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flushing partition %d: %w", id, err)
		}
		if err := p.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing partition %d: %w", id, err)
		}
	}
	t.parts = make(map[int]*textPart)
	return firstErr
}
