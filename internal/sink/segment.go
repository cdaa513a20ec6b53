package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
)

// Segment buffers each partition's entries and writes them as one .spdx
// segment per partition on commit.
type Segment struct {
	dir     string
	writer  *segment.Writer
	mu      sync.Mutex
	pending map[int][]index.TermEntry
	logger  *slog.Logger
}

func NewSegment(dir string) (*Segment, error) {
	if err := prepareOutputDir(dir); err != nil {
		return nil, err
	}
	return &Segment{
		dir:     dir,
		writer:  segment.NewWriter(dir),
		pending: make(map[int][]index.TermEntry),
		logger:  logger.WithComponent("segment-sink").With("dir", dir),
	}, nil
}

func (s *Segment) Name() string {
	return "segment"
}

func (s *Segment) Write(_ context.Context, partition int, entries []index.TermEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[partition] = append(s.pending[partition], entries...)
	return nil
}

// Commit writes one segment per non-empty partition, then the success marker.
func (s *Segment) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for partition, entries := range s.pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		name, err := s.writer.Write(PartName(partition), entries)
		if err != nil {
			return fmt.Errorf("%w: partition %d: %w", apperrors.ErrSinkUnavailable, partition, err)
		}
		s.logger.Info("segment written",
			"segment", name,
			"terms", len(entries),
		)
	}
	s.pending = make(map[int][]index.TermEntry)
	marker := filepath.Join(s.dir, SuccessMarker)
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return fmt.Errorf("%w: writing success marker: %w", apperrors.ErrSinkUnavailable, err)
	}
	return nil
}

func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[int][]index.TermEntry)
	return nil
}
