// Package sink persists the index entries emitted by the reduce stage.
// Every reduce partition writes through its own calls to Write, so a Sink
// must accept concurrent writes for different partitions.
package sink

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
)

// Sink receives index entries in batches.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Write stores a batch of entries belonging to one reduce partition.
	Write(ctx context.Context, partition int, entries []index.TermEntry) error
	// Commit finalises the output after every partition has been written.
	Commit(ctx context.Context) error
	// Close releases resources. It does not commit.
	Close() error
}

// Memory keeps every entry in memory.
type Memory struct {
	mu      sync.Mutex
	entries []index.TermEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) Write(_ context.Context, _ int, entries []index.TermEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *Memory) Commit(context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Entries returns everything written so far ordered by term.
func (m *Memory) Entries() []index.TermEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]index.TermEntry, len(m.entries))
	copy(out, m.entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Term < out[j].Term
	})
	return out
}

// prepareOutputDir creates dir, refusing to reuse one that already holds
// files so a previous run's output is never mixed with a new one.
func prepareOutputDir(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case err == nil && len(entries) > 0:
		return fmt.Errorf("%w: %s is not empty", apperrors.ErrOutputExists, dir)
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating output directory: %w", apperrors.ErrSinkUnavailable, err)
	}
	return nil
}

// PartName is the base name of a reduce partition's output.
func PartName(partition int) string {
	return fmt.Sprintf("part-r-%05d", partition)
}

// SuccessMarker is created in an output directory once a run has committed.
const SuccessMarker = "_SUCCESS"
