// Package source supplies input records to the map stage. A Source splits
// its input into Partitions; each Partition delivers its records in a fixed
// order and must be consumed by a single mapper.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

// RecordFunc receives records one at a time. Returning an error stops the
// partition.
type RecordFunc func(rec index.Record) error

// Partition is an ordered, finite sequence of records.
type Partition interface {
	Name() string
	Each(ctx context.Context, fn RecordFunc) error
}

// Source lists the partitions of an input.
type Source interface {
	Partitions(ctx context.Context) ([]Partition, error)
	Close() error
}

// MemoryPartition is a Partition over records held in memory.
type MemoryPartition struct {
	name    string
	records []index.Record
}

// Lines builds a MemoryPartition whose offsets are byte offsets of each line
// as if the lines were newline-terminated.
func Lines(name string, lines ...string) *MemoryPartition {
	records := make([]index.Record, 0, len(lines))
	var offset int64
	for _, line := range lines {
		records = append(records, index.Record{Offset: offset, Text: line})
		offset += int64(len(line)) + 1
	}
	return &MemoryPartition{name: name, records: records}
}

// Records builds a MemoryPartition from existing records.
func Records(name string, records []index.Record) *MemoryPartition {
	return &MemoryPartition{name: name, records: records}
}

func (p *MemoryPartition) Name() string {
	return p.name
}

func (p *MemoryPartition) Each(ctx context.Context, fn RecordFunc) error {
	for _, rec := range p.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
