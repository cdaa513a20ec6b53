// Package shuffle collects map output into per-term groups. Terms are
// hash-partitioned so that each reduce worker owns a disjoint set of terms
// and its own Table.
package shuffle

import (
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
)

// Partition returns the reduce partition in [0, n) that owns term.
func Partition(term string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(term))
	return int((h.Sum32() & 0x7fffffff) % uint32(n))
}

// Partitioned maps reduce partitions to dedicated Tables.
type Partitioned struct {
	tables []*Table
	logger *slog.Logger
}

// NewPartitioned creates numPartitions empty tables. Values below one are
// treated as one.
func NewPartitioned(numPartitions int) *Partitioned {
	if numPartitions < 1 {
		numPartitions = 1
	}
	p := &Partitioned{
		tables: make([]*Table, numPartitions),
		logger: logger.WithComponent("shuffle"),
	}
	for i := range p.tables {
		p.tables[i] = NewTable()
	}
	return p
}

// Add routes each posting to the table of its term's partition. Postings are
// batched per partition so each table lock is taken at most once per call.
func (p *Partitioned) Add(postings ...index.TermPosting) {
	if len(p.tables) == 1 {
		p.tables[0].Add(postings...)
		return
	}
	batches := make([][]index.TermPosting, len(p.tables))
	for _, posting := range postings {
		id := Partition(posting.Term, len(p.tables))
		batches[id] = append(batches[id], posting)
	}
	for id, batch := range batches {
		p.tables[id].Add(batch...)
	}
}

// Table returns the table for a partition.
func (p *Partitioned) Table(partition int) (*Table, error) {
	if partition < 0 || partition >= len(p.tables) {
		return nil, fmt.Errorf("unknown partition %d (valid range: 0-%d)", partition, len(p.tables)-1)
	}
	return p.tables[partition], nil
}

// NumPartitions returns the number of reduce partitions.
func (p *Partitioned) NumPartitions() int {
	return len(p.tables)
}

// Terms returns the number of distinct terms across all partitions.
func (p *Partitioned) Terms() int {
	total := 0
	for _, t := range p.tables {
		total += t.Len()
	}
	return total
}

// Postings returns the number of postings across all partitions.
func (p *Partitioned) Postings() int64 {
	var total int64
	for _, t := range p.tables {
		total += t.Postings()
	}
	return total
}

// LogDistribution logs the term count of every partition at debug level.
func (p *Partitioned) LogDistribution() {
	for id, t := range p.tables {
		p.logger.Debug("partition filled",
			"partition", id,
			"terms", t.Len(),
			"postings", t.Postings(),
			"size", t.Size(),
		)
	}
}
