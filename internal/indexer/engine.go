// Package indexer drives the inverted index pipeline: partitions are mapped
// in parallel into a partitioned shuffle table, and once every partition is
// done each reduce partition is reduced in parallel into the sink.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/mapper"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/reducer"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/shuffle"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/source"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// mapFlushSize is how many postings a map worker buffers before handing
// them to the shuffle table.
const mapFlushSize = 4096

// Stats summarises a completed run.
type Stats struct {
	Partitions int
	Records    int64
	Documents  int64
	Postings   int64
	Terms      int
	Entries    int64
	Duration   time.Duration
}

type Engine struct {
	cfg     config.PipelineConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine. Zero worker, partition or batch settings fall
// back to one. A nil m records into a private registry.
func NewEngine(cfg config.PipelineConfig, m *metrics.Metrics) *Engine {
	cfg.MapWorkers = max(cfg.MapWorkers, 1)
	cfg.ReduceWorkers = max(cfg.ReduceWorkers, 1)
	cfg.ReducePartitions = max(cfg.ReducePartitions, 1)
	cfg.BatchSize = max(cfg.BatchSize, 1)
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Engine{
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("indexer"),
	}
}

// Run maps every partition, waits for all of them, then reduces every term
// into out. It does not commit out. When the configured timeout elapses the
// workers are cancelled and the error matches apperrors.ErrTimeout. Run
// returns only after every worker, including any write to out, has stopped.
func (e *Engine) Run(ctx context.Context, partitions []source.Partition, out sink.Sink) (Stats, error) {
	var stats Stats
	err := resilience.WithTimeout(ctx, e.cfg.Timeout, "index run", func(ctx context.Context) error {
		var err error
		stats, err = e.run(ctx, partitions, out)
		return err
	})
	status := "success"
	if err != nil {
		status = "failure"
	}
	e.metrics.RunsTotal.WithLabelValues(status).Inc()
	return stats, err
}

func (e *Engine) run(ctx context.Context, partitions []source.Partition, out sink.Sink) (Stats, error) {
	start := time.Now()
	stats := Stats{Partitions: len(partitions)}

	table := shuffle.NewPartitioned(e.cfg.ReducePartitions)
	records, documents, err := e.mapStage(ctx, partitions, table)
	if err != nil {
		return stats, fmt.Errorf("map stage: %w", err)
	}
	stats.Records = records
	stats.Documents = documents
	stats.Postings = table.Postings()
	stats.Terms = table.Terms()
	table.LogDistribution()
	for id := 0; id < table.NumPartitions(); id++ {
		t, _ := table.Table(id)
		e.metrics.ShuffleTerms.WithLabelValues(strconv.Itoa(id)).Set(float64(t.Len()))
	}

	entries, err := e.reduceStage(ctx, table, out)
	stats.Entries = entries
	if err != nil {
		return stats, fmt.Errorf("reduce stage: %w", err)
	}
	stats.Duration = time.Since(start)
	e.logger.Info("index run complete",
		"partitions", stats.Partitions,
		"records", stats.Records,
		"documents", stats.Documents,
		"postings", stats.Postings,
		"terms", stats.Terms,
		"sink", out.Name(),
		"duration", stats.Duration,
	)
	return stats, nil
}

func (e *Engine) mapStage(ctx context.Context, partitions []source.Partition, table *shuffle.Partitioned) (records, documents int64, err error) {
	ctx, span := tracing.StartChildSpan(ctx, "map")
	defer span.End()
	timer := prometheus.NewTimer(e.metrics.StageDuration.WithLabelValues("map"))
	defer timer.ObserveDuration()

	var recs, docs atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MapWorkers)
	for _, p := range partitions {
		p := p
		g.Go(func() error {
			m, err := e.mapPartition(gctx, p, table)
			recs.Add(m.Records())
			docs.Add(m.Documents())
			if err != nil {
				return fmt.Errorf("partition %s: %w", p.Name(), err)
			}
			return nil
		})
	}
	err = g.Wait()
	span.SetAttr("partitions", len(partitions))
	span.SetAttr("records", recs.Load())
	span.SetAttr("documents", docs.Load())
	return recs.Load(), docs.Load(), err
}

// mapPartition runs one Mapper over a partition in delivery order.
func (e *Engine) mapPartition(ctx context.Context, p source.Partition, table *shuffle.Partitioned) (*mapper.Mapper, error) {
	active := e.metrics.ActiveWorkers.WithLabelValues("map")
	active.Inc()
	defer active.Dec()
	ctx, span := tracing.StartChildSpan(ctx, "map "+p.Name())
	defer span.End()

	m := mapper.New()
	buf := make([]index.TermPosting, 0, mapFlushSize)
	var emitted int64
	err := p.Each(ctx, func(rec index.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf = append(buf, m.Map(rec)...)
		if len(buf) >= mapFlushSize {
			table.Add(buf...)
			emitted += int64(len(buf))
			buf = buf[:0]
		}
		return nil
	})
	if err != nil {
		return m, err
	}
	table.Add(buf...)
	emitted += int64(len(buf))

	span.SetAttr("records", m.Records())
	span.SetAttr("postings", emitted)
	e.metrics.RecordsMappedTotal.Add(float64(m.Records()))
	e.metrics.PostingsTotal.Add(float64(emitted))
	e.logger.Debug("partition mapped",
		"partition", p.Name(),
		"records", m.Records(),
		"documents", m.Documents(),
		"postings", emitted,
		"last_doc_id", m.CurrentDocID(),
	)
	return m, nil
}

func (e *Engine) reduceStage(ctx context.Context, table *shuffle.Partitioned, out sink.Sink) (int64, error) {
	ctx, span := tracing.StartChildSpan(ctx, "reduce")
	defer span.End()
	timer := prometheus.NewTimer(e.metrics.StageDuration.WithLabelValues("reduce"))
	defer timer.ObserveDuration()

	var entries atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ReduceWorkers)
	for id := 0; id < table.NumPartitions(); id++ {
		id := id
		t, err := table.Table(id)
		if err != nil {
			return 0, err
		}
		g.Go(func() error {
			n, err := e.reducePartition(gctx, id, t, out)
			entries.Add(n)
			if err != nil {
				return fmt.Errorf("partition %d: %w", id, err)
			}
			return nil
		})
	}
	err := g.Wait()
	span.SetAttr("entries", entries.Load())
	return entries.Load(), err
}

// reducePartition reduces the groups of one reduce partition in term order
// and writes them to out in batches.
func (e *Engine) reducePartition(ctx context.Context, partition int, t *shuffle.Table, out sink.Sink) (int64, error) {
	active := e.metrics.ActiveWorkers.WithLabelValues("reduce")
	active.Inc()
	defer active.Dec()

	var written int64
	flush := func(batch []index.TermEntry) error {
		if len(batch) == 0 {
			return nil
		}
		if err := out.Write(ctx, partition, batch); err != nil {
			e.metrics.SinkErrorsTotal.WithLabelValues(out.Name()).Inc()
			return err
		}
		written += int64(len(batch))
		e.metrics.EntriesWrittenTotal.WithLabelValues(out.Name()).Add(float64(len(batch)))
		return nil
	}

	groups := t.Groups()
	batch := make([]index.TermEntry, 0, min(e.cfg.BatchSize, len(groups)))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		batch = append(batch, reducer.Reduce(group))
		e.metrics.TermsReducedTotal.Inc()
		if len(batch) >= e.cfg.BatchSize {
			if err := flush(batch); err != nil {
				return written, err
			}
			batch = make([]index.TermEntry, 0, e.cfg.BatchSize)
		}
	}
	if err := flush(batch); err != nil {
		return written, err
	}
	e.logger.Debug("partition reduced", "partition", partition, "entries", written)
	return written, nil
}

// RunRecords indexes a single in-memory partition and returns the entries
// ordered by term.
func (e *Engine) RunRecords(ctx context.Context, records []index.Record) ([]index.TermEntry, error) {
	out := sink.NewMemory()
	if _, err := e.Run(ctx, []source.Partition{source.Records("memory", records)}, out); err != nil {
		return nil, err
	}
	return out.Entries(), nil
}
