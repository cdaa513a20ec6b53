package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/source"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: invertedindex [-config path] <input> <output>\n\n")
	fmt.Fprintf(os.Stderr, "  input   file or directory (file source) or topic (kafka source)\n")
	fmt.Fprintf(os.Stderr, "  output  directory (text, segment), key prefix (redis), table (postgres) or topic (kafka)\n\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(apperrors.ExitUsage)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, flag.Arg(0), flag.Arg(1))
	stop()
	if err != nil {
		slog.Error("index run failed", "error", err)
	}
	os.Exit(apperrors.ExitCode(err))
}

// deps holds the clients a run opened so they can be closed together.
type deps struct {
	redis    *pkgredis.Client
	postgres *postgres.Client
}

func (d *deps) close() {
	if d.redis != nil {
		d.redis.Close()
	}
	if d.postgres != nil {
		d.postgres.Close()
	}
}

func run(ctx context.Context, cfg *config.Config, input, output string) error {
	jobID := newJobID()
	ctx = logger.WithJobID(ctx, jobID)
	log := logger.FromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "invertedindex", jobID)
	defer func() {
		span.End()
		if cfg.Tracing.Enabled {
			span.Log(log)
		}
	}()

	log.Info("starting index run",
		"input", input,
		"output", output,
		"source", cfg.Source.Type,
		"sink", cfg.Sink.Type,
		"map_workers", cfg.Pipeline.MapWorkers,
		"reduce_partitions", cfg.Pipeline.ReducePartitions,
	)

	retry := resilience.FromConfig(cfg.Retry)
	d := &deps{}
	defer d.close()

	var m *metrics.Metrics
	checker := health.NewChecker()
	checker.SetJob(jobID)
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port, m, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	src, err := openSource(cfg, retry, input)
	if err != nil {
		return err
	}
	defer src.Close()
	if cfg.Source.Type == config.SourceKafka {
		checker.Register("kafka", health.Ping(true, func(ctx context.Context) error {
			_, err := kafka.Partitions(ctx, cfg.Kafka, input)
			return err
		}))
	}

	out, err := openSink(ctx, cfg, retry, output, d, checker)
	if err != nil {
		return err
	}
	defer out.Close()

	partitions, err := src.Partitions(ctx)
	if err != nil {
		return err
	}

	checker.SetPhase(health.PhaseIndexing)
	engine := indexer.NewEngine(cfg.Pipeline, m)
	stats, err := engine.Run(ctx, partitions, out)
	span.SetAttr("records", stats.Records)
	span.SetAttr("entries", stats.Entries)
	if err != nil {
		checker.SetPhase(health.PhaseFailed)
		return err
	}
	checker.SetPhase(health.PhaseCommitting)
	if err := out.Commit(ctx); err != nil {
		checker.SetPhase(health.PhaseFailed)
		return fmt.Errorf("committing %s sink: %w", out.Name(), err)
	}
	checker.SetPhase(health.PhaseDone)

	log.Info("index written",
		"terms", stats.Terms,
		"entries", stats.Entries,
		"duration", stats.Duration,
	)
	return nil
}

func openSource(cfg *config.Config, retry resilience.RetryConfig, input string) (source.Source, error) {
	switch cfg.Source.Type {
	case config.SourceKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "kafka source needs at least one broker")
		}
		return source.NewKafkaSource(cfg.Kafka, retry, input), nil
	default:
		return source.NewFileSource(input, cfg.Source.MaxLineSize), nil
	}
}

func openSink(ctx context.Context, cfg *config.Config, retry resilience.RetryConfig, output string, d *deps, checker *health.Checker) (sink.Sink, error) {
	retry = retry.WithBreaker(cfg.Sink.Type+"-sink", cfg.Retry)
	switch cfg.Sink.Type {
	case config.SinkSegment:
		return sink.NewSegment(output)
	case config.SinkRedis:
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
		}
		d.redis = client
		checker.Register("redis", health.Ping(true, client.Ping))
		prefix := output
		if prefix == "" {
			prefix = cfg.Redis.KeyPrefix
		}
		return sink.NewRedis(ctx, client, prefix, cfg.Redis.TTL, retry)
	case config.SinkPostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
		}
		d.postgres = client
		checker.Register("postgres", health.Ping(true, client.Ping))
		table := output
		if table == "" {
			table = cfg.Postgres.Table
		}
		return sink.NewPostgres(ctx, client, table, retry)
	case config.SinkKafka:
		if output == "" {
			return nil, fmt.Errorf("%w: kafka sink needs a topic", apperrors.ErrInvalidInput)
		}
		producer := kafka.NewProducer(cfg.Kafka, output, cfg.Pipeline.BatchSize)
		return sink.NewKafka(producer, retry), nil
	default:
		return sink.NewText(output, cfg.Pipeline.ReducePartitions)
	}
}

// newJobID returns a random identifier that tags every log line of a run.
func newJobID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
