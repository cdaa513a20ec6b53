// Package integration runs the pipeline against real Redis, PostgreSQL and
// Kafka instances. Each test skips itself when its store is unreachable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/source"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/resilience"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var retry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	client, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "invertedindex_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "invertedindex"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func kafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:     []string{envOrDefault("TEST_KAFKA_BROKER", "localhost:9092")},
		DialTimeout: 2 * time.Second,
	}
}

func skipIfNoKafka(t *testing.T) config.KafkaConfig {
	t.Helper()
	cfg := kafkaConfig()
	conn, err := net.DialTimeout("tcp", cfg.Brokers[0], cfg.DialTimeout)
	if err != nil {
		t.Skipf("skipping integration test: kafka unavailable: %v", err)
	}
	conn.Close()
	return cfg
}

func exampleInput() []source.Partition {
	return []source.Partition{
		source.Lines("p0", "doc1\ta b a", "doc2\tb c"),
		source.Lines("p1", "doc10\tc", "c d"),
	}
}

var wantLines = map[string]string{
	"a": "a\tdoc1:2 ",
	"b": "b\tdoc1:1 doc2:1 ",
	"c": "c\tdoc10:2 doc2:1 ",
	"d": "d\tdoc10:1 ",
}

func runInto(t *testing.T, out sink.Sink) {
	t.Helper()
	engine := indexer.NewEngine(config.PipelineConfig{MapWorkers: 2, ReduceWorkers: 2, ReducePartitions: 2, BatchSize: 2}, nil)
	if _, err := engine.Run(context.Background(), exampleInput(), out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := out.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestRedisSink writes the index to Redis and reads it back through lookup.
func TestRedisSink(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("ii-test-%d:", time.Now().UnixNano())
	t.Cleanup(func() { client.DeletePrefix(context.Background(), prefix) })

	if err := client.Set(ctx, prefix+"stale", "old:1 ", 0); err != nil {
		t.Fatal(err)
	}
	out, err := sink.NewRedis(ctx, client, prefix, 0, retry)
	if err != nil {
		t.Fatal(err)
	}
	runInto(t, out)

	idx := lookup.NewRedis(client, prefix)
	for term, want := range wantLines {
		entry, ok, err := idx.Lookup(ctx, term)
		if err != nil || !ok {
			t.Fatalf("Lookup(%q) = %v, %v", term, ok, err)
		}
		if got := index.FormatLine(entry); got != want {
			t.Errorf("Lookup(%q) = %q, want %q", term, got, want)
		}
	}
	if _, ok, _ := idx.Lookup(ctx, "stale"); ok {
		t.Error("key from a previous run survived")
	}
}

// TestPostgresSink writes the index to a table and checks the rows.
func TestPostgresSink(t *testing.T) {
	client := skipIfNoPostgres(t)
	ctx := context.Background()
	table := fmt.Sprintf("ii_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		client.DropTable(context.Background(), table)
	})

	out, err := sink.NewPostgres(ctx, client, table, retry)
	if err != nil {
		t.Fatal(err)
	}
	runInto(t, out)

	got := make(map[string]index.PostingList)
	query := "SELECT term, doc_id, frequency FROM " + table + " ORDER BY term, doc_id COLLATE \"C\""
	err = client.Query(ctx, query, func(rows *sql.Rows) error {
		var term string
		var p index.Posting
		if err := rows.Scan(&term, &p.DocID, &p.Frequency); err != nil {
			return err
		}
		got[term] = append(got[term], p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for term, want := range wantLines {
		line := index.FormatLine(index.TermEntry{Term: term, Postings: got[term]})
		if line != want {
			t.Errorf("term %q = %q, want %q", term, line, want)
		}
	}
}

// TestKafkaRoundTrip publishes the input lines to a topic, indexes the topic
// and publishes the entries to a second topic.
func TestKafkaRoundTrip(t *testing.T) {
	suffix := time.Now().UnixNano()
	inTopic := fmt.Sprintf("ii-test-in-%d", suffix)
	outTopic := fmt.Sprintf("ii-test-out-%d", suffix)
	cfg := skipIfNoKafka(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	in := kafka.NewProducer(cfg, inTopic, 2)
	err := in.PublishRaw(ctx, "p0", []byte("doc1\ta b a"), []byte("doc2\tb c"))
	in.Close()
	if err != nil {
		t.Skipf("skipping integration test: cannot publish: %v", err)
	}

	src := source.NewKafkaSource(cfg, retry, inTopic)
	defer src.Close()
	parts, err := src.Partitions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	out := sink.NewKafka(kafka.NewProducer(cfg, outTopic, 100), retry)
	defer out.Close()
	engine := indexer.NewEngine(config.PipelineConfig{ReducePartitions: 1}, nil)
	if _, err := engine.Run(ctx, parts, out); err != nil {
		t.Fatal(err)
	}

	outParts, err := kafka.Partitions(ctx, cfg, outTopic)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]string)
	for _, id := range outParts {
		reader, err := kafka.OpenPartition(ctx, cfg, outTopic, id)
		if err != nil {
			t.Fatal(err)
		}
		err = reader.ReadAll(ctx, func(_ context.Context, _ int64, _ []byte, value []byte) error {
			msg, err := kafka.DecodeJSON[sink.EntryMessage](value)
			if err != nil {
				return err
			}
			got[msg.Term] = msg.Line
			return nil
		})
		reader.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
	want := map[string]string{
		"a": "a\tdoc1:2 ",
		"b": "b\tdoc1:1 doc2:1 ",
		"c": "c\tdoc2:1 ",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("published lines = %q, want %q", got, want)
	}
}
