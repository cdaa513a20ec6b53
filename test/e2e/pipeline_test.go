// Package e2e indexes a corpus from disk end to end: file source, engine,
// directory sinks, and lookup over the written output.
//
// Run with:
//
//	go test -v ./test/e2e/...
package e2e

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/lookup"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/source"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var inputFiles = map[string]string{
	"part-a.txt": "doc1\tthe quick brown fox\njumps over the lazy dog\ndoc2\tthe dog sleeps\n",
	"part-b.txt": "doc10\tquick quick dog\r\n\r\ndoc9\tfox\r\n",
	".ignored":   "doc99\tshould not be indexed\n",
}

var expected = []string{
	"brown\tdoc1:1 ",
	"dog\tdoc1:1 doc10:1 doc2:1 ",
	"fox\tdoc1:1 doc9:1 ",
	"jumps\tdoc1:1 ",
	"lazy\tdoc1:1 ",
	"over\tdoc1:1 ",
	"quick\tdoc1:1 doc10:2 ",
	"sleeps\tdoc2:1 ",
	"the\tdoc1:2 doc2:1 ",
}

func writeInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range inputFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func index(t *testing.T, input string, out sink.Sink, cfg config.PipelineConfig, m *metrics.Metrics) {
	t.Helper()
	ctx := context.Background()
	src := source.NewFileSource(input, 0)
	parts, err := src.Partitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := indexer.NewEngine(cfg, m).Run(ctx, parts, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := out.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func readParts(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "part-r-*"))
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatal(err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	sort.Strings(lines)
	return lines
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestTextOutput checks the part files for several reduce partition counts.
func TestTextOutput(t *testing.T) {
	input := writeInput(t)
	for _, partitions := range []int{1, 3} {
		cfg := config.PipelineConfig{MapWorkers: 2, ReduceWorkers: 2, ReducePartitions: partitions, BatchSize: 2}
		out := filepath.Join(t.TempDir(), "out")
		s, err := sink.NewText(out, partitions)
		if err != nil {
			t.Fatal(err)
		}
		m := metrics.New(prometheus.NewRegistry())
		index(t, input, s, cfg, m)

		if got := readParts(t, out); strings.Join(got, "\n") != strings.Join(expected, "\n") {
			t.Errorf("partitions=%d:\ngot  %q\nwant %q", partitions, got, expected)
		}
		if _, err := os.Stat(filepath.Join(out, sink.SuccessMarker)); err != nil {
			t.Errorf("partitions=%d: missing success marker", partitions)
		}
		if got := testutil.ToFloat64(m.EntriesWrittenTotal.WithLabelValues("text")); got != float64(len(expected)) {
			t.Errorf("partitions=%d: entries written = %v", partitions, got)
		}
	}
}

// TestSegmentOutputLookup indexes into segments and queries every term.
func TestSegmentOutputLookup(t *testing.T) {
	input := writeInput(t)
	out := filepath.Join(t.TempDir(), "out")
	s, err := sink.NewSegment(out)
	if err != nil {
		t.Fatal(err)
	}
	index(t, input, s, config.PipelineConfig{ReducePartitions: 4}, nil)

	idx, err := lookup.OpenDir(out)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	for _, line := range expected {
		term, _, _ := strings.Cut(line, "\t")
		entry, ok, err := idx.Lookup(context.Background(), term)
		if err != nil || !ok {
			t.Fatalf("Lookup(%q) = %v, %v", term, ok, err)
		}
		if got := entry.Term + "\t" + entry.Format(); got != line {
			t.Errorf("Lookup(%q) = %q, want %q", term, got, line)
		}
	}
}

// TestRerunIntoSameOutputRefused mirrors the output-exists check.
func TestRerunIntoSameOutputRefused(t *testing.T) {
	input := writeInput(t)
	out := filepath.Join(t.TempDir(), "out")
	s, err := sink.NewText(out, 1)
	if err != nil {
		t.Fatal(err)
	}
	index(t, input, s, config.PipelineConfig{}, nil)

	_, err = sink.NewText(out, 1)
	if !errors.Is(err, apperrors.ErrOutputExists) {
		t.Fatalf("err = %v, want ErrOutputExists", err)
	}
	if code := apperrors.ExitCode(err); code != apperrors.ExitUsage {
		t.Errorf("ExitCode = %d, want %d", code, apperrors.ExitUsage)
	}
}
