package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	OutDir       string
	Files        int
	DocsPerFile  int
	LinesPerDoc  int
	TermsPerLine int
	Vocabulary   int
	Concurrency  int
	Seed         int64
}

type Stats struct {
	docs      atomic.Int64
	lines     atomic.Int64
	terms     atomic.Int64
	latencies []time.Duration
	mu        sync.Mutex
}

func (s *Stats) RecordFile(duration time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.mu.Unlock()
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutDir, "out", "corpus", "directory to write input files into")
	flag.IntVar(&cfg.Files, "files", 8, "number of input files (map partitions)")
	flag.IntVar(&cfg.DocsPerFile, "docs", 1000, "documents per file")
	flag.IntVar(&cfg.LinesPerDoc, "lines", 3, "lines per document, including the header line")
	flag.IntVar(&cfg.TermsPerLine, "terms", 12, "terms per line")
	flag.IntVar(&cfg.Vocabulary, "vocab", 5000, "number of distinct terms")
	flag.IntVar(&cfg.Concurrency, "concurrency", 4, "files written in parallel")
	flag.Int64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.Parse()

	if cfg.Files < 1 || cfg.DocsPerFile < 1 || cfg.LinesPerDoc < 1 || cfg.TermsPerLine < 1 || cfg.Vocabulary < 2 {
		fmt.Fprintln(os.Stderr, "files, docs, lines and terms must be positive and vocab at least 2")
		os.Exit(2)
	}
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Corpus Generator ===")
	fmt.Printf("Output:      %s\n", cfg.OutDir)
	fmt.Printf("Files:       %d\n", cfg.Files)
	fmt.Printf("Docs/file:   %d\n", cfg.DocsPerFile)
	fmt.Printf("Vocabulary:  %d\n", cfg.Vocabulary)
	fmt.Println()

	start := time.Now()
	stats, err := generate(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}
	printReport(stats, time.Since(start))
}

func generate(ctx context.Context, cfg Config) (*Stats, error) {
	stats := &Stats{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i := 0; i < cfg.Files; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(cfg.OutDir, fmt.Sprintf("input-%05d.txt", i))
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			start := time.Now()
			err = writeFile(f, cfg, i, stats)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			stats.RecordFile(time.Since(start))
			return nil
		})
	}
	return stats, g.Wait()
}

// writeFile writes one partition. Term frequencies follow a Zipf
// distribution so a few terms dominate, like natural text.
func writeFile(w io.Writer, cfg Config, file int, stats *Stats) error {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(file)))
	zipf := rand.NewZipf(rng, 1.1, 1, uint64(cfg.Vocabulary-1))
	bw := bufio.NewWriter(w)
	for d := 0; d < cfg.DocsPerFile; d++ {
		fmt.Fprintf(bw, "f%d-d%d\t", file, d)
		stats.docs.Add(1)
		for l := 0; l < cfg.LinesPerDoc; l++ {
			for t := 0; t < cfg.TermsPerLine; t++ {
				if t > 0 {
					bw.WriteByte(' ')
				}
				fmt.Fprintf(bw, "w%d", zipf.Uint64())
			}
			bw.WriteByte('\n')
			stats.lines.Add(1)
			stats.terms.Add(int64(cfg.TermsPerLine))
		}
	}
	return bw.Flush()
}

func printReport(stats *Stats, elapsed time.Duration) {
	fmt.Println("=== Results ===")
	fmt.Printf("Documents:   %d\n", stats.docs.Load())
	fmt.Printf("Lines:       %d\n", stats.lines.Load())
	fmt.Printf("Terms:       %d\n", stats.terms.Load())
	fmt.Printf("Elapsed:     %s\n", elapsed.Round(time.Millisecond))
	if s := elapsed.Seconds(); s > 0 {
		fmt.Printf("Lines/sec:   %.0f\n", float64(stats.lines.Load())/s)
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	stats.mu.Unlock()
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})
	fmt.Println()
	fmt.Println("=== File write latency ===")
	fmt.Printf("Min:    %s\n", latencies[0])
	fmt.Printf("P50:    %s\n", percentile(latencies, 50))
	fmt.Printf("P90:    %s\n", percentile(latencies, 90))
	fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
