package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteFileLayout(t *testing.T) {
	cfg := Config{DocsPerFile: 3, LinesPerDoc: 2, TermsPerLine: 4, Vocabulary: 50, Seed: 7}
	var buf bytes.Buffer
	stats := &Stats{}
	if err := writeFile(&buf, cfg, 2, stats); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	headers := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "f2-d") {
			headers++
			if i%2 != 0 {
				t.Errorf("line %d: header on a continuation line: %q", i, line)
			}
			if !strings.Contains(line, "\t") {
				t.Errorf("line %d: header without tab: %q", i, line)
			}
		}
	}
	if headers != 3 {
		t.Errorf("expected 3 document headers, got %d", headers)
	}
	if stats.docs.Load() != 3 || stats.lines.Load() != 6 || stats.terms.Load() != 24 {
		t.Errorf("unexpected stats: docs=%d lines=%d terms=%d",
			stats.docs.Load(), stats.lines.Load(), stats.terms.Load())
	}
}

func TestWriteFileDeterministic(t *testing.T) {
	cfg := Config{DocsPerFile: 5, LinesPerDoc: 1, TermsPerLine: 8, Vocabulary: 100, Seed: 42}
	var a, b bytes.Buffer
	if err := writeFile(&a, cfg, 0, &Stats{}); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(&b, cfg, 0, &Stats{}); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("same seed and file produced different output")
	}
}

func TestGenerateWritesEveryFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		OutDir: dir, Files: 4, DocsPerFile: 2, LinesPerDoc: 1,
		TermsPerLine: 3, Vocabulary: 10, Concurrency: 2, Seed: 1,
	}
	stats, err := generate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 files, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "input-00003.txt")); err != nil {
		t.Errorf("missing last file: %v", err)
	}
	if len(stats.latencies) != 4 {
		t.Errorf("expected 4 latency samples, got %d", len(stats.latencies))
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{50, 5},
		{90, 9},
		{100, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile of empty = %v", got)
	}
}
