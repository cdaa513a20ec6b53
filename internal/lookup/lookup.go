// Package lookup answers single-term queries against a finished index,
// whether it was written as text parts, as segments, or into Redis.
package lookup

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/redis"
)

// Index resolves a term to its entry.
type Index interface {
	Lookup(ctx context.Context, term string) (index.TermEntry, bool, error)
	Close() error
}

// OpenDir opens an output directory written by the text or segment sink.
// Segment files take precedence when both kinds are present.
func OpenDir(dir string) (Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	var segments, parts []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
		case strings.HasSuffix(name, segment.Extension):
			segments = append(segments, filepath.Join(dir, name))
		case strings.HasPrefix(name, "part-"):
			parts = append(parts, filepath.Join(dir, name))
		}
	}
	if len(segments) > 0 {
		return openSegments(segments)
	}
	return loadText(parts)
}

// textIndex holds every entry of the text parts in memory. Lines that do
// not parse are skipped and counted.
type textIndex struct {
	entries map[string]index.TermEntry
	skipped int
	logger  *slog.Logger
}

func loadText(paths []string) (*textIndex, error) {
	idx := &textIndex{
		entries: make(map[string]index.TermEntry),
		logger:  logger.WithComponent("lookup"),
	}
	for _, path := range paths {
		if err := idx.load(path); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (t *textIndex) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		entry, err := index.ParseLine(scanner.Text())
		if err != nil {
			t.skipped++
			t.logger.Warn("skipping unreadable index line", "file", filepath.Base(path), "line", line, "error", err)
			continue
		}
		t.entries[entry.Term] = entry
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func (t *textIndex) Lookup(_ context.Context, term string) (index.TermEntry, bool, error) {
	entry, ok := t.entries[term]
	return entry, ok, nil
}

func (t *textIndex) Close() error {
	return nil
}

// segmentIndex searches every segment; each term lives in exactly one
// because terms are partitioned before reduction.
type segmentIndex struct {
	readers []*segment.Reader
}

func openSegments(paths []string) (*segmentIndex, error) {
	sort.Strings(paths)
	idx := &segmentIndex{}
	for _, path := range paths {
		r, err := segment.OpenReader(path)
		if err != nil {
			idx.Close()
			return nil, err
		}
		idx.readers = append(idx.readers, r)
	}
	return idx, nil
}

func (s *segmentIndex) Lookup(_ context.Context, term string) (index.TermEntry, bool, error) {
	for _, r := range s.readers {
		postings, err := r.Search(term)
		if err != nil {
			return index.TermEntry{}, false, err
		}
		if postings != nil {
			return index.TermEntry{Term: term, Postings: postings}, true, nil
		}
	}
	return index.TermEntry{}, false, nil
}

func (s *segmentIndex) Close() error {
	var firstErr error
	for _, r := range s.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RedisIndex reads entries written by the Redis sink.
type RedisIndex struct {
	client    *pkgredis.Client
	keyPrefix string
}

func NewRedis(client *pkgredis.Client, keyPrefix string) *RedisIndex {
	return &RedisIndex{client: client, keyPrefix: keyPrefix}
}

func (r *RedisIndex) Lookup(ctx context.Context, term string) (index.TermEntry, bool, error) {
	value, ok, err := r.client.Get(ctx, r.keyPrefix+term)
	if err != nil {
		return index.TermEntry{}, false, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	if !ok {
		return index.TermEntry{}, false, nil
	}
	postings, err := index.ParsePostings(value)
	if err != nil {
		return index.TermEntry{}, false, fmt.Errorf("term %q: %w", term, err)
	}
	return index.TermEntry{Term: term, Postings: postings}, true, nil
}

func (r *RedisIndex) Close() error {
	return nil
}
