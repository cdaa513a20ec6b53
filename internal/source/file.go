package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/logger"
)

const defaultMaxLineSize = 1024 * 1024

// FileSource reads line-oriented text files. A path naming a file yields one
// partition; a directory yields one partition per regular file in it, in
// name order. Files whose names start with "." or "_" are skipped.
type FileSource struct {
	path        string
	maxLineSize int
	logger      *slog.Logger
}

// NewFileSource creates a FileSource. maxLineSize bounds a single line in
// bytes; zero selects 1 MiB.
func NewFileSource(path string, maxLineSize int) *FileSource {
	if maxLineSize <= 0 {
		maxLineSize = defaultMaxLineSize
	}
	return &FileSource{
		path:        path,
		maxLineSize: maxLineSize,
		logger:      logger.WithComponent("file-source"),
	}
}

func (s *FileSource) Partitions(ctx context.Context) ([]Partition, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	if !info.IsDir() {
		return []Partition{s.partition(s.path)}, nil
	}

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading input directory: %w", apperrors.ErrSourceUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isHidden(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	partitions := make([]Partition, 0, len(names))
	for _, name := range names {
		partitions = append(partitions, s.partition(filepath.Join(s.path, name)))
	}
	s.logger.Info("input partitions resolved", "path", s.path, "partitions", len(partitions))
	return partitions, nil
}

func (s *FileSource) Close() error {
	return nil
}

func (s *FileSource) partition(path string) *filePartition {
	return &filePartition{path: path, maxLineSize: s.maxLineSize}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

type filePartition struct {
	path        string
	maxLineSize int
}

func (p *filePartition) Name() string {
	return p.path
}

// Each delivers one record per line. Line terminators ("\n" or "\r\n") are
// not part of the record text.
func (p *filePartition) Each(ctx context.Context, fn RecordFunc) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, min(64*1024, p.maxLineSize)), p.maxLineSize)
	scanner.Split(scanLines)

	var offset int64
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		line := strings.TrimSuffix(strings.TrimSuffix(string(raw), "\n"), "\r")
		if err := fn(index.Record{Offset: offset, Text: line}); err != nil {
			return err
		}
		offset += int64(len(raw))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s at offset %d: %w", p.path, offset, err)
	}
	return nil
}

// scanLines is bufio.ScanLines without dropping the terminator, so that the
// token length is the exact number of bytes consumed.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i+1], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
