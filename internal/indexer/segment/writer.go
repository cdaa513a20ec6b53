package segment

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

var ErrEmpty = errors.New("segment has no entries")

// Writer creates segment files in one directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write stores entries as name+Extension and returns the file name. The file
// is built under a .tmp name and renamed into place once synced, so readers
// never see a partial segment. entries need not be sorted.
func (w *Writer) Write(name string, entries []index.TermEntry) (string, error) {
	if len(entries) == 0 {
		return "", ErrEmpty
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b index.TermEntry) int {
		return strings.Compare(a.Term, b.Term)
	})

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	fileName := name + Extension
	final := filepath.Join(w.dir, fileName)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating segment: %w", err)
	}
	if err := encode(f, sorted); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing segment: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("renaming segment: %w", err)
	}
	return fileName, nil
}

// countingWriter tracks the file offset of a buffered writer.
type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func encode(f *os.File, sorted []index.TermEntry) error {
	out := &countingWriter{w: bufio.NewWriter(f)}
	// Placeholder, rewritten once the offsets are known.
	if _, err := out.Write(make([]byte, HeaderSize)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	h := Header{
		Version:    Version,
		Terms:      uint32(len(sorted)),
		PostOffset: out.n,
		CreatedAt:  time.Now().Unix(),
	}
	dict := make([]dictEntry, 0, len(sorted))
	docs := make(map[string]struct{})
	for _, e := range sorted {
		data, err := json.Marshal(e.Postings)
		if err != nil {
			return fmt.Errorf("encoding postings of %q: %w", e.Term, err)
		}
		dict = append(dict, dictEntry{
			Term:    e.Term,
			Offset:  out.n - h.PostOffset,
			Length:  len(data),
			DocFreq: len(e.Postings),
		})
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing postings of %q: %w", e.Term, err)
		}
		for _, p := range e.Postings {
			docs[p.DocID] = struct{}{}
		}
	}
	h.PostSize = out.n - h.PostOffset
	h.Docs = uint32(len(docs))

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("encoding dictionary: %w", err)
	}
	h.DictOffset = out.n
	h.DictSize = int64(len(dictData))
	if _, err := out.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	ft := footer{
		dictCRC:  crc32.ChecksumIEEE(dictData),
		docs:     h.Docs,
		dictOff:  h.DictOffset,
		dictSize: h.DictSize,
		postSize: h.PostSize,
	}
	if _, err := out.Write(ft.encode()); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := out.w.Flush(); err != nil {
		return fmt.Errorf("flushing segment: %w", err)
	}
	if _, err := f.WriteAt(h.encode(), 0); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return f.Sync()
}
