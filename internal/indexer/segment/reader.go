package segment

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

// Reader serves lookups from one segment. The dictionary is held in memory;
// posting lists are read from disk on demand.
type Reader struct {
	f      *os.File
	path   string
	header Header
	dict   []dictEntry
}

// OpenReader opens path and verifies the dictionary checksum.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment: %w", err)
	}
	r := &Reader{f: f, path: path}
	if err := r.load(); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) load() error {
	buf := make([]byte, HeaderSize)
	if _, err := r.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return err
	}

	dictData := make([]byte, h.DictSize)
	if _, err := r.f.ReadAt(dictData, h.DictOffset); err != nil {
		return fmt.Errorf("reading dictionary: %w", err)
	}
	buf = make([]byte, FooterSize)
	if _, err := r.f.ReadAt(buf, h.DictOffset+h.DictSize); err != nil {
		return fmt.Errorf("reading footer: %w", err)
	}
	ft := decodeFooter(buf)
	if got := crc32.ChecksumIEEE(dictData); got != ft.dictCRC {
		return fmt.Errorf("dictionary checksum mismatch: footer %08x, computed %08x", ft.dictCRC, got)
	}
	if ft.dictOff != h.DictOffset || ft.dictSize != h.DictSize || ft.postSize != h.PostSize {
		return fmt.Errorf("header and footer disagree")
	}
	if err := json.Unmarshal(dictData, &r.dict); err != nil {
		return fmt.Errorf("decoding dictionary: %w", err)
	}
	if len(r.dict) != int(h.Terms) {
		return fmt.Errorf("dictionary has %d terms, header says %d", len(r.dict), h.Terms)
	}
	r.header = h
	return nil
}

// Search returns the postings of term, or nil if the segment lacks it.
func (r *Reader) Search(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i == len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.postings(r.dict[i])
}

// Entries returns every entry in term order.
func (r *Reader) Entries() ([]index.TermEntry, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		p, err := r.postings(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: p})
	}
	return entries, nil
}

func (r *Reader) postings(d dictEntry) (index.PostingList, error) {
	data := make([]byte, d.Length)
	if _, err := r.f.ReadAt(data, r.header.PostOffset+d.Offset); err != nil {
		return nil, fmt.Errorf("reading postings of %q: %w", d.Term, err)
	}
	var p index.PostingList
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding postings of %q: %w", d.Term, err)
	}
	return p, nil
}

func (r *Reader) Path() string     { return r.path }
func (r *Reader) Terms() int       { return len(r.dict) }
func (r *Reader) DocCount() uint32 { return r.header.Docs }
func (r *Reader) Header() Header   { return r.header }

func (r *Reader) Close() error {
	return r.f.Close()
}
