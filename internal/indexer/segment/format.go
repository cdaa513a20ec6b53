// Package segment stores the entries of one reduce partition in a single
// .spdx file, laid out little-endian as
//
//	header    64 bytes, see Header
//	postings  one JSON posting list per term, in term order
//	dict      JSON array of dictionary entries sorted by term
//	footer    32 bytes: CRC32 of dict, doc count, dict offset, dict size,
//	          postings size
//
// Terms are compared byte-wise, the same order the reducer uses for docIDs.
package segment

import (
	"encoding/binary"
	"fmt"
)

const (
	Magic      uint32 = 0x53504458 // "SPDX"
	Version    uint32 = 2
	HeaderSize        = 64
	FooterSize        = 32
	Extension         = ".spdx"
)

// Header is the fixed-size block at offset zero. The writer fills the
// offsets in after the body is written.
type Header struct {
	Version    uint32
	Terms      uint32
	Docs       uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	CreatedAt  int64
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], Magic)
	le.PutUint32(b[4:], h.Version)
	le.PutUint32(b[8:], h.Terms)
	le.PutUint32(b[12:], h.Docs)
	le.PutUint64(b[16:], uint64(h.DictOffset))
	le.PutUint64(b[24:], uint64(h.DictSize))
	le.PutUint64(b[32:], uint64(h.PostOffset))
	le.PutUint64(b[40:], uint64(h.PostSize))
	le.PutUint64(b[48:], uint64(h.CreatedAt))
	return b
}

func decodeHeader(b []byte) (Header, error) {
	le := binary.LittleEndian
	if magic := le.Uint32(b[0:]); magic != Magic {
		return Header{}, fmt.Errorf("not a segment: bad magic %08x", magic)
	}
	h := Header{
		Version:    le.Uint32(b[4:]),
		Terms:      le.Uint32(b[8:]),
		Docs:       le.Uint32(b[12:]),
		DictOffset: int64(le.Uint64(b[16:])),
		DictSize:   int64(le.Uint64(b[24:])),
		PostOffset: int64(le.Uint64(b[32:])),
		PostSize:   int64(le.Uint64(b[40:])),
		CreatedAt:  int64(le.Uint64(b[48:])),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("unsupported segment version %d", h.Version)
	}
	if h.DictOffset < HeaderSize || h.DictSize < 0 {
		return Header{}, fmt.Errorf("corrupt header: dictionary at %d size %d", h.DictOffset, h.DictSize)
	}
	return h, nil
}

type footer struct {
	dictCRC  uint32
	docs     uint32
	dictOff  int64
	dictSize int64
	postSize int64
}

func (f footer) encode() []byte {
	b := make([]byte, FooterSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], f.dictCRC)
	le.PutUint32(b[4:], f.docs)
	le.PutUint64(b[8:], uint64(f.dictOff))
	le.PutUint64(b[16:], uint64(f.dictSize))
	le.PutUint64(b[24:], uint64(f.postSize))
	return b
}

func decodeFooter(b []byte) footer {
	le := binary.LittleEndian
	return footer{
		dictCRC:  le.Uint32(b[0:]),
		docs:     le.Uint32(b[4:]),
		dictOff:  int64(le.Uint64(b[8:])),
		dictSize: int64(le.Uint64(b[16:])),
		postSize: int64(le.Uint64(b[24:])),
	}
}

// dictEntry locates one term's posting list relative to the postings block.
type dictEntry struct {
	Term    string `json:"t"`
	Offset  int64  `json:"o"`
	Length  int    `json:"l"`
	DocFreq int    `json:"d"`
}
