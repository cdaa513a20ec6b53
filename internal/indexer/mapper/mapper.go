// Package mapper turns input records into term postings. Each partition of
// records must be mapped in delivery order by exactly one Mapper because the
// owning document of a line depends on the lines before it.
package mapper

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/boundary"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/tokenizer"
)

// Map emits one posting per term occurrence in rec. current is the document
// ID carried over from the previous record; next is the one to carry on.
func Map(current string, rec index.Record) (next string, postings []index.TermPosting) {
	docID, text := boundary.Parse(current, rec.Text)
	terms := tokenizer.Terms(text)
	if len(terms) == 0 {
		return docID, nil
	}
	postings = make([]index.TermPosting, 0, len(terms))
	for _, term := range terms {
		postings = append(postings, index.TermPosting{Term: term, DocID: docID})
	}
	return docID, postings
}

// Mapper holds the document ID state of a single partition. It is not safe
// for concurrent use.
type Mapper struct {
	docID     string
	records   int64
	documents int64
}

func New() *Mapper {
	return &Mapper{}
}

// Map maps the next record of the partition.
func (m *Mapper) Map(rec index.Record) []index.TermPosting {
	if boundary.HasHeader(rec.Text) {
		m.documents++
	}
	next, postings := Map(m.docID, rec)
	m.docID = next
	m.records++
	return postings
}

// CurrentDocID returns the document that a continuation line would join.
func (m *Mapper) CurrentDocID() string {
	return m.docID
}

// Documents returns the number of header lines mapped so far. A document
// ID repeated in a later header is counted again.
func (m *Mapper) Documents() int64 {
	return m.documents
}

// Records returns the number of records mapped so far.
func (m *Mapper) Records() int64 {
	return m.records
}

// MapPartition maps every record of one partition in order.
func MapPartition(records []index.Record) []index.TermPosting {
	var (
		docID string
		out   []index.TermPosting
	)
	for _, rec := range records {
		var postings []index.TermPosting
		docID, postings = Map(docID, rec)
		out = append(out, postings...)
	}
	return out
}
