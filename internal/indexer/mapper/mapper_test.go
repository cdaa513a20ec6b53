package mapper

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

func records(lines ...string) []index.Record {
	recs := make([]index.Record, len(lines))
	var offset int64
	for i, line := range lines {
		recs[i] = index.Record{Offset: offset, Text: line}
		offset += int64(len(line)) + 1
	}
	return recs
}

func TestMapPartition(t *testing.T) {
	got := MapPartition(records("doc1\ta b", "c", "doc2\ta"))
	want := []index.TermPosting{
		{Term: "a", DocID: "doc1"},
		{Term: "b", DocID: "doc1"},
		{Term: "c", DocID: "doc1"},
		{Term: "a", DocID: "doc2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MapPartition() = %+v, want %+v", got, want)
	}
}

func TestMapRepeatedTerm(t *testing.T) {
	_, postings := Map("", index.Record{Text: "d\tx x x"})
	if len(postings) != 3 {
		t.Fatalf("got %d postings, want 3", len(postings))
	}
	for _, p := range postings {
		if p != (index.TermPosting{Term: "x", DocID: "d"}) {
			t.Errorf("unexpected posting %+v", p)
		}
	}
}

func TestMapEmptyText(t *testing.T) {
	tests := []struct {
		name    string
		current string
		text    string
		wantID  string
	}{
		{"blank continuation", "doc1", "   ", "doc1"},
		{"header without text", "doc1", "doc2\t", "doc2"},
		{"empty line", "doc1", "", "doc1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, postings := Map(tt.current, index.Record{Text: tt.text})
			if next != tt.wantID {
				t.Errorf("next = %q, want %q", next, tt.wantID)
			}
			if len(postings) != 0 {
				t.Errorf("got %d postings, want none", len(postings))
			}
		})
	}
}

func TestMapperTracksState(t *testing.T) {
	m := New()
	m.Map(index.Record{Text: "orphan"})
	if m.CurrentDocID() != "" {
		t.Errorf("CurrentDocID() = %q before any header", m.CurrentDocID())
	}
	m.Map(index.Record{Text: "a\tone"})
	postings := m.Map(index.Record{Text: "two"})
	if len(postings) != 1 || postings[0].DocID != "a" {
		t.Errorf("continuation postings = %+v", postings)
	}
	if m.Records() != 3 {
		t.Errorf("Records() = %d, want 3", m.Records())
	}
	m.Map(index.Record{Text: "a\tthree"})
	if m.Documents() != 2 {
		t.Errorf("Documents() = %d, want 2", m.Documents())
	}
}

func TestMapperMatchesMapPartition(t *testing.T) {
	recs := records("x\tp q", "r", "", "y\t", "s t", "z\tp")
	m := New()
	var got []index.TermPosting
	for _, rec := range recs {
		got = append(got, m.Map(rec)...)
	}
	if want := MapPartition(recs); !reflect.DeepEqual(got, want) {
		t.Errorf("Mapper = %+v, MapPartition = %+v", got, want)
	}
}
