package reducer

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

func TestReduce(t *testing.T) {
	tests := []struct {
		name   string
		docIDs []string
		want   index.PostingList
	}{
		{
			name:   "counts and sorts",
			docIDs: []string{"doc2", "doc1", "doc1"},
			want:   index.PostingList{{DocID: "doc1", Frequency: 2}, {DocID: "doc2", Frequency: 1}},
		},
		{
			name:   "byte-wise order",
			docIDs: []string{"9", "10", "9"},
			want:   index.PostingList{{DocID: "10", Frequency: 1}, {DocID: "9", Frequency: 2}},
		},
		{
			name:   "upper case before lower case",
			docIDs: []string{"b", "B", "a"},
			want:   index.PostingList{{DocID: "B", Frequency: 1}, {DocID: "a", Frequency: 1}, {DocID: "b", Frequency: 1}},
		},
		{
			name:   "empty docID",
			docIDs: []string{"", "x", ""},
			want:   index.PostingList{{DocID: "", Frequency: 2}, {DocID: "x", Frequency: 1}},
		},
		{
			name:   "single",
			docIDs: []string{"d"},
			want:   index.PostingList{{DocID: "d", Frequency: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(index.PostingGroup{Term: "t", DocIDs: tt.docIDs})
			if got.Term != "t" {
				t.Errorf("Term = %q", got.Term)
			}
			if !reflect.DeepEqual(got.Postings, tt.want) {
				t.Errorf("Postings = %+v, want %+v", got.Postings, tt.want)
			}
		})
	}
}

func TestReduceOrderIndependent(t *testing.T) {
	a := Reduce(index.PostingGroup{Term: "t", DocIDs: []string{"a", "b", "a", "c", "b", "a"}})
	b := Reduce(index.PostingGroup{Term: "t", DocIDs: []string{"c", "a", "a", "b", "a", "b"}})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestReduceConservesCount(t *testing.T) {
	docIDs := []string{"a", "b", "a", "c", "b", "a", "d"}
	entry := Reduce(index.PostingGroup{Term: "t", DocIDs: docIDs})
	if got := entry.TotalFrequency(); got != len(docIDs) {
		t.Errorf("TotalFrequency() = %d, want %d", got, len(docIDs))
	}
	seen := make(map[string]bool)
	for _, p := range entry.Postings {
		if seen[p.DocID] {
			t.Errorf("docID %q appears twice", p.DocID)
		}
		seen[p.DocID] = true
		if p.Frequency < 1 {
			t.Errorf("docID %q has frequency %d", p.DocID, p.Frequency)
		}
	}
}
