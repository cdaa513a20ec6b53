// Package reducer turns a term's posting group into its index entry.
package reducer

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

// Reduce counts the occurrences of each docID in the group and returns the
// entry with postings sorted by docID in byte-wise order. The result does
// not depend on the order of group.DocIDs.
func Reduce(group index.PostingGroup) index.TermEntry {
	freqs := countFrequencies(group.DocIDs)
	postings := make(index.PostingList, 0, len(freqs))
	for docID, freq := range freqs {
		postings = append(postings, index.Posting{
			DocID:     docID,
			Frequency: freq,
		})
	}
	// Go string comparison is byte-wise, so "10" sorts before "9".
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return index.TermEntry{
		Term:     group.Term,
		Postings: postings,
	}
}

func countFrequencies(docIDs []string) map[string]int {
	freqs := make(map[string]int)
	for _, docID := range docIDs {
		freqs[docID]++
	}
	return freqs
}
