package shuffle

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

// Table groups postings by term. It is safe for concurrent use by any number
// of map workers.
type Table struct {
	mu       sync.RWMutex
	groups   map[string][]string
	postings int64
	size     int64
}

func NewTable() *Table {
	return &Table{
		groups: make(map[string][]string),
	}
}

// Add appends the docID of every posting to its term's group.
func (t *Table) Add(postings ...index.TermPosting) {
	if len(postings) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range postings {
		docIDs, exists := t.groups[p.Term]
		if !exists {
			t.size += int64(len(p.Term) + 64)
		}
		t.groups[p.Term] = append(docIDs, p.DocID)
		t.size += int64(len(p.DocID) + 16)
	}
	t.postings += int64(len(postings))
}

// Groups returns every group ordered by term. The docIDs inside a group keep
// their arrival order, which is not meaningful.
func (t *Table) Groups() []index.PostingGroup {
	t.mu.RLock()
	defer t.mu.RUnlock()
	groups := make([]index.PostingGroup, 0, len(t.groups))
	for term, docIDs := range t.groups {
		groups = append(groups, index.PostingGroup{
			Term:   term,
			DocIDs: append([]string(nil), docIDs...),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Term < groups[j].Term
	})
	return groups
}

// Len returns the number of distinct terms.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.groups)
}

// Postings returns the number of postings added.
func (t *Table) Postings() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.postings
}

// Size is an estimate of the table's memory footprint in bytes.
func (t *Table) Size() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}
