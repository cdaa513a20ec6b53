package shuffle

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/index"
)

func TestPartition(t *testing.T) {
	for _, term := range []string{"", "a", "hello", "日本語"} {
		for _, n := range []int{1, 2, 7, 16} {
			p := Partition(term, n)
			if p < 0 || p >= n {
				t.Errorf("Partition(%q, %d) = %d, out of range", term, n, p)
			}
			if p != Partition(term, n) {
				t.Errorf("Partition(%q, %d) is not deterministic", term, n)
			}
		}
	}
	if Partition("x", 0) != 0 {
		t.Error("Partition with n=0 should be 0")
	}
}

func TestTableGroups(t *testing.T) {
	table := NewTable()
	table.Add(
		index.TermPosting{Term: "b", DocID: "d1"},
		index.TermPosting{Term: "a", DocID: "d2"},
		index.TermPosting{Term: "b", DocID: "d1"},
	)
	groups := table.Groups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Term != "a" || groups[1].Term != "b" {
		t.Errorf("groups not ordered by term: %+v", groups)
	}
	if len(groups[1].DocIDs) != 2 {
		t.Errorf("group b has %d docIDs, want 2", len(groups[1].DocIDs))
	}
	if table.Postings() != 3 || table.Len() != 2 {
		t.Errorf("Postings() = %d, Len() = %d", table.Postings(), table.Len())
	}

	groups[0].DocIDs[0] = "mutated"
	if again := table.Groups(); again[0].DocIDs[0] != "d2" {
		t.Error("Groups returned shared storage")
	}
}

func groupOf(t *Table, term string) (index.PostingGroup, bool) {
	for _, g := range t.Groups() {
		if g.Term == term {
			return g, true
		}
	}
	return index.PostingGroup{}, false
}

func TestPartitionedRoutesEveryTermToOneTable(t *testing.T) {
	p := NewPartitioned(4)
	var postings []index.TermPosting
	for i := 0; i < 200; i++ {
		postings = append(postings, index.TermPosting{Term: fmt.Sprintf("term-%d", i%50), DocID: "d"})
	}
	p.Add(postings...)

	if p.Terms() != 50 {
		t.Errorf("Terms() = %d, want 50", p.Terms())
	}
	if p.Postings() != 200 {
		t.Errorf("Postings() = %d, want 200", p.Postings())
	}
	seen := make(map[string]int)
	for id := 0; id < p.NumPartitions(); id++ {
		table, err := p.Table(id)
		if err != nil {
			t.Fatal(err)
		}
		for _, g := range table.Groups() {
			if _, dup := seen[g.Term]; dup {
				t.Errorf("term %q in two partitions", g.Term)
			}
			seen[g.Term] = id
			if want := Partition(g.Term, 4); want != id {
				t.Errorf("term %q in partition %d, want %d", g.Term, id, want)
			}
		}
	}
	if _, err := p.Table(4); err == nil {
		t.Error("expected error for out of range partition")
	}
}

func TestNewPartitionedMinimum(t *testing.T) {
	if n := NewPartitioned(0).NumPartitions(); n != 1 {
		t.Errorf("NumPartitions() = %d, want 1", n)
	}
}

func TestConcurrentAdd(t *testing.T) {
	p := NewPartitioned(3)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				p.Add(index.TermPosting{Term: fmt.Sprintf("t%d", i%10), DocID: fmt.Sprintf("w%d", w)})
			}
		}()
	}
	wg.Wait()

	if p.Postings() != 4000 {
		t.Errorf("Postings() = %d, want 4000", p.Postings())
	}
	table, _ := p.Table(Partition("t3", 3))
	g, ok := groupOf(table, "t3")
	if !ok {
		t.Fatal("t3 missing")
	}
	sort.Strings(g.DocIDs)
	if len(g.DocIDs) != 400 {
		t.Errorf("t3 has %d docIDs, want 400", len(g.DocIDs))
	}
}
