package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/internal/indexer/tokenizer"
)

type Mode int

const (
	MatchAll Mode = iota
	MatchAny
)

// Query is a parsed boolean lookup. Operators are upper- or lower-case
// AND, OR and NOT; the last AND or OR seen decides the mode for all terms.
type Query struct {
	Terms   []string
	Exclude []string
	Mode    Mode
	Raw     string
}

// ParseQuery parses q. Terms are taken as written since the index keeps
// case and punctuation.
func ParseQuery(q string) Query {
	query := Query{Raw: q, Mode: MatchAll}
	excludeNext := false
	for _, word := range tokenizer.Terms(q) {
		switch strings.ToUpper(word) {
		case "AND":
			query.Mode = MatchAll
			continue
		case "OR":
			query.Mode = MatchAny
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		if excludeNext {
			query.Exclude = append(query.Exclude, word)
			excludeNext = false
		} else {
			query.Terms = append(query.Terms, word)
		}
	}
	return query
}

// Match is a document satisfying a query. Frequencies holds the count of
// every matched query term present in the document.
type Match struct {
	DocID       string
	Frequencies map[string]int
}

// Total returns the sum of Frequencies.
func (m Match) Total() int {
	total := 0
	for _, f := range m.Frequencies {
		total += f
	}
	return total
}

// Evaluate runs q against idx and returns the matching documents in
// byte-wise docID order.
func Evaluate(ctx context.Context, idx Index, q Query) ([]Match, error) {
	if len(q.Terms) == 0 {
		return nil, nil
	}

	perTerm := make(map[string]map[string]int, len(q.Terms))
	for _, term := range q.Terms {
		entry, ok, err := idx.Lookup(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("looking up %q: %w", term, err)
		}
		docs := make(map[string]int)
		if ok {
			for _, p := range entry.Postings {
				docs[p.DocID] = p.Frequency
			}
		}
		perTerm[term] = docs
	}

	var candidates map[string]struct{}
	switch q.Mode {
	case MatchAny:
		candidates = union(perTerm)
	default:
		candidates = intersect(perTerm)
	}

	for _, term := range q.Exclude {
		entry, ok, err := idx.Lookup(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("looking up excluded %q: %w", term, err)
		}
		if !ok {
			continue
		}
		for _, p := range entry.Postings {
			delete(candidates, p.DocID)
		}
	}

	matches := make([]Match, 0, len(candidates))
	for docID := range candidates {
		m := Match{DocID: docID, Frequencies: make(map[string]int)}
		for term, docs := range perTerm {
			if f, ok := docs[docID]; ok {
				m.Frequencies[term] = f
			}
		}
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].DocID < matches[j].DocID
	})
	slog.Default().Debug("query evaluated",
		"component", "lookup",
		"query", q.Raw,
		"terms", q.Terms,
		"matches", len(matches),
	)
	return matches, nil
}

// intersect starts from the smallest posting set and keeps the documents
// every other term also contains.
func intersect(perTerm map[string]map[string]int) map[string]struct{} {
	smallest, size := "", -1
	for term, docs := range perTerm {
		if size < 0 || len(docs) < size {
			smallest, size = term, len(docs)
		}
	}
	candidates := make(map[string]struct{}, len(perTerm[smallest]))
	for docID := range perTerm[smallest] {
		candidates[docID] = struct{}{}
	}
	for term, docs := range perTerm {
		if term == smallest {
			continue
		}
		for docID := range candidates {
			if _, ok := docs[docID]; !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func union(perTerm map[string]map[string]int) map[string]struct{} {
	result := make(map[string]struct{})
	for _, docs := range perTerm {
		for docID := range docs {
			result[docID] = struct{}{}
		}
	}
	return result
}
