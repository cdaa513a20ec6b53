// Package index defines the records that flow through the indexing pipeline,
// from raw input lines to the final per-term posting lists, together with
// the line format used to persist them.
package index

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Inverted-Index/pkg/errors"
)

const (
	// FieldSeparator separates the term from its postings in an output line.
	FieldSeparator = '\t'
	// CountSeparator separates a document ID from its frequency.
	CountSeparator = ':'
	// PostingSeparator follows every rendered posting.
	PostingSeparator = ' '
)

// Record is one line of input. Offset is the byte offset of the line within
// its partition and only serves as line identity.
type Record struct {
	Offset int64
	Text   string
}

// TermPosting is a single occurrence of Term in document DocID.
type TermPosting struct {
	Term  string
	DocID string
}

// PostingGroup is every docID emitted for one term. The order of DocIDs is
// unspecified and duplicates are repeated occurrences.
type PostingGroup struct {
	Term   string
	DocIDs []string
}

// Posting is the frequency of a term within one document.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

// TermEntry is the final index record for one term. Postings are sorted by
// DocID in byte-wise ascending order.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// TotalFrequency returns the sum of all posting frequencies.
func (e TermEntry) TotalFrequency() int {
	total := 0
	for _, p := range e.Postings {
		total += p.Frequency
	}
	return total
}

// Format renders the postings as "docID:count " pairs in order. Every pair,
// including the last, is followed by a single space.
func (e TermEntry) Format() string {
	var b strings.Builder
	for _, p := range e.Postings {
		b.WriteString(p.DocID)
		b.WriteByte(CountSeparator)
		b.WriteString(strconv.Itoa(p.Frequency))
		b.WriteByte(PostingSeparator)
	}
	return b.String()
}

// FormatLine renders the entry as "<term>\t<postings>".
func FormatLine(e TermEntry) string {
	return e.Term + string(FieldSeparator) + e.Format()
}

// ParseLine parses a line produced by FormatLine.
func ParseLine(line string) (TermEntry, error) {
	term, rest, ok := strings.Cut(line, string(FieldSeparator))
	if !ok {
		return TermEntry{}, fmt.Errorf("%w: index line has no term separator", apperrors.ErrInvalidInput)
	}
	postings, err := ParsePostings(rest)
	if err != nil {
		return TermEntry{}, fmt.Errorf("parsing postings for term %q: %w", term, err)
	}
	return TermEntry{Term: term, Postings: postings}, nil
}

// ParsePostings parses the output of TermEntry.Format. A document ID may
// contain spaces and the count separator, so each posting ends at the first
// ":<digits>" followed by a space or the end of s.
func ParsePostings(s string) (PostingList, error) {
	postings := make(PostingList, 0, strings.Count(s, string(PostingSeparator)))
	for s != "" {
		docID, count, rest, ok := cutPosting(s)
		if !ok {
			return nil, fmt.Errorf("%w: posting %q has no count", apperrors.ErrInvalidInput, s)
		}
		freq, err := strconv.Atoi(count)
		if err != nil || freq < 1 {
			return nil, fmt.Errorf("%w: posting %q has invalid count", apperrors.ErrInvalidInput, docID+string(CountSeparator)+count)
		}
		postings = append(postings, Posting{DocID: docID, Frequency: freq})
		s = rest
	}
	return postings, nil
}

// cutPosting splits the first posting off s.
func cutPosting(s string) (docID, count, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != CountSeparator {
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i+1 {
			continue
		}
		switch {
		case j == len(s):
			return s[:i], s[i+1:], "", true
		case s[j] == PostingSeparator:
			return s[:i], s[i+1 : j], s[j+1:], true
		}
	}
	return "", "", "", false
}
