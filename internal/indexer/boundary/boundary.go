// Package boundary tracks which document each input line belongs to. A line
// of the form "<docID>\t<text>" opens a document; any other line continues
// the most recently opened one.
package boundary

import "strings"

const headerSeparator = "\t"

// Parse is one step of the fold over a partition's records. Given the
// document ID carried from the previous record, it returns the document ID
// that owns record and the part of record to tokenize. The returned ID must
// be passed as current for the next record of the same partition.
//
// A continuation line seen before any header belongs to the empty ID.
func Parse(current string, record string) (docID string, text string) {
	prefix, rest, found := strings.Cut(record, headerSeparator)
	if !found {
		return current, record
	}
	return prefix, rest
}

// HasHeader reports whether record opens a new document.
func HasHeader(record string) bool {
	return strings.Contains(record, headerSeparator)
}
