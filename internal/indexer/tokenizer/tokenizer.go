// Package tokenizer splits document text into terms. Terms are the maximal
// runs of non-whitespace bytes; nothing is lower-cased, stemmed or stripped.
package tokenizer

import "strings"

// Token is a single term and its position among the terms of the text.
type Token struct {
	Term     string
	Position int
}

// isDelimiter reports whether r is one of space, tab, newline, carriage
// return or form feed. Other Unicode spaces are part of a term.
func isDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// Tokenize breaks text into Tokens in left-to-right order. Empty or
// all-whitespace text yields no tokens.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(text, isDelimiter)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string) []string {
	return strings.FieldsFunc(text, isDelimiter)
}
