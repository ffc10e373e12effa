// Package tokenizer provides text tokenisation for the catalog index.
// It lower-cases input, splits on whitespace and drops tokens shorter than
// MinTokenLength. Punctuation is kept, so "chefs." and "chefs" are
// different terms.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// MinTokenLength is the shortest token, in characters, that is indexed.
const MinTokenLength = 2

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased Tokens. Position counts only the
// tokens that were kept.
func Tokenize(text string) []Token {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < MinTokenLength {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: len(tokens),
		})
	}
	return tokens
}

// Terms returns the distinct terms of text in first-seen order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}
