// Package tokenizer provides text tokenisation for the retrieval engine. It
// lower-cases input, splits on non-alphanumeric boundaries, and removes
// stop-words and too-short terms. There is deliberately no stemmer: the
// engine approximates morphology through character statistics upstream, not
// through suffix rules.
package tokenizer

import (
	"strings"
	"unicode"
)

// DefaultStopWords is the stop-word list used when none is configured.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenizer splits text into index terms.
type Tokenizer struct {
	stopWords map[string]struct{}
	minLength int
}

// New creates a Tokenizer with the given stop-word list and minimum term
// length. A nil stopWords slice selects DefaultStopWords; minLength values
// below 1 are raised to 2.
func New(stopWords []string, minLength int) *Tokenizer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	if minLength < 1 {
		minLength = 2
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopWords: set, minLength: minLength}
}

// Tokenize breaks text into lowercased Tokens with stop-words and too-short
// terms removed. Positions count surviving tokens, not source words.
func (t *Tokenizer) Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if len(word) < t.minLength {
			continue
		}
		if _, isStop := t.stopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, Token{Term: word, Position: pos})
		pos++
	}
	return tokens
}

// Terms returns just the term strings of Tokenize(text).
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}
