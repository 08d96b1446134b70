// Package index implements the field-weighted inverted index behind the
// retrieval engine. An Index is built once from the full corpus and is
// read-only afterwards, so concurrent lookups need no synchronization.
package index

import (
	"sort"

	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/tokenizer"
)

// Index maps normalized terms to per-field posting lists.
type Index struct {
	terms       map[string]FieldPostings
	docLengths  map[string]int
	docCount    int
	totalTokens int64
}

// Builder accumulates documents before freezing them into an Index.
type Builder struct {
	tok *tokenizer.Tokenizer
	ix  *Index
}

// NewBuilder creates a Builder tokenizing with tok.
func NewBuilder(tok *tokenizer.Tokenizer) *Builder {
	return &Builder{
		tok: tok,
		ix: &Index{
			terms:      make(map[string]FieldPostings),
			docLengths: make(map[string]int),
		},
	}
}

// Add indexes one document's fields. Calling Add after Build is a bug.
func (b *Builder) Add(docID string, fields map[Field]string) {
	docLen := 0
	for field, text := range fields {
		tokens := b.tok.Tokenize(text)
		docLen += len(tokens)

		perTerm := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := perTerm[token.Term]
			if !exists {
				p = &Posting{DocID: docID, Positions: make([]int, 0, 4)}
				perTerm[token.Term] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
		for term, posting := range perTerm {
			fp, exists := b.ix.terms[term]
			if !exists {
				fp = make(FieldPostings)
				b.ix.terms[term] = fp
			}
			fp[field] = append(fp[field], *posting)
		}
	}
	b.ix.docLengths[docID] = docLen
	b.ix.docCount++
	b.ix.totalTokens += int64(docLen)
}

// Build sorts all posting lists by document ID for deterministic iteration
// and returns the frozen Index.
func (b *Builder) Build() *Index {
	for _, fp := range b.ix.terms {
		for field, postings := range fp {
			sort.Slice(postings, func(i, j int) bool {
				return postings[i].DocID < postings[j].DocID
			})
			fp[field] = postings
		}
	}
	return b.ix
}

// Lookup returns the per-field postings for term, or nil when the term is
// not indexed. The returned map must be treated as read-only.
func (ix *Index) Lookup(term string) FieldPostings {
	return ix.terms[term]
}

// DocFrequency returns the number of distinct documents containing term in
// any field.
func (ix *Index) DocFrequency(term string) int {
	fp, ok := ix.terms[term]
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for _, postings := range fp {
		for _, p := range postings {
			seen[p.DocID] = struct{}{}
		}
	}
	return len(seen)
}

// DocLength returns the total token count indexed for docID across fields.
func (ix *Index) DocLength(docID string) int {
	return ix.docLengths[docID]
}

// AvgDocLength returns the mean indexed token count per document.
func (ix *Index) AvgDocLength() float64 {
	if ix.docCount == 0 {
		return 0
	}
	return float64(ix.totalTokens) / float64(ix.docCount)
}

// DocCount returns the number of indexed documents.
func (ix *Index) DocCount() int {
	return ix.docCount
}

// TermCount returns the number of distinct indexed terms.
func (ix *Index) TermCount() int {
	return len(ix.terms)
}
