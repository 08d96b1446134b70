// Package concept defines the canonical concept model the resolver matches
// queries against. A List is captured once at construction time with all
// normalized forms precomputed; changing the concept set requires building a
// new List.
package concept

// Concept is a canonical named entity with its source frequency and any
// upstream metadata attached by the extraction pipeline.
type Concept struct {
	Name      string         `json:"name"`
	Frequency int            `json:"frequency"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Entry pairs a concept with its precomputed normalized form.
type Entry struct {
	Concept    Concept
	Normalized string
}

// List is an immutable, ordered concept set. Input order is preserved so
// that downstream tie-breaks ("first encountered") are deterministic.
type List struct {
	entries []Entry
	byNorm  map[string]int
}

// NewList builds a List from the given concepts, computing normalized forms
// once. Concepts whose names normalize to the empty string are skipped.
// When two concepts share a normalized form the first one wins.
func NewList(concepts []Concept) *List {
	l := &List{
		entries: make([]Entry, 0, len(concepts)),
		byNorm:  make(map[string]int, len(concepts)),
	}
	for _, c := range concepts {
		norm := Normalize(c.Name)
		if norm == "" {
			continue
		}
		l.entries = append(l.entries, Entry{Concept: c, Normalized: norm})
		if _, exists := l.byNorm[norm]; !exists {
			l.byNorm[norm] = len(l.entries) - 1
		}
	}
	return l
}

// Len returns the number of concepts in the list.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns the full entry slice in input order. Callers must treat
// the returned slice as read-only.
func (l *List) Entries() []Entry {
	return l.entries
}

// LookupNormalized returns the concept whose normalized form equals norm.
func (l *List) LookupNormalized(norm string) (Concept, bool) {
	if idx, ok := l.byNorm[norm]; ok {
		return l.entries[idx].Concept, true
	}
	return Concept{}, false
}
