// Package fuzzy implements approximate concept matching. A query is matched
// against a fixed concept list through a cascade of strategies ordered from
// cheapest to most expensive: abbreviation expansion, exact normalized match,
// substring containment, character-n-gram Jaccard similarity, and a
// Levenshtein fallback reserved for short strings. Results are cached in a
// bounded FIFO cache keyed on the normalized term and threshold.
package fuzzy

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/knowledgescope/concept-resolution-engine/internal/cache"
	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
)

// Match classification, from strongest to weakest evidence.
const (
	MatchExact        = "exact"
	MatchAbbreviation = "abbreviation"
	MatchSubstring    = "substring"
	MatchNGram        = "ngram-similarity"
	MatchEditDistance = "edit-distance"
)

// Match is a single scored candidate for a fuzzy lookup.
type Match struct {
	Concept     string  `json:"concept"`
	Score       float64 `json:"score"`
	MatchType   string  `json:"match_type"`
	Explanation string  `json:"explanation"`
}

// Config controls matching thresholds and the result cache.
type Config struct {
	JaccardThreshold     float64
	NGramSize            int
	MinTermLength        int
	MaxLevenshteinLength int
	Abbreviations        map[string]string
	CacheCapacity        int
}

// DefaultConfig returns the standard matcher configuration.
func DefaultConfig() Config {
	return Config{
		JaccardThreshold:     0.7,
		NGramSize:            2,
		MinTermLength:        3,
		MaxLevenshteinLength: 5,
		CacheCapacity:        5000,
	}
}

// Options adjusts a single lookup.
type Options struct {
	Threshold float64 // 0 = use the configured Jaccard threshold
	Limit     int     // 0 = default 5
}

const defaultLimit = 5

// Matcher resolves query strings to known concepts. It is safe for
// concurrent use: the concept list and abbreviation table are read-only
// after construction and the result cache is internally synchronized.
type Matcher struct {
	concepts      *concept.List
	cfg           Config
	abbreviations map[string]string
	results       *cache.FIFO[[]Match]
	logger        *slog.Logger
}

// NewMatcher validates cfg and builds a Matcher over the given concept list.
// Abbreviation keys and expansions are normalized once here; an entry that
// normalizes to the empty string is a configuration error.
func NewMatcher(concepts *concept.List, cfg Config) (*Matcher, error) {
	if cfg.NGramSize < 1 {
		return nil, fmt.Errorf("n-gram size must be at least 1, got %d", cfg.NGramSize)
	}
	if cfg.MinTermLength < 1 {
		return nil, fmt.Errorf("minimum term length must be at least 1, got %d", cfg.MinTermLength)
	}
	if cfg.JaccardThreshold < 0 || cfg.JaccardThreshold > 1 {
		return nil, fmt.Errorf("jaccard threshold must be in [0,1], got %v", cfg.JaccardThreshold)
	}
	results, err := cache.NewFIFO[[]Match](cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("fuzzy result cache: %w", err)
	}
	abbrevs := make(map[string]string, len(cfg.Abbreviations))
	for key, expansion := range cfg.Abbreviations {
		normKey := concept.Normalize(key)
		normExp := concept.Normalize(expansion)
		if normKey == "" || normExp == "" {
			return nil, fmt.Errorf("malformed abbreviation entry %q -> %q", key, expansion)
		}
		abbrevs[normKey] = normExp
	}
	return &Matcher{
		concepts:      concepts,
		cfg:           cfg,
		abbreviations: abbrevs,
		results:       results,
		logger:        slog.Default().With("component", "fuzzy-matcher"),
	}, nil
}

// FindFuzzyConcept returns ranked approximate matches for term, best first.
// An empty or unmatchable term yields an empty slice, never an error.
func (m *Matcher) FindFuzzyConcept(term string, opts Options) []Match {
	norm := concept.Normalize(term)
	if norm == "" {
		return nil
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = m.cfg.JaccardThreshold
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	// The cache key is built after normalization so queries differing only
	// in case or whitespace share an entry.
	key := fmt.Sprintf("%s|%.4f", norm, threshold)
	if cached, ok := m.results.Get(key); ok {
		return cached
	}

	matches := m.match(norm, threshold)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	m.results.Put(key, matches)
	m.logger.Debug("fuzzy lookup",
		"term", norm,
		"threshold", threshold,
		"matches", len(matches),
	)
	return matches
}

// CacheStats returns the result cache's cumulative hit and miss counts.
func (m *Matcher) CacheStats() (hits, misses int64) {
	return m.results.Stats()
}

func (m *Matcher) match(norm string, threshold float64) []Match {
	// Abbreviation layer: an exact table hit ends the search outright.
	if expansion, ok := m.abbreviations[norm]; ok {
		if c, found := m.concepts.LookupNormalized(expansion); found {
			return []Match{{
				Concept:     c.Name,
				Score:       1.0,
				MatchType:   MatchAbbreviation,
				Explanation: fmt.Sprintf("abbreviation %q expands to %q", norm, expansion),
			}}
		}
	}

	// Exact layer.
	if c, found := m.concepts.LookupNormalized(norm); found {
		return []Match{{
			Concept:     c.Name,
			Score:       1.0,
			MatchType:   MatchExact,
			Explanation: fmt.Sprintf("exact match on normalized form %q", norm),
		}}
	}

	// Too-short terms are unsafe to fuzzy-match; the empty result is still
	// cached by the caller.
	if len(norm) < m.cfg.MinTermLength {
		return nil
	}

	var matches []Match
	for _, entry := range m.concepts.Entries() {
		candidate := entry.Normalized

		// Cheap length pre-filter: skip candidates whose length differs
		// from the query's by more than 40% of the query length.
		diff := len(candidate) - len(norm)
		if diff < 0 {
			diff = -diff
		}
		if float64(diff) > 0.4*float64(len(norm)) {
			continue
		}

		if match, ok := m.scoreCandidate(norm, candidate, entry.Concept.Name, threshold); ok {
			matches = append(matches, match)
		}
	}
	return matches
}

func (m *Matcher) scoreCandidate(query, candidate, name string, threshold float64) (Match, bool) {
	// Substring containment scores by length ratio of the shorter string to
	// the longer, so near-complete overlap scores near 1.
	if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
		shorter, longer := len(query), len(candidate)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		score := float64(shorter) / float64(longer)
		if score >= threshold {
			return Match{
				Concept:     name,
				Score:       score,
				MatchType:   MatchSubstring,
				Explanation: fmt.Sprintf("substring overlap between %q and %q", query, candidate),
			}, true
		}
		return Match{}, false
	}

	if sim := ngramSimilarity(query, candidate, m.cfg.NGramSize); sim >= threshold {
		return Match{
			Concept:     name,
			Score:       sim,
			MatchType:   MatchNGram,
			Explanation: fmt.Sprintf("%d-gram similarity %.3f", m.cfg.NGramSize, sim),
		}, true
	}

	// Edit distance is quadratic, so it only runs when either string is
	// short enough for typo-level differences to dominate.
	if len(query) <= m.cfg.MaxLevenshteinLength || len(candidate) <= m.cfg.MaxLevenshteinLength {
		if sim := editSimilarity(query, candidate); sim >= threshold {
			return Match{
				Concept:     name,
				Score:       sim,
				MatchType:   MatchEditDistance,
				Explanation: fmt.Sprintf("edit-distance similarity %.3f", sim),
			}, true
		}
	}
	return Match{}, false
}
