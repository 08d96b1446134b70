package fuzzy

import (
	"testing"

	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
)

func testConcepts(names ...string) *concept.List {
	concepts := make([]concept.Concept, len(names))
	for i, name := range names {
		concepts[i] = concept.Concept{Name: name, Frequency: 1}
	}
	return concept.NewList(concepts)
}

func newTestMatcher(t *testing.T, concepts *concept.List, cfg Config) *Matcher {
	t.Helper()
	m, err := NewMatcher(concepts, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewMatcherConfigValidation(t *testing.T) {
	concepts := testConcepts("arbitrum")
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero cache capacity", Config{JaccardThreshold: 0.7, NGramSize: 2, MinTermLength: 3}},
		{"negative cache capacity", func() Config {
			c := DefaultConfig()
			c.CacheCapacity = -1
			return c
		}()},
		{"bad ngram size", func() Config {
			c := DefaultConfig()
			c.NGramSize = 0
			return c
		}()},
		{"threshold out of range", func() Config {
			c := DefaultConfig()
			c.JaccardThreshold = 1.5
			return c
		}()},
		{"empty abbreviation key", func() Config {
			c := DefaultConfig()
			c.Abbreviations = map[string]string{"  ": "arbitrum"}
			return c
		}()},
		{"empty abbreviation expansion", func() Config {
			c := DefaultConfig()
			c.Abbreviations = map[string]string{"arb": "!!!"}
			return c
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMatcher(concepts, tt.cfg); err == nil {
				t.Error("expected construction error, got nil")
			}
		})
	}
}

func TestExactMatchShortCircuits(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum", "arbitrum one"), DefaultConfig())

	matches := m.FindFuzzyConcept("Arbitrum", Options{})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want exactly 1", len(matches))
	}
	if matches[0].Concept != "arbitrum" {
		t.Errorf("Concept = %q, want %q", matches[0].Concept, "arbitrum")
	}
	if matches[0].Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", matches[0].Score)
	}
	if matches[0].MatchType != MatchExact {
		t.Errorf("MatchType = %q, want %q", matches[0].MatchType, MatchExact)
	}
}

func TestAbbreviationExpansion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Abbreviations = map[string]string{"ARB": "arbitrum"}
	m := newTestMatcher(t, testConcepts("arbitrum", "ethereum"), cfg)

	for _, query := range []string{"arb", "ARB", " Arb "} {
		matches := m.FindFuzzyConcept(query, Options{})
		if len(matches) != 1 {
			t.Fatalf("query %q: got %d matches, want 1", query, len(matches))
		}
		got := matches[0]
		if got.Concept != "arbitrum" || got.Score != 1.0 || got.MatchType != MatchAbbreviation {
			t.Errorf("query %q: got %+v, want abbreviation match on arbitrum with score 1.0", query, got)
		}
	}
}

func TestNGramTolerance(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum", "ethereum"), DefaultConfig())

	matches := m.FindFuzzyConcept("arbitrom", Options{Threshold: 0.7})
	if len(matches) == 0 {
		t.Fatal("expected a fuzzy match for arbitrom")
	}
	got := matches[0]
	if got.Concept != "arbitrum" {
		t.Errorf("Concept = %q, want %q", got.Concept, "arbitrum")
	}
	if got.Score <= 0.7 {
		t.Errorf("Score = %v, want > 0.7", got.Score)
	}
	if got.MatchType != MatchNGram {
		t.Errorf("MatchType = %q, want %q", got.MatchType, MatchNGram)
	}
}

func TestThresholdEnforced(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum", "arbitrum one", "optimism", "gas optimization"), DefaultConfig())

	for _, query := range []string{"arbitram", "optimsm", "gas optimzation", "arbit"} {
		for _, match := range m.FindFuzzyConcept(query, Options{Threshold: 0.6}) {
			if match.Score < 0.6 {
				t.Errorf("query %q: match %q scored %v, below threshold 0.6", query, match.Concept, match.Score)
			}
		}
	}
}

func TestShortTermGate(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum"), DefaultConfig())

	if matches := m.FindFuzzyConcept("ab", Options{}); len(matches) != 0 {
		t.Errorf("2-char query below min term length should match nothing, got %v", matches)
	}
}

func TestEmptyAndBlankInput(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum"), DefaultConfig())

	for _, query := range []string{"", "   ", "!!!"} {
		if matches := m.FindFuzzyConcept(query, Options{}); len(matches) != 0 {
			t.Errorf("query %q should match nothing, got %v", query, matches)
		}
	}
}

func TestLimitTruncation(t *testing.T) {
	m := newTestMatcher(t, testConcepts("layer", "layers", "layered", "layering", "players"), DefaultConfig())

	matches := m.FindFuzzyConcept("layerz", Options{Threshold: 0.3, Limit: 2})
	if len(matches) > 2 {
		t.Errorf("got %d matches, limit was 2", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted descending: %v before %v", matches[i-1].Score, matches[i].Score)
		}
	}
}

func TestCacheSharedAcrossCaseVariants(t *testing.T) {
	m := newTestMatcher(t, testConcepts("arbitrum"), DefaultConfig())

	first := m.FindFuzzyConcept("Arbitrum", Options{})
	second := m.FindFuzzyConcept("  ARBITRUM  ", Options{})

	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("case variants returned different results: %v vs %v", first, second)
	}
	hits, _ := m.CacheStats()
	if hits == 0 {
		t.Error("second lookup should have hit the cache")
	}
}

func TestNGramSimilarityProperties(t *testing.T) {
	pairs := [][2]string{
		{"arbitrum", "arbitrom"},
		{"gas", "gasoline"},
		{"layer", "player"},
	}
	for _, p := range pairs {
		ab := ngramSimilarity(p[0], p[1], 2)
		ba := ngramSimilarity(p[1], p[0], 2)
		if ab != ba {
			t.Errorf("similarity(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("similarity(%q,%q)=%v outside [0,1]", p[0], p[1], ab)
		}
	}
	for _, s := range []string{"a", "arbitrum", "gas optimization"} {
		if sim := ngramSimilarity(s, s, 2); sim != 1.0 {
			t.Errorf("self-similarity of %q = %v, want 1.0", s, sim)
		}
	}
	if sim := ngramSimilarity("", "", 2); sim != 0 {
		t.Errorf("similarity of empty strings = %v, want 0", sim)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"gas", "gsa", 2},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
