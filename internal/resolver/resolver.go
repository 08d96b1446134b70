// Package resolver orchestrates the matching layers that turn a user query
// into a known concept. Layers run in strict priority order — exact, fuzzy,
// partial, then optionally full-text retrieval — and the cascade
// short-circuits at the first success. Every layer that actually runs is
// recorded as an attempt, so callers get an auditable trail alongside the
// answer; layers skipped by a short-circuit never appear in the trail.
package resolver

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
	"github.com/knowledgescope/concept-resolution-engine/internal/fuzzy"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval"
)

// Layer names one matching strategy in the cascade.
type Layer string

const (
	LayerExact    Layer = "exact"
	LayerFuzzy    Layer = "fuzzy"
	LayerPartial  Layer = "partial"
	LayerFulltext Layer = "fulltext"
)

// Per-layer confidence. Exact matches are certain, fuzzy matches carry
// their own similarity score, partial matches get a fixed value, and
// full-text confidence is derived from the retrieval score.
const (
	partialConfidence     = 0.7
	maxFulltextConfidence = 0.95
)

// Attempt records one layer's outcome for the audit trail.
type Attempt struct {
	Layer   Layer          `json:"layer"`
	Success bool           `json:"success"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// BestMatch describes the winning layer's answer.
type BestMatch struct {
	Concept     string                   `json:"concept,omitempty"`
	Documents   []retrieval.SearchResult `json:"documents,omitempty"`
	Layer       Layer                    `json:"layer"`
	Score       float64                  `json:"score"`
	Confidence  float64                  `json:"confidence"`
	Explanation string                   `json:"explanation"`
}

// Result is the structured outcome of a resolution. Found is false and
// Best nil only when every enabled layer failed.
type Result struct {
	Found    bool       `json:"found"`
	Best     *BestMatch `json:"best_match,omitempty"`
	Attempts []Attempt  `json:"attempts"`
}

// Config holds resolver defaults.
type Config struct {
	FuzzyThreshold float64
}

// DefaultConfig returns the standard resolver configuration.
func DefaultConfig() Config {
	return Config{FuzzyThreshold: 0.7}
}

// Options adjusts a single resolution.
type Options struct {
	FuzzyThreshold float64 // 0 = configured default
	DisableFuzzy   bool
	EnableFulltext bool
}

// Resolver resolves query terms against a fixed concept list, delegating to
// the fuzzy matcher and, when enabled, the retrieval engine. All referenced
// state is read-only after construction, so a Resolver is safe for
// concurrent use.
type Resolver struct {
	concepts *concept.List
	matcher  *fuzzy.Matcher
	engine   *retrieval.Engine
	cfg      Config
	logger   *slog.Logger
}

// New builds a Resolver. engine may be nil when no document corpus is
// available; the fulltext layer is then silently unavailable.
func New(concepts *concept.List, matcher *fuzzy.Matcher, engine *retrieval.Engine, cfg Config) *Resolver {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = DefaultConfig().FuzzyThreshold
	}
	return &Resolver{
		concepts: concepts,
		matcher:  matcher,
		engine:   engine,
		cfg:      cfg,
		logger:   slog.Default().With("component", "resolver"),
	}
}

// FindConcept resolves term to a concept name using the exact, fuzzy, and
// partial layers. It returns the name and true on success.
func (r *Resolver) FindConcept(term string, opts Options) (string, bool) {
	opts.EnableFulltext = false
	result := r.resolve(term, opts)
	if !result.Found || result.Best.Concept == "" {
		return "", false
	}
	return result.Best.Concept, true
}

// FindConceptWithFallbacks resolves term with the full cascade, including
// the fulltext layer when opts.EnableFulltext is set and a retrieval engine
// is present. The returned Result always carries one attempt entry per
// layer that ran.
func (r *Resolver) FindConceptWithFallbacks(term string, opts Options) Result {
	return r.resolve(term, opts)
}

type layerFunc struct {
	layer Layer
	run   func(term string) (*BestMatch, map[string]any)
}

func (r *Resolver) resolve(term string, opts Options) Result {
	result := Result{Attempts: make([]Attempt, 0, 4)}
	if strings.TrimSpace(term) == "" {
		return result
	}

	layers := []layerFunc{
		{LayerExact, r.tryExact},
	}
	if !opts.DisableFuzzy {
		threshold := opts.FuzzyThreshold
		if threshold <= 0 {
			threshold = r.cfg.FuzzyThreshold
		}
		layers = append(layers, layerFunc{LayerFuzzy, func(t string) (*BestMatch, map[string]any) {
			return r.tryFuzzy(t, threshold)
		}})
	}
	layers = append(layers, layerFunc{LayerPartial, r.tryPartial})
	if opts.EnableFulltext && r.engine != nil {
		layers = append(layers, layerFunc{LayerFulltext, r.tryFulltext})
	}

	// Lazy evaluation: the first successful layer wins and later layers
	// never run, so they are absent from the attempt trail.
	for _, lf := range layers {
		best, detail := lf.run(term)
		result.Attempts = append(result.Attempts, Attempt{
			Layer:   lf.layer,
			Success: best != nil,
			Detail:  detail,
		})
		if best != nil {
			result.Found = true
			result.Best = best
			r.logger.Debug("term resolved",
				"term", term,
				"layer", lf.layer,
				"confidence", best.Confidence,
			)
			return result
		}
	}
	r.logger.Debug("term unresolved", "term", term, "layers_tried", len(result.Attempts))
	return result
}

func (r *Resolver) tryExact(term string) (*BestMatch, map[string]any) {
	trimmed := strings.TrimSpace(term)
	for _, entry := range r.concepts.Entries() {
		if strings.EqualFold(entry.Concept.Name, trimmed) {
			return &BestMatch{
				Concept:     entry.Concept.Name,
				Layer:       LayerExact,
				Score:       1.0,
				Confidence:  1.0,
				Explanation: fmt.Sprintf("exact name match for %q", trimmed),
			}, nil
		}
	}
	return nil, nil
}

func (r *Resolver) tryFuzzy(term string, threshold float64) (*BestMatch, map[string]any) {
	matches := r.matcher.FindFuzzyConcept(term, fuzzy.Options{Threshold: threshold})
	if len(matches) == 0 {
		return nil, map[string]any{"threshold": threshold}
	}
	top := matches[0]
	return &BestMatch{
		Concept:     top.Concept,
		Layer:       LayerFuzzy,
		Score:       top.Score,
		Confidence:  top.Score,
		Explanation: top.Explanation,
	}, map[string]any{"threshold": threshold, "candidates": len(matches)}
}

// tryPartial looks for concepts whose name contains the search term. Among
// all containing concepts the one with the highest source frequency wins;
// frequency ties fall back to input order.
func (r *Resolver) tryPartial(term string) (*BestMatch, map[string]any) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, nil
	}
	bestIdx := -1
	bestFreq := -1
	entries := r.concepts.Entries()
	for i, entry := range entries {
		if !strings.Contains(strings.ToLower(entry.Concept.Name), needle) {
			continue
		}
		if entry.Concept.Frequency > bestFreq {
			bestFreq = entry.Concept.Frequency
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, nil
	}
	name := entries[bestIdx].Concept.Name
	return &BestMatch{
		Concept:     name,
		Layer:       LayerPartial,
		Score:       partialConfidence,
		Confidence:  partialConfidence,
		Explanation: fmt.Sprintf("%q contains %q (frequency %d)", name, needle, bestFreq),
	}, map[string]any{"frequency": bestFreq}
}

func (r *Resolver) tryFulltext(term string) (*BestMatch, map[string]any) {
	results := r.engine.Search(term, retrieval.Options{})
	if len(results) == 0 {
		return nil, nil
	}
	top := results[0]
	return &BestMatch{
		Documents:   results,
		Layer:       LayerFulltext,
		Score:       top.Score,
		Confidence:  fulltextConfidence(top.Score),
		Explanation: fmt.Sprintf("full-text match in %s (score %.4f)", top.DocID, top.Score),
	}, map[string]any{"documents": len(results)}
}

// fulltextConfidence maps an unbounded retrieval score onto (0,0.95]: it
// grows monotonically with the score but stays below every direct concept
// match.
func fulltextConfidence(score float64) float64 {
	c := score / (score + 1)
	if c > maxFulltextConfidence {
		c = maxFulltextConfidence
	}
	return c
}
