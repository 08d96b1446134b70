// Package retrieval implements ranked full-text search over a fixed document
// corpus. An Engine owns a field-weighted inverted index built once at
// construction; queries are answered with BM25-style relevance scoring,
// phrase and boolean semantics, context snippets, and a bounded FIFO result
// cache. Execution failures never escape Search: they are logged and
// surfaced as an empty result list.
package retrieval

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/knowledgescope/concept-resolution-engine/internal/cache"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/index"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/parser"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/tokenizer"
)

// Config controls indexing and query defaults.
type Config struct {
	FieldWeights    index.Weights
	StopWords       []string
	MinTermLength   int
	CacheCapacity   int
	DefaultLimit    int
	DefaultMinScore float64
	SnippetLength   int
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		FieldWeights:    index.DefaultWeights(),
		MinTermLength:   2,
		CacheCapacity:   1000,
		DefaultLimit:    20,
		DefaultMinScore: 0.5,
		SnippetLength:   150,
	}
}

// Options adjusts a single search.
type Options struct {
	Type            parser.QueryType // empty = simple
	MinScore        float64          // <= 0 = configured default
	Limit           int              // <= 0 = configured default
	DisableSnippets bool
}

// SearchResult is one ranked hit.
type SearchResult struct {
	DocID        string         `json:"doc_id"`
	Score        float64        `json:"score"`
	MatchType    string         `json:"match_type"`
	MatchedTerms map[string]int `json:"matched_terms,omitempty"`
	Snippets     []string       `json:"snippets,omitempty"`
}

// Engine answers search queries over an immutable corpus. The index and
// document table are read-only after construction; the result cache is the
// only mutable state and is internally synchronized, so an Engine is safe
// for concurrent use.
type Engine struct {
	docs    map[string]Document
	order   []string
	ix      *index.Index
	tok     *tokenizer.Tokenizer
	weights index.Weights
	cfg     Config
	results *cache.FIFO[[]SearchResult]
	logger  *slog.Logger
}

// NewEngine validates cfg, indexes the corpus, and returns a ready Engine.
// An empty corpus yields a valid engine that matches nothing.
func NewEngine(docs []Document, cfg Config) (*Engine, error) {
	if cfg.DefaultLimit <= 0 {
		return nil, fmt.Errorf("default result limit must be positive, got %d", cfg.DefaultLimit)
	}
	if cfg.SnippetLength <= 0 {
		return nil, fmt.Errorf("snippet length must be positive, got %d", cfg.SnippetLength)
	}
	weights := cfg.FieldWeights
	if weights == nil {
		weights = index.DefaultWeights()
	}
	for field, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("field weight for %q must be positive, got %v", field, w)
		}
	}
	results, err := cache.NewFIFO[[]SearchResult](cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("retrieval result cache: %w", err)
	}

	tok := tokenizer.New(cfg.StopWords, cfg.MinTermLength)
	builder := index.NewBuilder(tok)
	byID := make(map[string]Document, len(docs))
	order := make([]string, 0, len(docs))
	for _, doc := range docs {
		if _, dup := byID[doc.ID]; dup {
			continue
		}
		byID[doc.ID] = doc
		order = append(order, doc.ID)
		builder.Add(doc.ID, map[index.Field]string{
			index.FieldTitle:    doc.Title,
			index.FieldHeadings: strings.Join(doc.Headings, " "),
			index.FieldBody:     doc.Body,
		})
	}

	return &Engine{
		docs:    byID,
		order:   order,
		ix:      builder.Build(),
		tok:     tok,
		weights: weights,
		cfg:     cfg,
		results: results,
		logger:  slog.Default().With("component", "retrieval-engine"),
	}, nil
}

// Search runs query and returns ranked results, best first. Empty queries
// yield an empty list without touching the cache. Internal execution
// failures are logged and degrade to an empty list.
func (e *Engine) Search(query string, opts Options) []SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	queryType := opts.Type
	if queryType == "" {
		queryType = parser.QuerySimple
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = e.cfg.DefaultMinScore
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	key := fmt.Sprintf("%s|%s|%.4f|%d", query, queryType, minScore, limit)
	if cached, ok := e.results.Get(key); ok {
		return cached
	}

	results, ok := e.execute(query, queryType, minScore, limit, !opts.DisableSnippets)
	if !ok {
		// failed executions are not cached
		return nil
	}
	e.results.Put(key, results)
	return results
}

// Document returns the stored document for id.
func (e *Engine) Document(id string) (Document, bool) {
	doc, ok := e.docs[id]
	return doc, ok
}

// DocCount returns the corpus size.
func (e *Engine) DocCount() int {
	return e.ix.DocCount()
}

// CacheStats returns the result cache's cumulative hit and miss counts.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.results.Stats()
}

// execute runs a parsed query to completion, converting any panic from the
// query pipeline into an empty, uncacheable result.
func (e *Engine) execute(query string, queryType parser.QueryType, minScore float64, limit int, snippets bool) (results []SearchResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("query execution failed",
				"query", query,
				"type", queryType,
				"panic", r,
			)
			results, ok = nil, false
		}
	}()

	plan := parser.Parse(query, queryType, e.tok)

	var ranked []scoredDoc
	switch plan.Type {
	case parser.QueryPhrase:
		ranked = e.executePhrase(plan)
	default:
		ranked = e.executeTerms(plan)
	}

	results = make([]SearchResult, 0, len(ranked))
	for _, doc := range ranked {
		if doc.score < minScore {
			continue
		}
		result := SearchResult{
			DocID:        doc.docID,
			Score:        doc.score,
			MatchType:    string(plan.Type),
			MatchedTerms: doc.matched,
		}
		if snippets {
			result.Snippets = generateSnippets(e.docs[doc.docID].Body, plan.RawQuery, e.cfg.SnippetLength)
		}
		results = append(results, result)
		if len(results) >= limit {
			break
		}
	}
	e.logger.Debug("query executed",
		"query", query,
		"type", plan.Type,
		"results", len(results),
	)
	return results, true
}

// executeTerms handles simple and boolean plans: gather postings per term,
// work out the candidate document set from the operator, drop excluded
// documents, and rank what remains.
func (e *Engine) executeTerms(plan *parser.QueryPlan) []scoredDoc {
	if len(plan.Terms) == 0 {
		return nil
	}
	postingsPerTerm := make(map[string]index.FieldPostings)
	missing := false
	for _, term := range plan.Terms {
		if fp := e.ix.Lookup(term); fp != nil {
			postingsPerTerm[term] = fp
		} else {
			missing = true
		}
	}

	var candidates map[string]struct{}
	if plan.Type == parser.QueryBoolean {
		switch plan.Operator {
		case parser.OperatorAND:
			// every positive term must be present, so a missing term
			// empties the result
			if missing {
				return nil
			}
			candidates = intersectPostings(postingsPerTerm)
		case parser.OperatorOR:
			candidates = unionPostings(postingsPerTerm)
		}
		for _, term := range plan.ExcludeTerms {
			fp := e.ix.Lookup(term)
			for _, postings := range fp {
				for _, p := range postings {
					delete(candidates, p.DocID)
				}
			}
		}
		if len(candidates) == 0 {
			return nil
		}
	}

	params := rankParams{
		totalDocs:    e.ix.DocCount(),
		avgDocLength: e.ix.AvgDocLength(),
		weights:      e.weights,
	}
	return rank(postingsPerTerm, candidates, params, e.ix.DocLength, e.ix.DocFrequency)
}

// executePhrase scans the corpus for the literal phrase, case-insensitively,
// scoring each containing document by occurrence count times field weight.
func (e *Engine) executePhrase(plan *parser.QueryPlan) []scoredDoc {
	phrase := strings.ToLower(strings.TrimSpace(plan.Phrase))
	if phrase == "" {
		return nil
	}
	ranked := make([]scoredDoc, 0)
	for _, id := range e.order {
		doc := e.docs[id]
		score := 0.0
		total := 0
		for field, text := range map[index.Field]string{
			index.FieldTitle:    doc.Title,
			index.FieldHeadings: strings.Join(doc.Headings, " "),
			index.FieldBody:     doc.Body,
		} {
			count := strings.Count(strings.ToLower(text), phrase)
			if count == 0 {
				continue
			}
			weight, ok := e.weights[field]
			if !ok {
				weight = 1.0
			}
			score += weight * float64(count)
			total += count
		}
		if total == 0 {
			continue
		}
		ranked = append(ranked, scoredDoc{
			docID:   id,
			score:   score,
			matched: map[string]int{phrase: total},
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docID < ranked[j].docID
	})
	return ranked
}

func intersectPostings(postingsPerTerm map[string]index.FieldPostings) map[string]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	var candidates map[string]struct{}
	for _, fp := range postingsPerTerm {
		docs := docSet(fp)
		if candidates == nil {
			candidates = docs
			continue
		}
		for docID := range candidates {
			if _, ok := docs[docID]; !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm map[string]index.FieldPostings) map[string]struct{} {
	result := make(map[string]struct{})
	for _, fp := range postingsPerTerm {
		for docID := range docSet(fp) {
			result[docID] = struct{}{}
		}
	}
	return result
}

func docSet(fp index.FieldPostings) map[string]struct{} {
	set := make(map[string]struct{})
	for _, postings := range fp {
		for _, p := range postings {
			set[p.DocID] = struct{}{}
		}
	}
	return set
}
