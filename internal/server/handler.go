// Package server exposes the resolution and retrieval engines over HTTP,
// with an optional Redis-backed response cache and Kafka query analytics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/knowledgescope/concept-resolution-engine/internal/analytics"
	"github.com/knowledgescope/concept-resolution-engine/internal/fuzzy"
	"github.com/knowledgescope/concept-resolution-engine/internal/resolver"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/parser"
	"github.com/knowledgescope/concept-resolution-engine/pkg/logger"
	"github.com/knowledgescope/concept-resolution-engine/pkg/metrics"
	"github.com/knowledgescope/concept-resolution-engine/pkg/middleware"
)

// Handler serves the resolution and search API. The response cache,
// analytics collector, and metrics are all optional; a nil field disables
// that concern without changing request semantics.
type Handler struct {
	resolver  *resolver.Resolver
	matcher   *fuzzy.Matcher
	engine    *retrieval.Engine
	respCache *ResponseCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a Handler. engine may be nil when no document corpus is loaded;
// the search endpoint then answers 404.
func New(
	res *resolver.Resolver,
	matcher *fuzzy.Matcher,
	engine *retrieval.Engine,
	respCache *ResponseCache,
	collector *analytics.Collector,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		resolver:  res,
		matcher:   matcher,
		engine:    engine,
		respCache: respCache,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// resolveResponse is the wire shape of a resolution.
type resolveResponse struct {
	Term     string              `json:"term"`
	Found    bool                `json:"found"`
	Best     *resolver.BestMatch `json:"best_match,omitempty"`
	Attempts []resolver.Attempt  `json:"attempts"`
}

// Resolve handles GET /api/v1/resolve?term=...&threshold=...&fuzzy=...&fulltext=...
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	term := r.URL.Query().Get("term")
	if strings.TrimSpace(term) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'term' is required")
		return
	}

	opts := resolver.Options{EnableFulltext: true}
	if v := r.URL.Query().Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			h.writeError(w, http.StatusBadRequest, "threshold must be a number in [0,1]")
			return
		}
		opts.FuzzyThreshold = threshold
	}
	if v := r.URL.Query().Get("fuzzy"); v == "false" {
		opts.DisableFuzzy = true
	}
	if v := r.URL.Query().Get("fulltext"); v == "false" {
		opts.EnableFulltext = false
	}

	key := cacheKey("resolve", fmt.Sprintf("%s|%.4f|%v|%v",
		strings.ToLower(strings.TrimSpace(term)), opts.FuzzyThreshold, opts.DisableFuzzy, opts.EnableFulltext))

	payload, cacheHit, err := h.cached(ctx, key, func() (json.RawMessage, error) {
		result := h.resolver.FindConceptWithFallbacks(term, opts)
		return json.Marshal(resolveResponse{
			Term:     term,
			Found:    result.Found,
			Best:     result.Best,
			Attempts: result.Attempts,
		})
	})
	if err != nil {
		log.Error("resolution failed", "term", term, "error", err)
		h.writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	out := resolveOutcome(payload)

	log.Info("resolution completed",
		"term", term,
		"found", out.found,
		"layer", out.layer,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.metrics != nil {
		h.metrics.ResolutionsTotal.WithLabelValues(out.layer).Inc()
		h.metrics.ResolutionLatency.WithLabelValues(out.layer).Observe(time.Since(start).Seconds())
	}
	if h.collector != nil {
		h.collector.Track(analytics.ResolveEvent{
			Type:       analytics.EventResolve,
			Term:       term,
			Found:      out.found,
			Layer:      out.layer,
			Confidence: out.confidence,
			Attempts:   out.attempts,
			LatencyMs:  latencyMs,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}

	h.writeRaw(w, http.StatusOK, payload)
}

// Concept handles GET /api/v1/concept?name=... It resolves without the
// fulltext layer and answers 404 when no concept matches.
func (h *Handler) Concept(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'name' is required")
		return
	}

	concept, ok := h.resolver.FindConcept(name, resolver.Options{})
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("no concept matches %q", name))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"query":   name,
		"concept": concept,
	})
}

// searchResponse is the wire shape of a full-text query.
type searchResponse struct {
	Query     string                   `json:"query"`
	QueryType string                   `json:"query_type"`
	TotalHits int                      `json:"total_hits"`
	Results   []retrieval.SearchResult `json:"results"`
}

// Search handles GET /api/v1/search?q=...&type=...&limit=...&min_score=...&snippets=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.engine == nil {
		h.writeError(w, http.StatusNotFound, "no document corpus is loaded")
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	opts := retrieval.Options{}
	queryType := r.URL.Query().Get("type")
	switch queryType {
	case "", "simple":
		queryType = string(parser.QuerySimple)
	case "phrase":
		opts.Type = parser.QueryPhrase
	case "boolean":
		opts.Type = parser.QueryBoolean
	default:
		h.writeError(w, http.StatusBadRequest, "type must be one of simple, phrase, boolean")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = limit
	}
	if v := r.URL.Query().Get("min_score"); v != "" {
		minScore, err := strconv.ParseFloat(v, 64)
		if err != nil || minScore < 0 {
			h.writeError(w, http.StatusBadRequest, "min_score must be a non-negative number")
			return
		}
		opts.MinScore = minScore
	}
	if v := r.URL.Query().Get("snippets"); v == "false" {
		opts.DisableSnippets = true
	}

	key := cacheKey("search", fmt.Sprintf("%s|%s|%.4f|%d|%v",
		query, queryType, opts.MinScore, opts.Limit, opts.DisableSnippets))

	payload, cacheHit, err := h.cached(ctx, key, func() (json.RawMessage, error) {
		results := h.engine.Search(query, opts)
		if results == nil {
			results = []retrieval.SearchResult{}
		}
		return json.Marshal(searchResponse{
			Query:     query,
			QueryType: queryType,
			TotalHits: len(results),
			Results:   results,
		})
	})
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	totalHits := searchHits(payload)

	log.Info("search completed",
		"query", query,
		"query_type", queryType,
		"total_hits", totalHits,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.metrics != nil {
		resultType := "hit"
		if totalHits == 0 {
			resultType = "zero_result"
		}
		h.metrics.SearchQueriesTotal.WithLabelValues(queryType, resultType).Inc()
		cacheStatus := "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		h.metrics.SearchResultsCount.Observe(float64(totalHits))
	}
	if h.collector != nil {
		eventType := analytics.EventSearch
		if totalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			QueryType: queryType,
			TotalHits: totalHits,
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}

	h.writeRaw(w, http.StatusOK, payload)
}

// CacheStats handles GET /api/v1/cache/stats, reporting every cache tier.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}

	fuzzyHits, fuzzyMisses := h.matcher.CacheStats()
	stats["fuzzy"] = map[string]int64{"hits": fuzzyHits, "misses": fuzzyMisses}

	if h.engine != nil {
		resultHits, resultMisses := h.engine.CacheStats()
		stats["results"] = map[string]int64{"hits": resultHits, "misses": resultMisses}
	}

	if h.respCache != nil {
		hits, misses := h.respCache.Stats()
		total := hits + misses
		var hitRate float64
		if total > 0 {
			hitRate = float64(hits) / float64(total) * 100
		}
		stats["response"] = map[string]any{
			"hits":     hits,
			"misses":   misses,
			"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		}
	} else {
		stats["response"] = map[string]string{"status": "disabled"}
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate. It flushes the
// shared response cache; the in-process caches are bounded and keyed on
// immutable corpus state, so they are left alone.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.respCache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "response caching is disabled")
		return
	}

	deleted, err := h.respCache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "invalidated",
		"keys_deleted": deleted,
	})
}

// cached routes through the response cache when one is configured.
func (h *Handler) cached(
	ctx context.Context,
	key string,
	computeFn func() (json.RawMessage, error),
) (json.RawMessage, bool, error) {
	if h.respCache == nil {
		payload, err := computeFn()
		return payload, false, err
	}
	payload, cacheHit, err := h.respCache.GetOrCompute(ctx, key, computeFn)
	if h.metrics != nil && err == nil {
		if cacheHit {
			h.metrics.CacheHitsTotal.WithLabelValues("response").Inc()
		} else {
			h.metrics.CacheMissesTotal.WithLabelValues("response").Inc()
		}
	}
	return payload, cacheHit, err
}

// outcome summarizes a rendered resolve payload for metrics and analytics,
// so cache hits feed them the same way as fresh computations.
type outcome struct {
	layer      string
	found      bool
	confidence float64
	attempts   int
}

func resolveOutcome(payload json.RawMessage) outcome {
	var resp resolveResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return outcome{layer: "none"}
	}
	o := outcome{layer: "none", found: resp.Found, attempts: len(resp.Attempts)}
	if resp.Best != nil {
		o.layer = string(resp.Best.Layer)
		o.confidence = resp.Best.Confidence
	}
	return o
}

// searchHits extracts the hit count from a rendered search payload.
func searchHits(payload json.RawMessage) int {
	var resp searchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0
	}
	return resp.TotalHits
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
