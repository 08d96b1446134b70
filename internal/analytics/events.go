package analytics

import "time"

type EventType string

const (
	EventResolve    EventType = "resolve"
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// ResolveEvent records one pass through the resolution cascade.
type ResolveEvent struct {
	Type       EventType `json:"type"`
	Term       string    `json:"term"`
	Found      bool      `json:"found"`
	Layer      string    `json:"layer,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Attempts   int       `json:"attempts"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// SearchEvent records one full-text query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	QueryType string    `json:"query_type"`
	TotalHits int       `json:"total_hits"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
