package retrieval

// Document is one indexable unit of the corpus, keyed by a stable external
// identifier. Documents are immutable for the lifetime of an Engine;
// changing the corpus means building a new Engine.
type Document struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Headings []string `json:"headings,omitempty"`
	Body     string   `json:"body"`
}
