package retrieval

import (
	"reflect"
	"testing"

	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/parser"
)

func testCorpus() []Document {
	return []Document{
		{
			ID:       "docs/arbitrum.md",
			Title:    "Arbitrum Overview",
			Headings: []string{"Rollup Architecture", "Sequencer"},
			Body: "Arbitrum is an optimistic rollup that inherits security from ethereum. " +
				"The sequencer orders transactions before they settle on the base chain.",
		},
		{
			ID:       "docs/gas.md",
			Title:    "Gas Optimization Guide",
			Headings: []string{"Storage Costs", "Calldata"},
			Body: "Gas optimization starts with storage layout. Packing struct fields " +
				"reduces storage writes, and calldata is cheaper than memory for external calls. " +
				"Profiling gas usage per function reveals the expensive paths.",
		},
		{
			ID:       "docs/layer2.md",
			Title:    "Layer 2 Scaling",
			Headings: []string{"Rollups", "Sidechains"},
			Body: "Layer 2 networks batch transactions off-chain. Rollups post compressed " +
				"data back to the main chain, while sidechains run independent consensus.",
		},
	}
}

func newTestEngine(t *testing.T, docs []Document, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(docs, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewEngineConfigValidation(t *testing.T) {
	docs := testCorpus()
	bad := []func(*Config){
		func(c *Config) { c.CacheCapacity = 0 },
		func(c *Config) { c.DefaultLimit = 0 },
		func(c *Config) { c.SnippetLength = -1 },
		func(c *Config) { c.FieldWeights["title"] = -2.0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := NewEngine(docs, cfg); err == nil {
			t.Errorf("case %d: expected construction error, got nil", i)
		}
	}
}

func TestEmptyCorpusIsValid(t *testing.T) {
	e := newTestEngine(t, nil, DefaultConfig())
	if e.DocCount() != 0 {
		t.Errorf("DocCount() = %d, want 0", e.DocCount())
	}
	if results := e.Search("anything", Options{}); len(results) != 0 {
		t.Errorf("search over empty corpus returned %v", results)
	}
}

func TestEmptyQueryReturnsNothing(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	for _, q := range []string{"", "   "} {
		if results := e.Search(q, Options{}); len(results) != 0 {
			t.Errorf("query %q returned %v, want empty", q, results)
		}
	}
}

func TestSimpleSearchRankedDescending(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	results := e.Search("rollup transactions", Options{MinScore: 0.01})
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted descending: %v before %v", results[i-1].Score, results[i].Score)
		}
	}
	for _, r := range results {
		if r.MatchType != string(parser.QuerySimple) {
			t.Errorf("MatchType = %q, want simple", r.MatchType)
		}
	}
}

func TestTitleOutranksBody(t *testing.T) {
	docs := []Document{
		{ID: "title-hit", Title: "ethereum basics", Body: "an introduction to the chain"},
		{ID: "body-hit", Title: "an introduction", Body: "ethereum basics for the chain"},
	}
	e := newTestEngine(t, docs, DefaultConfig())
	results := e.Search("ethereum", Options{MinScore: 0.0001})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != "title-hit" {
		t.Errorf("top result = %q, want the title match first", results[0].DocID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("title score %v should exceed body score %v", results[0].Score, results[1].Score)
	}
}

func TestPhraseSearchRequiresLiteralPhrase(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())

	results := e.Search("gas optimization", Options{Type: parser.QueryPhrase, MinScore: 0.01})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DocID != "docs/gas.md" {
		t.Errorf("DocID = %q, want docs/gas.md", results[0].DocID)
	}
	if results[0].MatchType != string(parser.QueryPhrase) {
		t.Errorf("MatchType = %q, want phrase", results[0].MatchType)
	}

	// both words appear in docs/layer2.md but never contiguously
	if results := e.Search("batch consensus", Options{Type: parser.QueryPhrase, MinScore: 0.01}); len(results) != 0 {
		t.Errorf("non-contiguous phrase matched %v", results)
	}
}

func TestBooleanNotExcludes(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())

	results := e.Search("layer -ethereum", Options{Type: parser.QueryBoolean, MinScore: 0.01})
	for _, r := range results {
		if r.DocID == "docs/arbitrum.md" {
			t.Error("document containing the excluded term was returned")
		}
	}

	// NOT keyword form behaves like the -term form
	notForm := e.Search("layer NOT ethereum", Options{Type: parser.QueryBoolean, MinScore: 0.01})
	if !reflect.DeepEqual(results, notForm) {
		t.Errorf("NOT and -term forms disagree: %v vs %v", results, notForm)
	}
}

func TestBooleanAndRequiresAllTerms(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())

	results := e.Search("rollup AND sequencer", Options{Type: parser.QueryBoolean, MinScore: 0.01, DisableSnippets: true})
	if len(results) != 1 || results[0].DocID != "docs/arbitrum.md" {
		t.Errorf("got %v, want only docs/arbitrum.md", results)
	}

	if results := e.Search("rollup AND nonexistentterm", Options{Type: parser.QueryBoolean, MinScore: 0.01}); len(results) != 0 {
		t.Errorf("AND with an unindexed term should match nothing, got %v", results)
	}
}

func TestBooleanOrUnionsTerms(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	results := e.Search("sequencer OR calldata", Options{Type: parser.QueryBoolean, MinScore: 0.01, DisableSnippets: true})
	got := make(map[string]bool)
	for _, r := range results {
		got[r.DocID] = true
	}
	if !got["docs/arbitrum.md"] || !got["docs/gas.md"] {
		t.Errorf("OR query missing expected documents: %v", got)
	}
}

func TestMinScoreFilters(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	results := e.Search("rollup", Options{MinScore: 1000})
	if len(results) != 0 {
		t.Errorf("minScore 1000 should filter everything, got %v", results)
	}
}

func TestLimitTruncates(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	results := e.Search("chain transactions rollup", Options{MinScore: 0.0001, Limit: 1})
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearchCacheRoundTrip(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	opts := Options{MinScore: 0.01}

	cold := e.Search("rollup transactions", opts)
	warm := e.Search("rollup transactions", opts)

	if !reflect.DeepEqual(cold, warm) {
		t.Errorf("cache-cold and cache-warm results differ:\n%v\n%v", cold, warm)
	}
	hits, _ := e.CacheStats()
	if hits == 0 {
		t.Error("second identical search should have hit the cache")
	}
}

func TestSnippetsAttachedByDefault(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	results := e.Search("sequencer", Options{MinScore: 0.01})
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if len(results[0].Snippets) == 0 {
		t.Error("expected at least one snippet on the top result")
	}
	if len(results[0].Snippets) > 3 {
		t.Errorf("got %d snippets, max is 3", len(results[0].Snippets))
	}
}

func TestDocumentLookup(t *testing.T) {
	e := newTestEngine(t, testCorpus(), DefaultConfig())
	doc, ok := e.Document("docs/gas.md")
	if !ok || doc.Title != "Gas Optimization Guide" {
		t.Errorf("Document lookup failed: %v %v", doc, ok)
	}
	if _, ok := e.Document("missing"); ok {
		t.Error("lookup of unknown document should fail")
	}
}
