package resolver

import (
	"testing"

	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
	"github.com/knowledgescope/concept-resolution-engine/internal/fuzzy"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval"
)

func newTestResolver(t *testing.T, concepts []concept.Concept, docs []retrieval.Document) *Resolver {
	t.Helper()
	list := concept.NewList(concepts)
	matcher, err := fuzzy.NewMatcher(list, fuzzy.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	var engine *retrieval.Engine
	if docs != nil {
		engine, err = retrieval.NewEngine(docs, retrieval.DefaultConfig())
		if err != nil {
			t.Fatal(err)
		}
	}
	return New(list, matcher, engine, DefaultConfig())
}

func TestExactLayerWinsAndSkipsRest(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{
		{Name: "arbitrum", Frequency: 5},
		{Name: "arbitrum one", Frequency: 3},
	}, nil)

	result := r.FindConceptWithFallbacks("Arbitrum", Options{})
	if !result.Found {
		t.Fatal("expected a match")
	}
	if result.Best.Layer != LayerExact || result.Best.Confidence != 1.0 {
		t.Errorf("Best = %+v, want exact layer with confidence 1.0", result.Best)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("attempt log = %v, want only the exact attempt", result.Attempts)
	}
	if result.Attempts[0].Layer != LayerExact || !result.Attempts[0].Success {
		t.Errorf("attempt = %+v, want successful exact", result.Attempts[0])
	}
}

func TestFuzzyLayerAfterExactFails(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{
		{Name: "arbitrum", Frequency: 5},
		{Name: "ethereum", Frequency: 9},
	}, nil)

	result := r.FindConceptWithFallbacks("arbitrom", Options{})
	if !result.Found {
		t.Fatal("expected a fuzzy match")
	}
	if result.Best.Layer != LayerFuzzy {
		t.Errorf("Layer = %q, want fuzzy", result.Best.Layer)
	}
	if result.Best.Concept != "arbitrum" {
		t.Errorf("Concept = %q, want arbitrum", result.Best.Concept)
	}
	if result.Best.Confidence != result.Best.Score {
		t.Errorf("fuzzy confidence %v should equal the match score %v", result.Best.Confidence, result.Best.Score)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("attempts = %v, want exact failure then fuzzy success", result.Attempts)
	}
	if result.Attempts[0].Success || !result.Attempts[1].Success {
		t.Errorf("attempts = %+v", result.Attempts)
	}
}

func TestPartialLayerPicksHighestFrequency(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{
		{Name: "consensus mechanism", Frequency: 2},
		{Name: "proof of consensus", Frequency: 8},
		{Name: "consensus layer", Frequency: 8},
	}, nil)

	// fuzzy cannot clear the default threshold for this short fragment, so
	// the partial layer decides; the 8-frequency tie resolves to input order
	name, ok := r.FindConcept("consensus", Options{})
	if !ok {
		t.Fatal("expected a partial match")
	}
	if name != "proof of consensus" {
		t.Errorf("got %q, want the first highest-frequency containing concept", name)
	}
}

func TestPartialConfidenceFixed(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{
		{Name: "gas optimization patterns", Frequency: 4},
	}, nil)

	result := r.FindConceptWithFallbacks("optimization patt", Options{DisableFuzzy: true})
	if !result.Found || result.Best.Layer != LayerPartial {
		t.Fatalf("result = %+v, want partial match", result)
	}
	if result.Best.Confidence != 0.7 {
		t.Errorf("partial confidence = %v, want 0.7", result.Best.Confidence)
	}
}

func TestFulltextFallback(t *testing.T) {
	docs := []retrieval.Document{
		{
			ID:    "docs/sequencer.md",
			Title: "Sequencer Design",
			Body:  "The sequencer orders incoming transactions and posts batches downstream.",
		},
	}
	r := newTestResolver(t, []concept.Concept{{Name: "arbitrum", Frequency: 1}}, docs)

	result := r.FindConceptWithFallbacks("sequencer", Options{EnableFulltext: true})
	if !result.Found {
		t.Fatal("expected a fulltext match")
	}
	if result.Best.Layer != LayerFulltext {
		t.Fatalf("Layer = %q, want fulltext", result.Best.Layer)
	}
	if len(result.Best.Documents) == 0 {
		t.Error("fulltext match should attach the matching documents")
	}
	if c := result.Best.Confidence; c <= 0 || c >= 1.0 {
		t.Errorf("fulltext confidence = %v, want within (0,1)", c)
	}
	if got := len(result.Attempts); got != 4 {
		t.Errorf("attempts = %d, want all 4 layers recorded", got)
	}
}

func TestNotFoundShape(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{{Name: "arbitrum", Frequency: 1}}, nil)

	result := r.FindConceptWithFallbacks("zzzzqqq", Options{})
	if result.Found || result.Best != nil {
		t.Errorf("result = %+v, want found=false with nil best match", result)
	}
	if len(result.Attempts) != 3 {
		t.Errorf("attempts = %v, want exact, fuzzy, and partial failures", result.Attempts)
	}
	for _, a := range result.Attempts {
		if a.Success {
			t.Errorf("attempt %+v should have failed", a)
		}
	}
}

func TestEmptyTerm(t *testing.T) {
	r := newTestResolver(t, []concept.Concept{{Name: "arbitrum", Frequency: 1}}, nil)
	if _, ok := r.FindConcept("   ", Options{}); ok {
		t.Error("blank term should not resolve")
	}
	result := r.FindConceptWithFallbacks("", Options{})
	if result.Found || len(result.Attempts) != 0 {
		t.Errorf("empty term result = %+v, want empty", result)
	}
}

func TestFindConceptNeverUsesFulltext(t *testing.T) {
	docs := []retrieval.Document{
		{ID: "docs/a.md", Title: "sequencer", Body: "sequencer details"},
	}
	r := newTestResolver(t, []concept.Concept{{Name: "arbitrum", Frequency: 1}}, docs)
	if _, ok := r.FindConcept("sequencer", Options{EnableFulltext: true}); ok {
		t.Error("FindConcept resolves names only and must not fall through to retrieval")
	}
}
