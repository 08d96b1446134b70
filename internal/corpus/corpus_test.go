package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/knowledgescope/concept-resolution-engine/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConcepts(t *testing.T) {
	path := writeFile(t, "concepts.json", `[
		{"name": "Arbitrum", "frequency": 42, "metadata": {"category": "layer2", "rank": 3}},
		{"name": "gas optimization", "frequency": 17}
	]`)

	concepts, err := LoadConcepts(path)
	if err != nil {
		t.Fatalf("LoadConcepts returned error: %v", err)
	}
	if len(concepts) != 2 {
		t.Fatalf("loaded %d concepts, want 2", len(concepts))
	}
	if concepts[0].Name != "Arbitrum" || concepts[0].Frequency != 42 {
		t.Errorf("first concept = %+v", concepts[0])
	}
	if concepts[0].Metadata["category"] != "layer2" {
		t.Errorf("metadata category = %v, want layer2", concepts[0].Metadata["category"])
	}
	if concepts[0].Metadata["rank"] != float64(3) {
		t.Errorf("metadata rank = %v, want 3", concepts[0].Metadata["rank"])
	}
}

func TestLoadConceptsRejectsBlankName(t *testing.T) {
	path := writeFile(t, "concepts.json", `[{"name": "  ", "frequency": 1}]`)
	if _, err := LoadConcepts(path); !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Errorf("err = %v, want ErrCorpusLoad", err)
	}
}

func TestLoadConceptsRejectsNegativeFrequency(t *testing.T) {
	path := writeFile(t, "concepts.json", `[{"name": "arbitrum", "frequency": -1}]`)
	if _, err := LoadConcepts(path); !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Errorf("err = %v, want ErrCorpusLoad", err)
	}
}

func TestLoadConceptsMissingFile(t *testing.T) {
	if _, err := LoadConcepts(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Errorf("err = %v, want ErrCorpusLoad", err)
	}
}

func TestLoadDocuments(t *testing.T) {
	path := writeFile(t, "docs.json", `[
		{"id": "docs/a.md", "title": "Arbitrum Overview", "headings": ["Rollups"], "body": "Arbitrum is a rollup."},
		{"id": "docs/b.md", "title": "Gas", "body": "Gas costs."}
	]`)

	docs, err := LoadDocuments(path)
	if err != nil {
		t.Fatalf("LoadDocuments returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("loaded %d documents, want 2", len(docs))
	}
	if docs[0].ID != "docs/a.md" || len(docs[0].Headings) != 1 {
		t.Errorf("first document = %+v", docs[0])
	}
}

func TestLoadDocumentsRejectsDuplicateIDs(t *testing.T) {
	path := writeFile(t, "docs.json", `[
		{"id": "docs/a.md", "title": "A", "body": "a"},
		{"id": "docs/a.md", "title": "B", "body": "b"}
	]`)
	if _, err := LoadDocuments(path); !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Errorf("err = %v, want ErrCorpusLoad", err)
	}
}

func TestLoadDocumentsRejectsMalformedJSON(t *testing.T) {
	path := writeFile(t, "docs.json", `{"not": "an array"}`)
	if _, err := LoadDocuments(path); !errors.Is(err, apperrors.ErrCorpusLoad) {
		t.Errorf("err = %v, want ErrCorpusLoad", err)
	}
}
