// Package corpus loads concept lists and document collections from the JSON
// files produced by the upstream extraction pipeline.
package corpus

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/knowledgescope/concept-resolution-engine/internal/concept"
	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval"
	apperrors "github.com/knowledgescope/concept-resolution-engine/pkg/errors"
)

// conceptRecord is the on-disk shape of one concept entry.
type conceptRecord struct {
	Name      string         `json:"name"`
	Frequency int            `json:"frequency"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// documentRecord is the on-disk shape of one document.
type documentRecord struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Headings []string `json:"headings,omitempty"`
	Body     string   `json:"body"`
}

// LoadConcepts reads a JSON array of concept records and returns them as
// domain concepts. Records with blank names are rejected rather than
// silently skipped; a corrupt corpus should fail loudly at startup.
func LoadConcepts(path string) ([]concept.Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
			"reading concepts file %s: %v", path, err)
	}
	var records []conceptRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
			"parsing concepts file %s: %v", path, err)
	}

	concepts := make([]concept.Concept, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Name) == "" {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
				"concepts file %s: record %d has a blank name", path, i)
		}
		if rec.Frequency < 0 {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
				"concepts file %s: record %d (%s) has negative frequency %d", path, i, rec.Name, rec.Frequency)
		}
		concepts = append(concepts, concept.Concept{
			Name:      rec.Name,
			Frequency: rec.Frequency,
			Metadata:  rec.Metadata,
		})
	}
	return concepts, nil
}

// LoadDocuments reads a JSON array of document records. Document IDs must be
// non-blank and unique within the file.
func LoadDocuments(path string) ([]retrieval.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
			"reading documents file %s: %v", path, err)
	}
	var records []documentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
			"parsing documents file %s: %v", path, err)
	}

	seen := make(map[string]struct{}, len(records))
	docs := make([]retrieval.Document, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
				"documents file %s: record %d has a blank id", path, i)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, http.StatusInternalServerError,
				"documents file %s: duplicate document id %q", path, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		docs = append(docs, retrieval.Document{
			ID:       rec.ID,
			Title:    rec.Title,
			Headings: rec.Headings,
			Body:     rec.Body,
		})
	}
	return docs, nil
}
