package retrieval

import (
	"math"
	"sort"

	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/index"
)

// BM25 shape parameters.
const (
	k1 = 1.2
	b  = 0.75
)

type rankParams struct {
	totalDocs    int
	avgDocLength float64
	weights      index.Weights
}

type scoredDoc struct {
	docID   string
	score   float64
	matched map[string]int // term -> total frequency across fields
}

// rank computes a field-weighted BM25-style score for every candidate
// document. Each term contributes idf * tfNorm per field, multiplied by the
// field's weight, so a title hit outranks an otherwise identical body hit.
// Results come back sorted by descending score with document ID as the
// tie-break.
func rank(
	postingsPerTerm map[string]index.FieldPostings,
	candidates map[string]struct{},
	params rankParams,
	docLength func(docID string) int,
	docFrequency func(term string) int,
) []scoredDoc {
	scores := make(map[string]float64)
	matched := make(map[string]map[string]int)

	for term, fieldPostings := range postingsPerTerm {
		idf := computeIDF(params.totalDocs, docFrequency(term))
		for field, postings := range fieldPostings {
			weight, ok := params.weights[field]
			if !ok {
				weight = 1.0
			}
			for _, posting := range postings {
				if candidates != nil {
					if _, ok := candidates[posting.DocID]; !ok {
						continue
					}
				}
				tfNorm := computeTFNorm(
					float64(posting.Frequency),
					float64(docLength(posting.DocID)),
					params.avgDocLength,
				)
				scores[posting.DocID] += weight * idf * tfNorm
				if matched[posting.DocID] == nil {
					matched[posting.DocID] = make(map[string]int)
				}
				matched[posting.DocID][term] += posting.Frequency
			}
		}
	}

	result := make([]scoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, scoredDoc{
			docID:   docID,
			score:   math.Round(score*10000) / 10000,
			matched: matched[docID],
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].score != result[j].score {
			return result[i].score > result[j].score
		}
		return result[i].docID < result[j].docID
	})
	return result
}

func computeIDF(totalDocs, docFreq int) float64 {
	if docFreq == 0 {
		return 0
	}
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq, docLength, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
