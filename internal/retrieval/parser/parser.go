// Package parser turns a raw query string into an executable QueryPlan. The
// engine supports three query kinds: free-text ranked queries, exact
// contiguous phrases, and boolean combinations with AND/OR/NOT (or a -term
// prefix) over term-presence predicates.
package parser

import (
	"strings"

	"github.com/knowledgescope/concept-resolution-engine/internal/retrieval/tokenizer"
)

// QueryType selects the execution strategy.
type QueryType string

const (
	QuerySimple  QueryType = "simple"
	QueryPhrase  QueryType = "phrase"
	QueryBoolean QueryType = "boolean"
)

// Operator combines the positive term predicates of a boolean query.
type Operator int

const (
	OperatorAND Operator = iota
	OperatorOR
)

// QueryPlan is the parsed form of a query.
type QueryPlan struct {
	RawQuery     string
	Type         QueryType
	Terms        []string
	ExcludeTerms []string
	Operator     Operator
	Phrase       string
}

// Parse builds a QueryPlan for query under the given type. Terms are run
// through tok so that query normalization matches index normalization.
// Operator words are consumed before tokenization, so a NOT that happens to
// be a stop word still takes effect.
func Parse(query string, queryType QueryType, tok *tokenizer.Tokenizer) *QueryPlan {
	plan := &QueryPlan{
		RawQuery:     query,
		Type:         queryType,
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Operator:     OperatorAND,
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return plan
	}

	if queryType == QueryPhrase {
		plan.Phrase = strings.Trim(trimmed, `"`)
		plan.Terms = tok.Terms(plan.Phrase)
		return plan
	}

	if queryType == QuerySimple {
		// Free-text queries rank by accumulated score rather than
		// requiring every term.
		plan.Operator = OperatorOR
		plan.Terms = tok.Terms(trimmed)
		return plan
	}

	excludeNext := false
	for _, word := range strings.Fields(trimmed) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Operator = OperatorAND
			continue
		case "OR":
			plan.Operator = OperatorOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		exclude := excludeNext
		excludeNext = false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			exclude = true
			word = word[1:]
		}
		terms := tok.Terms(word)
		if len(terms) == 0 {
			continue
		}
		if exclude {
			plan.ExcludeTerms = append(plan.ExcludeTerms, terms[0])
		} else {
			plan.Terms = append(plan.Terms, terms[0])
		}
	}
	return plan
}
