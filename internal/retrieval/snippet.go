package retrieval

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxSnippets       = 3
	minSnippetTermLen = 3
)

// booleanOperators are query tokens that never count as search terms when
// extracting snippet context.
var booleanOperators = map[string]struct{}{
	"and": {}, "or": {}, "not": {},
}

type termOccurrence struct {
	start int
	end   int
	term  string
}

// generateSnippets extracts up to three context windows from body around
// occurrences of the query's terms. Nearby occurrences are merged into one
// window; windows that do not reach a document boundary are marked with an
// ellipsis, and every in-window occurrence of a query term is wrapped in
// ** highlight markers.
func generateSnippets(body, query string, contextLength int) []string {
	if body == "" || contextLength <= 0 {
		return nil
	}
	terms := snippetTerms(query)
	if len(terms) == 0 {
		return nil
	}

	lowerBody := foldToLower(body)
	occurrences := make([]termOccurrence, 0)
	for _, term := range terms {
		for from := 0; ; {
			idx := strings.Index(lowerBody[from:], term)
			if idx < 0 {
				break
			}
			start := from + idx
			occurrences = append(occurrences, termOccurrence{
				start: start,
				end:   start + len(term),
				term:  term,
			})
			from = start + len(term)
		}
	}
	if len(occurrences) == 0 {
		return nil
	}
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].start < occurrences[j].start
	})

	clusters := clusterOccurrences(occurrences, contextLength)
	if len(clusters) > maxSnippets {
		clusters = clusters[:maxSnippets]
	}

	highlighter := highlightPattern(terms)
	snippets := make([]string, 0, len(clusters))
	for _, cluster := range clusters {
		start := cluster[0].start - contextLength/2
		end := cluster[len(cluster)-1].end + contextLength/2
		if start < 0 {
			start = 0
		}
		if end > len(body) {
			end = len(body)
		}
		// Context padding is measured in bytes, so either bound can land
		// inside a multi-byte rune; snap outward to the nearest boundary.
		for start > 0 && !utf8.RuneStart(body[start]) {
			start--
		}
		for end < len(body) && !utf8.RuneStart(body[end]) {
			end++
		}
		window := body[start:end]
		window = highlighter.ReplaceAllString(window, "**$0**")
		if start > 0 {
			window = "..." + window
		}
		if end < len(body) {
			window = window + "..."
		}
		snippets = append(snippets, window)
	}
	return snippets
}

// foldToLower lowercases body without changing its byte length: the rare
// runes whose lowercase form encodes to a different width (U+0130 and
// friends) are left as-is, so occurrence offsets found in the folded string
// index directly into body.
func foldToLower(body string) string {
	var b strings.Builder
	b.Grow(len(body))
	for _, r := range body {
		lower := unicode.ToLower(r)
		if utf8.RuneLen(lower) != utf8.RuneLen(r) {
			lower = r
		}
		b.WriteRune(lower)
	}
	return b.String()
}

// snippetTerms tokenizes the raw query into lowercase terms, dropping
// boolean operators, -term exclusions, and terms shorter than three
// characters.
func snippetTerms(query string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if strings.HasPrefix(word, "-") {
			continue
		}
		if _, isOp := booleanOperators[word]; isOp {
			continue
		}
		word = strings.Trim(word, `"'.,;:!?()`)
		if len(word) < minSnippetTermLen {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}
	return terms
}

// clusterOccurrences groups position-sorted occurrences so that any gap of
// at most contextLength between one match's end and the next match's start
// keeps them in the same snippet window.
func clusterOccurrences(occurrences []termOccurrence, contextLength int) [][]termOccurrence {
	clusters := make([][]termOccurrence, 0)
	current := []termOccurrence{occurrences[0]}
	for _, occ := range occurrences[1:] {
		if occ.start-current[len(current)-1].end <= contextLength {
			current = append(current, occ)
			continue
		}
		clusters = append(clusters, current)
		current = []termOccurrence{occ}
	}
	return append(clusters, current)
}

func highlightPattern(terms []string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return regexp.MustCompile("(?i)(" + strings.Join(quoted, "|") + ")")
}
