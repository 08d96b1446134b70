package concept

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims the input, strips special characters except
// hyphens, and collapses internal whitespace runs to single spaces. The
// function is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// other punctuation is dropped entirely
		}
	}
	return strings.TrimRight(b.String(), " ")
}
