package fuzzy

// padRune marks string boundaries when generating n-grams. Normalized
// concept text never contains it, so boundary grams cannot collide with
// interior ones. Padding with n-1 sentinels on each side weights prefix and
// suffix agreement more heavily than mid-string agreement.
const padRune = '\x00'

// ngramSet returns the set of character n-grams of s after padding both ends
// with n-1 sentinel runes.
func ngramSet(s string, n int) map[string]struct{} {
	if n < 1 {
		n = 1
	}
	runes := make([]rune, 0, len(s)+2*(n-1))
	for i := 0; i < n-1; i++ {
		runes = append(runes, padRune)
	}
	runes = append(runes, []rune(s)...)
	for i := 0; i < n-1; i++ {
		runes = append(runes, padRune)
	}
	set := make(map[string]struct{}, len(runes))
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// ngramSimilarity scores how much the padded n-gram sets of a and b overlap,
// normalizing the shared-gram count by the total set sizes. The result is
// symmetric, 1.0 for identical non-empty strings, and always in [0,1]. An
// empty string has no real grams (only padding) and scores 0 against
// anything.
func ngramSimilarity(a, b string, n int) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := ngramSet(a, n)
	setB := ngramSet(b, n)
	total := len(setA) + len(setB)
	if total == 0 {
		return 0
	}
	shared := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			shared++
		}
	}
	return float64(2*shared) / float64(total)
}
