package relations

import (
	"sort"
)

// PatternSampleLimit caps how many values feed a shape analysis. Sampling
// is deterministic (first values in sorted order) so repeated runs score
// identically.
const PatternSampleLimit = 100

// patternAffixLength is how many leading/trailing characters the prefix
// and suffix histograms consider.
const patternAffixLength = 3

// ValuePattern summarizes the shape of a field's values: the modal string
// length, the dominant character class, and the most frequent prefixes and
// suffixes. Two fields holding the same kind of identifier tend to have
// near-identical patterns even when their value sets barely overlap.
type ValuePattern struct {
	CommonLength    int
	CommonCharClass string
	TopPrefixes     []string
	TopSuffixes     []string
}

// IsZero reports whether no values contributed to the pattern.
func (p ValuePattern) IsZero() bool {
	return p.CommonLength == 0 && p.CommonCharClass == "" &&
		len(p.TopPrefixes) == 0 && len(p.TopSuffixes) == 0
}

// AnalyzeValues builds a ValuePattern from a field's distinct values.
func AnalyzeValues(values map[string]bool) ValuePattern {
	if len(values) == 0 {
		return ValuePattern{}
	}

	sorted := make([]string, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)
	if len(sorted) > PatternSampleLimit {
		sorted = sorted[:PatternSampleLimit]
	}

	lengths := make(map[int]int)
	classes := make(map[string]int)
	prefixes := make(map[string]int)
	suffixes := make(map[string]int)

	for _, v := range sorted {
		lengths[len(v)]++
		classes[charClass(v)]++
		if len(v) >= patternAffixLength {
			prefixes[v[:patternAffixLength]]++
			suffixes[v[len(v)-patternAffixLength:]]++
		}
	}

	return ValuePattern{
		CommonLength:    modalInt(lengths),
		CommonCharClass: modalString(classes),
		TopPrefixes:     topKeys(prefixes, 3),
		TopSuffixes:     topKeys(suffixes, 3),
	}
}

// ComparePatterns scores how alike two value shapes are, averaging over
// the facets both sides actually have: length closeness, character-class
// equality, and prefix/suffix overlap.
func ComparePatterns(a, b ValuePattern) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}

	score := 0.0
	facets := 0

	if a.CommonLength > 0 && b.CommonLength > 0 {
		longest := a.CommonLength
		if b.CommonLength > longest {
			longest = b.CommonLength
		}
		diff := a.CommonLength - b.CommonLength
		if diff < 0 {
			diff = -diff
		}
		sim := 1 - float64(diff)/float64(longest)
		if sim < 0 {
			sim = 0
		}
		score += sim
		facets++
	}

	if a.CommonCharClass != "" && b.CommonCharClass != "" {
		if a.CommonCharClass == b.CommonCharClass {
			score += 1
		}
		facets++
	}

	if len(a.TopPrefixes) > 0 && len(b.TopPrefixes) > 0 {
		score += affixOverlap(a.TopPrefixes, b.TopPrefixes)
		facets++
	}
	if len(a.TopSuffixes) > 0 && len(b.TopSuffixes) > 0 {
		score += affixOverlap(a.TopSuffixes, b.TopSuffixes)
		facets++
	}

	if facets == 0 {
		return 0
	}
	return score / float64(facets)
}

func affixOverlap(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	common := 0
	for _, s := range b {
		if set[s] {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return float64(common) / float64(longest)
}

func charClass(s string) string {
	digits, letters := true, true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			digits = false
		}
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			letters = false
		}
	}
	switch {
	case len(s) == 0:
		return "mixed"
	case digits:
		return "numeric"
	case letters:
		return "alpha"
	default:
		return "mixed"
	}
}

func modalInt(counts map[int]int) int {
	best, bestCount := 0, -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

func modalString(counts map[string]int) string {
	best, bestCount := "", -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}

func topKeys(counts map[string]int, k int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
