package relations

import (
	"strings"
)

// Name-matching scores. Exact matches dominate, substring containment is
// strong, and everything else falls back to edit-distance similarity.
const (
	ExactNameScore     = 1.0
	SubstringNameScore = 0.7
	SynonymNameScore   = 0.8

	// NameSimilarityReasonFloor is the similarity above which a fuzzy
	// name match is worth citing as a reason on its own.
	NameSimilarityReasonFloor = 0.6
)

// synonymPairs are FDA vocabulary fragments that refer to the same concept
// under different names. Either direction counts.
var synonymPairs = [][2]string{
	{"number", "num"},
	{"id", "identifier"},
	{"code", "number"},
	{"regulation", "reg"},
	{"registration", "reg"},
	{"pma", "premarket"},
	{"application", "app"},
	{"fei", "facility"},
	{"k510", "510k"},
	{"k510", "k_number"},
}

// importanceWeights scale the name score for identifiers known to carry
// cross-dataset meaning. Weights below 1 demote fields that collide on
// name without identifying anything.
var importanceWeights = map[string]float64{
	"k_number":            1.5,
	"pma_number":          1.5,
	"regulation_number":   1.3,
	"product_code":        1.2,
	"registration_number": 1.2,
	"fei_number":          1.1,
	"device_name":         0.9,
	"manufacturer_name":   0.9,
}

// NameSimilarity scores two field names in [0,1]: synonym pairs return a
// fixed score, grossly different lengths return 0, and everything else is
// normalized Levenshtein similarity.
func NameSimilarity(a, b string) float64 {
	a = strings.ToLower(sanitizeName(a))
	b = strings.ToLower(sanitizeName(b))

	for _, pair := range synonymPairs {
		if (strings.Contains(a, pair[0]) && strings.Contains(b, pair[1])) ||
			(strings.Contains(a, pair[1]) && strings.Contains(b, pair[0])) {
			return SynonymNameScore
		}
	}

	la, lb := len(a), len(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(longest)/2 {
		return 0
	}

	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func sanitizeName(name string) string {
	if name == "" {
		return name
	}
	if (name[0] >= '0' && name[0] <= '9') || name[0] == '_' {
		return "fld_" + name
	}
	return name
}

func levenshtein(a, b string) int {
	m, n := len(a), len(b)
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1]
			} else {
				cur[j] = min3(prev[j-1], cur[j-1], prev[j]) + 1
			}
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// IsIDFieldName reports whether a field name follows an identifier naming
// convention and is therefore eligible for process-stage matching.
func IsIDFieldName(name string) bool {
	lower := strings.ToLower(name)
	if lower == "id" || lower == "uuid" {
		return true
	}
	for _, suf := range []string{"_id", "_number", "_code", "_key"} {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}
