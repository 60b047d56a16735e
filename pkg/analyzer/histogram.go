package analyzer

// cappedHistogram counts stringified literal values up to a fixed number of
// distinct keys. Once the cap is reached, unseen values are dropped rather
// than evicting existing entries, which keeps per-path memory bounded on
// high-cardinality free-text fields. The cap is an admission policy, not an
// LRU: counts for admitted values stay exact.
type cappedHistogram struct {
	cap    int
	counts map[string]int
}

func newCappedHistogram(cap int) *cappedHistogram {
	return &cappedHistogram{cap: cap, counts: make(map[string]int)}
}

// Observe records one occurrence of value. Returns false when the value was
// rejected because the histogram is full.
func (h *cappedHistogram) Observe(value string) bool {
	if _, ok := h.counts[value]; ok {
		h.counts[value]++
		return true
	}
	if len(h.counts) >= h.cap {
		return false
	}
	h.counts[value] = 1
	return true
}

// Len returns the number of distinct admitted values.
func (h *cappedHistogram) Len() int {
	return len(h.counts)
}

// Snapshot returns a copy of the counts.
func (h *cappedHistogram) Snapshot() map[string]int {
	out := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}
