package analyzer

import (
	"sort"

	"github.com/leiMizzou/fdaschema/pkg/models"
	"github.com/leiMizzou/fdaschema/pkg/walker"
)

// Aggregation thresholds. These match the behavior the heuristics were
// tuned against; override them through AggregatorOptions rather than
// editing in place.
const (
	// DefaultHistogramCap bounds the distinct values tracked per path.
	DefaultHistogramCap = 50
)

// AggregatorOptions tune the per-path statistics collection.
type AggregatorOptions struct {
	HistogramCap int
}

// Aggregator accumulates path statistics for one dataset across many
// records. One instance is constructed per dataset, fed every record's walk
// result, and finalized exactly once; it is not safe for concurrent use and
// is never shared between datasets.
type Aggregator struct {
	dataset string
	opts    AggregatorOptions

	counts     map[string]int
	samples    map[string]walker.Sample
	maxLength  map[string]int
	histograms map[string]*cappedHistogram

	objectPaths map[string]bool
	arrayPaths  map[string]bool

	// keyCandidates marks identifier-like paths; distinct holds their
	// exact value sets. Unlike the capped histograms, these sets are
	// unbounded: exact cardinality matters for key inference, and only
	// flagged paths pay the memory cost.
	keyCandidates map[string]bool
	distinct      map[string]map[string]bool

	simpleArrays map[string]map[string]bool

	files   int
	records int
}

// NewAggregator creates an empty aggregator for the named dataset.
func NewAggregator(dataset string, opts AggregatorOptions) *Aggregator {
	if opts.HistogramCap <= 0 {
		opts.HistogramCap = DefaultHistogramCap
	}
	return &Aggregator{
		dataset:       dataset,
		opts:          opts,
		counts:        make(map[string]int),
		samples:       make(map[string]walker.Sample),
		maxLength:     make(map[string]int),
		histograms:    make(map[string]*cappedHistogram),
		objectPaths:   make(map[string]bool),
		arrayPaths:    make(map[string]bool),
		keyCandidates: make(map[string]bool),
		distinct:      make(map[string]map[string]bool),
		simpleArrays:  make(map[string]map[string]bool),
	}
}

// Dataset returns the dataset label the aggregator was constructed for.
func (a *Aggregator) Dataset() string { return a.dataset }

// Records returns the number of records ingested so far.
func (a *Aggregator) Records() int { return a.records }

// Files returns the number of files marked complete so far.
func (a *Aggregator) Files() int { return a.files }

// IngestRecord merges one record's walk result into the dataset counters.
func (a *Aggregator) IngestRecord(res *walker.Result) {
	for _, p := range res.Paths {
		a.counts[p]++
	}
	for p := range res.ObjectPaths {
		a.objectPaths[p] = true
	}
	for p := range res.ArrayPaths {
		a.arrayPaths[p] = true
	}
	for _, p := range res.KeyCandidates {
		a.keyCandidates[p] = true
	}

	for p, s := range res.Samples {
		if _, ok := a.samples[p]; !ok {
			a.samples[p] = s
		}
		if s.Kind == models.SampleString && len(s.Value) > a.maxLength[p] {
			a.maxLength[p] = len(s.Value)
		}
		if s.Kind.IsScalar() && s.Kind != models.SampleNull {
			h, ok := a.histograms[p]
			if !ok {
				h = newCappedHistogram(a.opts.HistogramCap)
				a.histograms[p] = h
			}
			h.Observe(s.Value)

			if a.keyCandidates[p] {
				set, ok := a.distinct[p]
				if !ok {
					set = make(map[string]bool)
					a.distinct[p] = set
				}
				set[s.Value] = true
			}
		}
	}

	for p, values := range res.SimpleArrayValues {
		set, ok := a.simpleArrays[p]
		if !ok {
			set = make(map[string]bool)
			a.simpleArrays[p] = set
		}
		for _, v := range values {
			set[v] = true
		}
	}

	a.records++
}

// FileDone marks one input file as fully ingested.
func (a *Aggregator) FileDone() {
	a.files++
}

// Finalize computes cardinalities and produces the immutable per-path
// records. Table resolution runs separately on the returned analysis.
func (a *Aggregator) Finalize() *models.DatasetAnalysis {
	analysis := &models.DatasetAnalysis{
		Dataset:          a.dataset,
		FilesProcessed:   a.files,
		RecordsProcessed: a.records,
		Paths:            make(map[string]*models.PathRecord, len(a.counts)),
		DistinctValues:   make(map[string]map[string]bool, len(a.distinct)),
		SimpleArrays:     make(map[string][]string, len(a.simpleArrays)),
	}

	for p, count := range a.counts {
		rec := &models.PathRecord{
			Path:            p,
			Kind:            a.pathKind(p),
			OccurrenceCount: count,
			IsKeyCandidate:  a.keyCandidates[p],
		}
		if s, ok := a.samples[p]; ok {
			rec.SampleValue = s.Value
			rec.SampleKind = s.Kind
		}
		rec.MaxLength = a.maxLength[p]
		if h, ok := a.histograms[p]; ok {
			rec.ValueHistogram = h.Snapshot()
		}
		if set, ok := a.distinct[p]; ok && count > 0 {
			rec.DistinctValueCount = len(set)
			rec.Cardinality = float64(len(set)) / float64(count)
		}
		analysis.Paths[p] = rec
	}

	for p, set := range a.distinct {
		copied := make(map[string]bool, len(set))
		for v := range set {
			copied[v] = true
		}
		analysis.DistinctValues[p] = copied
	}

	for p, set := range a.simpleArrays {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		analysis.SimpleArrays[p] = values
	}

	return analysis
}

// pathKind resolves a path's kind from the object/array markers gathered
// during walking. A path is array-kind when its own array marker was seen;
// the "[]"-suffixed marker paths themselves are also array-kind.
func (a *Aggregator) pathKind(p string) models.PathKind {
	if a.arrayPaths[p] || a.arrayPaths[p+"[]"] {
		return models.PathArray
	}
	if a.objectPaths[p] {
		return models.PathObject
	}
	return models.PathScalar
}

// IsArrayPath reports whether an array marker was observed for the path.
func (a *Aggregator) IsArrayPath(p string) bool {
	return a.arrayPaths[p] || a.arrayPaths[p+"[]"]
}
