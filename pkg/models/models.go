package models

import "fmt"

// PathKind classifies a discovered JSON path by the shape of its value.
type PathKind string

const (
	PathScalar PathKind = "scalar"
	PathObject PathKind = "object"
	PathArray  PathKind = "array"
)

// SampleKind records the runtime type of a path's representative sample.
// Type inference prefers name-based heuristics, but falls back to this when
// the field name carries no signal.
type SampleKind string

const (
	SampleString SampleKind = "string"
	SampleInt    SampleKind = "int"
	SampleFloat  SampleKind = "float"
	SampleBool   SampleKind = "bool"
	SampleNull   SampleKind = "null"
	SampleObject SampleKind = "object"
	SampleArray  SampleKind = "array"
)

// IsScalar reports whether the sample is a plain literal (including null).
func (k SampleKind) IsScalar() bool {
	return k != SampleObject && k != SampleArray
}

// PathRecord holds the aggregated statistics for one dotted/bracketed JSON
// path within a single dataset, e.g. "event.device[0].openfda.k_number".
// Records are mutated during aggregation and read-only afterwards.
type PathRecord struct {
	Path            string
	Kind            PathKind
	OccurrenceCount int

	// SampleValue is the first literal observed at this path
	// (first-writer-wins across records). Objects and arrays are
	// represented by a structural placeholder string.
	SampleValue string
	SampleKind  SampleKind

	// MaxLength is the longest string literal observed at this path.
	MaxLength int

	// ValueHistogram maps stringified literals to occurrence counts. The
	// histogram is capped during aggregation, so it is a biased sample on
	// high-cardinality paths; DistinctValueCount is exact for key
	// candidates and zero otherwise.
	ValueHistogram     map[string]int
	DistinctValueCount int

	// Cardinality is DistinctValueCount / OccurrenceCount, in [0, 1].
	// Zero when no distinct-value set was maintained for the path.
	Cardinality float64

	// IsKeyCandidate is set when the leaf name looks like an identifier
	// (id, uuid, *_number, *_code, ...).
	IsKeyCandidate bool
}

// Depth returns the nesting depth of the path, counted as the number of
// dot separators.
func (r *PathRecord) Depth() int {
	n := 0
	for _, c := range r.Path {
		if c == '.' {
			n++
		}
	}
	return n
}

// TableKind classifies an inferred relational table.
type TableKind string

const (
	TableMain   TableKind = "main"
	TableObject TableKind = "object"
	TableArray  TableKind = "array"
	TableEnum   TableKind = "enum"
)

// FieldSpec is one column of an inferred table.
type FieldSpec struct {
	Name       string
	SourcePath string

	IsArray bool
	// UseJSONB marks fields holding a collapsed nested object.
	UseJSONB bool
	// IsArrayColumn marks fields produced by merging a small array table
	// back into its parent as a SQL array column.
	IsArrayColumn bool

	OccurrenceCount int
	Sample          string
	SampleKind      SampleKind
	MaxLength       int

	IsKeyCandidate     bool
	DistinctValueCount int
	Cardinality        float64
	ValueHistogram     map[string]int

	// JSONBSubfields lists the leaf names folded into a JSONB field.
	JSONBSubfields []string
	// MergedFromTable names the child table this field replaced, if any.
	MergedFromTable string
}

// TableSpec is one inferred relational table. Tables form a forest rooted
// at the dataset's main table via Parent.
type TableSpec struct {
	Name   string
	Kind   TableKind
	Parent string
	// SourcePath is the object or array path the table was derived from;
	// empty for the main table.
	SourcePath string

	Fields    []*FieldSpec
	HasArrays bool

	PrimaryKeys       []string
	UniqueConstraints []string
	// RecommendedUniqueKeys collects mid-cardinality key candidates before
	// the key-inference post-pass promotes or demotes them.
	RecommendedUniqueKeys []string
}

// Field returns the field with the given name, or nil.
func (t *TableSpec) Field(name string) *FieldSpec {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddField appends a field unless one with the same name already exists.
// First writer wins; later duplicate paths mapping to the same sanitized
// name are dropped silently.
func (t *TableSpec) AddField(f *FieldSpec) bool {
	if t.Field(f.Name) != nil {
		return false
	}
	t.Fields = append(t.Fields, f)
	return true
}

// RelationCandidate is an inferred foreign-key-like relationship between
// fields of two independently analyzed datasets.
type RelationCandidate struct {
	PrimaryTable string
	PrimaryKey   string
	ForeignTable string
	ForeignKey   string

	// Confidence is a normalized heuristic score in [0, 1].
	Confidence float64
	// Reasons lists the evidence that contributed to the score, in the
	// order it was gathered.
	Reasons []string
	// Kind is a human-readable label for the relationship family
	// (regulation, pma, registration, ...).
	Kind string
}

// PairKey identifies a relation by its endpoint pair, used to deduplicate
// candidates discovered through multiple heuristics.
func (r *RelationCandidate) PairKey() string {
	return fmt.Sprintf("%s.%s-%s.%s", r.PrimaryTable, r.PrimaryKey, r.ForeignTable, r.ForeignKey)
}

// DatasetAnalysis is the finalized result of analyzing one dataset: the
// aggregated path statistics, the resolved tables, and the exact
// distinct-value sets kept for key-candidate paths.
type DatasetAnalysis struct {
	Dataset string

	FilesProcessed   int
	RecordsProcessed int

	Paths  map[string]*PathRecord
	Tables map[string]*TableSpec

	// DistinctValues holds the exact value sets maintained per
	// key-candidate path; cross-dataset inference intersects them.
	DistinctValues map[string]map[string]bool

	// SimpleArrays maps scalar-only array paths to their observed distinct
	// values, for the enum value reference export.
	SimpleArrays map[string][]string
}

// MainTable returns the dataset's main table, or nil if resolution never
// ran.
func (a *DatasetAnalysis) MainTable() *TableSpec {
	for _, t := range a.Tables {
		if t.Kind == TableMain {
			return t
		}
	}
	return nil
}

// KeyCandidatePaths returns the paths flagged as identifier-like during
// walking, in unspecified order.
func (a *DatasetAnalysis) KeyCandidatePaths() []string {
	var out []string
	for p, rec := range a.Paths {
		if rec.IsKeyCandidate {
			out = append(out, p)
		}
	}
	return out
}
