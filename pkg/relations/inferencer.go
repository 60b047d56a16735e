package relations

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// Relation-scoring thresholds and weights.
const (
	// MinRelationConfidence is the normalized score below which a scored
	// pair is discarded.
	MinRelationConfidence = 0.4

	// ValueOverlapFloor is the minimum intersection ratio for value
	// overlap to count as evidence at all.
	ValueOverlapFloor = 0.05

	// ValueOverlapWeight scales the overlap ratio's contribution; shared
	// values are the strongest signal available.
	ValueOverlapWeight = 3.0

	// FormatMatchBonus is added when a field matches a known FDA
	// identifier format by both name and value shape.
	FormatMatchBonus = 1.0

	// StructuralBonus is added when both fields occupy an analogous
	// position in their API document structure.
	StructuralBonus = 0.8

	// MinScoreDivisor floors the averaging divisor so single-signal pairs
	// cannot outrank multi-signal ones.
	MinScoreDivisor = 4
)

// candidateField is one key-candidate field prepared for pairwise scoring:
// its dataset, leaf name, full path, distinct values, and value shape.
type candidateField struct {
	dataset string
	name    string
	path    string
	values  map[string]bool
	pattern ValuePattern
}

// Inferencer discovers foreign-key-like relationships between fields of
// independently analyzed datasets. Feed it every finalized analysis, then
// call Infer once.
type Inferencer struct {
	analyses map[string]*models.DatasetAnalysis
	logger   *zap.Logger
}

// NewInferencer creates a cross-dataset relation inferencer.
func NewInferencer(logger *zap.Logger) *Inferencer {
	return &Inferencer{
		analyses: make(map[string]*models.DatasetAnalysis),
		logger:   logger.Named("relations"),
	}
}

// Add registers a finalized dataset analysis. The openFDA "510k" spelling
// is normalized so both spellings land on one dataset.
func (inf *Inferencer) Add(analysis *models.DatasetAnalysis) {
	name := analysis.Dataset
	if name == "510k" {
		name = "k510"
	}
	inf.analyses[name] = analysis
}

// Infer runs all three discovery passes: pairwise heuristic scoring,
// hand-maintained FDA reference relations, and process-stage matching.
// Candidates are deduplicated by endpoint pair keeping the highest
// confidence, returned sorted by confidence descending.
func (inf *Inferencer) Infer() []*models.RelationCandidate {
	if len(inf.analyses) < 2 {
		return nil
	}

	fields := inf.collectCandidateFields()

	var relations []*models.RelationCandidate
	for i := 0; i < len(fields); i++ {
		for j := i + 1; j < len(fields); j++ {
			if fields[i].dataset == fields[j].dataset {
				continue
			}
			if rel := inf.scorePair(fields[i], fields[j]); rel != nil {
				relations = append(relations, rel)
			}
		}
	}

	relations = append(relations, inf.knownRelationCandidates()...)
	relations = append(relations, inf.businessRuleCandidates()...)
	relations = append(relations, inf.processStageCandidates()...)

	relations = dedupeByPair(relations)
	for _, rel := range relations {
		rel.Kind = RelationKindLabel(rel)
	}

	inf.logger.Info("cross-dataset relation inference complete",
		zap.Int("datasets", len(inf.analyses)),
		zap.Int("relations", len(relations)))
	return relations
}

// collectCandidateFields flattens every dataset's key-candidate paths into
// scorable fields. When two paths in one dataset share a leaf name, the
// lexically later path wins the slot; embedded copies of an identifier
// (openfda blocks) hold the same values either way.
func (inf *Inferencer) collectCandidateFields() []candidateField {
	byName := make(map[string]candidateField)

	datasets := sortedKeys(inf.analyses)
	for _, ds := range datasets {
		analysis := inf.analyses[ds]
		paths := analysis.KeyCandidatePaths()
		sort.Strings(paths)
		for _, p := range paths {
			rec := analysis.Paths[p]
			if rec.SampleValue == "" {
				continue
			}
			parts := strings.Split(p, ".")
			leaf := parts[len(parts)-1]
			values := analysis.DistinctValues[p]
			byName[ds+"."+leaf] = candidateField{
				dataset: ds,
				name:    leaf,
				path:    p,
				values:  values,
				pattern: AnalyzeValues(values),
			}
		}
	}

	fields := make([]candidateField, 0, len(byName))
	for _, key := range sortedKeys(byName) {
		fields = append(fields, byName[key])
	}
	return fields
}

// scorePair computes the composite relation score for two candidate
// fields, or nil when the pair cannot plausibly relate. Fields literally
// named "id" are excluded as too generic to match meaningfully.
func (inf *Inferencer) scorePair(a, b candidateField) *models.RelationCandidate {
	if a.name == "id" || b.name == "id" {
		return nil
	}
	if len(a.values) == 0 || len(b.values) == 0 {
		return nil
	}

	score := 0.0
	var reasons []string

	nameScore := 0.0
	switch {
	case a.name == b.name:
		nameScore = ExactNameScore
		reasons = append(reasons, fmt.Sprintf("exact field name match: %s", a.name))
	case strings.Contains(strings.ToLower(a.name), strings.ToLower(b.name)) ||
		strings.Contains(strings.ToLower(b.name), strings.ToLower(a.name)):
		nameScore = SubstringNameScore
		reasons = append(reasons, fmt.Sprintf("partial field name match: %s/%s", a.name, b.name))
	default:
		nameScore = NameSimilarity(a.name, b.name)
		if nameScore > NameSimilarityReasonFloor {
			reasons = append(reasons, fmt.Sprintf("similar field names (%.2f): %s/%s", nameScore, a.name, b.name))
		}
	}
	if w, ok := importanceWeights[a.name]; ok {
		nameScore *= w
	}
	if w, ok := importanceWeights[b.name]; ok {
		nameScore *= w
	}
	score += nameScore

	overlap := intersectionSize(a.values, b.values)
	minSize := len(a.values)
	if len(b.values) < minSize {
		minSize = len(b.values)
	}
	if minSize > 0 {
		ratio := float64(overlap) / float64(minSize)
		if ratio > ValueOverlapFloor {
			reasons = append(reasons, fmt.Sprintf("value overlap (%.2f): %d/%d", ratio, overlap, minSize))
			score += ratio * ValueOverlapWeight
		}
	}

	if patternScore := ComparePatterns(a.pattern, b.pattern); patternScore > 0 {
		reasons = append(reasons, fmt.Sprintf("similar value patterns (%.2f)", patternScore))
		score += patternScore
	}

	for formatName, format := range fdaIDFormats {
		if !strings.EqualFold(a.name, formatName) && !strings.EqualFold(b.name, formatName) {
			continue
		}
		if matchesAnyValue(format, a.values) || matchesAnyValue(format, b.values) {
			reasons = append(reasons, fmt.Sprintf("matches FDA %s format", formatName))
			score += FormatMatchBonus
		}
	}

	if structurallySimilar(a.path, b.path) {
		reasons = append(reasons, "similar structural position")
		score += StructuralBonus
	}

	divisor := MinScoreDivisor
	if len(reasons) > divisor {
		divisor = len(reasons)
	}
	final := score / float64(divisor)
	if final < MinRelationConfidence {
		return nil
	}
	if final > 1 {
		final = 1
	}

	// The side with more distinct values is assumed to be the referenced
	// parent; the smaller side references into it.
	primary, foreign := a, b
	if len(b.values) > len(a.values) {
		primary, foreign = b, a
	}
	return &models.RelationCandidate{
		PrimaryTable: primary.dataset,
		PrimaryKey:   primary.name,
		ForeignTable: foreign.dataset,
		ForeignKey:   foreign.name,
		Confidence:   round2(final),
		Reasons:      reasons,
	}
}

// structurallySimilar reports whether two paths occupy analogous document
// positions: both inside a recognizable identifier container, or at equal
// depth.
func structurallySimilar(path1, path2 string) bool {
	p1 := strings.Split(path1, ".")
	p2 := strings.Split(path2, ".")
	for _, container := range []string{"openfda", "identifiers"} {
		if containsSegment(p1, container) && containsSegment(p2, container) {
			return true
		}
	}
	return len(p1) == len(p2)
}

func (inf *Inferencer) knownRelationCandidates() []*models.RelationCandidate {
	var out []*models.RelationCandidate
	for _, kr := range knownRelations {
		if _, ok := inf.analyses[kr.primary]; !ok {
			continue
		}
		if _, ok := inf.analyses[kr.foreign]; !ok {
			continue
		}
		out = append(out, &models.RelationCandidate{
			PrimaryTable: kr.primary,
			PrimaryKey:   kr.primaryKey,
			ForeignTable: kr.foreign,
			ForeignKey:   kr.foreignKey,
			Confidence:   kr.confidence,
			Reasons:      []string{"known FDA reference relationship"},
		})
	}
	return out
}

// businessRuleCandidates injects relationships implied by how FDA datasets
// are produced rather than by any field-level evidence.
func (inf *Inferencer) businessRuleCandidates() []*models.RelationCandidate {
	var out []*models.RelationCandidate

	if inf.has("device") && inf.has("classification") {
		out = append(out, &models.RelationCandidate{
			PrimaryTable: "classification",
			PrimaryKey:   "device_class",
			ForeignTable: "device",
			ForeignKey:   "device_class",
			Confidence:   0.9,
			Reasons:      []string{"FDA business rule: device classification"},
		})
	}

	if inf.has("registrationlisting") {
		for _, ds := range []string{"device", "drug", "food"} {
			if !inf.has(ds) {
				continue
			}
			out = append(out, &models.RelationCandidate{
				PrimaryTable: "registrationlisting",
				PrimaryKey:   "registration_number",
				ForeignTable: ds,
				ForeignKey:   "registration_number",
				Confidence:   0.85,
				Reasons:      []string{"FDA business rule: registration to product"},
			})
		}
	}

	return out
}

// processStageCandidates proposes relations between consecutive-or-later
// FDA lifecycle stages that share an identically named id field on their
// main tables.
func (inf *Inferencer) processStageCandidates() []*models.RelationCandidate {
	var available []processStage
	for _, stage := range processStages {
		if inf.has(stage.dataset) {
			available = append(available, stage)
		}
	}

	var out []*models.RelationCandidate
	for i := 0; i < len(available)-1; i++ {
		for j := i + 1; j < len(available); j++ {
			earlier, later := available[i], available[j]
			m1 := inf.analyses[earlier.dataset].MainTable()
			m2 := inf.analyses[later.dataset].MainTable()
			if m1 == nil || m2 == nil {
				continue
			}
			for _, f1 := range m1.Fields {
				if !IsIDFieldName(f1.Name) {
					continue
				}
				if m2.Field(f1.Name) == nil {
					continue
				}
				out = append(out, &models.RelationCandidate{
					PrimaryTable: earlier.dataset,
					PrimaryKey:   f1.Name,
					ForeignTable: later.dataset,
					ForeignKey:   f1.Name,
					Confidence:   StageRelationConfidence,
					Reasons: []string{fmt.Sprintf("FDA process stage: %s -> %s",
						earlier.label, later.label)},
				})
			}
		}
	}
	return out
}

func (inf *Inferencer) has(dataset string) bool {
	_, ok := inf.analyses[dataset]
	return ok
}

// dedupeByPair keeps the highest-confidence candidate per endpoint pair,
// normalizing the 510k spelling first so duplicates discovered under
// either spelling collapse.
func dedupeByPair(relations []*models.RelationCandidate) []*models.RelationCandidate {
	for _, rel := range relations {
		if rel.PrimaryTable == "510k" {
			rel.PrimaryTable = "k510"
		}
		if rel.ForeignTable == "510k" {
			rel.ForeignTable = "k510"
		}
	}

	sort.SliceStable(relations, func(i, j int) bool {
		return relations[i].Confidence > relations[j].Confidence
	})

	seen := make(map[string]bool)
	var out []*models.RelationCandidate
	for _, rel := range relations {
		key := rel.PairKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rel)
	}
	return out
}

func intersectionSize(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for v := range a {
		if b[v] {
			n++
		}
	}
	return n
}

func matchesAnyValue(format *regexp.Regexp, values map[string]bool) bool {
	for v := range values {
		if format.MatchString(v) {
			return true
		}
	}
	return false
}

func containsSegment(parts []string, segment string) bool {
	for _, p := range parts {
		if p == segment {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
