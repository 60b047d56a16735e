package relations

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// fieldValues describes one key-candidate path for analysis fixtures.
type fieldValues struct {
	path   string
	values []string
}

func makeAnalysis(dataset string, fields ...fieldValues) *models.DatasetAnalysis {
	a := &models.DatasetAnalysis{
		Dataset:        dataset,
		Paths:          make(map[string]*models.PathRecord),
		DistinctValues: make(map[string]map[string]bool),
	}
	for _, f := range fields {
		set := make(map[string]bool, len(f.values))
		for _, v := range f.values {
			set[v] = true
		}
		a.Paths[f.path] = &models.PathRecord{
			Path:            f.path,
			Kind:            models.PathScalar,
			OccurrenceCount: len(f.values),
			SampleValue:     f.values[0],
			SampleKind:      models.SampleString,
			IsKeyCandidate:  true,
		}
		a.DistinctValues[f.path] = set
	}
	return a
}

func numberRange(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%07d", prefix, i)
	}
	return out
}

func findRelation(relations []*models.RelationCandidate, primaryKey string) *models.RelationCandidate {
	for _, rel := range relations {
		if rel.PrimaryKey == primaryKey {
			return rel
		}
	}
	return nil
}

func TestInferHighOverlapPair(t *testing.T) {
	// Both datasets carry registration_number with 9 of 10 values shared;
	// alpha holds the larger distinct set and is the referenced side.
	alpha := numberRange("300", 12)
	beta := append(numberRange("300", 9), "3009999999")

	inf := NewInferencer(zap.NewNop())
	inf.Add(makeAnalysis("alpha", fieldValues{"alpha.registration_number", alpha}))
	inf.Add(makeAnalysis("beta", fieldValues{"beta.registration_number", beta}))

	relations := inf.Infer()
	rel := findRelation(relations, "registration_number")
	if rel == nil {
		t.Fatal("expected a registration_number relation")
	}
	if rel.PrimaryTable != "alpha" || rel.ForeignTable != "beta" {
		t.Errorf("direction = %s -> %s, want alpha -> beta", rel.PrimaryTable, rel.ForeignTable)
	}
	if rel.Confidence < MinRelationConfidence || rel.Confidence > 1 {
		t.Errorf("confidence = %v, want within [%v, 1]", rel.Confidence, MinRelationConfidence)
	}
	var hasName, hasOverlap bool
	for _, r := range rel.Reasons {
		if strings.Contains(r, "exact field name match") {
			hasName = true
		}
		if strings.Contains(r, "value overlap") {
			hasOverlap = true
		}
	}
	if !hasName || !hasOverlap {
		t.Errorf("reasons = %v, want name match and value overlap cited", rel.Reasons)
	}
	if rel.Kind != "number" {
		t.Errorf("kind = %q, want number", rel.Kind)
	}
}

func TestInferRejectsWeakPair(t *testing.T) {
	inf := NewInferencer(zap.NewNop())
	inf.Add(makeAnalysis("alpha", fieldValues{"alpha.widget_code", []string{"AAA", "BBB", "CCC"}}))
	inf.Add(makeAnalysis("beta", fieldValues{"beta.info.gadget_key", numberRange("7", 5)}))

	if relations := inf.Infer(); len(relations) != 0 {
		t.Errorf("relations = %v, want none for unrelated fields", relations)
	}
}

func TestInferSingleDataset(t *testing.T) {
	inf := NewInferencer(zap.NewNop())
	inf.Add(makeAnalysis("alpha", fieldValues{"alpha.registration_number", numberRange("300", 5)}))
	if relations := inf.Infer(); relations != nil {
		t.Errorf("relations = %v, want nil with a single dataset", relations)
	}
}

func TestInferKnownRelations(t *testing.T) {
	inf := NewInferencer(zap.NewNop())
	inf.Add(makeAnalysis("classification"))
	inf.Add(makeAnalysis("pma"))

	relations := inf.Infer()
	rel := findRelation(relations, "regulation_number")
	if rel == nil {
		t.Fatal("expected the classification -> pma regulation_number relation")
	}
	if rel.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", rel.Confidence)
	}
	if rel.Kind != "number" {
		t.Errorf("kind = %q, want number", rel.Kind)
	}
}

func TestInferProcessStages(t *testing.T) {
	k510 := makeAnalysis("k510")
	k510.Tables = map[string]*models.TableSpec{
		"fda_k510": {
			Name:   "fda_k510",
			Kind:   models.TableMain,
			Fields: []*models.FieldSpec{{Name: "submission_number"}, {Name: "city"}},
		},
	}
	recall := makeAnalysis("recall")
	recall.Tables = map[string]*models.TableSpec{
		"recall": {
			Name:   "recall",
			Kind:   models.TableMain,
			Fields: []*models.FieldSpec{{Name: "submission_number"}, {Name: "status"}},
		},
	}

	inf := NewInferencer(zap.NewNop())
	inf.Add(k510)
	inf.Add(recall)

	rel := findRelation(inf.Infer(), "submission_number")
	if rel == nil {
		t.Fatal("expected a stage relation on the shared submission_number field")
	}
	if rel.Confidence != StageRelationConfidence {
		t.Errorf("confidence = %v, want %v", rel.Confidence, StageRelationConfidence)
	}
	// The earlier lifecycle stage is the referenced side.
	if rel.PrimaryTable != "k510" || rel.ForeignTable != "recall" {
		t.Errorf("direction = %s -> %s, want k510 -> recall", rel.PrimaryTable, rel.ForeignTable)
	}
}

func TestDedupeByPair(t *testing.T) {
	relations := []*models.RelationCandidate{
		{PrimaryTable: "510k", PrimaryKey: "k_number", ForeignTable: "recall", ForeignKey: "k_number", Confidence: 0.6},
		{PrimaryTable: "k510", PrimaryKey: "k_number", ForeignTable: "recall", ForeignKey: "k_number", Confidence: 0.9},
		{PrimaryTable: "pma", PrimaryKey: "pma_number", ForeignTable: "recall", ForeignKey: "pma_number", Confidence: 0.9},
	}
	out := dedupeByPair(relations)
	if len(out) != 2 {
		t.Fatalf("deduped count = %d, want 2", len(out))
	}
	rel := findRelation(out, "k_number")
	if rel == nil || rel.Confidence != 0.9 {
		t.Errorf("kept relation = %+v, want the 0.9 candidate", rel)
	}
	if rel != nil && rel.PrimaryTable != "k510" {
		t.Errorf("primary table = %q, want normalized k510", rel.PrimaryTable)
	}
}

func TestRelationKindLabel(t *testing.T) {
	tests := []struct {
		pk, fk string
		want   string
	}{
		{"device_id", "device_id", "standard id"},
		{"k_number", "k_number", "number"},
		{"product_code", "product_code", "code"},
		{"regulation_number", "regulation", "regulation"},
		{"pma_number", "pma_ref", "pma"},
		{"registration_number", "reg_num", "registration"},
		{"something", "else", "general"},
	}
	for _, tt := range tests {
		rel := &models.RelationCandidate{PrimaryKey: tt.pk, ForeignKey: tt.fk}
		if got := RelationKindLabel(rel); got != tt.want {
			t.Errorf("RelationKindLabel(%s, %s) = %q, want %q", tt.pk, tt.fk, got, tt.want)
		}
	}
}
