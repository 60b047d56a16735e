package analyzer

import (
	"testing"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

func TestAssignKeyTier(t *testing.T) {
	tests := []struct {
		name        string
		cardinality float64
		candidate   bool
		wantPK      bool
		wantUnique  bool
	}{
		{"unique identifier", 1.0, true, true, false},
		{"just above pk bound", 0.91, true, true, false},
		{"at pk bound", 0.9, true, false, true},
		{"mostly unique", 0.6, true, false, true},
		{"at unique bound", 0.5, true, false, false},
		{"low cardinality", 0.1, true, false, false},
		{"not a candidate", 1.0, false, false, false},
	}
	r := &tableResolver{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &models.TableSpec{Name: "x"}
			rec := &models.PathRecord{
				Path:            "x.f",
				OccurrenceCount: 100,
				Cardinality:     tt.cardinality,
				IsKeyCandidate:  tt.candidate,
			}
			r.assignKeyTier(table, "f", rec)
			if got := containsString(table.PrimaryKeys, "f"); got != tt.wantPK {
				t.Errorf("primary key = %v, want %v", got, tt.wantPK)
			}
			if got := containsString(table.RecommendedUniqueKeys, "f"); got != tt.wantUnique {
				t.Errorf("unique recommendation = %v, want %v", got, tt.wantUnique)
			}
		})
	}
}

func TestAssignKeyTierNoDuplicates(t *testing.T) {
	r := &tableResolver{}
	table := &models.TableSpec{Name: "x"}
	rec := &models.PathRecord{Path: "x.f", OccurrenceCount: 10, Cardinality: 1.0, IsKeyCandidate: true}
	r.assignKeyTier(table, "f", rec)
	r.assignKeyTier(table, "f", rec)
	if len(table.PrimaryKeys) != 1 {
		t.Errorf("primary keys = %v, want single entry", table.PrimaryKeys)
	}
}

func TestFinalizeKeysSyntheticFallback(t *testing.T) {
	table := &models.TableSpec{
		Name:                  "recall",
		RecommendedUniqueKeys: []string{"recall_number"},
	}
	finalizeKeys(table)
	if len(table.PrimaryKeys) != 1 || table.PrimaryKeys[0] != SyntheticKeyName {
		t.Errorf("primary keys = %v, want [%s]", table.PrimaryKeys, SyntheticKeyName)
	}
	if !containsString(table.UniqueConstraints, "recall_number") {
		t.Errorf("unique constraints = %v, want recall_number promoted", table.UniqueConstraints)
	}
}

func TestFinalizeKeysNaturalKeyKept(t *testing.T) {
	table := &models.TableSpec{
		Name:        "pma",
		PrimaryKeys: []string{"pma_number"},
	}
	finalizeKeys(table)
	if len(table.PrimaryKeys) != 1 || table.PrimaryKeys[0] != "pma_number" {
		t.Errorf("primary keys = %v, want [pma_number] unchanged", table.PrimaryKeys)
	}
}

func TestFinalizeKeysTooManyCandidates(t *testing.T) {
	table := &models.TableSpec{
		Name:        "udi",
		PrimaryKeys: []string{"a_number", "b_number", "c_number", "d_number"},
	}
	finalizeKeys(table)

	want := []string{SyntheticKeyName, "a_number", "b_number"}
	if len(table.PrimaryKeys) != len(want) {
		t.Fatalf("primary keys = %v, want %v", table.PrimaryKeys, want)
	}
	for i := range want {
		if table.PrimaryKeys[i] != want[i] {
			t.Fatalf("primary keys = %v, want %v", table.PrimaryKeys, want)
		}
	}
	// The overflow candidates survive as unique constraints.
	for _, name := range []string{"c_number", "d_number"} {
		if !containsString(table.UniqueConstraints, name) {
			t.Errorf("unique constraints = %v, want %s demoted", table.UniqueConstraints, name)
		}
	}
}
