package analyzer

import (
	"github.com/leiMizzou/fdaschema/pkg/models"
)

// Cardinality thresholds for key inference. Cardinality is distinct values
// divided by occurrences, so 1.0 means every observed value was unique.
const (
	// PrimaryKeyCardinality is the exclusive lower bound above which a
	// key-candidate field is treated as a primary key candidate.
	PrimaryKeyCardinality = 0.9

	// UniqueKeyCardinality is the exclusive lower bound above which a
	// key-candidate field is recommended for a unique constraint.
	UniqueKeyCardinality = 0.5

	// MaxNaturalKeyFields caps how many natural primary-key candidates a
	// table may keep before falling back to a synthetic id.
	MaxNaturalKeyFields = 3

	// SyntheticKeyName is the serial surrogate key every table carries.
	SyntheticKeyName = "id"
)

// assignKeyTier records a field as a primary-key or unique candidate on
// its table based on observed cardinality. Only fields whose names look
// like identifiers are considered; high cardinality alone is not enough.
func (r *tableResolver) assignKeyTier(t *models.TableSpec, fieldName string, rec *models.PathRecord) {
	if !rec.IsKeyCandidate || rec.OccurrenceCount == 0 {
		return
	}
	if rec.Cardinality > PrimaryKeyCardinality {
		if !containsString(t.PrimaryKeys, fieldName) {
			t.PrimaryKeys = append(t.PrimaryKeys, fieldName)
		}
	} else if rec.Cardinality > UniqueKeyCardinality {
		if !containsString(t.RecommendedUniqueKeys, fieldName) {
			t.RecommendedUniqueKeys = append(t.RecommendedUniqueKeys, fieldName)
		}
	}
}

// finalizeKeys settles each table's key strategy after all fields are
// attached. Tables without a confident natural key get a synthetic id;
// tables with too many candidates keep the first two alongside the
// synthetic id and demote the rest to unique constraints.
func finalizeKeys(t *models.TableSpec) {
	switch {
	case len(t.PrimaryKeys) == 0:
		t.PrimaryKeys = []string{SyntheticKeyName}
		if len(t.RecommendedUniqueKeys) > 0 {
			t.UniqueConstraints = appendMissing(t.UniqueConstraints, t.RecommendedUniqueKeys...)
		}
	case len(t.PrimaryKeys) > MaxNaturalKeyFields:
		demoted := t.PrimaryKeys[2:]
		t.UniqueConstraints = appendMissing(t.UniqueConstraints, demoted...)
		t.PrimaryKeys = append([]string{SyntheticKeyName}, t.PrimaryKeys[:2]...)
	}
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func appendMissing(dst []string, items ...string) []string {
	for _, it := range items {
		if !containsString(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}
