package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

func classificationAnalysis() *models.DatasetAnalysis {
	main := &models.TableSpec{
		Name:        "classification",
		Kind:        models.TableMain,
		PrimaryKeys: []string{"regulation_number"},
		Fields: []*models.FieldSpec{
			{Name: "regulation_number", SourcePath: "classification.regulation_number", Sample: "870.1100", SampleKind: models.SampleString, MaxLength: 8},
			{Name: "device_name", SourcePath: "classification.device_name", Sample: "Stent", SampleKind: models.SampleString, MaxLength: 40},
		},
	}
	return &models.DatasetAnalysis{
		Dataset: "classification",
		Paths:   map[string]*models.PathRecord{},
		Tables:  map[string]*models.TableSpec{"classification": main},
	}
}

func TestEmitCombined(t *testing.T) {
	analyses := map[string]*models.DatasetAnalysis{
		"recall":         recallAnalysis(),
		"classification": classificationAnalysis(),
	}
	relations := []*models.RelationCandidate{
		{
			PrimaryTable: "classification",
			PrimaryKey:   "regulation_number",
			ForeignTable: "recall",
			ForeignKey:   "regulation_number",
			Confidence:   0.95,
			Reasons:      []string{"known FDA reference relationship"},
		},
		{
			PrimaryTable: "classification",
			PrimaryKey:   "device_name",
			ForeignTable: "recall",
			ForeignKey:   "device_name",
			Confidence:   0.7,
			Reasons:      []string{"exact field name match: device_name"},
		},
	}

	sql := testEmitter().EmitCombined(analyses, relations)

	assert.Contains(t, sql, "-- Datasets: classification, recall")
	assert.Contains(t, sql, "CREATE TYPE recall_status_enum AS ENUM")

	// The referenced dataset's table is created before the referencing one.
	classPos := strings.Index(sql, "CREATE TABLE classification (")
	recallPos := strings.Index(sql, "CREATE TABLE recall (")
	childPos := strings.Index(sql, "CREATE TABLE recall_device (")
	require.GreaterOrEqual(t, classPos, 0)
	require.GreaterOrEqual(t, recallPos, 0)
	require.GreaterOrEqual(t, childPos, 0)
	assert.Less(t, classPos, recallPos)
	assert.Less(t, recallPos, childPos)

	// High confidence becomes a live constraint with its evidence cited.
	assert.Contains(t, sql, "-- confidence: 0.95, evidence: known FDA reference relationship")
	assert.Contains(t, sql, "ALTER TABLE recall ADD CONSTRAINT fk_recall_regulation_number_to_classification\n    FOREIGN KEY (regulation_number) REFERENCES classification(regulation_number);")

	// Medium confidence is suggested but commented out.
	assert.Contains(t, sql, "-- ALTER TABLE recall ADD CONSTRAINT fk_recall_device_name_to_classification")
	assert.Contains(t, sql, "CREATE INDEX idx_recall_regulation_number ON recall(regulation_number);")
}

func TestTopologicalOrderCycle(t *testing.T) {
	tables := map[string]*models.TableSpec{
		"alpha": {Name: "alpha", Kind: models.TableMain},
		"beta":  {Name: "beta", Kind: models.TableMain},
	}
	relations := []*models.RelationCandidate{
		{PrimaryTable: "alpha", PrimaryKey: "x_number", ForeignTable: "beta", ForeignKey: "x_number", Confidence: 0.9},
		{PrimaryTable: "beta", PrimaryKey: "y_number", ForeignTable: "alpha", ForeignKey: "y_number", Confidence: 0.9},
	}
	order := testEmitter().topologicalOrder(tables, relations)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, order)
}

func TestConstraintsSQL(t *testing.T) {
	relations := []*models.RelationCandidate{
		{PrimaryTable: "pma", PrimaryKey: "pma_number", ForeignTable: "recall", ForeignKey: "pma_number", Confidence: 0.9},
		{PrimaryTable: "510k", PrimaryKey: "k_number", ForeignTable: "recall", ForeignKey: "k_number", Confidence: 0.65},
		{PrimaryTable: "udi", PrimaryKey: "public_device_record_key", ForeignTable: "event", ForeignKey: "device_report_product_code", Confidence: 0.4},
	}
	sql := testEmitter().ConstraintsSQL(relations, []string{"pma", "recall", "k510", "udi", "event"})

	assert.Contains(t, sql, "ALTER TABLE recall ADD CONSTRAINT fk_recall_pma_number_to_pma\n    FOREIGN KEY (pma_number) REFERENCES pma(pma_number);")
	// The 510k spelling maps onto the fda_k510 table name.
	assert.Contains(t, sql, "-- ALTER TABLE recall ADD CONSTRAINT fk_recall_k_number_to_fda_k510")
	// Below the suggestion band nothing is emitted.
	assert.NotContains(t, sql, "device_report_product_code")
}

func TestConstraintSQLClipsLongNames(t *testing.T) {
	rel := &models.RelationCandidate{
		PrimaryTable: "registrationlisting_establishment_details",
		PrimaryKey:   "registration_number",
		ForeignTable: "classification_submission_tracking_records",
		ForeignKey:   "registration_number",
		Confidence:   0.9,
	}
	sql := constraintSQL(rel)
	for _, line := range strings.Split(sql, "\n") {
		if !strings.Contains(line, "ADD CONSTRAINT") {
			continue
		}
		parts := strings.Fields(line)
		name := parts[len(parts)-1]
		assert.LessOrEqual(t, len(name), 63, "constraint name %q exceeds identifier limit", name)
	}
	assert.Contains(t, sql, "fk_classi_regist_regist")
}
