package ddl

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/analyzer"
	"github.com/leiMizzou/fdaschema/pkg/models"
)

// EmitCombined renders a single schema covering every analyzed dataset:
// tables in true topological order over the parent/foreign-key dependency
// graph, intra-dataset parent keys, and cross-dataset foreign keys emitted
// live or as commented suggestions depending on confidence.
func (e *Emitter) EmitCombined(analyses map[string]*models.DatasetAnalysis, relations []*models.RelationCandidate) string {
	allTables := make(map[string]*models.TableSpec)
	var datasets []string
	for ds, analysis := range analyses {
		datasets = append(datasets, analyzer.NormalizeDatasetKind(ds))
		for name, t := range analysis.Tables {
			allTables[name] = t
		}
	}
	sort.Strings(datasets)

	var b strings.Builder
	fmt.Fprintf(&b, "-- Combined FDA schema\n")
	fmt.Fprintf(&b, "-- Generated: %s\n", e.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "-- Datasets: %s\n", strings.Join(datasets, ", "))
	fmt.Fprintf(&b, "-- Tables: %d\n", len(allTables))
	fmt.Fprintf(&b, "-- Cross-dataset relations: %d\n\n", len(relations))

	writeDomainDefinitions(&b)

	b.WriteString("-- Common enumerable types\n")
	b.WriteString("CREATE TYPE recall_status_enum AS ENUM ('Open', 'Closed', 'Open, Classified', 'Terminated');\n")
	b.WriteString("CREATE TYPE device_class_enum AS ENUM ('1', '2', '3', 'U', 'N');\n\n")

	ordered := e.topologicalOrder(allTables, relations)

	enums := map[string][]string{}
	var textSearch [][2]string
	for _, name := range ordered {
		t, ok := allTables[name]
		if !ok {
			continue
		}
		e.writeCreateTable(&b, t, enums, &textSearch)
	}

	b.WriteString("-- Parent table foreign keys\n")
	for _, name := range ordered {
		t, ok := allTables[name]
		if !ok || t.Parent == "" {
			continue
		}
		parentID := t.Parent + "_id"
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT fk_%s_%s\n", t.Name, t.Name, parentID)
		fmt.Fprintf(&b, "    FOREIGN KEY (%s) REFERENCES %s(id);\n\n", parentID, t.Parent)
	}

	b.WriteString(fmt.Sprintf("-- High-confidence cross-dataset relations (>= %.1f)\n", LiveConstraintConfidence))
	for _, rel := range relations {
		if rel.Confidence < LiveConstraintConfidence {
			continue
		}
		fmt.Fprintf(&b, "-- confidence: %.2f, evidence: %s\n", rel.Confidence, strings.Join(rel.Reasons, ", "))
		fmt.Fprintf(&b, "%s;\n\n", constraintSQL(rel))
	}

	b.WriteString(fmt.Sprintf("-- Medium-confidence cross-dataset relations (%.1f-%.1f), verify before applying\n",
		SuggestedConstraintConfidence, LiveConstraintConfidence))
	for _, rel := range relations {
		if rel.Confidence < SuggestedConstraintConfidence || rel.Confidence >= LiveConstraintConfidence {
			continue
		}
		fmt.Fprintf(&b, "-- confidence: %.2f, evidence: %s\n", rel.Confidence, strings.Join(rel.Reasons, ", "))
		for _, line := range strings.Split(constraintSQL(rel)+";", "\n") {
			fmt.Fprintf(&b, "-- %s\n", line)
		}
		b.WriteString("\n")
	}

	writeCombinedIndexes(&b, allTables, ordered, relations)

	b.WriteString("-- Auto-update timestamp triggers\n")
	b.WriteString(`CREATE OR REPLACE FUNCTION update_modified_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = CURRENT_TIMESTAMP;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

`)
	for _, name := range ordered {
		if t, ok := allTables[name]; ok {
			fmt.Fprintf(&b, "CREATE TRIGGER update_timestamp\nBEFORE UPDATE ON %s\nFOR EACH ROW EXECUTE FUNCTION update_modified_column();\n\n", t.Name)
		}
	}

	e.logger.Info("combined schema emitted",
		zap.Int("datasets", len(analyses)),
		zap.Int("tables", len(allTables)),
		zap.Int("relations", len(relations)))
	return b.String()
}

// topologicalOrder sorts tables so every table appears after the tables it
// depends on: its parent, and any table a high-confidence relation points
// it at. Cycles cannot be ordered; their members are appended in name
// order with a logged warning.
func (e *Emitter) topologicalOrder(tables map[string]*models.TableSpec, relations []*models.RelationCandidate) []string {
	deps := make(map[string][]string)
	for name, t := range tables {
		if t.Parent != "" {
			deps[t.Parent] = append(deps[t.Parent], name)
		}
	}
	for _, rel := range relations {
		if rel.Confidence < LiveConstraintConfidence {
			continue
		}
		primary := analyzer.MainTableName(rel.PrimaryTable)
		foreign := analyzer.MainTableName(rel.ForeignTable)
		if _, ok := tables[primary]; !ok {
			continue
		}
		if _, ok := tables[foreign]; !ok {
			continue
		}
		deps[primary] = append(deps[primary], foreign)
	}

	inDegree := make(map[string]int, len(tables))
	for name := range tables {
		inDegree[name] = 0
	}
	for _, dependents := range deps {
		for _, d := range dependents {
			inDegree[d]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		var released []string
		for _, d := range deps[name] {
			inDegree[d]--
			if inDegree[d] == 0 {
				released = append(released, d)
			}
		}
		sort.Strings(released)
		queue = append(queue, released...)
	}

	if len(order) != len(tables) {
		e.logger.Warn("dependency cycle among tables, appending unordered remainder",
			zap.Int("ordered", len(order)),
			zap.Int("total", len(tables)))
		var rest []string
		seen := make(map[string]bool, len(order))
		for _, name := range order {
			seen[name] = true
		}
		for name := range tables {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		sort.Strings(rest)
		order = append(order, rest...)
	}
	return order
}

func writeCombinedIndexes(b *strings.Builder, tables map[string]*models.TableSpec, ordered []string, relations []*models.RelationCandidate) {
	b.WriteString("-- Indexes\n")
	indexed := make(map[string]bool)

	for _, rel := range relations {
		if rel.Confidence < LiveConstraintConfidence {
			continue
		}
		foreign := analyzer.MainTableName(rel.ForeignTable)
		if _, ok := tables[foreign]; !ok {
			continue
		}
		key := foreign + "." + rel.ForeignKey
		if !indexed[key] {
			indexed[key] = true
			fmt.Fprintf(b, "CREATE INDEX idx_%s_%s ON %s(%s);\n", foreign, rel.ForeignKey, foreign, rel.ForeignKey)
		}
	}

	for _, name := range ordered {
		t, ok := tables[name]
		if !ok || t.Parent == "" {
			continue
		}
		parentID := t.Parent + "_id"
		key := t.Name + "." + parentID
		if !indexed[key] {
			indexed[key] = true
			fmt.Fprintf(b, "CREATE INDEX idx_%s_%s ON %s(%s);\n", t.Name, parentID, t.Name, parentID)
		}
	}
	b.WriteString("\n")
}

// ConstraintsSQL renders every relation as ALTER TABLE statements grouped
// by confidence band: live statements for high confidence, commented
// suggestions for medium.
func (e *Emitter) ConstraintsSQL(relations []*models.RelationCandidate, datasets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Cross-dataset relationship constraints\n")
	fmt.Fprintf(&b, "-- Generated: %s\n", e.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "-- Datasets: %s\n", strings.Join(datasets, ", "))
	fmt.Fprintf(&b, "-- Relations: %d\n\n", len(relations))

	fmt.Fprintf(&b, "-- High-confidence relations (>= %.1f)\n", LiveConstraintConfidence)
	b.WriteString("-- These are very likely real foreign key relationships\n")
	for _, rel := range relations {
		if rel.Confidence >= LiveConstraintConfidence {
			fmt.Fprintf(&b, "%s;\n\n", constraintSQL(rel))
		}
	}

	fmt.Fprintf(&b, "-- Medium-confidence relations (%.1f-%.1f)\n", SuggestedConstraintConfidence, LiveConstraintConfidence)
	b.WriteString("-- These may be foreign key relationships, verify before applying\n")
	for _, rel := range relations {
		if rel.Confidence >= SuggestedConstraintConfidence && rel.Confidence < LiveConstraintConfidence {
			fmt.Fprintf(&b, "-- %s;\n\n", strings.ReplaceAll(constraintSQL(rel), "\n", "\n-- "))
		}
	}
	return b.String()
}

// constraintSQL builds the ALTER TABLE statement adding a relation as a
// foreign key, with the constraint name shortened when it would exceed
// Postgres's 63-character identifier limit.
func constraintSQL(rel *models.RelationCandidate) string {
	primary := analyzer.MainTableName(rel.PrimaryTable)
	foreign := analyzer.MainTableName(rel.ForeignTable)
	primaryKey := analyzer.SanitizeFieldName(rel.PrimaryKey)
	foreignKey := analyzer.SanitizeFieldName(rel.ForeignKey)

	name := fmt.Sprintf("fk_%s_%s_to_%s", foreign, foreignKey, primary)
	if len(name) > 63 {
		name = fmt.Sprintf("fk_%s_%s_%s", clip(foreign, 6), clip(foreignKey, 6), clip(primary, 6))
	}

	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s\n    FOREIGN KEY (%s) REFERENCES %s(%s)",
		foreign, name, foreignKey, primary, primaryKey)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
