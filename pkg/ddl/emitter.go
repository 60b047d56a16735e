package ddl

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/analyzer"
	"github.com/leiMizzou/fdaschema/pkg/models"
)

// Confidence bands for emitting cross-dataset foreign keys: live
// constraints above the high bound, commented-out suggestions between the
// bounds, nothing below.
const (
	LiveConstraintConfidence      = 0.8
	SuggestedConstraintConfidence = 0.6
)

// textSearchNames are TEXT columns worth a full-text index.
var textSearchNames = map[string]bool{
	"description":          true,
	"reason":               true,
	"text":                 true,
	"summary":              true,
	"notes":                true,
	"comments":             true,
	"distribution_pattern": true,
	"reason_for_recall":    true,
	"product_description":  true,
}

// Emitter renders resolved table structures into PostgreSQL DDL and the
// review CSV artifacts.
type Emitter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewEmitter creates a DDL emitter.
func NewEmitter(logger *zap.Logger) *Emitter {
	return &Emitter{
		logger: logger.Named("ddl"),
		now:    time.Now,
	}
}

// EmitDataset renders the complete DDL for one dataset: domains, tables in
// dependency order, comments, constraints, enum types, foreign keys,
// indexes, and update-timestamp triggers.
func (e *Emitter) EmitDataset(analysis *models.DatasetAnalysis) string {
	var b strings.Builder
	mainTable := analyzer.MainTableName(analysis.Dataset)

	fmt.Fprintf(&b, "-- Inferred table structure for %s\n", mainTable)
	fmt.Fprintf(&b, "-- Generated: %s\n", e.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "-- Files analyzed: %d\n", analysis.FilesProcessed)
	fmt.Fprintf(&b, "-- Records analyzed: %d\n", analysis.RecordsProcessed)
	fmt.Fprintf(&b, "-- Unique field paths: %d\n\n", len(analysis.Paths))

	writeDomainDefinitions(&b)

	tables := sortTablesForEmit(analysis.Tables, mainTable)

	// Enum declarations must precede the tables that use them.
	enums := collectEnums(tables)
	if len(enums) > 0 {
		b.WriteString("-- Enumerable value types\n")
		for _, name := range sortedEnumNames(enums) {
			fmt.Fprintf(&b, "CREATE TYPE %s_enum AS ENUM (%s);\n", name, quoteList(enums[name]))
		}
		b.WriteString("\n")
	}

	var textSearchIndexes [][2]string
	for _, t := range tables {
		e.writeCreateTable(&b, t, enums, &textSearchIndexes)
		writeTableComments(&b, t)
		writeUniqueConstraints(&b, t)
		writeCheckConstraints(&b, t)
	}

	b.WriteString("-- Parent table foreign keys\n")
	for _, t := range tables {
		if t.Parent == "" {
			continue
		}
		parentID := t.Parent + "_id"
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT fk_%s_%s\n", t.Name, t.Name, parentID)
		fmt.Fprintf(&b, "    FOREIGN KEY (%s) REFERENCES %s(id);\n\n", parentID, t.Parent)
	}

	writeIndexes(&b, tables, textSearchIndexes)
	writeUpdateTriggers(&b, tables)

	e.logger.Info("dataset DDL emitted",
		zap.String("dataset", analysis.Dataset),
		zap.Int("tables", len(tables)))
	return b.String()
}

func (e *Emitter) writeCreateTable(b *strings.Builder, t *models.TableSpec, enums map[string][]string, textSearch *[][2]string) {
	fmt.Fprintf(b, "CREATE TABLE %s (\n", t.Name)
	fmt.Fprintf(b, "    id SERIAL,\n")
	if t.Parent != "" {
		fmt.Fprintf(b, "    %s_id INTEGER,\n", t.Parent)
	}

	seen := map[string]bool{"id": true}
	for _, f := range t.Fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true

		colType := analyzer.InferColumnType(f)
		if analyzer.IsEnumType(colType) {
			// Only enum markers whose value list was actually collected
			// become real types; the rest degrade to plain varchar.
			base := strings.TrimSuffix(colType, "_enum")
			if _, ok := enums[base]; !ok {
				colType = "VARCHAR(100)"
			}
		}
		fmt.Fprintf(b, "    %s %s,\n", f.Name, colType)

		if colType == "TEXT" && textSearchNames[strings.ToLower(f.Name)] {
			*textSearch = append(*textSearch, [2]string{t.Name, f.Name})
		}
	}

	b.WriteString("    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,\n")
	b.WriteString("    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,\n")

	pks := t.PrimaryKeys
	if len(pks) == 0 {
		pks = []string{"id"}
	} else if !containsString(pks, "id") {
		pks = append([]string{"id"}, pks...)
	}
	fmt.Fprintf(b, "    PRIMARY KEY (%s)\n", strings.Join(pks, ", "))
	b.WriteString(");\n\n")
}

func writeTableComments(b *strings.Builder, t *models.TableSpec) {
	fmt.Fprintf(b, "COMMENT ON TABLE %s IS '%s';\n", t.Name, escapeSQL(tableDescription(t)))
	for _, f := range t.Fields {
		desc := fieldDescription(t, f)
		if desc == "" {
			continue
		}
		fmt.Fprintf(b, "COMMENT ON COLUMN %s.%s IS '%s';\n", t.Name, f.Name, escapeSQL(desc))
	}
	b.WriteString("\n")
}

func tableDescription(t *models.TableSpec) string {
	last := t.Name[strings.LastIndex(t.Name, "_")+1:]
	switch t.Kind {
	case models.TableMain:
		return fmt.Sprintf("FDA %s main data table", t.Name)
	case models.TableArray:
		return fmt.Sprintf("child table of %s holding the %s array", t.Parent, last)
	default:
		return fmt.Sprintf("child table of %s holding the %s nested object", t.Parent, last)
	}
}

func fieldDescription(t *models.TableSpec, f *models.FieldSpec) string {
	var parts []string
	if containsString(t.PrimaryKeys, f.Name) {
		parts = append(parts, "primary key field")
	}
	if f.SourcePath != "" {
		parts = append(parts, "path:"+f.SourcePath)
	}
	if f.UseJSONB {
		parts = append(parts, "JSONB")
	}
	if f.IsArray || f.IsArrayColumn {
		parts = append(parts, "array")
	}
	if f.Sample != "" && !strings.HasPrefix(f.Sample, "[Object") && !strings.HasPrefix(f.Sample, "[Array") {
		sample := f.Sample
		if len(sample) > 30 {
			sample = sample[:27] + "..."
		}
		parts = append(parts, "sample:"+sample)
	}
	if f.Cardinality > 0 {
		parts = append(parts, fmt.Sprintf("cardinality:%.2f", f.Cardinality))
	}
	return strings.Join(parts, " | ")
}

func writeUniqueConstraints(b *strings.Builder, t *models.TableSpec) {
	if len(t.UniqueConstraints) == 0 {
		return
	}
	for _, name := range t.UniqueConstraints {
		if t.Field(name) == nil {
			continue
		}
		fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT uq_%s_%s UNIQUE (%s);\n", t.Name, t.Name, name, name)
	}
	b.WriteString("\n")
}

// writeCheckConstraints emits value guards derived from naming and the
// observed histogram: status enums, plausible date ranges, and
// non-negative counts. Flag fields get nothing; booleans guard themselves.
func writeCheckConstraints(b *strings.Builder, t *models.TableSpec) {
	wrote := false
	for _, f := range t.Fields {
		lower := strings.ToLower(f.Name)
		switch {
		case strings.Contains(lower, "status") && len(f.ValueHistogram) >= analyzer.EnumMinDistinct &&
			len(f.ValueHistogram) <= analyzer.EnumMaxDistinct:
			values := make([]string, 0, len(f.ValueHistogram))
			for v := range f.ValueHistogram {
				values = append(values, v)
			}
			sort.Strings(values)
			fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT chk_%s_%s_valid\n", t.Name, t.Name, f.Name)
			fmt.Fprintf(b, "    CHECK (%s IS NULL OR %s IN (%s));\n", f.Name, f.Name, quoteList(values))
			wrote = true
		case (strings.Contains(lower, "date") || strings.Contains(lower, "time")) && !strings.HasSuffix(lower, "_flag"):
			fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT chk_%s_%s_range\n", t.Name, t.Name, f.Name)
			fmt.Fprintf(b, "    CHECK (%s IS NULL OR %s > '1970-01-01' AND %s < '2100-01-01');\n", f.Name, f.Name, f.Name)
			wrote = true
		case strings.HasPrefix(lower, "is_") || strings.HasPrefix(lower, "has_") || strings.HasSuffix(lower, "_flag"):
			// boolean columns need no range guard
		case strings.HasSuffix(lower, "_count") || strings.HasSuffix(lower, "_number"):
			fmt.Fprintf(b, "ALTER TABLE %s ADD CONSTRAINT chk_%s_%s_positive\n", t.Name, t.Name, f.Name)
			fmt.Fprintf(b, "    CHECK (%s IS NULL OR %s >= 0);\n", f.Name, f.Name)
			wrote = true
		}
	}
	if wrote {
		b.WriteString("\n")
	}
}

func writeIndexes(b *strings.Builder, tables []*models.TableSpec, textSearch [][2]string) {
	b.WriteString("-- Indexes\n")
	indexed := make(map[string]bool)

	for _, t := range tables {
		if t.Parent == "" {
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

	b.WriteString("-- Frequently queried fields\n")
	for _, t := range tables {
		for _, f := range t.Fields {
			key := t.Name + "." + f.Name
			lower := strings.ToLower(f.Name)

			if containsString(t.PrimaryKeys, f.Name) && f.Name != "id" && !indexed[key] {
				indexed[key] = true
				fmt.Fprintf(b, "CREATE INDEX idx_%s_%s ON %s(%s);\n", t.Name, f.Name, t.Name, f.Name)
				continue
			}
			if f.UseJSONB {
				continue
			}
			switch {
			case strings.Contains(lower, "date") || strings.Contains(lower, "time"):
				if !indexed[key] {
					indexed[key] = true
					fmt.Fprintf(b, "CREATE INDEX idx_%s_%s_brin ON %s USING BRIN (%s);\n", t.Name, f.Name, t.Name, f.Name)
				}
			case strings.Contains(lower, "status"):
				if !indexed[key] {
					indexed[key] = true
					fmt.Fprintf(b, "CREATE INDEX idx_%s_%s ON %s(%s);\n", t.Name, f.Name, t.Name, f.Name)
					fmt.Fprintf(b, "CREATE INDEX idx_%s_%s_active ON %s(%s) WHERE %s IN ('active', 'open', 'pending');\n",
						t.Name, f.Name, t.Name, f.Name, f.Name)
				}
			}
		}
	}
	b.WriteString("\n")

	b.WriteString("-- JSONB indexes\n")
	for _, t := range tables {
		for _, f := range t.Fields {
			if !f.UseJSONB {
				continue
			}
			key := t.Name + "." + f.Name
			if !indexed[key] {
				indexed[key] = true
				fmt.Fprintf(b, "CREATE INDEX idx_%s_%s_gin ON %s USING GIN (%s);\n", t.Name, f.Name, t.Name, f.Name)
			}
		}
	}
	b.WriteString("\n")

	if len(textSearch) > 0 {
		b.WriteString("-- Full-text search indexes\n")
		for _, ts := range textSearch {
			key := ts[0] + "." + ts[1] + ".fts"
			if !indexed[key] {
				indexed[key] = true
				fmt.Fprintf(b, "CREATE INDEX idx_%s_%s_tsvector ON %s USING GIN (to_tsvector('english', %s));\n",
					ts[0], ts[1], ts[0], ts[1])
			}
		}
		b.WriteString("\n")
	}
}

func writeUpdateTriggers(b *strings.Builder, tables []*models.TableSpec) {
	b.WriteString("-- Auto-update timestamp triggers\n")
	b.WriteString(`CREATE OR REPLACE FUNCTION update_modified_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = CURRENT_TIMESTAMP;
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

`)
	for _, t := range tables {
		fmt.Fprintf(b, "CREATE TRIGGER update_timestamp\nBEFORE UPDATE ON %s\nFOR EACH ROW EXECUTE FUNCTION update_modified_column();\n\n", t.Name)
	}
}

func writeDomainDefinitions(b *strings.Builder) {
	b.WriteString("-- Common data domains\n")
	b.WriteString("CREATE DOMAIN postal_code_type AS VARCHAR(20);\n")
	b.WriteString("CREATE DOMAIN phone_number_type AS VARCHAR(20);\n")
	b.WriteString("CREATE DOMAIN fda_id_type AS VARCHAR(30);\n")
	b.WriteString("CREATE DOMAIN product_code_type AS VARCHAR(10);\n")
	b.WriteString("CREATE DOMAIN registration_number_type AS VARCHAR(20);\n")
	b.WriteString("CREATE DOMAIN status_code_type AS VARCHAR(50);\n\n")
}

// sortTablesForEmit orders tables with a two-level key: the main table
// first, direct children of it next, everything else after, each band
// alphabetical. Parent tables are guaranteed to appear before any table
// referencing them.
func sortTablesForEmit(tables map[string]*models.TableSpec, mainTable string) []*models.TableSpec {
	out := make([]*models.TableSpec, 0, len(tables))
	for _, t := range tables {
		out = append(out, t)
	}
	rank := func(t *models.TableSpec) int {
		switch {
		case t.Kind == models.TableMain:
			return 0
		case t.Parent == mainTable:
			return 1
		default:
			return 2
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// collectEnums gathers the enumerable value lists from scalar fields whose
// histogram fits the enum window.
func collectEnums(tables []*models.TableSpec) map[string][]string {
	enums := make(map[string][]string)
	for _, t := range tables {
		for _, f := range t.Fields {
			if f.UseJSONB || f.IsArray || f.IsArrayColumn || len(f.ValueHistogram) == 0 {
				continue
			}
			if len(f.ValueHistogram) < analyzer.EnumMinDistinct || len(f.ValueHistogram) > analyzer.EnumMaxDistinct {
				continue
			}
			tooLong := false
			values := make([]string, 0, len(f.ValueHistogram))
			for v := range f.ValueHistogram {
				if len(v) >= analyzer.EnumMaxValueLength {
					tooLong = true
					break
				}
				values = append(values, v)
			}
			if tooLong {
				continue
			}
			name := strings.ToLower(f.Name)
			if _, ok := enums[name]; !ok {
				sort.Strings(values)
				enums[name] = values
			}
		}
	}
	return enums
}

func sortedEnumNames(enums map[string][]string) []string {
	names := make([]string, 0, len(enums))
	for name := range enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + escapeSQL(v) + "'"
	}
	return strings.Join(quoted, ", ")
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
