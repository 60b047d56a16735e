package ddl

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/leiMizzou/fdaschema/pkg/analyzer"
	"github.com/leiMizzou/fdaschema/pkg/models"
)

// WriteDatasetCSVs writes the per-dataset review artifacts next to the
// DDL: table list, field mapping, parent relationships, raw path
// statistics, and simple-array value reference. These exist so a human can
// audit the inference decisions, not for correctness of the DDL.
func (e *Emitter) WriteDatasetCSVs(dir string, analysis *models.DatasetAnalysis) error {
	prefix := analyzer.MainTableName(analysis.Dataset)
	tables := sortTablesForEmit(analysis.Tables, prefix)

	if err := writeCSV(filepath.Join(dir, prefix+"_tables.csv"), tableRows(tables)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, prefix+"_fields.csv"), fieldRows(tables, analysis.RecordsProcessed)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, prefix+"_relationships.csv"), relationshipRows(tables)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, prefix+"_paths.csv"), pathRows(analysis)); err != nil {
		return err
	}
	if len(analysis.SimpleArrays) > 0 {
		if err := writeCSV(filepath.Join(dir, prefix+"_enum_values.csv"), simpleArrayRows(analysis)); err != nil {
			return err
		}
	}

	e.logger.Info("dataset CSV artifacts written",
		zap.String("dataset", analysis.Dataset),
		zap.String("dir", dir))
	return nil
}

func tableRows(tables []*models.TableSpec) [][]string {
	rows := [][]string{{
		"table_name", "table_type", "parent_table", "field_count",
		"has_arrays", "path", "primary_keys", "unique_constraints",
	}}
	for _, t := range tables {
		rows = append(rows, []string{
			t.Name,
			string(t.Kind),
			t.Parent,
			strconv.Itoa(len(t.Fields)),
			yesNo(t.HasArrays),
			t.SourcePath,
			strings.Join(t.PrimaryKeys, ","),
			strings.Join(t.UniqueConstraints, ","),
		})
	}
	return rows
}

func fieldRows(tables []*models.TableSpec, totalRecords int) [][]string {
	rows := [][]string{{
		"table_name", "field_name", "original_path", "is_array", "is_jsonb",
		"occurrence_count", "occurrence_percent", "sample_value",
		"is_primary_key", "unique_values", "max_length", "cardinality",
	}}
	for _, t := range tables {
		for _, f := range t.Fields {
			rows = append(rows, []string{
				t.Name,
				f.Name,
				f.SourcePath,
				yesNo(f.IsArray || f.IsArrayColumn),
				yesNo(f.UseJSONB),
				strconv.Itoa(f.OccurrenceCount),
				percent(f.OccurrenceCount, totalRecords),
				f.Sample,
				yesNo(containsString(t.PrimaryKeys, f.Name)),
				strconv.Itoa(f.DistinctValueCount),
				strconv.Itoa(f.MaxLength),
				fmt.Sprintf("%.2f", f.Cardinality),
			})
		}
	}
	return rows
}

func relationshipRows(tables []*models.TableSpec) [][]string {
	rows := [][]string{{
		"child_table", "parent_table", "relationship_type",
		"foreign_key_field", "path", "description",
	}}
	for _, t := range tables {
		if t.Parent == "" {
			continue
		}
		rows = append(rows, []string{
			t.Name,
			t.Parent,
			"one-to-many",
			t.Parent + "_id",
			t.SourcePath,
			fmt.Sprintf("%s is a child table of %s", t.Name, t.Parent),
		})
	}
	return rows
}

func pathRows(analysis *models.DatasetAnalysis) [][]string {
	rows := [][]string{{
		"path", "count", "percent", "is_array", "is_object", "depth",
		"sample", "is_primary_key_candidate", "cardinality", "unique_values",
	}}

	paths := make([]*models.PathRecord, 0, len(analysis.Paths))
	for _, rec := range analysis.Paths {
		paths = append(paths, rec)
	}
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].OccurrenceCount != paths[j].OccurrenceCount {
			return paths[i].OccurrenceCount > paths[j].OccurrenceCount
		}
		return paths[i].Path < paths[j].Path
	})

	for _, rec := range paths {
		rows = append(rows, []string{
			rec.Path,
			strconv.Itoa(rec.OccurrenceCount),
			percent(rec.OccurrenceCount, analysis.RecordsProcessed),
			yesNo(rec.Kind == models.PathArray),
			yesNo(rec.Kind == models.PathObject),
			strconv.Itoa(strings.Count(rec.Path, ".")),
			rec.SampleValue,
			yesNo(rec.IsKeyCandidate),
			fmt.Sprintf("%.2f", rec.Cardinality),
			strconv.Itoa(rec.DistinctValueCount),
		})
	}
	return rows
}

// simpleArrayRows lists scalar-only arrays with their observed values and
// a singularized column name suggestion, should a reviewer promote one to
// a lookup table.
func simpleArrayRows(analysis *models.DatasetAnalysis) [][]string {
	rows := [][]string{{"path", "suggested_column", "value_count", "values"}}
	paths := make([]string, 0, len(analysis.SimpleArrays))
	for p := range analysis.SimpleArrays {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		values := analysis.SimpleArrays[p]
		leaf := p[strings.LastIndex(p, ".")+1:]
		leaf = strings.TrimSuffix(leaf, "[]")
		rows = append(rows, []string{
			p,
			analyzer.SanitizeFieldName(inflection.Singular(leaf)),
			strconv.Itoa(len(values)),
			strings.Join(values, "; "),
		})
	}
	return rows
}

// WriteRelationsCSV writes the cross-dataset relationship list sorted by
// confidence, each with its evidence, constraint SQL, and kind label.
func (e *Emitter) WriteRelationsCSV(dir string, relations []*models.RelationCandidate) error {
	rows := [][]string{{
		"primary_table", "primary_key", "foreign_table", "foreign_key",
		"confidence", "reasons", "sql_constraint", "relation_type",
	}}
	for _, rel := range relations {
		rows = append(rows, []string{
			rel.PrimaryTable,
			rel.PrimaryKey,
			rel.ForeignTable,
			rel.ForeignKey,
			fmt.Sprintf("%.2f", rel.Confidence),
			strings.Join(rel.Reasons, "; "),
			constraintSQL(rel),
			rel.Kind,
		})
	}
	return writeCSV(filepath.Join(dir, "cross_dataset_relations.csv"), rows)
}

// WriteRelationGroupsCSV aggregates relations by table pair so reviewers
// can see which dataset pairs are most strongly linked.
func (e *Emitter) WriteRelationGroupsCSV(dir string, relations []*models.RelationCandidate) error {
	type group struct {
		primary, foreign string
		rels             []*models.RelationCandidate
	}
	byPair := make(map[string]*group)
	var order []string
	for _, rel := range relations {
		key := rel.PrimaryTable + "-" + rel.ForeignTable
		g, ok := byPair[key]
		if !ok {
			g = &group{primary: rel.PrimaryTable, foreign: rel.ForeignTable}
			byPair[key] = g
			order = append(order, key)
		}
		g.rels = append(g.rels, rel)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(byPair[order[i]].rels) > len(byPair[order[j]].rels)
	})

	rows := [][]string{{
		"primary_table", "foreign_table", "relation_count",
		"avg_confidence", "max_confidence", "related_fields",
	}}
	for _, key := range order {
		g := byPair[key]
		sum, max := 0.0, 0.0
		var fields []string
		for i, rel := range g.rels {
			sum += rel.Confidence
			if rel.Confidence > max {
				max = rel.Confidence
			}
			if i < 3 {
				fields = append(fields, rel.PrimaryKey+"->"+rel.ForeignKey)
			}
		}
		rows = append(rows, []string{
			g.primary,
			g.foreign,
			strconv.Itoa(len(g.rels)),
			fmt.Sprintf("%.2f", sum/float64(len(g.rels))),
			fmt.Sprintf("%.2f", max),
			strings.Join(fields, ", "),
		})
	}
	return writeCSV(filepath.Join(dir, "relation_groups.csv"), rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func percent(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
}
