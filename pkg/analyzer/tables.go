package analyzer

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// Table-boundary thresholds. The values are inherited behavior the rest of
// the pipeline was tuned against; treat them as part of the contract.
const (
	// DeepObjectFanoutLimit is the sibling count at or below which a
	// nested object more than three levels deep is collapsed into a JSONB
	// column instead of its own table.
	DeepObjectFanoutLimit = 5

	// NarrowObjectFanoutLimit is the sibling count at or below which a
	// deep plain-object leaf is flattened into its level-one ancestor
	// table with a prefixed column name.
	NarrowObjectFanoutLimit = 3

	// SmallTableFieldLimit is the field count at or below which a child
	// table is merged back into its parent during the optimization pass.
	SmallTableFieldLimit = 2

	// JSONBChildFieldLimit is the direct-child count at or above which an
	// object-valued field is stored as JSONB rather than scalar.
	JSONBChildFieldLimit = 5
)

// SanitizeFieldName prefixes identifiers that would be invalid or awkward
// in SQL (leading digit or underscore). Applying it twice is a no-op.
func SanitizeFieldName(name string) string {
	if name == "" {
		return name
	}
	if (name[0] >= '0' && name[0] <= '9') || name[0] == '_' {
		return "fld_" + name
	}
	return name
}

// MainTableName maps a dataset label to its main table name. The 510(k)
// dataset gets an fda_ prefix because SQL identifiers cannot start with a
// digit and the label is too recognizable to hash away.
func MainTableName(dataset string) string {
	if dataset == "k510" || dataset == "510k" {
		return "fda_k510"
	}
	return dataset
}

// deriveTableName builds a child table name from the main table name and
// the path segments below the dataset root. Deeply nested paths compress
// the middle segments into a short hash so names stay within identifier
// limits yet remain deterministic.
func deriveTableName(mainTable string, segments []string) string {
	switch len(segments) {
	case 0:
		return mainTable
	case 1:
		return mainTable + "_" + segments[0]
	case 2:
		return mainTable + "_" + segments[0] + "_" + segments[1]
	default:
		sum := md5.Sum([]byte(strings.Join(segments[:len(segments)-2], "_")))
		h := hex.EncodeToString(sum[:])[:4]
		return mainTable + "_" + h + "_" + segments[len(segments)-2] + "_" + segments[len(segments)-1]
	}
}

// tableResolver assigns every aggregated path to a table. It consumes a
// finalized DatasetAnalysis and populates its Tables map.
type tableResolver struct {
	analysis  *models.DatasetAnalysis
	mainTable string
	tables    map[string]*models.TableSpec
}

// ResolveTables decides table boundaries for the analyzed dataset:
// which paths become main-table columns, which nested objects and arrays
// spawn child tables, and which collapse into their parents. The result is
// stored on the analysis and returned.
func ResolveTables(analysis *models.DatasetAnalysis) map[string]*models.TableSpec {
	r := &tableResolver{
		analysis:  analysis,
		mainTable: MainTableName(analysis.Dataset),
		tables:    make(map[string]*models.TableSpec),
	}
	r.tables[r.mainTable] = &models.TableSpec{
		Name: r.mainTable,
		Kind: models.TableMain,
	}

	// Shallow, frequent paths first so parent tables exist before deeper
	// paths need to attach fields to them.
	sorted := make([]*models.PathRecord, 0, len(analysis.Paths))
	for _, rec := range analysis.Paths {
		sorted = append(sorted, rec)
	}
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := sorted[i].Depth(), sorted[j].Depth()
		if di != dj {
			return di < dj
		}
		if sorted[i].OccurrenceCount != sorted[j].OccurrenceCount {
			return sorted[i].OccurrenceCount > sorted[j].OccurrenceCount
		}
		return sorted[i].Path < sorted[j].Path
	})

	for _, rec := range sorted {
		// "[]"-suffixed marker paths only signal that their base path is
		// an array; the base path itself carries the column.
		if strings.HasSuffix(rec.Path, "[]") {
			continue
		}
		parts := strings.Split(rec.Path, ".")
		if len(parts) <= 2 {
			if len(parts) == 2 {
				r.addMainField(rec, parts[1])
			}
			continue
		}
		r.assignField(rec, parts)
	}

	for _, t := range r.tables {
		finalizeKeys(t)
	}
	r.optimize()

	analysis.Tables = r.tables
	return r.tables
}

func (r *tableResolver) addMainField(rec *models.PathRecord, fieldName string) {
	main := r.tables[r.mainTable]
	if rec.Kind == models.PathArray {
		main.HasArrays = true
	}
	r.addField(main, fieldName, rec)
	r.assignKeyTier(main, SanitizeFieldName(fieldName), rec)
}

// assignField routes a nested path to an array table, an object table, a
// JSONB collapse, or a flattened parent column. The branch order is fixed
// and deterministic: ambiguous paths always fall through the same way.
func (r *tableResolver) assignField(rec *models.PathRecord, parts []string) {
	path := rec.Path

	// Deep plain objects with few siblings flatten into the level-one
	// child table under a prefixed column name.
	if len(parts) > 3 && !strings.Contains(path, "[") {
		parentPath := strings.Join(parts[:len(parts)-1], ".")
		if r.directChildCount(parentPath) <= NarrowObjectFanoutLimit {
			tableName := deriveTableName(r.mainTable, parts[1:2])
			if t, ok := r.tables[tableName]; ok {
				name := strings.Join(parts[2:len(parts)-1], "_") + "_" + parts[len(parts)-1]
				r.addField(t, name, rec)
				return
			}
		}
	}

	if idx := strings.Index(path, "["); idx >= 0 {
		r.assignArrayField(rec, path[:idx], parts)
		return
	}

	r.assignObjectField(rec, parts)
}

// assignArrayField attaches a path found under an array to that array's
// child table, creating the table on first use. Nested structures inside
// array items are flattened onto the same table by leaf name.
func (r *tableResolver) assignArrayField(rec *models.PathRecord, arrayPath string, parts []string) {
	arrayParts := strings.Split(arrayPath, ".")
	if len(arrayParts) < 2 {
		return
	}

	tableName := deriveTableName(r.mainTable, arrayParts[1:])
	t, ok := r.tables[tableName]
	if !ok {
		t = &models.TableSpec{
			Name:       tableName,
			Kind:       models.TableArray,
			Parent:     r.mainTable,
			SourcePath: arrayPath,
		}
		r.tables[tableName] = t
	}

	leaf := parts[len(parts)-1]
	if idx := strings.Index(leaf, "["); idx >= 0 {
		leaf = leaf[:idx]
	}
	r.addField(t, leaf, rec)
	if rec.Kind == models.PathArray {
		t.HasArrays = true
	}
	r.assignKeyTier(t, SanitizeFieldName(leaf), rec)
}

// assignObjectField handles plain nested objects: shallow ones become (or
// reuse) a level-one object table; deeper ones either collapse into a
// JSONB column when the intermediate object is narrow, or flatten into the
// level-one table with a prefixed name.
func (r *tableResolver) assignObjectField(rec *models.PathRecord, parts []string) {
	parentObj := parts[1]
	tableName := deriveTableName(r.mainTable, parts[1:2])

	if len(parts) > 3 {
		objectPath := strings.Join(parts[:3], ".")
		if r.isObjectPath(objectPath) && r.leafDescendantCount(objectPath) <= DeepObjectFanoutLimit {
			t := r.ensureObjectTable(tableName, parentObj)
			jsonbName := SanitizeFieldName(parts[2])
			f := t.Field(jsonbName)
			if f == nil {
				f = &models.FieldSpec{
					Name:            jsonbName,
					SourcePath:      objectPath,
					OccurrenceCount: rec.OccurrenceCount,
					Sample:          "[Object with nested fields]",
					SampleKind:      models.SampleObject,
					UseJSONB:        true,
				}
				t.AddField(f)
			} else if !f.UseJSONB {
				// The object arrived earlier as a plain column; upgrade it
				// in place now that its subtree is known to collapse.
				f.UseJSONB = true
				f.Sample = "[Object with nested fields]"
				f.SampleKind = models.SampleObject
			}
			f.JSONBSubfields = append(f.JSONBSubfields, parts[len(parts)-1])
			return
		}
	}

	t := r.ensureObjectTable(tableName, parentObj)

	leaf := parts[len(parts)-1]
	if len(parts) > 3 {
		leaf = strings.Join(parts[2:len(parts)-1], "_") + "_" + leaf
	}
	r.addField(t, leaf, rec)
	if rec.Kind == models.PathArray {
		t.HasArrays = true
	}
	r.assignKeyTier(t, SanitizeFieldName(leaf), rec)
}

func (r *tableResolver) ensureObjectTable(name, parentObj string) *models.TableSpec {
	if t, ok := r.tables[name]; ok {
		return t
	}
	t := &models.TableSpec{
		Name:       name,
		Kind:       models.TableObject,
		Parent:     r.mainTable,
		SourcePath: r.analysis.Dataset + "." + parentObj,
	}
	r.tables[name] = t
	return t
}

// addField converts a path record into a column on the given table. A name
// already present is never overwritten: the shallower, more frequent path
// won the slot during the depth-ordered scan.
func (r *tableResolver) addField(t *models.TableSpec, name string, rec *models.PathRecord) {
	name = SanitizeFieldName(name)
	if t.Field(name) != nil {
		return
	}

	useJSONB := false
	if rec.Kind == models.PathObject && !isKeyword(name) {
		if r.directChildCount(rec.Path) >= JSONBChildFieldLimit {
			useJSONB = true
		}
	}

	t.AddField(&models.FieldSpec{
		Name:               name,
		SourcePath:         rec.Path,
		IsArray:            rec.Kind == models.PathArray,
		UseJSONB:           useJSONB,
		OccurrenceCount:    rec.OccurrenceCount,
		Sample:             rec.SampleValue,
		SampleKind:         rec.SampleKind,
		MaxLength:          rec.MaxLength,
		IsKeyCandidate:     rec.IsKeyCandidate,
		DistinctValueCount: rec.DistinctValueCount,
		Cardinality:        rec.Cardinality,
		ValueHistogram:     rec.ValueHistogram,
	})
}

func isKeyword(name string) bool {
	switch strings.ToLower(name) {
	case "id", "key", "code", "number":
		return true
	}
	return false
}

// directChildCount counts paths exactly one level below the given path.
func (r *tableResolver) directChildCount(path string) int {
	prefix := path + "."
	depth := strings.Count(path, ".") + 1
	n := 0
	for p := range r.analysis.Paths {
		if strings.HasPrefix(p, prefix) && strings.Count(p, ".") == depth {
			n++
		}
	}
	return n
}

// leafDescendantCount counts non-object paths anywhere below the given
// path, approximating how wide the collapsed JSONB document would be.
func (r *tableResolver) leafDescendantCount(path string) int {
	prefix := path + "."
	n := 0
	for p, rec := range r.analysis.Paths {
		if strings.HasPrefix(p, prefix) && rec.Kind != models.PathObject {
			n++
		}
	}
	return n
}

func (r *tableResolver) isObjectPath(path string) bool {
	rec, ok := r.analysis.Paths[path]
	return ok && rec.Kind == models.PathObject
}

// optimize merges trivially small child tables back into their parents: a
// non-main table with at most SmallTableFieldLimit fields and at least two
// underscore-separated name components does not justify a join. Array
// tables whose fields are all scalar become a SQL array column; other
// small tables contribute their fields under a prefixed name.
func (r *tableResolver) optimize() {
	var names []string
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := r.tables[name]
		if t.Kind == models.TableMain ||
			len(t.Fields) == 0 ||
			len(t.Fields) > SmallTableFieldLimit ||
			strings.Count(t.Name, "_") < 1 {
			continue
		}
		parent, ok := r.tables[t.Parent]
		if !ok {
			continue
		}

		lastSeg := t.Name[strings.LastIndex(t.Name, "_")+1:]

		if t.Kind == models.TableArray && noArrayFields(t) {
			maxCount := 0
			for _, f := range t.Fields {
				if f.OccurrenceCount > maxCount {
					maxCount = f.OccurrenceCount
				}
			}
			parent.AddField(&models.FieldSpec{
				Name:            lastSeg + "_array",
				SourcePath:      t.SourcePath,
				IsArray:         true,
				IsArrayColumn:   true,
				OccurrenceCount: maxCount,
				Sample:          "ARRAY[values of " + lastSeg + "]",
				SampleKind:      models.SampleArray,
				MergedFromTable: t.Name,
			})
			delete(r.tables, name)
			continue
		}

		for _, f := range t.Fields {
			copied := *f
			copied.Name = SanitizeFieldName(lastSeg + "_" + f.Name)
			copied.MergedFromTable = t.Name
			parent.AddField(&copied)
		}
		delete(r.tables, name)
	}
}

func noArrayFields(t *models.TableSpec) bool {
	for _, f := range t.Fields {
		if f.IsArray {
			return false
		}
	}
	return true
}
