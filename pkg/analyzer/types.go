package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// Enum sizing window: a field is enumerable when its capped histogram holds
// between EnumMinDistinct and EnumMaxDistinct values, all shorter than
// EnumMaxValueLength characters.
const (
	EnumMinDistinct    = 5
	EnumMaxDistinct    = 15
	EnumMaxValueLength = 50
)

// IDFieldShortLength is the max_length bound under which an id-like string
// column is sized VARCHAR(40) rather than VARCHAR(100).
const IDFieldShortLength = 40

// TypeRule is one step in the column-type decision list. Apply returns the
// column type and true when the rule claims the field; rules are evaluated
// strictly in order and the first claim wins.
type TypeRule struct {
	Name  string
	Apply func(f fieldFacts) (string, bool)
}

// fieldFacts is the evidence a rule may consult: the sanitized lower-cased
// field name plus the sampled-value statistics gathered during aggregation.
type fieldFacts struct {
	name       string
	sample     string
	sampleKind models.SampleKind
	maxLength  int
	histogram  map[string]int
	useJSONB   bool
	isArray    bool
}

// domainTypes maps well-known FDA field names to Postgres domain types
// declared ahead of the tables in the emitted DDL.
var domainTypes = map[string]string{
	"postal_code":         "postal_code_type",
	"zip_code":            "postal_code_type",
	"zip":                 "postal_code_type",
	"phone_number":        "phone_number_type",
	"phone_num":           "phone_number_type",
	"phone":               "phone_number_type",
	"product_code":        "product_code_type",
	"device_code":         "product_code_type",
	"registration_number": "registration_number_type",
	"fei_number":          "registration_number_type",
	"status_code":         "status_code_type",
	"status":              "status_code_type",
}

// longTextNames are field names that hold prose regardless of what the
// sampled value's length suggests.
var longTextNames = map[string]bool{
	"description":          true,
	"reason":               true,
	"text":                 true,
	"summary":              true,
	"notes":                true,
	"comments":             true,
	"statement":            true,
	"distribution_pattern": true,
	"reason_for_recall":    true,
	"product_description":  true,
	"remedial_action":      true,
}

var idSuffixes = []string{"_id", "_key", "_uuid", "_code", "_number"}

// TypeRules is the full decision list, in priority order. Name-based rules
// come before sample-based ones: a single sampled value is not
// statistically reliable, but naming conventions are.
var TypeRules = []TypeRule{
	{Name: "structured", Apply: func(f fieldFacts) (string, bool) {
		if f.useJSONB {
			return "JSONB", true
		}
		if f.isArray {
			return "VARCHAR[]", true
		}
		return "", false
	}},
	{Name: "domain", Apply: func(f fieldFacts) (string, bool) {
		if t, ok := domainTypes[f.name]; ok {
			return t, true
		}
		return "", false
	}},
	{Name: "long-text-name", Apply: func(f fieldFacts) (string, bool) {
		if longTextNames[f.name] {
			return "TEXT", true
		}
		return "", false
	}},
	{Name: "date-time-name", Apply: func(f fieldFacts) (string, bool) {
		if !containsAny(f.name, "date", "created", "updated", "modified", "timestamp") {
			return "", false
		}
		if strings.Contains(f.name, "time") {
			return "TIMESTAMP", true
		}
		return "DATE", true
	}},
	{Name: "boolean-flag-name", Apply: func(f fieldFacts) (string, bool) {
		if strings.HasPrefix(f.name, "is_") || strings.HasPrefix(f.name, "has_") ||
			strings.Contains(f.name, "flag") {
			return "BOOLEAN", true
		}
		return "", false
	}},
	{Name: "id-suffix", Apply: func(f fieldFacts) (string, bool) {
		if f.name != "id" && !hasAnySuffix(f.name, idSuffixes...) {
			return "", false
		}
		if _, err := strconv.Atoi(f.sample); err == nil && f.sampleKind == models.SampleInt {
			return "INTEGER", true
		}
		if f.maxLength > 0 && f.maxLength <= IDFieldShortLength {
			return fmt.Sprintf("VARCHAR(%d)", IDFieldShortLength), true
		}
		return "VARCHAR(100)", true
	}},
	{Name: "enumerable", Apply: func(f fieldFacts) (string, bool) {
		if !isEnumHistogram(f.histogram) {
			return "", false
		}
		return f.name + "_enum", true
	}},
	{Name: "sample-runtime", Apply: func(f fieldFacts) (string, bool) {
		switch f.sampleKind {
		case models.SampleInt:
			return "INTEGER", true
		case models.SampleFloat:
			return "NUMERIC(15,5)", true
		case models.SampleBool:
			return "BOOLEAN", true
		case models.SampleObject, models.SampleArray:
			return "JSONB", true
		case models.SampleString:
			return stringTypeForLength(f), true
		}
		return "", false
	}},
	{Name: "default", Apply: func(f fieldFacts) (string, bool) {
		return "VARCHAR(255)", true
	}},
}

// InferColumnType runs the decision list over a field and returns the
// chosen column type. The final default rule always claims, so the result
// is never empty.
func InferColumnType(field *models.FieldSpec) string {
	t, _ := InferColumnTypeNamed(field)
	return t
}

// InferColumnTypeNamed additionally reports which rule decided, for review
// artifacts and tests.
func InferColumnTypeNamed(field *models.FieldSpec) (string, string) {
	facts := fieldFacts{
		name:       strings.ToLower(SanitizeFieldName(field.Name)),
		sample:     field.Sample,
		sampleKind: field.SampleKind,
		maxLength:  field.MaxLength,
		histogram:  field.ValueHistogram,
		useJSONB:   field.UseJSONB,
		isArray:    field.IsArray || field.IsArrayColumn,
	}
	for _, rule := range TypeRules {
		if t, ok := rule.Apply(facts); ok {
			return t, rule.Name
		}
	}
	return "VARCHAR(255)", "default"
}

// IsEnumType reports whether an inferred column type is an enumerable
// marker that needs a CREATE TYPE / CHECK declaration ahead of the table.
func IsEnumType(columnType string) bool {
	return strings.HasSuffix(columnType, "_enum")
}

func isEnumHistogram(histogram map[string]int) bool {
	if len(histogram) < EnumMinDistinct || len(histogram) > EnumMaxDistinct {
		return false
	}
	for v := range histogram {
		if len(v) >= EnumMaxValueLength {
			return false
		}
	}
	return true
}

// stringTypeForLength sizes a string column from the observed maximum
// length with headroom, falling back to the sample's own length when no
// length statistic was gathered.
func stringTypeForLength(f fieldFacts) string {
	if f.maxLength > 0 {
		switch {
		case f.maxLength > 1000:
			return "TEXT"
		case f.maxLength > 255:
			return fmt.Sprintf("VARCHAR(%d)", minInt(1000, f.maxLength+50))
		case f.maxLength > 50:
			return fmt.Sprintf("VARCHAR(%d)", minInt(255, f.maxLength+30))
		default:
			return fmt.Sprintf("VARCHAR(%d)", minInt(100, f.maxLength+20))
		}
	}
	switch n := len(f.sample); {
	case n > 1000:
		return "TEXT"
	case n > 255:
		return "VARCHAR(1000)"
	case n > 50:
		return "VARCHAR(255)"
	default:
		return "VARCHAR(100)"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
