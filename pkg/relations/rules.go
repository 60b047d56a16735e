package relations

import (
	"regexp"
	"strings"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// fdaIDFormats are the well-known openFDA identifier shapes. A field whose
// name matches a format key and whose values match its regex is almost
// certainly that identifier.
var fdaIDFormats = map[string]*regexp.Regexp{
	"k_number":            regexp.MustCompile(`^K\d{6,}$`),
	"pma_number":          regexp.MustCompile(`^P\d{6,}$`),
	"regulation_number":   regexp.MustCompile(`^\d{3}\.\d{4}$`),
	"registration_number": regexp.MustCompile(`^\d{7,10}$`),
	"product_code":        regexp.MustCompile(`^[A-Z]{3}$`),
	"fei_number":          regexp.MustCompile(`^\d{7,10}$`),
}

// knownRelation is a hand-maintained FDA reference relationship, injected
// whenever both of its datasets were analyzed.
type knownRelation struct {
	primary    string
	primaryKey string
	foreign    string
	foreignKey string
	confidence float64
}

var knownRelations = []knownRelation{
	{"registrationlisting", "registration_number", "pma", "registration_number", 0.9},
	{"registrationlisting", "registration_number", "k510", "registration_number", 0.9},

	{"classification", "regulation_number", "pma", "regulation_number", 0.95},
	{"classification", "regulation_number", "k510", "regulation_number", 0.95},
	{"classification", "regulation_number", "udi", "regulation_number", 0.9},

	{"pma", "pma_number", "recall", "pma_number", 0.9},
	{"k510", "k_number", "recall", "k_number", 0.9},

	{"udi", "public_device_record_key", "event", "device_report_product_code", 0.7},
}

// processStage is one step of the FDA device lifecycle. Stages are ordered
// by how a device moves through the regulatory process; identifiers tend
// to flow forward along this order.
type processStage struct {
	dataset string
	label   string
}

var processStages = []processStage{
	{"registrationlisting", "registration and listing"},
	{"classification", "device classification"},
	{"k510", "510(k) submission"},
	{"pma", "PMA approval"},
	{"udi", "UDI identification"},
	{"event", "adverse event"},
	{"recall", "recall"},
}

// StageRelationConfidence is assigned to relations proposed purely from an
// identically named id field shared by two process stages.
const StageRelationConfidence = 0.75

// RelationKindLabel classifies a relation by what its key names say about
// it, for the review CSVs.
func RelationKindLabel(rel *models.RelationCandidate) string {
	pk := strings.TrimPrefix(strings.ToLower(rel.PrimaryKey), "fld_")
	fk := strings.TrimPrefix(strings.ToLower(rel.ForeignKey), "fld_")

	if pk == fk {
		switch {
		case pk == "id" || strings.HasSuffix(pk, "_id"):
			return "standard id"
		case strings.HasSuffix(pk, "_number"):
			return "number"
		case strings.HasSuffix(pk, "_code"):
			return "code"
		}
	}

	switch {
	case strings.Contains(pk, "regulation") || strings.Contains(fk, "regulation"):
		return "regulation"
	case strings.Contains(pk, "pma") || strings.Contains(fk, "pma"):
		return "pma"
	case strings.Contains(pk, "k_number") || strings.Contains(fk, "k_number") ||
		strings.Contains(pk, "k510") || strings.Contains(fk, "k510"):
		return "510k"
	case strings.Contains(pk, "registration") || strings.Contains(fk, "registration"):
		return "registration"
	case strings.Contains(pk, "product") || strings.Contains(fk, "product"):
		return "product"
	}
	return "general"
}
