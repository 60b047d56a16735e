package ddl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leiMizzou/fdaschema/pkg/models"
)

// GraphConfidenceFloor filters the relation graph to relations worth
// drawing; weaker ones only clutter the picture.
const GraphConfidenceFloor = 0.7

// RelationGraphDOT renders the cross-dataset relations as a Graphviz
// digraph, edges colored by confidence band.
func RelationGraphDOT(relations []*models.RelationCandidate) string {
	var kept []*models.RelationCandidate
	for _, rel := range relations {
		if rel.Confidence >= GraphConfidenceFloor {
			kept = append(kept, rel)
		}
	}

	var b strings.Builder
	b.WriteString("digraph fda_relations {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fillcolor=lightblue];\n")

	nodes := make(map[string]bool)
	for _, rel := range kept {
		nodes[rel.PrimaryTable] = true
		nodes[rel.ForeignTable] = true
	}
	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "  %q [label=%q];\n", n, n)
	}

	for _, rel := range kept {
		attrs := fmt.Sprintf("label=%q, penwidth=%.2f",
			rel.ForeignKey+"->"+rel.PrimaryKey, rel.Confidence+0.5)
		switch {
		case rel.Confidence >= 0.9:
			attrs += ", color=darkgreen"
		case rel.Confidence >= 0.8:
			attrs += ", color=green"
		default:
			attrs += ", color=blue"
		}
		fmt.Fprintf(&b, "  %q -> %q [%s];\n", rel.ForeignTable, rel.PrimaryTable, attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
