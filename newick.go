package maple

import (
	"strconv"
	"strings"
)

// formatNewickLeaf and formatNewickInternal are the small rendering
// helpers Tree.String uses; a full Newick reader/writer is an external
// collaborator's responsibility (spec.md §1 Non-goals).
func formatNewickLeaf(name string, length float64) string {
	return name + ":" + strconv.FormatFloat(length, 'g', -1, 64)
}

func formatNewickInternal(label string, length float64) string {
	return label + ":" + strconv.FormatFloat(length, 'g', -1, 64)
}

func joinStrings(parts []string, sep string) string {
	return strings.Join(parts, sep)
}
