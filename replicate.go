package maple

import (
	"math/rand"
	"sort"
	"strings"

	rv "github.com/kentwait/randomvariate"
)

// ReplicateSet implements the branch-support estimator of spec.md
// §4.9: it runs `replicates` independent site-resampled clones of the
// pipeline's dataset (new Tree + Model per clone, no shared mutable
// state between them, matching evoepi_config.go's NumInstances /
// per-instance pattern), compares each clone's bipartitions against
// the supplied finished tree, and returns the fraction of replicates
// recovering each of that tree's internal-node clades. seed plus the
// replicate index reseeds the package's global random source
// (network.go's commented `rand.Seed(int64(seed))`, and the
// `rand.Seed(0)` idiom every *_test.go in the teacher uses) before each
// clone's resampling draw, since `github.com/kentwait/randomvariate`
// itself draws from that global source rather than an injectable
// *rand.Rand.
func ReplicateSet(cfg *Config, input Input, finished *Tree, replicates int, seed int64) (map[int]float64, error) {
	clades := cladeIndex(finished)
	support := make(map[int]float64, len(clades))

	for r := 0; r < replicates; r++ {
		tree, err := runReplica(cfg, input, seed+int64(r))
		if err != nil {
			return nil, err
		}
		seen := cladeKeys(tree)
		for key, id := range clades {
			if seen[key] {
				support[id]++
			}
		}
	}

	if replicates > 0 {
		for id := range support {
			support[id] /= float64(replicates)
		}
	}
	return support, nil
}

// ApplySupportLabels stamps each internal node's branch-support
// fraction onto its Newick label via Node.SetSupportLabel, for nodes
// with no computed support (e.g. unresolved in every replicate) the
// label is left untouched.
func ApplySupportLabels(tree *Tree, support map[int]float64) {
	for id, frac := range support {
		if n := tree.Node(id); n != nil {
			n.SetSupportLabel(frac)
		}
	}
}

// runReplica builds and runs one site-resampled clone: a fresh Config
// copy, a fresh Pipeline, and a no-op logger so concurrent or repeated
// replicate runs never race on the caller's CSV/SQLite output (DESIGN
// NOTES §9, "no shared mutable state").
func runReplica(cfg *Config, input Input, seed int64) (*Tree, error) {
	rand.Seed(seed)
	resampled := resampleInput(input)

	cfgCopy := *cfg
	p, err := NewPipeline(&cfgCopy, resampled)
	if err != nil {
		return nil, err
	}
	p.logger = nopRunLogger{}
	return p.Run()
}

// resampleInput draws a multinomial resampling of the reference's
// genome positions (a bootstrap pseudoreplicate in the classical
// phylogenetic sense, here over point mutations rather than alignment
// columns) and rebuilds every sequence keeping only the mutations that
// land on a resampled position; a mutation whose start position drew
// zero weight reverts that span to the reference for this replicate.
func resampleInput(input Input) Input {
	L := input.Reference.Len()
	probs := make([]float64, L)
	for i := range probs {
		probs[i] = 1.0 / float64(L)
	}
	counts := rv.Multinomial(L, probs)
	keep := make([]bool, L)
	for i, c := range counts {
		keep[i] = c > 0
	}

	seqs := make([]Sequence, len(input.Sequences))
	for i, s := range input.Sequences {
		muts := make([]Mutation, 0, len(s.Muts))
		for _, m := range s.Muts {
			if m.Pos < L && keep[m.Pos] {
				muts = append(muts, m)
			}
		}
		seqs[i] = Sequence{Name: s.Name, Muts: muts}
	}
	return Input{Reference: input.Reference, Sequences: seqs}
}

// cladeIndex maps every internal node's clade (its leaf names, sorted
// and joined) to that node's id.
func cladeIndex(tree *Tree) map[string]int {
	out := map[string]int{}
	if tree == nil || tree.Root() < 0 {
		return out
	}
	var walk func(id int)
	walk = func(id int) {
		n := tree.Node(id)
		if n == nil || n.isLeaf {
			return
		}
		out[cladeKey(leafNamesUnder(tree, id))] = id
		walk(n.slots[slotLeft].neighbor)
		walk(n.slots[slotRight].neighbor)
	}
	walk(tree.Root())
	return out
}

// cladeKeys returns the set of clade keys present anywhere in tree,
// for matching against another tree's cladeIndex.
func cladeKeys(tree *Tree) map[string]bool {
	out := map[string]bool{}
	if tree == nil || tree.Root() < 0 {
		return out
	}
	var walk func(id int)
	walk = func(id int) {
		n := tree.Node(id)
		if n == nil || n.isLeaf {
			return
		}
		out[cladeKey(leafNamesUnder(tree, id))] = true
		walk(n.slots[slotLeft].neighbor)
		walk(n.slots[slotRight].neighbor)
	}
	walk(tree.Root())
	return out
}

func leafNamesUnder(tree *Tree, id int) []string {
	n := tree.Node(id)
	if n == nil {
		return nil
	}
	if n.isLeaf {
		return []string{n.name}
	}
	var out []string
	out = append(out, leafNamesUnder(tree, n.slots[slotLeft].neighbor)...)
	out = append(out, leafNamesUnder(tree, n.slots[slotRight].neighbor)...)
	return out
}

func cladeKey(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// nopRunLogger discards every diagnostic event; used for the
// throwaway replicate clones ReplicateSet spins up so they never
// contend over the caller's configured RunLogger destination.
type nopRunLogger struct{}

func (nopRunLogger) SetBasePath(string) {}
func (nopRunLogger) Init() error        { return nil }
func (nopRunLogger) WritePlacements(c <-chan PlacementEvent) {
	for range c {
	}
}
func (nopRunLogger) WriteTopologyRounds(c <-chan TopologyEvent) {
	for range c {
	}
}
func (nopRunLogger) WriteRateMatrix(q [][]float64) error       { return nil }
func (nopRunLogger) WriteCountMatrix(counts [][]float64) error { return nil }
