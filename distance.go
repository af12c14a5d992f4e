package maple

import "sort"

// SequenceDistance computes a sequence's distance-to-reference, used to
// order taxa before incremental tree building (spec.md §4.3): the sum
// over mutations of length * w(type), where concrete and O mutations
// weigh 1 per position and N/DEL mutations weigh length + hammingWeight
// per position, so a run of length ℓ contributes ℓ*(ℓ+hammingWeight).
func SequenceDistance(s Sequence, hammingWeight float64) float64 {
	var total float64
	for _, m := range s.Muts {
		switch m.Type {
		case StateN, StateDEL:
			total += float64(m.Length) * (float64(m.Length) + hammingWeight)
		default:
			total += float64(m.Length)
		}
	}
	return total
}

// OrderForInitialTree sorts sequences by descending distance-to-
// reference so the most informative sequences anchor the tree first
// (spec.md §4.3). It returns a new slice; seqs is left untouched.
func OrderForInitialTree(seqs []Sequence, hammingWeight float64) []Sequence {
	type ranked struct {
		seq  Sequence
		dist float64
	}
	out := make([]ranked, len(seqs))
	for i, s := range seqs {
		out[i] = ranked{seq: s, dist: SequenceDistance(s, hammingWeight)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dist > out[j].dist })
	result := make([]Sequence, len(out))
	for i, r := range out {
		result[i] = r.seq
	}
	return result
}
