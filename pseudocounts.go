package maple

// pseudocountAccumulator tracks observed pairwise substitution counts
// (reference state -> observed state) across placements, feeding the
// periodic empirical re-estimation (spec.md §4.2's
// update_pseudocounts/update_empirical pair).
type pseudocountAccumulator struct {
	n      int
	counts [][]float64
}

func newPseudocountAccumulator(n int) *pseudocountAccumulator {
	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, n)
	}
	return &pseudocountAccumulator{n: n, counts: counts}
}

func (p *pseudocountAccumulator) add(a, b byte, weight float64) {
	if int(a) >= p.n || int(b) >= p.n {
		return
	}
	p.counts[a][b] += weight
}

// accumulatePseudocounts walks the shared segments between a tree
// node's region list and a newly placed sample's region list, adding a
// pseudocount for every position where the sample disagrees with the
// node (taking R to mean the reference state at that position).
func accumulatePseudocounts(acc *pseudocountAccumulator, nodeRegions, sampleRegions *SeqRegions, ref Reference) error {
	return sharedSegments(nodeRegions, sampleRegions, func(seg segment) error {
		for pos := seg.Start; pos <= seg.End; pos++ {
			a, aOK := concreteStateAt(seg.A, ref, pos)
			b, bOK := concreteStateAt(seg.B, ref, pos)
			if !aOK || !bOK {
				continue
			}
			if a != b {
				acc.add(a, b, 1.0)
			} else {
				acc.add(a, a, 1.0)
			}
		}
		return nil
	})
}

// concreteStateAt resolves a region's state at a specific position to a
// concrete (0..3) state, treating StateR as the reference base. N, DEL,
// and O regions yield ok == false (no single concrete state to count).
func concreteStateAt(r Region, ref Reference, pos int) (byte, bool) {
	switch r.Type {
	case StateR:
		return ref.StateAt(pos), true
	case StateA, StateC, StateG, StateT:
		return r.Type, true
	default:
		return 0, false
	}
}
