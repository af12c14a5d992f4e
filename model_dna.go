package maple

// DNAModel is the uniform (non-rate-varying) substitution model: one
// rate matrix shared by every genome position. Either a Jukes-Cantor or
// a GTR matrix backs it, selected at construction time.
type DNAModel struct {
	id      int
	mat     *baseMatrix
	cumRate *cumulativeRateTable
	counts  *pseudocountAccumulator
	cfg     *Config
	since   int // placements since last empirical update
}

// NewDNAModel builds a uniform model from a reference and a model name
// ("jc" or "gtr"); for "gtr" the stationary distribution is taken from
// reference composition and exchangeabilities start uniform (equivalent
// to JC) until UpdateEmpirical reshapes them. cfg supplies the
// branch-length floor/ceiling Transition clamps against (DESIGN NOTES
// §9: configuration is an explicit value, never a package singleton).
func NewDNAModel(ref Reference, modelName string, cfg *Config) (*DNAModel, error) {
	var mat *baseMatrix
	var err error
	switch modelName {
	case "gtr":
		pi := ExtractRefInfo(ref)
		exch := make([][]float64, NumConcreteStates)
		for i := range exch {
			exch[i] = make([]float64, NumConcreteStates)
			for j := range exch[i] {
				if i != j {
					exch[i][j] = 1.0
				}
			}
		}
		mat, err = NewGTRMatrix(pi, exch)
	default:
		mat, err = NewJCMatrix()
	}
	if err != nil {
		return nil, err
	}
	m := &DNAModel{mat: mat, counts: newPseudocountAccumulator(NumConcreteStates), cfg: cfg}
	m.cumRate = newCumulativeRateTable(ref, func(pos int, state byte) float64 {
		return m.mat.diag[state]
	})
	return m, nil
}

func (m *DNAModel) NumStates() int       { return m.mat.n }
func (m *DNAModel) Pi(pos int) []float64 { return m.mat.pi }
func (m *DNAModel) LogPi(pos int) []float64 {
	return m.mat.logPi
}
func (m *DNAModel) QEntry(pos int, a, b byte) float64 { return m.mat.q[a][b] }
func (m *DNAModel) Diagonal(pos int, a byte) float64  { return m.mat.diag[a] }
func (m *DNAModel) ModelID() int                      { return m.id }
func (m *DNAModel) SetModelID(id int)                 { m.id = id }

func (m *DNAModel) Transition(pos int, a, b byte, t float64) float64 {
	return m.mat.transition(m.cfg, a, b, t)
}

func (m *DNAModel) CumulativeRate(ref Reference, from, to int) float64 {
	return m.cumRate.rate(from, to)
}

// UpdateEmpirical rebuilds Q from observed mutation counts, normalizing
// row-sums back to zero and recomputing derived matrices, per spec.md
// §4.2's update_empirical.
func (m *DNAModel) UpdateEmpirical(counts [][]float64) error {
	n := m.mat.n
	q := make([][]float64, n)
	for i := 0; i < n; i++ {
		q[i] = make([]float64, n)
		var total float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			total += counts[i][j]
		}
		if total <= 0 {
			copy(q[i], m.mat.q[i])
			continue
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			q[i][j] = counts[i][j] / total
		}
		var rowSum float64
		for j := 0; j < n; j++ {
			if i != j {
				rowSum += q[i][j]
			}
		}
		q[i][i] = -rowSum
	}
	return m.mat.recompute(q)
}

// AccumulatePseudocounts folds a newly placed sample's observed
// substitutions relative to its attachment node into the running
// pseudocount accumulator, for the next empirical update
// (spec.md §4.2's update_pseudocounts).
func (m *DNAModel) AccumulatePseudocounts(nodeRegions, sampleRegions *SeqRegions, ref Reference) error {
	return accumulatePseudocounts(m.counts, nodeRegions, sampleRegions, ref)
}

// MaybeUpdateEmpirical triggers the periodic empirical re-estimation
// from spec.md §4.3 step 2: every mutationUpdatePeriod placements.
func (m *DNAModel) MaybeUpdateEmpirical(period int) error {
	m.since++
	if m.since < period {
		return nil
	}
	m.since = 0
	return m.UpdateEmpirical(m.counts.counts)
}
