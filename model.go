package maple

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// SubstModel is the capability set shared by DNA-uniform, DNA-per-site,
// and (eventually) protein models, per DESIGN NOTES §9's "Model
// polymorphism": one interface, one implementation per model family.
type SubstModel interface {
	// NumStates returns the size of the alphabet (4 for DNA).
	NumStates() int
	// Pi returns the stationary distribution at a genome position.
	Pi(pos int) []float64
	// LogPi returns the log of Pi at a genome position.
	LogPi(pos int) []float64
	// QEntry returns Q[a][b] (a != b) at a genome position.
	QEntry(pos int, a, b byte) float64
	// Diagonal returns Q[a][a] at a genome position.
	Diagonal(pos int, a byte) float64
	// Transition returns P(b | a, t) at a genome position, using the
	// short-branch linearization spec.md §4.1 relies on: t below
	// minBlength is treated as zero, t above maxBlength saturates, and
	// the result is floored at zero.
	Transition(pos int, a, b byte, t float64) float64
	// CumulativeRate returns the integral of -Q[ref[k],ref[k]] dk over
	// [from, to), used to skip long N/R stretches in closed form.
	CumulativeRate(ref Reference, from, to int) float64
	// UpdateEmpirical rebuilds Q from observed mutation pseudocounts.
	UpdateEmpirical(counts [][]float64) error
	// ModelID distinguishes cached per-genotype fitness/likelihood
	// values computed under different models (teacher's
	// FitnessModel.ModelID pattern).
	ModelID() int
}

// baseMatrix holds one family's rate matrix and every quantity derived
// from it: Qᵀ, diag(Q), and the pairwise products πᵢπⱼQᵢⱼ / πⱼQᵀᵢⱼ.
// OptimizeBranchLength estimates its derivative by finite difference
// and does not read piQ or piQT.
type baseMatrix struct {
	n      int
	pi     []float64
	logPi  []float64
	q      [][]float64
	qT     [][]float64
	diag   []float64
	piQ    [][]float64 // piQ[i][j] = pi[i]*pi[j]*Q[i][j]
	piQT   [][]float64 // piQT[i][j] = pi[j]*Q[j][i] (= pi[j]*QT[i][j])
}

func newBaseMatrix(pi []float64, q [][]float64) (*baseMatrix, error) {
	n := len(pi)
	if len(q) != n {
		return nil, fmt.Errorf(UnequalIntParameterError, "rate matrix dimension", n, len(q))
	}
	m := &baseMatrix{n: n, pi: append([]float64(nil), pi...)}
	if err := m.recompute(q); err != nil {
		return nil, err
	}
	return m, nil
}

// recompute derives qT, diag, logPi, piQ, piQT from q. Row sums of q
// must already be (approximately) zero; callers that rebuild q must
// re-zero the diagonal before calling this.
func (m *baseMatrix) recompute(q [][]float64) error {
	n := m.n
	m.q = make([][]float64, n)
	m.qT = make([][]float64, n)
	m.diag = make([]float64, n)
	m.piQ = make([][]float64, n)
	m.piQT = make([][]float64, n)
	m.logPi = make([]float64, n)
	for i := 0; i < n; i++ {
		m.q[i] = append([]float64(nil), q[i]...)
		m.diag[i] = q[i][i]
		m.logPi[i] = math.Log(m.pi[i])
	}
	for i := 0; i < n; i++ {
		m.qT[i] = make([]float64, n)
		m.piQ[i] = make([]float64, n)
		m.piQT[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			m.qT[i][j] = m.q[j][i]
		}
	}
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			if i != j {
				sum += m.q[i][j]
			}
		}
		if math.Abs(sum+m.diag[i]) > 1e-6 {
			return fmt.Errorf(RowSumNotZeroError, i, sum+m.diag[i])
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.piQ[i][j] = m.pi[i] * m.pi[j] * m.q[i][j]
			m.piQT[i][j] = m.pi[j] * m.qT[i][j]
		}
	}
	return nil
}

// transition is the short-branch linearized transition probability used
// throughout spec.md §4.1: P(a->a|t) ≈ 1 + Q[a][a]*t, P(a->b|t) ≈
// Q[a][b]*t for a != b, with t clamped to the configured branch-length
// floor/ceiling.
func (m *baseMatrix) transition(cfg *Config, a, b byte, t float64) float64 {
	t = cfg.clampBlength(t)
	if a == b {
		p := 1 + m.diag[a]*t
		if p < 0 {
			p = 0
		}
		return p
	}
	p := m.q[a][b] * t
	if p < 0 {
		p = 0
	}
	return p
}

// NewJCMatrix builds the Jukes-Cantor rate matrix: uniform stationary
// distribution, equal exchange rates.
func NewJCMatrix() (*baseMatrix, error) {
	n := NumConcreteStates
	pi := make([]float64, n)
	for i := range pi {
		pi[i] = 1.0 / float64(n)
	}
	q := make([][]float64, n)
	rate := 1.0 / float64(n-1)
	for i := range q {
		q[i] = make([]float64, n)
		for j := range q[i] {
			if i != j {
				q[i][j] = rate
			}
		}
		q[i][i] = -1.0
	}
	return newBaseMatrix(pi, q)
}

// NewGTRMatrix builds a general time-reversible rate matrix from a
// stationary distribution and a symmetric exchangeability matrix,
// normalizing each row to sum to zero and scaling Q so the mean outflow
// Σπᵢ·(−Qᵢᵢ) is 1 (the same scale as NewJCMatrix).
func NewGTRMatrix(pi []float64, exch [][]float64) (*baseMatrix, error) {
	n := len(pi)
	q := make([][]float64, n)
	for i := range q {
		q[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		var rowSum float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			q[i][j] = exch[i][j] * pi[j]
			rowSum += q[i][j]
		}
		q[i][i] = -rowSum
	}
	var meanRate float64
	for i := 0; i < n; i++ {
		meanRate -= pi[i] * q[i][i]
	}
	if meanRate > 0 {
		for i := range q {
			for j := range q[i] {
				q[i][j] /= meanRate
			}
		}
	}
	return newBaseMatrix(pi, q)
}

// ExtractRefInfo precomputes π from reference-state frequencies, per
// spec.md §4.2; log π is derived from it by baseMatrix.recompute.
func ExtractRefInfo(ref Reference) []float64 {
	counts := make([]float64, NumConcreteStates)
	for _, s := range ref {
		if int(s) < NumConcreteStates {
			counts[s]++
		}
	}
	total := float64(ref.Len())
	if total == 0 {
		total = 1
	}
	pi := make([]float64, NumConcreteStates)
	for i, c := range counts {
		pi[i] = c / total
		if pi[i] == 0 {
			pi[i] = 1e-6 // avoid -Inf log-likelihood from an unseen base
		}
	}
	return pi
}

// cumulativeRateTable precomputes, for every reference position, the
// running integral of -Q[ref[k],ref[k]] so CumulativeRate(from,to) is an
// O(1) subtraction instead of a re-walk.
type cumulativeRateTable struct {
	prefix []float64 // prefix[i] = sum_{k<i} -Q[ref[k],ref[k]]
}

func newCumulativeRateTable(ref Reference, diagAt func(pos int, state byte) float64) *cumulativeRateTable {
	prefix := make([]float64, ref.Len()+1)
	for i := 0; i < ref.Len(); i++ {
		prefix[i+1] = prefix[i] - diagAt(i, ref.StateAt(i))
	}
	return &cumulativeRateTable{prefix: prefix}
}

func (c *cumulativeRateTable) rate(from, to int) float64 {
	if from < 0 {
		from = 0
	}
	if to > len(c.prefix)-1 {
		to = len(c.prefix) - 1
	}
	if to <= from {
		return 0
	}
	return c.prefix[to] - c.prefix[from]
}

// wrapInvariant is the single place merge/model code reaches for when a
// contract violation (spec.md §7) needs a stack-annotated error.
func wrapInvariant(err error, while string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "invariant violation while %s", while)
}
