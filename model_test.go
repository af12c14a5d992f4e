package maple

import (
	"math"
	"testing"
)

func TestNewJCMatrixRowsSumToZero(t *testing.T) {
	m, err := NewJCMatrix()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < m.n; i++ {
		var sum float64
		for j := 0; j < m.n; j++ {
			sum += m.q[i][j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("row %d sums to %g, want 0", i, sum)
		}
	}
	for _, p := range m.pi {
		if p != 0.25 {
			t.Errorf("JC stationary distribution should be uniform, got %v", m.pi)
		}
	}
}

func TestNewBaseMatrixRejectsBadDimension(t *testing.T) {
	_, err := newBaseMatrix([]float64{0.25, 0.25, 0.25, 0.25}, [][]float64{{0}})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestNewBaseMatrixRejectsNonZeroRowSum(t *testing.T) {
	pi := []float64{0.5, 0.5}
	q := [][]float64{{-1, 1}, {1, -0.5}} // row 1 sums to 0.5, not 0
	_, err := newBaseMatrix(pi, q)
	if err == nil {
		t.Error("expected row-sum-not-zero error")
	}
}

func TestNewGTRMatrixReducesToJCUnderUniformExchangeabilities(t *testing.T) {
	pi := []float64{0.25, 0.25, 0.25, 0.25}
	exch := make([][]float64, 4)
	for i := range exch {
		exch[i] = make([]float64, 4)
		for j := range exch[i] {
			if i != j {
				exch[i][j] = 1
			}
		}
	}
	gtr, err := NewGTRMatrix(pi, exch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jc, _ := NewJCMatrix()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(gtr.q[i][j]-jc.q[i][j]) > 1e-9 {
				t.Errorf("q[%d][%d] = %g, want %g (JC-equivalent)", i, j, gtr.q[i][j], jc.q[i][j])
			}
		}
	}
}

func TestBaseMatrixTransition(t *testing.T) {
	m, _ := NewJCMatrix()
	cfg := DefaultConfig()
	same := m.transition(cfg, StateA, StateA, 0.01)
	diff := m.transition(cfg, StateA, StateC, 0.01)
	if same <= diff {
		t.Errorf("same-state transition probability (%g) should exceed differing-state (%g) for small t", same, diff)
	}
	if got := m.transition(cfg, StateA, StateC, -1); got < 0 {
		t.Errorf("transition probability should never go negative, got %g", got)
	}
}

func TestExtractRefInfo(t *testing.T) {
	ref, _ := NewReferenceFromLetters("AAAACCGT")
	pi := ExtractRefInfo(ref)
	if pi[StateA] < pi[StateC] || pi[StateA] < pi[StateG] {
		t.Errorf("A is the most frequent base in the reference, expected highest pi; got %v", pi)
	}
	var total float64
	for _, p := range pi {
		total += p
	}
	if math.Abs(total-1) > 1e-6 {
		t.Errorf("pi should sum to ~1, got %g", total)
	}
}

func TestCumulativeRateTable(t *testing.T) {
	ref, _ := NewReferenceFromLetters("AAAA")
	m, _ := NewJCMatrix()
	table := newCumulativeRateTable(ref, func(pos int, state byte) float64 {
		return m.diag[state]
	})
	full := table.rate(0, 4)
	half := table.rate(0, 2)
	if full <= half {
		t.Errorf("cumulative rate over the full reference (%g) should exceed half (%g)", full, half)
	}
	if table.rate(2, 2) != 0 {
		t.Error("rate over an empty interval should be 0")
	}
}

func TestWrapInvariant(t *testing.T) {
	if wrapInvariant(nil, "doing nothing") != nil {
		t.Error("wrapInvariant(nil, ...) should return nil")
	}
	err := wrapInvariant(errTest("boom"), "merging regions")
	if err == nil {
		t.Fatal("expected a wrapped error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
