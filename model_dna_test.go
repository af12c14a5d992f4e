package maple

import "testing"

func TestNewDNAModelJC(t *testing.T) {
	ref, _ := NewReferenceFromLetters("ACGTACGT")
	cfg := DefaultConfig()
	m, err := NewDNAModel(ref, "jc", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.NumStates() != NumConcreteStates {
		t.Errorf("NumStates() = %d, want %d", m.NumStates(), NumConcreteStates)
	}
	if len(m.Pi(0)) != NumConcreteStates {
		t.Errorf("Pi(0) has wrong length: %d", len(m.Pi(0)))
	}
}

func TestNewDNAModelGTRUsesReferenceComposition(t *testing.T) {
	ref, _ := NewReferenceFromLetters("AAAAAAAACGT")
	cfg := DefaultConfig()
	m, err := NewDNAModel(ref, "gtr", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Pi(0)[StateA] <= m.Pi(0)[StateC] {
		t.Errorf("A-heavy reference should give A higher stationary frequency, got %v", m.Pi(0))
	}
}

func TestDNAModelModelID(t *testing.T) {
	ref, _ := NewReferenceFromLetters("ACGT")
	m, _ := NewDNAModel(ref, "jc", DefaultConfig())
	m.SetModelID(7)
	if m.ModelID() != 7 {
		t.Errorf("ModelID() = %d, want 7", m.ModelID())
	}
}

func TestDNAModelUpdateEmpiricalRenormalizes(t *testing.T) {
	ref, _ := NewReferenceFromLetters("ACGT")
	m, _ := NewDNAModel(ref, "jc", DefaultConfig())
	counts := [][]float64{
		{0, 10, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	if err := m.UpdateEmpirical(counts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.mat.q[StateA][StateC] <= 0 {
		t.Errorf("row with all substitutions toward C should push q[A][C] positive, got %g", m.mat.q[StateA][StateC])
	}
	// Row with no observed counts should keep its prior row unchanged.
	if m.mat.q[StateG][StateA] == 0 {
		t.Error("an unobserved row should retain its prior (nonzero JC) rates")
	}
}

func TestDNAModelAccumulatePseudocountsAndMaybeUpdate(t *testing.T) {
	ref, _ := NewReferenceFromLetters("AAAA")
	m, _ := NewDNAModel(ref, "jc", DefaultConfig())

	node := NewSeqRegions([]Region{{Type: StateR, End: 3, PLengthObs2Node: -1, PLengthObs2Root: -1}}, 4)
	sample := NewSeqRegions([]Region{{Type: StateC, End: 0, PLengthObs2Node: -1, PLengthObs2Root: -1}, {Type: StateR, End: 3, PLengthObs2Node: -1, PLengthObs2Root: -1}}, 4)

	if err := m.AccumulatePseudocounts(node, sample, ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.counts.counts[StateA][StateC] == 0 {
		t.Error("expected an A->C pseudocount to be recorded")
	}

	if err := m.MaybeUpdateEmpirical(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.since != 0 {
		t.Errorf("since counter should reset after an update, got %d", m.since)
	}
}
