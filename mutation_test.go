package maple

import "testing"

func TestSequenceValidate(t *testing.T) {
	ok := Sequence{Name: "s1", Muts: []Mutation{{Type: StateA, Pos: 2, Length: 1}, {Type: StateN, Pos: 5, Length: 3}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	overlap := Sequence{Name: "s2", Muts: []Mutation{{Type: StateA, Pos: 2, Length: 1}, {Type: StateC, Pos: 2, Length: 1}}}
	if err := overlap.Validate(); err == nil {
		t.Error("expected error for overlapping/unsorted mutations")
	}

	badLength := Sequence{Name: "s3", Muts: []Mutation{{Type: StateA, Pos: 0, Length: 2}}}
	if err := badLength.Validate(); err == nil {
		t.Error("expected error for concrete mutation with length != 1")
	}
}

func TestMutationEnd(t *testing.T) {
	m := Mutation{Type: StateN, Pos: 10, Length: 5}
	if m.End() != 14 {
		t.Errorf("End() = %d, want 14", m.End())
	}
}

func TestSequenceToSeqRegions(t *testing.T) {
	ref, err := NewReferenceFromLetters("AAAAAAAAAA")
	if err != nil {
		t.Fatalf("reference build failed: %v", err)
	}
	seq := Sequence{Name: "t1", Muts: []Mutation{{Type: StateC, Pos: 3, Length: 1}, {Type: StateN, Pos: 7, Length: 2}}}
	sr, err := seq.ToSeqRegions(ref)
	if err != nil {
		t.Fatalf("ToSeqRegions failed: %v", err)
	}
	if err := sr.Validate(); err != nil {
		t.Fatalf("resulting region list invalid: %v", err)
	}
	if sr.Len() != 10 {
		t.Errorf("Len() = %d, want 10", sr.Len())
	}

	var sawC, sawN bool
	for _, r := range sr.Regions {
		if r.Type == StateC {
			sawC = true
		}
		if r.Type == StateN {
			sawN = true
		}
	}
	if !sawC || !sawN {
		t.Errorf("expected both a C region and an N region, got %+v", sr.Regions)
	}
}

func TestSequenceToSeqRegionsIUPACAmbiguityExpandsToO(t *testing.T) {
	ref, err := NewReferenceFromLetters("AAAA")
	if err != nil {
		t.Fatalf("reference build failed: %v", err)
	}
	// 'R' (A or G) is a genuine ambiguity code, so it expands to an O
	// region rather than collapsing to a single concrete state.
	seq := Sequence{Name: "t2", Muts: []Mutation{{Type: 'R', Pos: 1, Length: 1}}}
	sr, err := seq.ToSeqRegions(ref)
	if err != nil {
		t.Fatalf("ToSeqRegions failed: %v", err)
	}
	var sawO bool
	for _, r := range sr.Regions {
		if r.Type == StateO {
			sawO = true
			if len(r.LH) != NumConcreteStates {
				t.Errorf("O region LH vector has wrong length: %d", len(r.LH))
			}
		}
	}
	if !sawO {
		t.Errorf("expected an ambiguous O region, got %+v", sr.Regions)
	}
}
