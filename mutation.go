package maple

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mutation is a single difference from the reference: a run of `Length`
// positions starting at `Pos` (0-based) carrying `Type`. Only N and DEL
// types collapse runs; concrete/IUPAC types always have Length == 1.
type Mutation struct {
	Type   byte
	Pos    int
	Length int
}

// End returns the inclusive last position covered by this mutation.
func (m Mutation) End() int {
	return m.Pos + m.Length - 1
}

// Sequence is a taxon stored as its sparse differences from the
// reference. Mutations are kept sorted by Pos with disjoint ranges;
// everything not mentioned is implicitly reference.
type Sequence struct {
	Name string
	Muts []Mutation
}

// Validate checks the sortedness/disjointness invariant from spec.md §3.
func (s Sequence) Validate() error {
	last := -1
	for _, m := range s.Muts {
		if m.Pos <= last {
			return errors.Wrapf(
				fmt.Errorf(UnsortedMutationsError, s.Name, m.Pos),
				"validating sequence %q", s.Name,
			)
		}
		if m.Type != StateN && m.Type != StateDEL && m.Length != 1 {
			return errors.Errorf("mutation of type %d at pos %d must have length 1, got %d", m.Type, m.Pos, m.Length)
		}
		last = m.End()
	}
	return nil
}

// ToSeqRegions builds the genome-list (lower-likelihood list) implied by
// this sequence's mutations against the reference, per spec.md §4.3 step
// 1. Positions not covered by any mutation become StateR regions.
func (s Sequence) ToSeqRegions(ref Reference) (*SeqRegions, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	L := ref.Len()
	regions := make([]Region, 0, len(s.Muts)*2+1)
	cursor := 0
	appendR := func(end int) {
		if end < cursor {
			return
		}
		regions = append(regions, Region{Type: StateR, End: end, PLengthObs2Node: -1, PLengthObs2Root: -1})
	}
	for _, m := range s.Muts {
		if m.Pos > cursor {
			appendR(m.Pos - 1)
		}
		switch m.Type {
		case StateN, StateDEL:
			regions = append(regions, Region{Type: m.Type, End: m.End(), PLengthObs2Node: -1, PLengthObs2Root: -1})
		case StateA, StateC, StateG, StateT:
			regions = append(regions, Region{Type: m.Type, End: m.End(), PLengthObs2Node: -1, PLengthObs2Root: -1})
		default:
			// IUPAC ambiguity character: expand to an explicit O vector
			// unless it collapses to a single concrete state.
			bits, ok := IUPACBitset(m.Type)
			if !ok {
				return nil, fmt.Errorf(InvalidIntParameterError, "mutation type", int(m.Type), "not a recognized state or IUPAC code")
			}
			vec := BitsetToVector(bits)
			if concrete, isConcrete := vectorCollapsesToState(vec); isConcrete {
				regions = append(regions, Region{Type: concrete, End: m.End(), PLengthObs2Node: -1, PLengthObs2Root: -1})
			} else {
				regions = append(regions, Region{Type: StateO, End: m.End(), LH: vec, PLengthObs2Node: -1, PLengthObs2Root: -1})
			}
		}
		cursor = m.End() + 1
	}
	if cursor <= L-1 {
		appendR(L - 1)
	}
	sr := &SeqRegions{Regions: regions, refLen: L}
	sr.Normalize()
	if err := sr.Validate(); err != nil {
		return nil, err
	}
	return sr, nil
}

// vectorCollapsesToState reports whether a probability vector has
// exactly one nonzero entry, returning that state.
func vectorCollapsesToState(v []float64) (byte, bool) {
	state := -1
	for i, p := range v {
		if p > 0 {
			if state != -1 {
				return 0, false
			}
			state = i
		}
	}
	if state == -1 {
		return 0, false
	}
	return byte(state), true
}
