package maple

import (
	"fmt"

	"github.com/pkg/errors"
)

// Region is one entry of a genome-list: a piecewise-constant
// likelihood annotation spanning [prevEnd+1, End]. See spec.md §3.
type Region struct {
	// Type is StateR, a concrete state (0..3), StateN, StateDEL, or
	// StateO. An O region always spans exactly one position.
	Type byte
	// End is the last genome position (inclusive) covered.
	End int
	// LH is the explicit probability vector for a StateO region; nil
	// for every other region type.
	LH []float64
	// PLengthObs2Node is the branch length already baked in between the
	// last informative observation and the node carrying this list.
	// A negative value means "not applicable".
	PLengthObs2Node float64
	// PLengthObs2Root is the additional branch length across the root,
	// when the last observation sits on the other side of it.
	// Per DESIGN.md's Open Question resolution, <= 0 uniformly means
	// "no across-root observation" (the source mixed < 0 and <= 0).
	PLengthObs2Root float64
}

// sameAnnotation reports whether two regions carry identical
// (type, state/vector, plengths) — the condition under which adjacent
// regions must be merged during normalization.
func (r Region) sameAnnotation(o Region) bool {
	if r.Type != o.Type || r.PLengthObs2Node != o.PLengthObs2Node || r.PLengthObs2Root != o.PLengthObs2Root {
		return false
	}
	if r.Type != StateO {
		return true
	}
	if len(r.LH) != len(o.LH) {
		return false
	}
	for i := range r.LH {
		if r.LH[i] != o.LH[i] {
			return false
		}
	}
	return true
}

// SeqRegions is an ordered partition of [0, L) into Regions: the
// genome-list, the central data structure of the system.
type SeqRegions struct {
	Regions []Region
	refLen  int
}

// NewSeqRegions wraps a region slice that already covers [0, L).
func NewSeqRegions(regions []Region, refLen int) *SeqRegions {
	return &SeqRegions{Regions: regions, refLen: refLen}
}

// Len returns the number of genome positions this list covers.
func (sr *SeqRegions) Len() int {
	return sr.refLen
}

// Validate enforces the genome-list coverage invariant from spec.md §8:
// regions strictly increase in End, and the final one equals L-1.
func (sr *SeqRegions) Validate() error {
	last := -1
	for i, r := range sr.Regions {
		if r.End <= last {
			return errors.Wrapf(fmt.Errorf(RegionOrderError, i), "validating region list")
		}
		last = r.End
	}
	if len(sr.Regions) == 0 || last != sr.refLen-1 {
		return fmt.Errorf(RegionCoverageError, sr.refLen, last)
	}
	return nil
}

// Normalize merges adjacent regions sharing identical
// (type, state/vector, plengths), as required after every mutating
// operation (spec.md §3's Genome-list invariant).
func (sr *SeqRegions) Normalize() {
	if len(sr.Regions) == 0 {
		return
	}
	out := make([]Region, 0, len(sr.Regions))
	out = append(out, sr.Regions[0])
	for _, r := range sr.Regions[1:] {
		last := &out[len(out)-1]
		if last.sameAnnotation(r) {
			last.End = r.End
			continue
		}
		out = append(out, r)
	}
	sr.Regions = out
}

// Clone returns a deep copy; callers that hand a list to a cache slot
// must not retain the original (DESIGN NOTES §9, "Genome-list
// ownership").
func (sr *SeqRegions) Clone() *SeqRegions {
	out := make([]Region, len(sr.Regions))
	for i, r := range sr.Regions {
		out[i] = r
		if r.LH != nil {
			out[i].LH = append([]float64(nil), r.LH...)
		}
	}
	return &SeqRegions{Regions: out, refLen: sr.refLen}
}

// segment is one shared constant span produced by sharedSegments.
type segment struct {
	Start, End int
	A, B       Region
}

// sharedSegments performs the shared-segment iteration of spec.md §4.1:
// it walks two genome-lists in lock-step and invokes fn once per span on
// which both lists are constant. This is the body of every merge
// operation.
func sharedSegments(a, b *SeqRegions, fn func(seg segment) error) error {
	if a.refLen != b.refLen {
		return fmt.Errorf(MismatchedGenomeLengthError, a.refLen, b.refLen)
	}
	iA, iB := 0, 0
	start := 0
	for iA < len(a.Regions) && iB < len(b.Regions) {
		ra, rb := a.Regions[iA], b.Regions[iB]
		end := ra.End
		if rb.End < end {
			end = rb.End
		}
		if err := fn(segment{Start: start, End: end, A: ra, B: rb}); err != nil {
			return err
		}
		start = end + 1
		if ra.End == end {
			iA++
		}
		if rb.End == end {
			iB++
		}
	}
	return nil
}
