package maple

import (
	"math"
)

// addDist extends an existing "distance since last observation" by an
// additional branch length. A negative existing distance means the
// region is a fresh anchor (spec.md §3: "-1 means not applicable").
func addDist(existing, add float64) float64 {
	if existing < 0 {
		return add
	}
	return existing + add
}

// stateVector resolves a region's likelihood contribution at a single
// genome position into a per-hypothesis-state vector, or nil if the
// region is uninformative (N/DEL) at that position. dist is the total
// branch length already baked in plus whatever new length this merge is
// adding. fromHypothesis selects the propagation direction: true walks
// Transition(pos, hypothesis, observed, dist) (the lower-likelihood
// direction, spec.md §4.1's merge_lower_lower); false walks
// Transition(pos, observed, hypothesis, dist) (the upper, root-to-leaf
// direction merge_upper_lower needs for its asymmetric propagation).
func stateVector(r Region, dist float64, pos int, ref Reference, model SubstModel, fromHypothesis bool) []float64 {
	switch r.Type {
	case StateN, StateDEL:
		return nil
	case StateR:
		return oneHotVector(ref.StateAt(pos), dist, pos, model, fromHypothesis)
	case StateO:
		return propagateVector(r.LH, dist, pos, model, fromHypothesis)
	default:
		return oneHotVector(r.Type, dist, pos, model, fromHypothesis)
	}
}

func oneHotVector(trueState byte, dist float64, pos int, model SubstModel, fromHypothesis bool) []float64 {
	n := model.NumStates()
	out := make([]float64, n)
	for x := 0; x < n; x++ {
		if fromHypothesis {
			out[x] = model.Transition(pos, byte(x), trueState, dist)
		} else {
			out[x] = model.Transition(pos, trueState, byte(x), dist)
		}
	}
	return out
}

func propagateVector(vec []float64, dist float64, pos int, model SubstModel, fromHypothesis bool) []float64 {
	n := len(vec)
	out := make([]float64, n)
	for x := 0; x < n; x++ {
		var s float64
		for c := 0; c < n; c++ {
			if fromHypothesis {
				s += model.Transition(pos, byte(x), byte(c), dist) * vec[c]
			} else {
				s += vec[c] * model.Transition(pos, byte(c), byte(x), dist)
			}
		}
		out[x] = s
	}
	return out
}

// collapse applies spec.md §4.1's numeric semantics to a combined
// (unnormalized) likelihood vector: values below thresholdProb^2 are
// clamped to zero; if the vector then collapses to a single dominant
// state (mass over 1-thresholdProb), the region degenerates to that
// concrete state (or R, if it matches the reference at pos).
func collapse(vec []float64, sum float64, thresholdProb float64, ref Reference, pos int) Region {
	if sum <= 0 {
		return Region{Type: StateN}
	}
	norm := make([]float64, len(vec))
	var maxV float64
	maxI := 0
	for i, v := range vec {
		p := v / sum
		if p < thresholdProb*thresholdProb {
			p = 0
		}
		norm[i] = p
		if p > maxV {
			maxV = p
			maxI = i
		}
	}
	if maxV > 1-thresholdProb {
		state := byte(maxI)
		if int(ref.StateAt(pos)) == maxI {
			return Region{Type: StateR}
		}
		return Region{Type: state}
	}
	return Region{Type: StateO, LH: norm}
}

// mergeDirection controls which side of the transition matrix a region
// is propagated through, letting one engine serve both merge_lower_lower
// (symmetric, both sides "toward parent") and merge_upper_lower
// (asymmetric: the upper side propagates root-to-leaf).
type mergeDirection struct {
	fromHypothesisA, fromHypothesisB bool
}

var lowerLowerDirection = mergeDirection{fromHypothesisA: true, fromHypothesisB: true}
var upperLowerDirection = mergeDirection{fromHypothesisA: false, fromHypothesisB: true}

// mergeEngine implements the shared-segment iteration body described in
// spec.md §4.1 once, parameterized by direction so both public merge
// operations reuse it.
func mergeEngine(cfg *Config, model SubstModel, ref Reference, a *SeqRegions, bA float64, b *SeqRegions, bB float64, dir mergeDirection) (*SeqRegions, float64, error) {
	var out []Region
	var logLH float64
	err := sharedSegments(a, b, func(seg segment) error {
		rA, rB := seg.A, seg.B
		aInfo := rA.Type != StateN && rA.Type != StateDEL
		bInfo := rB.Type != StateN && rB.Type != StateDEL

		switch {
		case !aInfo && !bInfo:
			out = append(out, Region{Type: StateN, End: seg.End, PLengthObs2Node: -1, PLengthObs2Root: -1})
			return nil
		case aInfo && !bInfo:
			nr := rA
			nr.End = seg.End
			nr.PLengthObs2Node = addDist(rA.PLengthObs2Node, bA)
			nr.PLengthObs2Root = -1
			if rA.LH != nil {
				nr.LH = append([]float64(nil), rA.LH...)
			}
			out = append(out, nr)
			return nil
		case !aInfo && bInfo:
			nr := rB
			nr.End = seg.End
			nr.PLengthObs2Node = addDist(rB.PLengthObs2Node, bB)
			nr.PLengthObs2Root = -1
			if rB.LH != nil {
				nr.LH = append([]float64(nil), rB.LH...)
			}
			out = append(out, nr)
			return nil
		}

		// Both sides informative. RR (or R-equivalent) runs the whole
		// segment through the closed-form cumulative-rate shortcut
		// (spec.md §4.2's "skip long N and R stretches in closed form").
		if rA.Type == StateR && rB.Type == StateR {
			distA := addDist(rA.PLengthObs2Node, bA)
			distB := addDist(rB.PLengthObs2Node, bB)
			logLH += -(distA + distB) * model.CumulativeRate(ref, seg.Start, seg.End+1)
			out = append(out, Region{Type: StateR, End: seg.End, PLengthObs2Node: -1, PLengthObs2Root: -1})
			return nil
		}

		// Mixed: walk position by position. Sequence invariants keep
		// non-R/non-N spans short, so this stays cheap in practice.
		for pos := seg.Start; pos <= seg.End; pos++ {
			distA := addDist(rA.PLengthObs2Node, bA)
			distB := addDist(rB.PLengthObs2Node, bB)
			vecA := stateVector(rA, distA, pos, ref, model, dir.fromHypothesisA)
			vecB := stateVector(rB, distB, pos, ref, model, dir.fromHypothesisB)
			n := model.NumStates()
			combined := make([]float64, n)
			var sum float64
			for x := 0; x < n; x++ {
				pA, pB := 1.0, 1.0
				if vecA != nil {
					pA = vecA[x]
				}
				if vecB != nil {
					pB = vecB[x]
				}
				combined[x] = pA * pB
				sum += combined[x]
			}
			region := collapse(combined, sum, cfg.Placement.ThresholdProb, ref, pos)
			region.End = pos
			region.PLengthObs2Node = -1
			region.PLengthObs2Root = -1
			if sum > 0 {
				logLH += math.Log(sum)
			}
			out = append(out, region)
		}
		return nil
	})
	if err != nil {
		return nil, 0, wrapInvariant(err, "merging genome-lists")
	}
	result := &SeqRegions{Regions: out, refLen: a.refLen}
	result.Normalize()
	if verr := result.Validate(); verr != nil {
		return nil, 0, wrapInvariant(verr, "normalizing merged genome-list")
	}
	return result, logLH, nil
}

// MergeLowerLower combines the lower-likelihood lists of two children at
// branch lengths bA, bB into the lower list at their parent
// (spec.md §4.1).
func MergeLowerLower(cfg *Config, model SubstModel, ref Reference, a *SeqRegions, bA float64, b *SeqRegions, bB float64) (*SeqRegions, float64, error) {
	return mergeEngine(cfg, model, ref, a, bA, b, bB, lowerLowerDirection)
}

// MergeUpperLower combines the upper list from the parent side at
// branch length bU with the lower list from the child side at bL,
// emitting the posterior state distribution for that edge position
// (spec.md §4.1).
func MergeUpperLower(cfg *Config, model SubstModel, ref Reference, u *SeqRegions, bU float64, l *SeqRegions, bL float64) (*SeqRegions, error) {
	merged, _, err := mergeEngine(cfg, model, ref, u, bU, l, bL, upperLowerDirection)
	return merged, err
}

// TotalLHAtRoot multiplies each concrete state's probability by the
// model's stationary distribution and propagates through blength,
// producing the total-likelihood list used at a node's root-ward cache
// (spec.md §4.1). N/DEL spans carry no extra information relative to pi
// and are left as N.
func TotalLHAtRoot(cfg *Config, model SubstModel, ref Reference, lower *SeqRegions, blength float64) (*SeqRegions, error) {
	out := make([]Region, 0, len(lower.Regions))
	start := 0
	for _, r := range lower.Regions {
		if r.Type == StateN || r.Type == StateDEL {
			out = append(out, Region{Type: StateN, End: r.End, PLengthObs2Node: -1, PLengthObs2Root: -1})
			start = r.End + 1
			continue
		}
		for pos := start; pos <= r.End; pos++ {
			var vec []float64
			dist := addDist(r.PLengthObs2Node, blength)
			switch r.Type {
			case StateR:
				vec = oneHotVector(ref.StateAt(pos), dist, pos, model, true)
			case StateO:
				vec = propagateVector(r.LH, dist, pos, model, true)
			default:
				vec = oneHotVector(r.Type, dist, pos, model, true)
			}
			pi := model.Pi(pos)
			n := len(vec)
			weighted := make([]float64, n)
			var sum float64
			for x := 0; x < n; x++ {
				weighted[x] = vec[x] * pi[x]
				sum += weighted[x]
			}
			region := collapse(weighted, sum, cfg.Placement.ThresholdProb, ref, pos)
			region.End = pos
			region.PLengthObs2Node = -1
			region.PLengthObs2Root = -1
			out = append(out, region)
		}
		start = r.End + 1
	}
	result := &SeqRegions{Regions: out, refLen: lower.refLen}
	result.Normalize()
	if err := result.Validate(); err != nil {
		return nil, wrapInvariant(err, "building total-likelihood list at root")
	}
	return result, nil
}
