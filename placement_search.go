package maple

import (
	"math"

	rv "github.com/kentwait/randomvariate"
)

// Placement describes the best attachment site found for a candidate
// taxon's lower-likelihood list (spec.md §4.4).
type Placement struct {
	Node        int
	IsMidBranch bool
	LHDiff      float64
	UpLHDiff    float64
	DownLHDiff  float64
	BestChild   int
	Found       bool
}

// SeekPlacement performs the best-first search of spec.md §4.4: starting
// at the root, at each visited node it compares attaching s at that
// node's total-likelihood list (distance defaultBlength) against
// attaching at the node's mid-branch list, keeping the best score seen.
// A path is abandoned once its local improvement trails the current
// best by more than threshold_prob for failure_limit_sample consecutive
// attempts (or on the first failure, if strictStop is set).
func (t *Tree) SeekPlacement(s *SeqRegions, defaultBlength float64) (Placement, error) {
	best := Placement{Node: -1, BestChild: -1, LHDiff: math.Inf(-1)}
	if t.root < 0 {
		return best, nil
	}
	if err := t.seekPlacementAt(t.root, s, defaultBlength, &best, 0); err != nil {
		return Placement{}, err
	}
	best.Found = best.Node >= 0
	return best, nil
}

// acceptCandidate reports whether a newly scored site should replace
// the current best: strictly better always wins; a near-tie (within
// threshold_prob) is broken with a coin flip rather than always
// favoring whichever site was visited first, the same
// rv.Binomial(1, p)-as-coin-flip idiom spreader.go uses to decide
// transmission.
func (t *Tree) acceptCandidate(candidateLH, bestLH float64) bool {
	if candidateLH > bestLH {
		return true
	}
	if bestLH == math.Inf(-1) {
		return candidateLH > bestLH
	}
	if bestLH-candidateLH <= t.cfg.Placement.ThresholdProb {
		return rv.Binomial(1, 0.5) == 1.0
	}
	return false
}

func (t *Tree) seekPlacementAt(nodeID int, s *SeqRegions, defaultBlength float64, best *Placement, failures int) error {
	n := t.Node(nodeID)
	if n == nil {
		return nil
	}

	if n.total != nil {
		_, nodeLH, err := MergeLowerLower(t.cfg, t.model, t.ref, s, defaultBlength, n.total, 0)
		if err != nil {
			return err
		}
		if t.acceptCandidate(nodeLH, best.LHDiff) {
			best.LHDiff = nodeLH
			best.Node = nodeID
			best.IsMidBranch = false
		} else if nodeLH < best.LHDiff-t.cfg.Placement.ThresholdProb {
			failures++
		}
	}

	if n.mid != nil {
		_, midLH, err := MergeLowerLower(t.cfg, t.model, t.ref, s, defaultBlength, n.mid, 0)
		if err == nil && t.acceptCandidate(midLH, best.LHDiff) {
			best.LHDiff = midLH
			best.Node = nodeID
			best.IsMidBranch = true
		}
	}

	if t.cfg.Placement.StrictStopSeekingPlacementSample && failures > 0 {
		return nil
	}
	if failures >= t.cfg.Placement.FailureLimitSample {
		return nil
	}

	if n.isLeaf {
		return nil
	}
	left := n.slots[slotLeft].neighbor
	right := n.slots[slotRight].neighbor
	if left >= 0 {
		if err := t.seekPlacementAt(left, s, defaultBlength, best, failures); err != nil {
			return err
		}
	}
	if right >= 0 {
		if err := t.seekPlacementAt(right, s, defaultBlength, best, failures); err != nil {
			return err
		}
	}
	return nil
}
