package maple

// OptimizeTopology runs the SPR-style local rearrangement loop of
// spec.md §4.6: up to NumTreeImprovement outer rounds, each marking the
// whole tree outdated, attempting a regraft for every non-root node,
// and repeating narrower sub-rounds over only the nodes touched by
// accepted moves until a sub-round's improvement falls below
// thresh_entire_tree_improvement.
func (t *Tree) OptimizeTopology(shortRange bool) (float64, error) {
	var totalImprovement float64
	radius := -1
	if shortRange {
		radius = t.cfg.Topology.ShortRangeRadius
	}
	failureLimit := t.cfg.Topology.FailureLimitSubtree
	if shortRange {
		failureLimit = t.cfg.Topology.FailureLimitSubtreeShort
	}

	for round := 0; round < t.cfg.Topology.NumTreeImprovement; round++ {
		for _, n := range t.nodes {
			n.outdated = true
		}
		if err := t.RefreshAll(); err != nil {
			return totalImprovement, err
		}

		roundImprovement, touched, err := t.improveEntireTree(radius, failureLimit)
		if err != nil {
			return totalImprovement, err
		}
		totalImprovement += roundImprovement

		for sub := 0; sub < 20 && len(touched) > 0; sub++ {
			if err := t.RefreshAll(); err != nil {
				return totalImprovement, err
			}
			subImprovement, nextTouched, err := t.improveNodes(touched, radius, failureLimit)
			if err != nil {
				return totalImprovement, err
			}
			totalImprovement += subImprovement
			if subImprovement < t.cfg.Topology.ThreshEntireTreeImprovement {
				break
			}
			touched = nextTouched
		}

		if roundImprovement < t.cfg.Topology.ThreshEntireTreeImprovement {
			break
		}
	}
	return totalImprovement, nil
}

// improveEntireTree attempts a regraft for every node in post-order.
func (t *Tree) improveEntireTree(radius, failureLimit int) (float64, []int, error) {
	ids := make([]int, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.id != t.root {
			ids = append(ids, n.id)
		}
	}
	return t.improveNodes(ids, radius, failureLimit)
}

// improveNodes attempts to detach and regraft each listed node, per
// spec.md §4.6 step 2/3. It returns the total accepted log-likelihood
// improvement and the set of nodes touched by accepted moves (for the
// following sub-round).
func (t *Tree) improveNodes(ids []int, radius, failureLimit int) (float64, []int, error) {
	var improvement float64
	touched := make([]int, 0)
	for _, id := range ids {
		n := t.Node(id)
		if n == nil || n.id == t.root {
			continue
		}
		parentID := n.slots[slotParent].neighbor
		if parentID < 0 {
			continue
		}
		applied, delta, err := t.tryRegraft(id, radius, failureLimit)
		if err != nil {
			return improvement, touched, err
		}
		if applied {
			improvement += delta
			touched = append(touched, id, parentID)
		}
	}
	return improvement, touched, nil
}

// tryRegraft searches for a better attachment for the subtree rooted
// at nodeID by reusing the placement search of §4.4 against candidate
// sites elsewhere in the tree, limited to radius when >=0 (short-range
// mode); unlimited when radius<0. It accepts the best improving move
// found, if any exceeds threshold_prob.
func (t *Tree) tryRegraft(nodeID, radius, failureLimit int) (bool, float64, error) {
	n := t.Node(nodeID)
	var subtreeLower *SeqRegions
	if n.isLeaf {
		subtreeLower = n.observed
	} else {
		subtreeLower = n.lower
	}
	if subtreeLower == nil {
		return false, 0, nil
	}

	parentID := n.slots[slotParent].neighbor
	currentLH, err := t.placementScoreAt(parentID, subtreeLower)
	if err != nil {
		return false, 0, err
	}

	candidates := t.candidateSites(nodeID, radius)
	bestID := -1
	var bestLH float64
	failures := 0
	for _, cand := range candidates {
		lh, err := t.placementScoreAt(cand, subtreeLower)
		if err != nil {
			return false, 0, err
		}
		if bestID < 0 || lh > bestLH {
			bestID = cand
			bestLH = lh
			failures = 0
		} else {
			failures++
			if failures >= failureLimit {
				break
			}
		}
	}

	if bestID < 0 || bestLH <= currentLH+t.cfg.Placement.ThresholdProb {
		return false, 0, nil
	}
	if err := t.regraft(nodeID, bestID); err != nil {
		return false, 0, err
	}
	return true, bestLH - currentLH, nil
}

// placementScoreAt scores attaching subtreeLower at node targetID's
// total-likelihood cache, the same scoring §4.4 uses.
func (t *Tree) placementScoreAt(targetID int, subtreeLower *SeqRegions) (float64, error) {
	target := t.Node(targetID)
	if target == nil || target.total == nil {
		return 0, nil
	}
	_, lh, err := MergeLowerLower(t.cfg, t.model, t.ref, subtreeLower, t.cfg.Placement.DefaultBlength, target.total, 0)
	return lh, err
}

// candidateSites lists regraft candidates for nodeID: every other node
// in the tree, excluding nodeID's own subtree, within radius steps of
// nodeID's parent when radius>=0.
func (t *Tree) candidateSites(nodeID, radius int) []int {
	excluded := t.subtreeSet(nodeID)
	parentID := t.Node(nodeID).slots[slotParent].neighbor
	var out []int
	if radius < 0 {
		for _, n := range t.nodes {
			if !excluded[n.id] && n.id != parentID {
				out = append(out, n.id)
			}
		}
		return out
	}
	visited := map[int]bool{parentID: true}
	frontier := []int{parentID}
	for step := 0; step < radius && len(frontier) > 0; step++ {
		next := make([]int, 0)
		for _, id := range frontier {
			for _, neigh := range t.neighbors(id) {
				if !visited[neigh] && !excluded[neigh] {
					visited[neigh] = true
					out = append(out, neigh)
					next = append(next, neigh)
				}
			}
		}
		frontier = next
	}
	return out
}

// neighbors returns every node directly connected to id (parent and,
// for internal nodes, both children).
func (t *Tree) neighbors(id int) []int {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	out := make([]int, 0, 3)
	if n.slots[slotParent].neighbor >= 0 {
		out = append(out, n.slots[slotParent].neighbor)
	}
	if !n.isLeaf {
		if n.slots[slotLeft].neighbor >= 0 {
			out = append(out, n.slots[slotLeft].neighbor)
		}
		if n.slots[slotRight].neighbor >= 0 {
			out = append(out, n.slots[slotRight].neighbor)
		}
	}
	return out
}

// subtreeSet returns the set of node ids in the subtree rooted at id,
// inclusive, used to mask the regraft candidate search as the "rest of
// the tree" backbone spec.md §4.6 describes.
func (t *Tree) subtreeSet(id int) map[int]bool {
	set := map[int]bool{}
	var walk func(int)
	walk = func(cur int) {
		n := t.Node(cur)
		if n == nil || set[cur] {
			return
		}
		set[cur] = true
		if !n.isLeaf {
			walk(n.slots[slotLeft].neighbor)
			walk(n.slots[slotRight].neighbor)
		}
	}
	walk(id)
	return set
}

// regraft detaches nodeID (and its subtree) from its current position
// and reattaches it as a sibling of newParentID, splicing out the
// vacated internal node so the tree stays strictly bifurcating.
func (t *Tree) regraft(nodeID, newParentID int) error {
	node := t.Node(nodeID)
	oldParentID := node.slots[slotParent].neighbor
	oldParent := t.Node(oldParentID)

	var siblingID int
	if oldParent.slots[slotLeft].neighbor == nodeID {
		siblingID = oldParent.slots[slotRight].neighbor
	} else {
		siblingID = oldParent.slots[slotLeft].neighbor
	}
	sibling := t.Node(siblingID)
	siblingLen := sibling.slots[slotParent].length

	grandParentID := oldParent.slots[slotParent].neighbor
	if grandParentID < 0 {
		t.root = siblingID
		sibling.slots[slotParent].neighbor = -1
		sibling.slots[slotParent].length = -1
	} else {
		grandParent := t.Node(grandParentID)
		slot := childSlotOf(grandParent, oldParentID)
		oldParentLen := oldParent.slots[slotParent].length
		t.connect(grandParentID, slot, siblingID, oldParentLen+siblingLen)
	}

	half := t.cfg.Placement.DefaultBlength
	if err := t.reinsertInternal(oldParentID, newParentID, nodeID, half, half, half); err != nil {
		return err
	}
	t.MarkOutdated(nodeID)
	t.MarkOutdated(siblingID)
	return nil
}
