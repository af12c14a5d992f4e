package maple

// cache.go implements the lazy-recompute protocol spec.md §5 describes:
// "before reading a node's partial list, recompute it if the node is
// flagged outdated; after any topology mutation, flag every ancestor up
// to the root as outdated" (see Tree.MarkOutdated).
//
// Convention: Node.upper is the likelihood of everything outside this
// node's subtree, projected to the top of the branch connecting this
// node to its parent (not yet propagated across that branch). Node.mid
// and Node.total then propagate Node.upper across the remaining
// distance as needed.

// allUninformative returns a single-region N list spanning the whole
// reference, used as the "nothing here" operand when propagating a
// lone informative list through mergeEngine's existing "one side
// uninformative" case instead of a bespoke propagation routine.
func allUninformative(refLen int) *SeqRegions {
	return &SeqRegions{
		Regions: []Region{{Type: StateN, End: refLen - 1, PLengthObs2Node: -1, PLengthObs2Root: -1}},
		refLen:  refLen,
	}
}

// RefreshLowers recomputes every outdated internal node's lower list in
// post-order starting from id, returning the (possibly cached) lower
// list at id.
func (t *Tree) RefreshLowers(id int) (*SeqRegions, error) {
	n := t.Node(id)
	if n == nil {
		return nil, nil
	}
	if n.isLeaf {
		return n.lower, nil
	}
	left := n.slots[slotLeft].neighbor
	right := n.slots[slotRight].neighbor
	leftLower, err := t.RefreshLowers(left)
	if err != nil {
		return nil, err
	}
	rightLower, err := t.RefreshLowers(right)
	if err != nil {
		return nil, err
	}
	if n.lower == nil || n.outdated {
		merged, _, err := MergeLowerLower(t.cfg, t.model, t.ref, leftLower, n.slots[slotLeft].length, rightLower, n.slots[slotRight].length)
		if err != nil {
			return nil, err
		}
		n.lower = merged
	}
	return n.lower, nil
}

// RefreshUppers recomputes every node's upper list in pre-order
// starting from the root, and the total/mid lists derived from it. It
// assumes RefreshLowers has already been run over the whole tree.
func (t *Tree) RefreshUppers() error {
	if t.root < 0 {
		return nil
	}
	root := t.Node(t.root)
	total, err := TotalLHAtRoot(t.cfg, t.model, t.ref, root.lower, 0)
	if err != nil {
		return err
	}
	root.total = total
	root.outdated = false
	return t.refreshUpperSubtree(t.root)
}

func (t *Tree) refreshUpperSubtree(id int) error {
	n := t.Node(id)
	if n == nil || n.isLeaf {
		if n != nil {
			n.outdated = false
		}
		return nil
	}
	children := [2]int{n.slots[slotLeft].neighbor, n.slots[slotRight].neighbor}
	lens := [2]float64{n.slots[slotLeft].length, n.slots[slotRight].length}
	for i := 0; i < 2; i++ {
		childID := children[i]
		siblingID := children[1-i]
		child := t.Node(childID)
		sibling := t.Node(siblingID)
		if child == nil || sibling == nil {
			continue
		}
		var upper *SeqRegions
		var err error
		if id == t.root {
			upper, _, err = mergeEngine(t.cfg, t.model, t.ref, sibling.lower, lens[1-i], allUninformative(sibling.lower.refLen), 0, lowerLowerDirection)
		} else {
			upper, err = MergeUpperLower(t.cfg, t.model, t.ref, n.upper, n.slots[slotParent].length, sibling.lower, lens[1-i])
		}
		if err != nil {
			return err
		}
		child.upper = upper

		childLen := lens[i]
		childTotal, err := MergeUpperLower(t.cfg, t.model, t.ref, child.upper, childLen, child.lower, 0)
		if err != nil {
			return err
		}
		child.total = childTotal

		mid, err := MergeUpperLower(t.cfg, t.model, t.ref, child.upper, childLen/2, child.lower, childLen/2)
		if err != nil {
			return err
		}
		child.mid = mid
		child.outdated = false

		if err := t.refreshUpperSubtree(childID); err != nil {
			return err
		}
	}
	return nil
}

// RefreshAll runs RefreshLowers then RefreshUppers over the whole tree,
// the full recompute pass used before a placement-search or topology
// round (spec.md §5's correctness protocol).
func (t *Tree) RefreshAll() error {
	if t.root < 0 {
		return nil
	}
	if _, err := t.RefreshLowers(t.root); err != nil {
		return err
	}
	return t.RefreshUppers()
}
