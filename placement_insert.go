package maple

// InsertPlacement splices a new taxon into the tree at the site found
// by SeekPlacement, realizing the three shapes of spec.md §4.5: at an
// existing node, mid-branch, or promoting a new root. It returns the
// id of the newly created leaf, or -1 if the sample merged into an
// existing node's less-informative-sequence list without adding a
// node (the "no-placement-found" path of spec.md §7).
func (t *Tree) InsertPlacement(name string, observed *SeqRegions, p Placement, defaultBlength float64) (int, error) {
	target := t.Node(p.Node)
	if target == nil {
		return -1, nil
	}

	if mergedEqual(observed, target.lower) {
		target.lessInfo = append(target.lessInfo, name)
		return -1, nil
	}

	if p.IsMidBranch {
		return t.insertMidBranch(p.Node, name, observed, defaultBlength)
	}
	return t.insertAtNode(p.Node, name, observed, defaultBlength)
}

// mergedEqual reports whether two region lists carry the same
// annotation sequence, the zero-added-information test spec.md §4.5
// uses to route a sample into less_info_seqs instead of a new node.
func mergedEqual(a, b *SeqRegions) bool {
	if a == nil || b == nil {
		return false
	}
	if len(a.Regions) != len(b.Regions) || a.refLen != b.refLen {
		return false
	}
	for i := range a.Regions {
		ra, rb := a.Regions[i], b.Regions[i]
		if ra.Type != rb.Type || ra.End != rb.End {
			return false
		}
		if ra.Type == StateO {
			if len(ra.LH) != len(rb.LH) {
				return false
			}
			for j := range ra.LH {
				if ra.LH[j] != rb.LH[j] {
					return false
				}
			}
		}
	}
	return true
}

// insertAtNode attaches the new leaf as a sibling of target under a
// fresh internal node, splitting target's old parent-branch length
// evenly between the new internal node's upper edge and target's own
// remaining edge.
func (t *Tree) insertAtNode(targetID int, name string, observed *SeqRegions, defaultBlength float64) (int, error) {
	target := t.Node(targetID)
	oldLen := target.slots[slotParent].length
	var upperLen, targetLen float64
	if oldLen < 0 {
		upperLen, targetLen = -1, defaultBlength
	} else {
		upperLen, targetLen = oldLen/2, oldLen/2
	}
	_, leafID, err := t.AttachSibling(targetID, upperLen, defaultBlength, targetLen, name, observed)
	if err != nil {
		return -1, err
	}
	t.MarkOutdated(leafID)
	return leafID, nil
}

// insertMidBranch splits the edge above target at its midpoint
// (spec.md §4.5's closed-form split is approximated here by the even
// split the mid-branch cache already uses) and inserts a new internal
// node carrying the new leaf as a sibling of target.
func (t *Tree) insertMidBranch(targetID int, name string, observed *SeqRegions, defaultBlength float64) (int, error) {
	target := t.Node(targetID)
	full := target.slots[slotParent].length
	if full < 0 {
		full = defaultBlength
	}
	half := full / 2
	_, leafID, err := t.AttachSibling(targetID, half, defaultBlength, half, name, observed)
	if err != nil {
		return -1, err
	}
	t.MarkOutdated(leafID)
	return leafID, nil
}
