package maple

import "testing"

func TestMergedEqual(t *testing.T) {
	a := seqRegionsAllR(10)
	b := seqRegionsAllR(10)
	if !mergedEqual(a, b) {
		t.Error("two identical all-R region lists should compare equal")
	}

	c := NewSeqRegions([]Region{
		{Type: StateC, End: 0, PLengthObs2Node: -1, PLengthObs2Root: -1},
		{Type: StateR, End: 9, PLengthObs2Node: -1, PLengthObs2Root: -1},
	}, 10)
	if mergedEqual(a, c) {
		t.Error("differing region lists should not compare equal")
	}

	if mergedEqual(nil, b) {
		t.Error("a nil operand should never compare equal")
	}
}

func TestInsertPlacementAtNodeCreatesNewLeaf(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	if err := tree.RefreshAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	differing := NewSeqRegions([]Region{
		{Type: StateC, End: 0, PLengthObs2Node: -1, PLengthObs2Root: -1},
		{Type: StateR, End: 9, PLengthObs2Node: -1, PLengthObs2Root: -1},
	}, 10)
	p := Placement{Node: root, IsMidBranch: false, Found: true}

	newID, err := tree.InsertPlacement("leaf2", differing, p, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newID < 0 {
		t.Fatal("expected a newly created leaf id")
	}
	n := tree.Node(newID)
	if !n.IsLeaf() || n.Name() != "leaf2" {
		t.Errorf("unexpected new node: %+v", n)
	}
	if tree.NumNodes() != 3 {
		t.Errorf("NumNodes() = %d, want 3 (original leaf + new internal + new leaf)", tree.NumNodes())
	}
}

func TestInsertPlacementMergesZeroInformationIntoLessInfo(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	if err := tree.RefreshAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identical := seqRegionsAllR(10)
	p := Placement{Node: root, Found: true}

	newID, err := tree.InsertPlacement("dup", identical, p, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newID != -1 {
		t.Errorf("identical sequence should not create a new node, got id %d", newID)
	}
	if len(tree.Node(root).LessInfoSeqs()) != 1 || tree.Node(root).LessInfoSeqs()[0] != "dup" {
		t.Errorf("expected \"dup\" recorded in less-info list, got %v", tree.Node(root).LessInfoSeqs())
	}
}

func TestInsertPlacementMidBranch(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	internal, leaf2, err := tree.AttachSibling(root, 0, 0.04, 0.04, "leaf2", seqRegionsAllR(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tree.RefreshAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	differing := NewSeqRegions([]Region{
		{Type: StateC, End: 0, PLengthObs2Node: -1, PLengthObs2Root: -1},
		{Type: StateR, End: 9, PLengthObs2Node: -1, PLengthObs2Root: -1},
	}, 10)
	p := Placement{Node: leaf2, IsMidBranch: true, Found: true}
	newID, err := tree.InsertPlacement("leaf3", differing, p, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newID < 0 {
		t.Fatal("expected a newly created leaf id")
	}
	// leaf2's old parent was `internal`; after a mid-branch split, leaf2's
	// parent should be a fresh internal node, not `internal` directly.
	if tree.Node(leaf2).slots[slotParent].neighbor == internal {
		t.Error("mid-branch insertion should splice a new internal node above the target")
	}
}
