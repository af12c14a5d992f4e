package maple

import "testing"

func TestNewLeafNodeAndNewInternalNode(t *testing.T) {
	observed := seqRegionsAllR(4)
	leaf := newLeafNode("sample1", observed)
	if !leaf.IsLeaf() || leaf.Name() != "sample1" || leaf.lower != observed {
		t.Errorf("unexpected leaf: %+v", leaf)
	}
	if leaf.ParentSlot().neighbor != -1 {
		t.Error("a fresh leaf should have no parent yet")
	}

	internal := newInternalNode()
	if internal.IsLeaf() {
		t.Error("newInternalNode should not report IsLeaf")
	}
	for i := range internal.slots {
		if internal.slots[i].neighbor != -1 || internal.slots[i].length != -1 {
			t.Errorf("fresh internal node slot %d should be empty, got %+v", i, internal.slots[i])
		}
	}
	if !internal.outdated {
		t.Error("a fresh internal node should start outdated")
	}
}

func TestNodeUIDsAreUnique(t *testing.T) {
	a := newLeafNode("a", seqRegionsAllR(1))
	b := newLeafNode("b", seqRegionsAllR(1))
	if a.UID() == b.UID() {
		t.Error("distinct nodes should get distinct ksuid identifiers")
	}
}

func TestTopSlot(t *testing.T) {
	tree, _ := newTestTree(t)
	root := tree.NewSingleton("leaf1", seqRegionsAllR(10))
	internal, leaf2, err := tree.AttachSibling(root, 0, 0.01, 0.01, "leaf2", seqRegionsAllR(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Node(internal).topSlot() != nil {
		t.Error("the root's topSlot should be nil")
	}
	if tree.Node(leaf2).topSlot() == nil {
		t.Error("a non-root node's topSlot should be non-nil")
	}
}

func TestSetSupportLabelSkipsLeaves(t *testing.T) {
	leaf := newLeafNode("tip", seqRegionsAllR(1))
	leaf.SetSupportLabel(0.5)
	if leaf.Name() != "tip" {
		t.Error("SetSupportLabel should be a no-op on leaves")
	}

	internal := newInternalNode()
	internal.SetSupportLabel(0.875)
	if internal.Name() != "0.875" {
		t.Errorf("SetSupportLabel should set the internal node's name, got %q", internal.Name())
	}
}

func TestNewickLabelLeafVsInternal(t *testing.T) {
	leaf := newLeafNode("tip1", seqRegionsAllR(1))
	leaf.slots[slotParent].length = 0.05
	label := leaf.newickLabel()
	if label != "tip1:0.05" {
		t.Errorf("leaf newickLabel() = %q, want \"tip1:0.05\"", label)
	}

	internal := newInternalNode()
	internal.SetSupportLabel(1.0)
	internal.slots[slotParent].length = 0.1
	label = internal.newickLabel()
	if label != "1.000:0.1" {
		t.Errorf("internal newickLabel() = %q, want \"1.000:0.1\"", label)
	}
}
