package maple

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tree is the arena-addressed phylogeny: nodes are indexed by integer
// position in a slice rather than linked by pointer, per DESIGN NOTES
// §9. root is -1 for an empty tree.
type Tree struct {
	nodes []*Node
	root  int
	cfg   *Config
	model SubstModel
	ref   Reference
}

// NewTree creates an empty arena tree over the given reference and
// substitution model.
func NewTree(cfg *Config, model SubstModel, ref Reference) *Tree {
	return &Tree{root: -1, cfg: cfg, model: model, ref: ref}
}

// alloc appends a node to the arena and assigns its index.
func (t *Tree) alloc(n *Node) int {
	n.id = len(t.nodes)
	t.nodes = append(t.nodes, n)
	return n.id
}

// Node returns the node at index id, or nil if out of range.
func (t *Tree) Node(id int) *Node {
	if id < 0 || id >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Root returns the root node's index, or -1 if the tree is empty.
func (t *Tree) Root() int { return t.root }

// NumNodes returns the number of allocated nodes, leaves and internal
// nodes combined.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// connect wires child as the neighbor in parent's slot (left/right) and
// sets child's own parent slot to point back, mirroring the two-sided
// bookkeeping the teacher's AddChild/parents pattern performs
// (sequence_tree.go) but over slot indices instead of pointer slices.
func (t *Tree) connect(parentID, slot, childID int, length float64) {
	p := t.nodes[parentID]
	c := t.nodes[childID]
	p.slots[slot].neighbor = childID
	p.slots[slot].length = length
	p.outdated = true
	c.slots[slotParent].neighbor = parentID
	c.slots[slotParent].length = length
	c.outdated = true
}

// NewSingleton creates a tree holding exactly one leaf as the root,
// the starting point for the incremental placement search
// (spec.md §4.3 step 1).
func (t *Tree) NewSingleton(name string, observed *SeqRegions) int {
	leaf := newLeafNode(name, observed)
	id := t.alloc(leaf)
	t.root = id
	return id
}

// AttachSibling places a new leaf as the sibling of target under a
// freshly created internal node, which takes target's old slot in
// target's former parent (or becomes the new root if target was the
// root). This realizes the three insertion shapes of spec.md §4.5:
// callers choose which existing slot lengths to split by passing
// upperLen/siblingLen/targetLen appropriately.
func (t *Tree) AttachSibling(targetID int, upperLen, siblingLen, targetLen float64, name string, observed *SeqRegions) (newInternal, newLeaf int, err error) {
	target := t.Node(targetID)
	if target == nil {
		return -1, -1, errors.Errorf("AttachSibling: node %d not found", targetID)
	}
	internal := newInternalNode()
	internalID := t.alloc(internal)

	leaf := newLeafNode(name, observed)
	leafID := t.alloc(leaf)

	oldParentID := target.slots[slotParent].neighbor
	if oldParentID < 0 {
		// target was the root: the new internal node becomes the root,
		// with no upper length to assign.
		t.root = internalID
	} else {
		oldParent := t.nodes[oldParentID]
		oldSlot := -1
		for i := slotLeft; i <= slotRight; i++ {
			if oldParent.slots[i].neighbor == targetID {
				oldSlot = i
				break
			}
		}
		if oldSlot < 0 {
			return -1, -1, errors.Errorf("AttachSibling: node %d is not a recognized child of %d", targetID, oldParentID)
		}
		t.connect(oldParentID, oldSlot, internalID, upperLen)
	}

	t.connect(internalID, slotLeft, targetID, targetLen)
	t.connect(internalID, slotRight, leafID, siblingLen)
	return internalID, leafID, nil
}

// reinsertInternal splices an already-allocated (and currently
// detached) internal node back into the tree above targetID, with
// movingID as the new sibling. Used by SPR regrafts, which reuse the
// vacated internal node from the prune side instead of allocating a
// fresh one (DESIGN NOTES §9's "no reference cycles, arena reuse"
// principle applied to regraft).
func (t *Tree) reinsertInternal(internalID, targetID, movingID int, upperLen, targetLen, movingLen float64) error {
	target := t.Node(targetID)
	if target == nil {
		return errors.Errorf("reinsertInternal: node %d not found", targetID)
	}

	oldParentID := target.slots[slotParent].neighbor
	if oldParentID < 0 {
		t.root = internalID
		internal := t.Node(internalID)
		internal.slots[slotParent].neighbor = -1
		internal.slots[slotParent].length = -1
	} else {
		oldParent := t.nodes[oldParentID]
		slot := -1
		for i := slotLeft; i <= slotRight; i++ {
			if oldParent.slots[i].neighbor == targetID {
				slot = i
				break
			}
		}
		if slot < 0 {
			return errors.Errorf("reinsertInternal: node %d is not a recognized child of %d", targetID, oldParentID)
		}
		t.connect(oldParentID, slot, internalID, upperLen)
	}

	t.connect(internalID, slotLeft, targetID, targetLen)
	t.connect(internalID, slotRight, movingID, movingLen)
	return nil
}

// MarkOutdated flags every node along the path from nodeID to the root
// as needing recomputation, the arena equivalent of the original's
// "outdated" propagation after a placement or SPR move.
func (t *Tree) MarkOutdated(nodeID int) {
	for id := nodeID; id >= 0; {
		n := t.nodes[id]
		n.outdated = true
		parentID := n.slots[slotParent].neighbor
		if parentID < 0 {
			break
		}
		id = parentID
	}
}

// Leaves returns the indices of every leaf node in arena order.
func (t *Tree) Leaves() []int {
	out := make([]int, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.isLeaf {
			out = append(out, n.id)
		}
	}
	return out
}

// String renders a debug Newick string for the whole tree. This is
// intentionally minimal (spec.md's external Newick writer is out of
// scope); it exists for logging and tests only.
func (t *Tree) String() string {
	if t.root < 0 {
		return ";"
	}
	return t.newickSubtree(t.root) + ";"
}

func (t *Tree) newickSubtree(id int) string {
	n := t.nodes[id]
	if n.isLeaf {
		return n.newickLabel()
	}
	left := n.slots[slotLeft].neighbor
	right := n.slots[slotRight].neighbor
	parts := make([]string, 0, 2)
	if left >= 0 {
		parts = append(parts, t.newickSubtree(left))
	}
	if right >= 0 {
		parts = append(parts, t.newickSubtree(right))
	}
	return fmt.Sprintf("(%s)%s", joinStrings(parts, ","), n.newickLabel())
}
