package maple

import (
	"strconv"

	"github.com/segmentio/ksuid"
)

// branchSlot is one edge endpoint in a node's triangle of neighbors
// (DESIGN NOTES §9: the arena redesign of the original's circular
// next/neighbor mini-node links). neighbor is -1 when the slot is
// unused (leaves only use slotParent; the root's slotParent is -1).
// length is -1 when unset (no branch yet).
type branchSlot struct {
	neighbor int
	length   float64
}

const (
	slotParent = 0
	slotLeft   = 1
	slotRight  = 2
)

// Node is one vertex of the arena tree: an internal node holds up to
// three slots (parent, left child, right child); a leaf holds only
// slotParent and carries its own observed genome-list directly. Cached
// likelihood lists live on the node rather than per-slot (DESIGN NOTES
// §9: "outdated propagation [as] a simple walk of parent indices"):
// lower is the subtree likelihood below this node (or the per-leaf
// observed list projected through zero length), upper is the
// likelihood of everything outside this node's subtree, total is the
// posterior state distribution at this node, and mid is the
// upper×lower merge at the midpoint of the branch to this node's
// parent, used for mid-branch placement evaluation (§4.4/§4.5).
type Node struct {
	id     int
	segID  ksuid.KSUID
	name   string
	isLeaf bool
	slots  [3]branchSlot

	observed *SeqRegions // leaves only: the sample's own region list
	lessInfo []string    // names merged here with zero added information (§4.5)

	lower *SeqRegions
	upper *SeqRegions
	total *SeqRegions
	mid   *SeqRegions

	outdated bool
}

// newInternalNode allocates an internal node with all slots empty.
func newInternalNode() *Node {
	n := &Node{segID: ksuid.New(), outdated: true}
	for i := range n.slots {
		n.slots[i].neighbor = -1
		n.slots[i].length = -1
	}
	return n
}

// newLeafNode allocates a leaf carrying the sample's observed regions.
func newLeafNode(name string, observed *SeqRegions) *Node {
	n := &Node{segID: ksuid.New(), name: name, isLeaf: true, observed: observed, lower: observed, outdated: true}
	n.slots[slotParent].neighbor = -1
	n.slots[slotParent].length = -1
	return n
}

// UID returns the node's externally visible identifier, used only for
// diagnostics and logging, never for tree addressing
// (spec.md §3 / DESIGN NOTES §9).
func (n *Node) UID() ksuid.KSUID { return n.segID }

// ID returns the node's arena index.
func (n *Node) ID() int { return n.id }

// IsLeaf reports whether this node is a sample tip.
func (n *Node) IsLeaf() bool { return n.isLeaf }

// Name returns the leaf's sample name, or "" for internal nodes.
func (n *Node) Name() string { return n.name }

// LessInfoSeqs returns the names of samples that merged into this node
// without adding information, the polytomy-avoidance list from
// spec.md §4.5.
func (n *Node) LessInfoSeqs() []string { return n.lessInfo }

// ParentSlot returns the parent-side slot, present on every node except
// the root.
func (n *Node) ParentSlot() *branchSlot { return &n.slots[slotParent] }

// BranchLength returns the length of the branch connecting this node
// to its parent, or -1 for the root.
func (n *Node) BranchLength() float64 { return n.slots[slotParent].length }

// childSlots returns the two child-side slots for an internal node.
func (n *Node) childSlots() [2]*branchSlot {
	return [2]*branchSlot{&n.slots[slotLeft], &n.slots[slotRight]}
}

// topSlot finds the slot on n that points back toward its parent: for
// an internal node this is slotParent unless n is the root, in which
// case neither slot points "up" and topSlot returns nil. This replaces
// the original's getTopNode circular-neighbor walk (original_source's
// tree/node.cpp) with a direct index lookup
// (SPEC_FULL.md "SUPPLEMENTED FEATURES").
func (n *Node) topSlot() *branchSlot {
	if n.slots[slotParent].neighbor < 0 {
		return nil
	}
	return &n.slots[slotParent]
}

// newickLabel renders the name/branch-length fragment an external
// Newick writer would emit for this node, replacing the original's
// exportString() (original_source's tree/node.cpp) with the equivalent
// behavior over the arena representation.
func (n *Node) newickLabel() string {
	length := n.slots[slotParent].length
	if length < 0 {
		length = 0
	}
	if n.isLeaf {
		return formatNewickLeaf(n.name, length)
	}
	return formatNewickInternal(n.name, length)
}

// SetSupportLabel stamps a branch-support fraction as this internal
// node's Newick label (spec.md §4.9), the standard convention of
// encoding support as an internal node name. No-op on leaves, whose
// name is the sample name.
func (n *Node) SetSupportLabel(support float64) {
	if n.isLeaf {
		return
	}
	n.name = strconv.FormatFloat(support, 'f', 3, 64)
}
