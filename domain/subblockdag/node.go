package subblockdag

import "github.com/hexmire/subtail/util/daghash"

// NodeHandle is an arena-relative reference to a dagNode. The arena only
// grows, except that an insert which is rolled back truncates its node
// away again, so that handle is handed to the next inserted node.
type NodeHandle uint32

// dagID is the type of a component's identity. -1 marks an unassigned
// node that has not yet been placed into a component.
type dagID int16

const unassignedDagID dagID = -1

// dagNode is the internal, arena-owned representation of a subblock in
// the DAG. External callers observe it only through Node, a value
// snapshot that cannot alias the arena's internal edge slices.
type dagNode struct {
	handle      NodeHandle
	hash        daghash.Hash
	dagID       dagID
	subblock    *SubBlock
	ancestors   []NodeHandle
	descendants []NodeHandle
}

func (n *dagNode) isBase() bool { return len(n.ancestors) == 0 }
func (n *dagNode) isTip() bool  { return len(n.descendants) == 0 }

// Node is a read-only snapshot of a DagNode's public fields, safe to hand
// to callers outside the DagSet's lock.
type Node struct {
	Hash        daghash.Hash
	DagID       int16
	Subblock    *SubBlock
	Ancestors   []daghash.Hash
	Descendants []daghash.Hash
}

func (n *dagNode) snapshot(byHandle func(NodeHandle) *dagNode) Node {
	ancestors := make([]daghash.Hash, len(n.ancestors))
	for i, h := range n.ancestors {
		ancestors[i] = byHandle(h).hash
	}
	descendants := make([]daghash.Hash, len(n.descendants))
	for i, h := range n.descendants {
		descendants[i] = byHandle(h).hash
	}
	return Node{
		Hash:        n.hash,
		DagID:       int16(n.dagID),
		Subblock:    n.subblock,
		Ancestors:   ancestors,
		Descendants: descendants,
	}
}

func containsHandle(handles []NodeHandle, target NodeHandle) bool {
	for _, h := range handles {
		if h == target {
			return true
		}
	}
	return false
}

func containsDagID(ids []dagID, target dagID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
