// Package subblockdag maintains the DAG of subblocks: an append-only
// arena of nodes partitioned into maximal conflict-free components,
// merged as new edges connect previously separate components, and scored
// so that a "best" component and its tips can be chosen for mining.
package subblockdag

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/hexmire/subtail/util/daghash"
	utilmath "github.com/hexmire/subtail/util/math"
)

// ErrAlreadyExists is returned by Insert when a subblock with the same
// hash has already been inserted.
var ErrAlreadyExists = errors.New("subblockdag: subblock already exists")

// ErrIncompatible is returned by Insert when a node joining a single
// existing component conflicts with that component's recorded spends.
var ErrIncompatible = errors.New("subblockdag: subblock conflicts with the component it would join")

// DagSet owns every DagNode ever inserted and the components they are
// partitioned into. All exported methods are safe for concurrent use:
// Insert (which also merges components) takes the lock exclusively; Find,
// Size, Tips and BestDag take it in shared mode. Package-private helpers whose name
// ends in "Locked" assume the appropriate lock is already held.
type DagSet struct {
	mu         sync.RWMutex
	arena      []*dagNode
	byHash     map[daghash.Hash]NodeHandle
	components []*Dag

	// bobtailK is the minimum node count a component must reach before
	// it is eligible to be selected as the best DAG.
	bobtailK int
}

// New returns an empty DagSet. bobtailK is the minimum component size
// (BOBTAIL_K) required for a component to be considered by BestDag.
func New(bobtailK int) *DagSet {
	return &DagSet{
		byHash:   make(map[daghash.Hash]NodeHandle),
		bobtailK: bobtailK,
	}
}

func (s *DagSet) byHandle(h NodeHandle) *dagNode {
	return s.arena[h]
}

// Size returns the total number of nodes ever inserted.
func (s *DagSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}

// Find returns a snapshot of the node with the given hash, if any.
func (s *DagSet) Find(hash daghash.Hash) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byHash[hash]
	if !ok {
		return Node{}, false
	}
	return s.arena[h].snapshot(s.byHandle), true
}

// Insert adds subblock to the DAG, wiring it to any already-present
// ancestors and merging components as described by the package's merge
// rules. It returns ErrAlreadyExists if the hash is already present, and
// ErrIncompatible if the subblock conflicts with the single existing
// component it would join.
func (s *DagSet) Insert(subblock *SubBlock) error {
	if err := subblock.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[subblock.Hash]; exists {
		return ErrAlreadyExists
	}

	node := &dagNode{
		handle:   NodeHandle(len(s.arena)),
		hash:     subblock.Hash,
		dagID:    unassignedDagID,
		subblock: subblock,
	}
	handle := node.handle
	s.arena = append(s.arena, node)
	s.byHash[subblock.Hash] = handle

	var mergeList []dagID
	for _, ancestorHash := range subblock.AncestorHashes {
		ancestorHandle, ok := s.byHash[ancestorHash]
		if !ok {
			continue
		}
		ancestor := s.arena[ancestorHandle]
		if !containsHandle(node.ancestors, ancestorHandle) {
			node.ancestors = append(node.ancestors, ancestorHandle)
		}
		if !containsHandle(ancestor.descendants, handle) {
			ancestor.descendants = append(ancestor.descendants, handle)
		}
		if !containsDagID(mergeList, ancestor.dagID) {
			mergeList = append(mergeList, ancestor.dagID)
		}
	}

	switch len(mergeList) {
	case 0:
		s.insertSingleton(node)
	case 1:
		if err := s.joinComponent(node, mergeList[0]); err != nil {
			return err
		}
	default:
		s.mergeComponents(node, mergeList)
	}

	return nil
}

// insertSingleton creates a new component containing only node and checks
// it for conflicts against every already-existing component.
func (s *DagSet) insertSingleton(node *dagNode) {
	id := dagID(len(s.components))
	component := newDag(id)
	node.dagID = id
	component.nodes = append(component.nodes, node.handle)
	component.recordSpends(node)
	s.components = append(s.components, component)

	for _, other := range s.components[:len(s.components)-1] {
		s.checkAndMarkCompatibility(node, component, other)
	}

	component.recomputeScore(s.byHandle)
}

// joinComponent appends node to the component identified by id, rejecting
// it if it conflicts with that component's recorded spends, then checks
// it against every other component.
func (s *DagSet) joinComponent(node *dagNode, id dagID) error {
	component := s.components[id]
	if !component.isCompatible(node) {
		// Roll back the arena/index insertion of a rejected node so the
		// DagSet is left exactly as it was before this call.
		s.rollbackLastInsert(node)
		return ErrIncompatible
	}

	node.dagID = id
	component.nodes = append(component.nodes, node.handle)
	component.recordSpends(node)

	for _, other := range s.components {
		if other.id == id {
			continue
		}
		s.checkAndMarkCompatibility(node, component, other)
	}

	component.recomputeScore(s.byHandle)
	return nil
}

// mergeComponents absorbs every component in ids into the lowest-indexed
// one, re-inserting each absorbed component's nodes, then adds node to
// the survivor.
func (s *DagSet) mergeComponents(node *dagNode, ids []dagID) {
	survivorID := ids[0]
	for _, id := range ids[1:] {
		survivorID = dagID(utilmath.MinInt(int(survivorID), int(id)))
	}
	survivor := s.components[survivorID]

	absorbed := make(map[dagID]*Dag)
	for _, id := range ids {
		if id != survivorID {
			absorbed[id] = s.components[id]
		}
	}

	for _, component := range absorbed {
		for _, h := range component.nodes {
			n := s.arena[h]
			n.dagID = survivorID
			survivor.nodes = append(survivor.nodes, h)
			survivor.recordSpends(n)
		}
	}

	// Absorbed components' incompatibility with third parties still
	// applies to the survivor.
	for _, component := range absorbed {
		for other := range component.incompatibleDags {
			if other == survivorID {
				continue
			}
			survivor.markIncompatible(other)
		}
	}

	node.dagID = survivorID
	survivor.nodes = append(survivor.nodes, node.handle)
	survivor.recordSpends(node)

	// Rewrite every remaining component's incompatible_dags so any
	// reference to an absorbed id now points at the survivor.
	for _, component := range s.components {
		if _, isAbsorbed := absorbed[component.id]; isAbsorbed {
			continue
		}
		for id := range absorbed {
			if component.isIncompatibleWith(id) {
				delete(component.incompatibleDags, id)
				if component.id != survivorID {
					component.markIncompatible(survivorID)
				}
			}
		}
	}

	s.removeAndRenumber(absorbed)
	survivor = s.components[survivorID]
	survivor.recomputeScore(s.byHandle)
}

// removeAndRenumber deletes the absorbed components from s.components,
// keeping the survivors in their existing order, and renumbers every surviving component so that its
// id again equals its index, updating every node's dagID and every
// remaining component's incompatible_dags to match.
func (s *DagSet) removeAndRenumber(absorbed map[dagID]*Dag) {
	kept := make([]*Dag, 0, len(s.components)-len(absorbed))
	for _, component := range s.components {
		if _, gone := absorbed[component.id]; !gone {
			kept = append(kept, component)
		}
	}

	remap := make(map[dagID]dagID, len(kept))
	for newIndex, component := range kept {
		remap[component.id] = dagID(newIndex)
	}

	for _, component := range kept {
		newIncompatible := make(map[dagID]struct{}, len(component.incompatibleDags))
		for old := range component.incompatibleDags {
			if newID, ok := remap[old]; ok {
				newIncompatible[newID] = struct{}{}
			}
		}
		component.incompatibleDags = newIncompatible
		component.id = remap[component.id]
		for _, h := range component.nodes {
			s.arena[h].dagID = component.id
		}
	}

	s.components = kept
}

// checkAndMarkCompatibility tests node (which already belongs to home)
// against other, marking both components' incompatible_dags on conflict.
func (s *DagSet) checkAndMarkCompatibility(node *dagNode, home, other *Dag) {
	if other.isCompatible(node) {
		return
	}
	home.markIncompatible(other.id)
	other.markIncompatible(home.id)
}

// rollbackLastInsert removes a just-added node that turned out to be
// rejected, keeping the arena and edges consistent.
func (s *DagSet) rollbackLastInsert(node *dagNode) {
	for _, ancestorHandle := range node.ancestors {
		ancestor := s.arena[ancestorHandle]
		for i, h := range ancestor.descendants {
			if h == node.handle {
				ancestor.descendants = append(ancestor.descendants[:i], ancestor.descendants[i+1:]...)
				break
			}
		}
	}
	delete(s.byHash, node.hash)
	s.arena = s.arena[:len(s.arena)-1]
}

// BestDag returns the id of the highest-scoring component with at least
// bobtailK nodes, selecting the first qualifying component on ties (a
// strict ">" comparison against a zero-initialized running best).
func (s *DagSet) BestDag() (bestID int16, score uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, bestScore, found := s.bestDagLocked()
	if !found {
		return 0, 0, false
	}
	return int16(id), bestScore, true
}

// Tips returns the candidate parent set for a new subblock: the tip
// hashes of the best component, plus the tips of every other component
// not marked incompatible with it.
func (s *DagSet) Tips() []daghash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bestID, _, ok := s.bestDagLocked()
	if !ok {
		return nil
	}
	best := s.components[bestID]

	var hashes []daghash.Hash
	for _, h := range best.tips(s.byHandle) {
		hashes = append(hashes, s.arena[h].hash)
	}
	for _, component := range s.components {
		if component.id == best.id || best.isIncompatibleWith(component.id) {
			continue
		}
		for _, h := range component.tips(s.byHandle) {
			hashes = append(hashes, s.arena[h].hash)
		}
	}
	return hashes
}

func (s *DagSet) bestDagLocked() (dagID, uint64, bool) {
	var bestScore uint64
	bestID := dagID(-1)
	for _, component := range s.components {
		if len(component.nodes) < s.bobtailK {
			continue
		}
		if component.score > bestScore {
			bestScore = component.score
			bestID = component.id
		}
	}
	if bestID < 0 {
		return 0, 0, false
	}
	return bestID, bestScore, true
}
