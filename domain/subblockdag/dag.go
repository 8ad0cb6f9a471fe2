package subblockdag

import "github.com/hexmire/subtail/util/daghash"

// Dag is a maximal conflict-free component of the DagSet: no two
// transactions among its nodes spend the same outpoint with different
// spending transactions.
type Dag struct {
	id               dagID
	nodes            []NodeHandle
	spentOutputs     map[Outpoint]daghash.Hash
	score            uint64
	incompatibleDags map[dagID]struct{}
}

func newDag(id dagID) *Dag {
	return &Dag{
		id:               id,
		spentOutputs:     make(map[Outpoint]daghash.Hash),
		incompatibleDags: make(map[dagID]struct{}),
	}
}

// isCompatible reports whether node's non-proofbase inputs can be
// accepted into d without contradicting a spend d has already recorded.
func (d *Dag) isCompatible(node *dagNode) bool {
	for _, tx := range node.subblock.Transactions {
		if tx.IsProofbase {
			continue
		}
		for _, in := range tx.Inputs {
			if existing, ok := d.spentOutputs[in.PrevOutpoint]; ok {
				if existing != tx.ID {
					return false
				}
			}
		}
	}
	return true
}

// recordSpends merges node's non-proofbase spends into d.spentOutputs.
// Callers must have already confirmed isCompatible.
func (d *Dag) recordSpends(node *dagNode) {
	for _, tx := range node.subblock.Transactions {
		if tx.IsProofbase {
			continue
		}
		for _, in := range tx.Inputs {
			d.spentOutputs[in.PrevOutpoint] = tx.ID
		}
	}
}

func (d *Dag) markIncompatible(other dagID) {
	d.incompatibleDags[other] = struct{}{}
}

func (d *Dag) isIncompatibleWith(other dagID) bool {
	_, ok := d.incompatibleDags[other]
	return ok
}

// tips returns the handles of every node in d with no descendants.
func (d *Dag) tips(byHandle func(NodeHandle) *dagNode) []NodeHandle {
	var tips []NodeHandle
	for _, h := range d.nodes {
		if byHandle(h).isTip() {
			tips = append(tips, h)
		}
	}
	return tips
}
