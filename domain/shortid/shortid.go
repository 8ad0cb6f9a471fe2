// Package shortid computes the 64-bit session-scoped transaction
// identifiers used by the IBLT and Graphene set-reconciliation layers.
package shortid

import (
	"github.com/dchest/siphash"

	"github.com/hexmire/subtail/util/daghash"
)

// ID is a 64-bit cheap hash standing in for a full transaction id inside
// a reconciliation session. It is only unique with respect to the
// (k0, k1) pair it was computed under.
type ID uint64

// Keys is the pair of 64-bit SipHash keys negotiated for a single
// reconciliation session. Both peers must agree on the same keys before
// short ids computed by either side are comparable.
type Keys struct {
	K0 uint64
	K1 uint64
}

// Compute derives the short id of a transaction hash under the given
// session keys.
func Compute(keys Keys, txID *daghash.Hash) ID {
	return ID(siphash.Hash(keys.K0, keys.K1, txID[:]))
}

// ComputeAll derives the short id for every hash in txIDs, preserving order.
func ComputeAll(keys Keys, txIDs []*daghash.Hash) []ID {
	ids := make([]ID, len(txIDs))
	for i, txID := range txIDs {
		ids[i] = Compute(keys, txID)
	}
	return ids
}
