package subblockdag

import (
	"math/big"

	"github.com/hexmire/subtail/util/daghash"
)

// Outpoint identifies a single spendable output by the hash of the
// transaction that created it and its index within that transaction.
type Outpoint struct {
	TxID  daghash.Hash
	Index uint32
}

// Input is the subset of a transaction input the DAG cares about: which
// output it spends. The scripts and sequence fields that make up a full
// input are the mempool's concern, not this package's.
type Input struct {
	PrevOutpoint Outpoint
}

// Transaction is the minimal shape the DAG needs from a subblock's
// payload: its own id, the outputs it spends, and whether it is the
// subblock's proofbase or an ordinary coinbase (which subblocks must not
// carry).
type Transaction struct {
	ID          daghash.Hash
	Inputs      []Input
	IsProofbase bool
	IsCoinbase  bool
}

// SubBlock is a block-shaped structure carrying a weak proof-of-work: its
// first transaction is a proofbase rather than a coinbase, and its header
// records the hashes of the subblocks it extends.
type SubBlock struct {
	Hash           daghash.Hash
	AncestorHashes []daghash.Hash
	Target         *big.Int
	Transactions   []*Transaction
}

// errMalformed is returned by Validate when a subblock does not
// satisfy the well-formedness invariants required before it can be
// inserted into a DagSet.
var errMalformed = malformedError("subblockdag: malformed subblock")

type malformedError string

func (e malformedError) Error() string { return string(e) }

// Validate checks the well-formedness invariants: the subblock is
// non-nil, its first transaction is a proofbase, no other transaction is
// a proofbase, and no transaction is a coinbase.
func (s *SubBlock) Validate() error {
	if s == nil {
		return errMalformed
	}
	if len(s.Transactions) == 0 || !s.Transactions[0].IsProofbase {
		return errMalformed
	}
	for i, tx := range s.Transactions {
		if tx.IsCoinbase {
			return errMalformed
		}
		if i > 0 && tx.IsProofbase {
			return errMalformed
		}
	}
	return nil
}
