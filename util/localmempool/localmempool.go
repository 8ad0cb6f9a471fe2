// Package localmempool is a minimal in-memory reference implementation of
// the mempool, orphan pool, admission queue and misbehavior collaborators
// mempoolsync.Manager needs. It exists so the daemon (the module's root
// main package) has
// something concrete to wire against; a real node would back these
// interfaces with its actual transaction pool and ban-score tracker.
package localmempool

import (
	"sort"
	"sync"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/protocol/mempoolsync"
	"github.com/hexmire/subtail/util/daghash"
)

// Store is a thread-safe map of resident transactions, doubling as a
// mempoolsync.MempoolReader.
type Store struct {
	mu  sync.RWMutex
	txs map[daghash.Hash]storedTx
}

type storedTx struct {
	tx         appmessage.MempoolTransaction
	feeRate    uint64
	sizeBytes  uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{txs: make(map[daghash.Hash]storedTx)}
}

// Add inserts or replaces a transaction along with its fee rate and size.
func (s *Store) Add(tx appmessage.MempoolTransaction, feeRateSatoshiPerK, sizeBytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.Hash] = storedTx{tx: tx, feeRate: feeRateSatoshiPerK, sizeBytes: sizeBytes}
}

// Remove drops a transaction, e.g. once it has been mined.
func (s *Store) Remove(hash daghash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, hash)
}

// QueryHashesByDecreasingAncestorFee implements mempoolsync.MempoolReader.
// This reference store has no ancestor-fee graph, so it sorts directly by
// each transaction's own fee rate.
func (s *Store) QueryHashesByDecreasingAncestorFee() []mempoolsync.FeeRatedHash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mempoolsync.FeeRatedHash, 0, len(s.txs))
	for hash, entry := range s.txs {
		out = append(out, mempoolsync.FeeRatedHash{
			Hash:                hash,
			FeeRateSatoshiPerK:  entry.feeRate,
			SerializedSizeBytes: entry.sizeBytes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeeRateSatoshiPerK > out[j].FeeRateSatoshiPerK })
	return out
}

// Get implements mempoolsync.MempoolReader.
func (s *Store) Get(hash daghash.Hash) (appmessage.MempoolTransaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.txs[hash]
	return entry.tx, ok
}

// OrphanPool is a thread-safe set of orphan transaction hashes.
type OrphanPool struct {
	mu     sync.RWMutex
	hashes map[daghash.Hash]struct{}
}

// NewOrphanPool returns an empty OrphanPool.
func NewOrphanPool() *OrphanPool {
	return &OrphanPool{hashes: make(map[daghash.Hash]struct{})}
}

// Add records hash as an orphan.
func (o *OrphanPool) Add(hash daghash.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hashes[hash] = struct{}{}
}

// Remove drops hash, e.g. once its parents have arrived.
func (o *OrphanPool) Remove(hash daghash.Hash) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.hashes, hash)
}

// Iterate implements mempoolsync.OrphanPoolReader.
func (o *OrphanPool) Iterate() []daghash.Hash {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]daghash.Hash, 0, len(o.hashes))
	for hash := range o.hashes {
		out = append(out, hash)
	}
	return out
}

// AdmissionQueue buffers transactions pulled in from a mempool-sync
// exchange until the host's real validation pipeline drains them.
type AdmissionQueue struct {
	mu      sync.Mutex
	pending []admissionEntry
}

type admissionEntry struct {
	tx     appmessage.MempoolTransaction
	peerID string
}

// NewAdmissionQueue returns an empty AdmissionQueue.
func NewAdmissionQueue() *AdmissionQueue {
	return &AdmissionQueue{}
}

// EnqueueForAdmission implements mempoolsync.AdmissionQueue.
func (q *AdmissionQueue) EnqueueForAdmission(tx appmessage.MempoolTransaction, peerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, admissionEntry{tx: tx, peerID: peerID})
}

// Drain removes and returns every transaction enqueued so far.
func (q *AdmissionQueue) Drain() []appmessage.MempoolTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]appmessage.MempoolTransaction, len(q.pending))
	for i, entry := range q.pending {
		out[i] = entry.tx
	}
	q.pending = nil
	return out
}

// BanScores tracks cumulative misbehavior score per peer and implements
// mempoolsync.Misbehaver.
type BanScores struct {
	mu     sync.Mutex
	scores map[string]int
}

// NewBanScores returns an empty BanScores.
func NewBanScores() *BanScores {
	return &BanScores{scores: make(map[string]int)}
}

// Misbehave implements mempoolsync.Misbehaver.
func (b *BanScores) Misbehave(peerID string, score int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores[peerID] += score
}

// Score returns peerID's cumulative misbehavior score.
func (b *BanScores) Score(peerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[peerID]
}

// ChainHeights is a thread-safe reference implementation of
// mempoolsync.ChainState. A real node backs this with its actual DAG tip
// and per-peer sync-progress bookkeeping.
type ChainHeights struct {
	mu           sync.RWMutex
	tip          uint64
	peerBest     map[string]uint64
	peerCommon   map[string]uint64
}

// NewChainHeights returns a ChainHeights with tip height 0.
func NewChainHeights() *ChainHeights {
	return &ChainHeights{
		peerBest:   make(map[string]uint64),
		peerCommon: make(map[string]uint64),
	}
}

// SetTipHeight records the local DAG's current tip height.
func (c *ChainHeights) SetTipHeight(height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tip = height
}

// SetPeerHeights records a peer's reported best height and the height the
// local node and that peer are known to share.
func (c *ChainHeights) SetPeerHeights(peerID string, best, common uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerBest[peerID] = best
	c.peerCommon[peerID] = common
}

// TipHeight implements mempoolsync.ChainState.
func (c *ChainHeights) TipHeight() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// PeerBestHeight implements mempoolsync.ChainState.
func (c *ChainHeights) PeerBestHeight(peerID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peerBest[peerID]
}

// PeerCommonHeight implements mempoolsync.ChainState.
func (c *ChainHeights) PeerCommonHeight(peerID string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peerCommon[peerID]
}
