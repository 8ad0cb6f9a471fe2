// Package mempoolsync implements the Graphene-based mempool
// synchronization protocol: a four-message reconciliation exchange that
// converges two peers' pending-transaction sets using a Bloom filter +
// IBLT sketch, on top of request/response state machines, rate limiting,
// capability negotiation, and misbehavior scoring.
package mempoolsync

import (
	"time"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/util/daghash"
)

// Peer is the subset of a connected remote node the sync core needs:
// enough to negotiate capability, address it in logs, and hand it
// messages.
type Peer interface {
	ID() string
	LogName() string
	ExtendedVersion(key string) uint64
	Send(message appmessage.Message) error
}

// FeeRatedHash is one candidate the mempool offers for reconciliation,
// already carrying the ancestor-fee rate the responder filters and sorts
// by.
type FeeRatedHash struct {
	Hash                daghash.Hash
	FeeRateSatoshiPerK  uint64
	SerializedSizeBytes uint64
}

// MempoolReader is the read-only surface of the pending-transaction pool
// the core consumes. Implementations must take their own read lock for
// the duration of both calls.
type MempoolReader interface {
	QueryHashesByDecreasingAncestorFee() []FeeRatedHash
	Get(hash daghash.Hash) (appmessage.MempoolTransaction, bool)
}

// OrphanPoolReader is the read-only surface of the orphan pool.
type OrphanPoolReader interface {
	Iterate() []daghash.Hash
}

// AdmissionQueue accepts a transaction pulled in from a remote peer for
// downstream validation and mempool admission.
type AdmissionQueue interface {
	EnqueueForAdmission(tx appmessage.MempoolTransaction, peerID string)
}

// Misbehaver applies a cumulative penalty to a peer; the host converts an
// accumulated score past its own ceiling into a ban.
type Misbehaver interface {
	Misbehave(peerID string, score int)
}

// ChainState answers the height questions peer selection needs.
type ChainState interface {
	TipHeight() uint64
	PeerBestHeight(peerID string) uint64
	PeerCommonHeight(peerID string) uint64
}

// Clock supplies the current (wall-clock) time and randomness the core needs without
// reaching for global state, so tests can substitute deterministic
// implementations.
type Clock interface {
	Now() time.Time
	RandomUint64() uint64
	RandomIndex(n int) int
}

// Config carries the host-configurable knobs this protocol recognizes.
type Config struct {
	// SyncMempoolWithPeers gates the responder: requests are rejected
	// while false.
	SyncMempoolWithPeers bool
	// MinVersionSupported and MaxVersionSupported bound this node's side
	// of capability negotiation.
	MinVersionSupported uint64
	MaxVersionSupported uint64
	// MaxMempoolBytes caps the byte budget used when computing
	// nRemainingMempoolBytes.
	MaxMempoolBytes uint64
	// MinFeePerK is this node's own minimum relay fee rate, advertised to
	// peers so they can skip transactions below it while building a
	// GrapheneSet for us.
	MinFeePerK uint64
	// BobtailK is also the minimum viable subblock DAG component size;
	// here it feeds nothing directly but is carried for parity with the
	// host's single source of truth for the constant.
	BobtailK int
	// IBLTEntropy is the tau overhead constant the responder passes to
	// graphene.Encode when building the GrapheneSet it sends back.
	IBLTEntropy float64
}

// extendedVersionKey names a value both peers exchange during the
// extended version handshake.
type extendedVersionKey string

const (
	extendedVersionMinSupported extendedVersionKey = "mempoolSyncMinVersionSupported"
	extendedVersionMaxSupported extendedVersionKey = "mempoolSyncMaxVersionSupported"
)
