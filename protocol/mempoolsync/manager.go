package mempoolsync

import (
	"time"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/domain/graphene"
	"github.com/hexmire/subtail/domain/shortid"
	"github.com/hexmire/subtail/protocol/protocolerrors"
	"github.com/hexmire/subtail/util/daghash"
)

// Freq is the minimum spacing between two GetMempoolSync requests from the
// same peer.
const Freq = 30 * time.Second

// Grace is subtracted from Freq before the rate limit is enforced, giving
// a small margin for clock and scheduling jitter.
const Grace = 5 * time.Second

const (
	misbehaviorScoreUnrequestedResponse = 10
	misbehaviorScoreViolation           = 100
)

// Manager drives both sides of the mempool sync exchange for every peer
// this node is connected to. It holds no per-peer state itself beyond what
// SyncRegistry tracks, so a single Manager serves every peer.
type Manager struct {
	cfg       Config
	mempool   MempoolReader
	orphans   OrphanPoolReader
	admission AdmissionQueue
	chain     ChainState
	clock     Clock
	misbehave Misbehaver
	registry  *SyncRegistry
}

// NewManager returns a Manager wired to the given collaborators.
func NewManager(
	cfg Config,
	mempool MempoolReader,
	orphans OrphanPoolReader,
	admission AdmissionQueue,
	chain ChainState,
	clock Clock,
	misbehave Misbehaver,
	registry *SyncRegistry,
) *Manager {
	return &Manager{
		cfg:       cfg,
		mempool:   mempool,
		orphans:   orphans,
		admission: admission,
		chain:     chain,
		clock:     clock,
		misbehave: misbehave,
		registry:  registry,
	}
}

// AdvertiseCapability publishes this node's supported version range as the
// extended-version values a peer reads during handshake.
func (m *Manager) AdvertiseCapability() map[string]uint64 {
	return map[string]uint64{
		string(extendedVersionMinSupported): m.cfg.MinVersionSupported,
		string(extendedVersionMaxSupported): m.cfg.MaxVersionSupported,
	}
}

// InitiateSync starts a requester session against peer: state Idle →
// Awaiting-Sync. It sends GetMempoolSync and records the session under a
// freshly chosen pair of short-id keys.
func (m *Manager) InitiateSync(peer Peer) error {
	candidates := m.mempool.QueryHashesByDecreasingAncestorFee()

	info := appmessage.MempoolSyncInfo{
		NTxInMempool:           uint64(len(candidates)),
		NRemainingMempoolBytes: m.cfg.MaxMempoolBytes,
		K0:                     m.clock.RandomUint64(),
		K1:                     m.clock.RandomUint64(),
		NSatoshiPerK:           m.cfg.MinFeePerK,
	}

	if err := peer.Send(appmessage.NewMsgGetMempoolSync(info)); err != nil {
		return err
	}

	m.registry.SetRequested(peer.ID(), State{
		LastUpdated: m.clock.Now().UnixNano(),
		K0:          info.K0,
		K1:          info.K1,
		Completed:   false,
	})
	return nil
}

// HandleMempoolSync is the requester's Awaiting-Sync transition: it peels
// the received GrapheneSet against its own candidate hashes and either
// completes the session or follows up with RequestMempoolSyncTx.
func (m *Manager) HandleMempoolSync(peer Peer, msg *appmessage.MsgMempoolSync) error {
	session, ok := m.registry.Requested(peer.ID())
	if !ok || session.Completed {
		m.misbehave.Misbehave(peer.ID(), misbehaviorScoreUnrequestedResponse)
		return protocolerrors.New(false, "mempoolsync: unrequested MempoolSync")
	}

	keys := shortid.Keys{K0: session.K0, K1: session.K1}
	candidateIDs := shortid.ComputeAll(keys, m.candidateHashes())

	residuals, err := graphene.Decode(msg.GrapheneSet, candidateIDs, msg.GrapheneSet.Sketch.Salt())
	if err != nil {
		// ReconcileFailure: recovered locally, no penalty, session ends
		// without further tx recovery.
		m.registry.CompleteRequested(peer.ID())
		return nil
	}

	if len(residuals) == 0 {
		m.registry.CompleteRequested(peer.ID())
		return nil
	}

	if err := peer.Send(appmessage.NewMsgRequestMempoolSyncTx(residuals)); err != nil {
		return err
	}
	return nil
}

// HandleMempoolSyncTx is the requester's Awaiting-Tx transition: every
// delivered transaction is enqueued for admission and the session
// completes.
func (m *Manager) HandleMempoolSyncTx(peer Peer, msg *appmessage.MsgMempoolSyncTx) error {
	session, ok := m.registry.Requested(peer.ID())
	if !ok || session.Completed {
		m.misbehave.Misbehave(peer.ID(), misbehaviorScoreUnrequestedResponse)
		return protocolerrors.New(false, "mempoolsync: unrequested MempoolSyncTx")
	}

	for _, tx := range msg.Transactions {
		m.admission.EnqueueForAdmission(tx, peer.ID())
	}
	m.registry.CompleteRequested(peer.ID())
	return nil
}

// HandleGetMempoolSync is the responder's entry point: it validates the
// request, builds a GrapheneSet over its own qualifying hashes and replies
// with MempoolSync.
func (m *Manager) HandleGetMempoolSync(peer Peer, msg *appmessage.MsgGetMempoolSync) error {
	if !m.cfg.SyncMempoolWithPeers {
		m.misbehave.Misbehave(peer.ID(), misbehaviorScoreViolation)
		return protocolerrors.New(true, "mempoolsync: sync disabled")
	}
	if msg.InvType != appmessage.MempoolSyncInvTx {
		m.misbehave.Misbehave(peer.ID(), misbehaviorScoreViolation)
		return protocolerrors.New(true, "mempoolsync: unexpected inventory type")
	}

	if session, ok := m.registry.Responded(peer.ID()); ok {
		elapsed := time.Duration(m.clock.Now().UnixNano()-session.LastUpdated) * time.Nanosecond
		if elapsed < Freq-Grace {
			m.misbehave.Misbehave(peer.ID(), misbehaviorScoreViolation)
			return protocolerrors.New(true, "mempoolsync: rate limit exceeded")
		}
	}

	keys := shortid.Keys{K0: msg.Info.K0, K1: msg.Info.K1}
	senderIDs := shortid.ComputeAll(keys, m.selectHashesForResponse(msg.Info))

	salt := uint32(msg.Info.K0)
	set := graphene.Encode(senderIDs, msg.Info.NTxInMempool, m.cfg.IBLTEntropy, salt)

	if err := peer.Send(appmessage.NewMsgMempoolSync(set)); err != nil {
		return err
	}

	m.registry.SetResponded(peer.ID(), State{
		LastUpdated: m.clock.Now().UnixNano(),
		K0:          msg.Info.K0,
		K1:          msg.Info.K1,
		Completed:   false,
	})
	return nil
}

// HandleRequestMempoolSyncTx is the responder's answer to a follow-up
// short-id resolution request. Short-ids are recomputed against the
// current mempool+orphan pool rather than cached, per this protocol's
// retained semantic: a transaction that left the pool mid-session is
// simply absent from the reply.
func (m *Manager) HandleRequestMempoolSyncTx(peer Peer, msg *appmessage.MsgRequestMempoolSyncTx) error {
	session, ok := m.registry.Responded(peer.ID())
	if !ok || session.Completed {
		m.misbehave.Misbehave(peer.ID(), misbehaviorScoreViolation)
		return protocolerrors.New(true, "mempoolsync: RequestMempoolSyncTx with no outstanding session")
	}

	keys := shortid.Keys{K0: session.K0, K1: session.K1}
	wanted := make(map[shortid.ID]struct{}, len(msg.ShortIDs))
	for _, id := range msg.ShortIDs {
		wanted[id] = struct{}{}
	}

	var reply []appmessage.MempoolTransaction
	for _, hash := range m.candidateHashes() {
		id := shortid.Compute(keys, hash)
		if _, ok := wanted[id]; !ok {
			continue
		}
		if tx, ok := m.mempool.Get(*hash); ok {
			reply = append(reply, tx)
		}
	}

	if err := peer.Send(appmessage.NewMsgMempoolSyncTx(reply)); err != nil {
		return err
	}
	m.registry.CompleteResponded(peer.ID())
	return nil
}

// candidateHashes returns every hash this node could offer or reconcile
// against: its own mempool plus its orphan pool, in no particular order
// (short-id computation is order-independent).
func (m *Manager) candidateHashes() []*daghash.Hash {
	feeRated := m.mempool.QueryHashesByDecreasingAncestorFee()
	hashes := make([]*daghash.Hash, 0, len(feeRated))
	for i := range feeRated {
		hashes = append(hashes, &feeRated[i].Hash)
	}
	for _, orphan := range m.orphans.Iterate() {
		orphan := orphan
		hashes = append(hashes, &orphan)
	}
	return hashes
}

// selectHashesForResponse enumerates this node's mempool in decreasing
// ancestor-fee order, skipping anything below the requester's advertised
// minimum fee rate, until the requester's remaining-byte budget is spent;
// orphan pool hashes are appended afterward, unfiltered by fee (they carry
// no fee context of their own) but still bound by the same budget.
func (m *Manager) selectHashesForResponse(info appmessage.MempoolSyncInfo) []*daghash.Hash {
	var hashes []*daghash.Hash
	var spent uint64

	for _, fr := range m.mempool.QueryHashesByDecreasingAncestorFee() {
		if fr.FeeRateSatoshiPerK < info.NSatoshiPerK {
			continue
		}
		if spent+fr.SerializedSizeBytes > info.NRemainingMempoolBytes {
			return hashes
		}
		fr := fr
		hashes = append(hashes, &fr.Hash)
		spent += fr.SerializedSizeBytes
	}

	for _, orphan := range m.orphans.Iterate() {
		if spent >= info.NRemainingMempoolBytes {
			break
		}
		orphan := orphan
		hashes = append(hashes, &orphan)
	}

	return hashes
}
