package mempoolsync

import (
	"sync"
	"testing"
	"time"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/util/daghash"
)

// fakeClock is a deterministic Clock: Now() steps forward by a fixed
// increment on every call, and randomness is caller-scripted.
type fakeClock struct {
	mu       sync.Mutex
	now      time.Time
	step     time.Duration
	uint64s  []uint64
	indexes  []int
	nextU64  int
	nextIdx  int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0), step: time.Millisecond}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) RandomUint64() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextU64 < len(c.uint64s) {
		v := c.uint64s[c.nextU64]
		c.nextU64++
		return v
	}
	return uint64(c.nextU64 + 1)
}

func (c *fakeClock) RandomIndex(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextIdx < len(c.indexes) {
		v := c.indexes[c.nextIdx]
		c.nextIdx++
		if v >= n {
			v = 0
		}
		return v
	}
	return 0
}

// fakeMempool is a fixed set of hashes with fee rates, doubling as the tx
// store HandleMempoolSyncTx/HandleRequestMempoolSyncTx read from.
type fakeMempool struct {
	entries []FeeRatedHash
	txs     map[daghash.Hash]appmessage.MempoolTransaction
}

func newFakeMempool() *fakeMempool {
	return &fakeMempool{txs: make(map[daghash.Hash]appmessage.MempoolTransaction)}
}

func (m *fakeMempool) add(hash daghash.Hash, feeRate, size uint64) {
	m.entries = append(m.entries, FeeRatedHash{Hash: hash, FeeRateSatoshiPerK: feeRate, SerializedSizeBytes: size})
	m.txs[hash] = appmessage.MempoolTransaction{Hash: hash, Payload: []byte("tx")}
}

func (m *fakeMempool) QueryHashesByDecreasingAncestorFee() []FeeRatedHash {
	out := make([]FeeRatedHash, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *fakeMempool) Get(hash daghash.Hash) (appmessage.MempoolTransaction, bool) {
	tx, ok := m.txs[hash]
	return tx, ok
}

type fakeOrphans struct{ hashes []daghash.Hash }

func (o *fakeOrphans) Iterate() []daghash.Hash { return o.hashes }

type fakeAdmission struct {
	mu       sync.Mutex
	admitted []appmessage.MempoolTransaction
}

func (a *fakeAdmission) EnqueueForAdmission(tx appmessage.MempoolTransaction, peerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.admitted = append(a.admitted, tx)
}

type fakeMisbehaver struct {
	mu     sync.Mutex
	scores map[string]int
}

func newFakeMisbehaver() *fakeMisbehaver { return &fakeMisbehaver{scores: make(map[string]int)} }

func (f *fakeMisbehaver) Misbehave(peerID string, score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[peerID] += score
}

func (f *fakeMisbehaver) scoreOf(peerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scores[peerID]
}

type fakeChainState struct {
	tip     uint64
	best    map[string]uint64
	common  map[string]uint64
}

func newFakeChainState(tip uint64) *fakeChainState {
	return &fakeChainState{tip: tip, best: make(map[string]uint64), common: make(map[string]uint64)}
}

func (c *fakeChainState) TipHeight() uint64                       { return c.tip }
func (c *fakeChainState) PeerBestHeight(peerID string) uint64     { return c.best[peerID] }
func (c *fakeChainState) PeerCommonHeight(peerID string) uint64   { return c.common[peerID] }

// wirePeer is a Peer that hands every sent message directly to a paired
// Manager's inbound handler, simulating a lossless direct connection
// between two nodes for FSM tests.
type wirePeer struct {
	id       string
	versions map[string]uint64
	inbox    chan appmessage.Message
}

func newWirePeer(id string, minV, maxV uint64) *wirePeer {
	return &wirePeer{
		id:       id,
		versions: map[string]uint64{string(extendedVersionMinSupported): minV, string(extendedVersionMaxSupported): maxV},
		inbox:    make(chan appmessage.Message, 8),
	}
}

func (p *wirePeer) ID() string { return p.id }
func (p *wirePeer) LogName() string { return "peer " + p.id }
func (p *wirePeer) ExtendedVersion(key string) uint64 { return p.versions[key] }
func (p *wirePeer) Send(message appmessage.Message) error {
	p.inbox <- message
	return nil
}

func newHash(b byte) daghash.Hash {
	var h daghash.Hash
	h[0] = b
	return h
}

func newTestManager(mempool *fakeMempool, orphans *fakeOrphans, admission *fakeAdmission, misbehave *fakeMisbehaver, chain *fakeChainState, clock *fakeClock) *Manager {
	cfg := Config{
		SyncMempoolWithPeers: true,
		MinVersionSupported:  1,
		MaxVersionSupported:  4,
		MaxMempoolBytes:      1 << 20,
		MinFeePerK:           0,
		BobtailK:             3,
		IBLTEntropy:          13,
	}
	return NewManager(cfg, mempool, orphans, admission, chain, clock, misbehave, NewSyncRegistry())
}

// scenario 1: two peers hold disjoint singleton sets. Requester's Idle ->
// Awaiting-Sync -> Awaiting-Tx -> Idle round trip must recover the
// responder's one hash via a RequestMempoolSyncTx follow-up.
func TestEndToEndDisjointSingletonSync(t *testing.T) {
	requesterMempool := newFakeMempool()
	requesterMempool.add(newHash(1), 100, 200)
	responderMempool := newFakeMempool()
	responderMempool.add(newHash(2), 100, 200)

	admission := &fakeAdmission{}
	misbehave := newFakeMisbehaver()
	chain := newFakeChainState(0)
	clock := newFakeClock()

	requester := newTestManager(requesterMempool, &fakeOrphans{}, admission, misbehave, chain, clock)
	responder := newTestManager(responderMempool, &fakeOrphans{}, &fakeAdmission{}, newFakeMisbehaver(), chain, clock)

	responderPeer := newWirePeer("responder", 1, 4)
	requesterPeer := newWirePeer("requester", 1, 4)

	if err := requester.InitiateSync(responderPeer); err != nil {
		t.Fatalf("InitiateSync: %v", err)
	}

	getMsg := (<-responderPeer.inbox).(*appmessage.MsgGetMempoolSync)
	if err := responder.HandleGetMempoolSync(requesterPeer, getMsg); err != nil {
		t.Fatalf("HandleGetMempoolSync: %v", err)
	}

	syncMsg := (<-requesterPeer.inbox).(*appmessage.MsgMempoolSync)
	if err := requester.HandleMempoolSync(responderPeer, syncMsg); err != nil {
		t.Fatalf("HandleMempoolSync: %v", err)
	}

	reqTxMsg := (<-responderPeer.inbox).(*appmessage.MsgRequestMempoolSyncTx)
	if len(reqTxMsg.ShortIDs) == 0 {
		t.Fatal("expected at least one requested short id")
	}
	if err := responder.HandleRequestMempoolSyncTx(requesterPeer, reqTxMsg); err != nil {
		t.Fatalf("HandleRequestMempoolSyncTx: %v", err)
	}

	txMsg := (<-requesterPeer.inbox).(*appmessage.MsgMempoolSyncTx)
	if err := requester.HandleMempoolSyncTx(responderPeer, txMsg); err != nil {
		t.Fatalf("HandleMempoolSyncTx: %v", err)
	}

	if len(admission.admitted) != 1 || admission.admitted[0].Hash != newHash(2) {
		t.Fatalf("expected responder's hash to be admitted, got %+v", admission.admitted)
	}

	session, ok := requester.registry.Requested("responder")
	if !ok || !session.Completed {
		t.Fatalf("expected requester session to be completed, got %+v ok=%v", session, ok)
	}
}

// scenario 2: identical sets on both sides. The IBLT should peel to
// nothing and the requester must not send RequestMempoolSyncTx at all.
func TestEndToEndIdenticalSetsSkipsTxRoundTrip(t *testing.T) {
	shared := newHash(7)
	requesterMempool := newFakeMempool()
	requesterMempool.add(shared, 100, 200)
	responderMempool := newFakeMempool()
	responderMempool.add(shared, 100, 200)

	misbehave := newFakeMisbehaver()
	chain := newFakeChainState(0)
	clock := newFakeClock()

	requester := newTestManager(requesterMempool, &fakeOrphans{}, &fakeAdmission{}, misbehave, chain, clock)
	responder := newTestManager(responderMempool, &fakeOrphans{}, &fakeAdmission{}, newFakeMisbehaver(), chain, clock)

	responderPeer := newWirePeer("responder", 1, 4)
	requesterPeer := newWirePeer("requester", 1, 4)

	if err := requester.InitiateSync(responderPeer); err != nil {
		t.Fatalf("InitiateSync: %v", err)
	}
	getMsg := (<-responderPeer.inbox).(*appmessage.MsgGetMempoolSync)
	if err := responder.HandleGetMempoolSync(requesterPeer, getMsg); err != nil {
		t.Fatalf("HandleGetMempoolSync: %v", err)
	}
	syncMsg := (<-requesterPeer.inbox).(*appmessage.MsgMempoolSync)
	if err := requester.HandleMempoolSync(responderPeer, syncMsg); err != nil {
		t.Fatalf("HandleMempoolSync: %v", err)
	}

	select {
	case msg := <-responderPeer.inbox:
		t.Fatalf("expected no follow-up message, got %#v", msg)
	default:
	}

	session, ok := requester.registry.Requested("responder")
	if !ok || !session.Completed {
		t.Fatalf("expected requester session to complete without a tx round trip, got %+v ok=%v", session, ok)
	}
}

// scenario 3: a second GetMempoolSync arriving before Freq-Grace has
// elapsed since the last response must be scored as a violation and
// rejected.
func TestRateLimitViolationScoresMisbehavior(t *testing.T) {
	mempool := newFakeMempool()
	mempool.add(newHash(1), 100, 200)
	misbehave := newFakeMisbehaver()
	chain := newFakeChainState(0)
	clock := newFakeClock()
	clock.step = 0

	responder := newTestManager(mempool, &fakeOrphans{}, &fakeAdmission{}, misbehave, chain, clock)
	requesterPeer := newWirePeer("requester", 1, 4)

	info := appmessage.MempoolSyncInfo{NTxInMempool: 1, NRemainingMempoolBytes: 1 << 20, K0: 1, K1: 2, NSatoshiPerK: 0}
	msg := appmessage.NewMsgGetMempoolSync(info)

	if err := responder.HandleGetMempoolSync(requesterPeer, msg); err != nil {
		t.Fatalf("first HandleGetMempoolSync: %v", err)
	}
	<-requesterPeer.inbox

	err := responder.HandleGetMempoolSync(requesterPeer, msg)
	if err == nil {
		t.Fatal("expected rate limit violation error")
	}
	if got := misbehave.scoreOf("requester"); got != misbehaviorScoreViolation {
		t.Fatalf("expected misbehavior score %d, got %d", misbehaviorScoreViolation, got)
	}
}

// scenario 4: a peer whose advertised capability range does not overlap
// this node's must be excluded from SelectPeer.
func TestSelectPeerExcludesVersionMismatch(t *testing.T) {
	cfg := Config{MinVersionSupported: 3, MaxVersionSupported: 4}
	chain := newFakeChainState(100)
	clock := newFakeClock()

	incompatible := newWirePeer("old-peer", 1, 2)
	compatible := newWirePeer("new-peer", 1, 4)
	chain.best["old-peer"] = 100
	chain.common["old-peer"] = 100
	chain.best["new-peer"] = 100
	chain.common["new-peer"] = 100

	chosen, ok := SelectPeer(cfg, chain, clock, []Peer{incompatible, compatible})
	if !ok {
		t.Fatal("expected a syncable peer")
	}
	if chosen.ID() != "new-peer" {
		t.Fatalf("expected version-mismatched peer to be excluded, got %s", chosen.ID())
	}
}
