package mempoolsync

import "github.com/pkg/errors"

// ErrNegotiationFailed is returned by NegotiateVersion when the two peers'
// advertised ranges are disjoint. Unlike a ProtocolViolation this is not a
// misbehavior: the peer is simply skipped.
var ErrNegotiationFailed = errors.New("mempoolsync: negotiation failed, disjoint version ranges")

// NegotiateVersion picks the mempool-sync protocol version to use for a
// session between a peer advertising [peerMin, peerMax] and this node's
// own [selfMin, selfMax], per the "use the lower max, reject if it falls
// below the higher min" rule.
func NegotiateVersion(selfMin, selfMax, peerMin, peerMax uint64) (uint64, error) {
	version := selfMax
	if peerMax < version {
		version = peerMax
	}
	floor := selfMin
	if peerMin > floor {
		floor = peerMin
	}
	if version < floor {
		return 0, ErrNegotiationFailed
	}
	return version, nil
}

// heightProximityThreshold bounds how far a candidate peer's best-known
// header and last-common-block heights may lag this node's tip and still
// be considered syncable.
const heightProximityThreshold = 10

// SelectPeer chooses a syncable peer uniformly at random from candidates,
// per §4.3: a peer is syncable iff its advertised capability range
// overlaps this node's, and both its best-known-header and
// last-common-block heights are within heightProximityThreshold of this
// node's chain tip.
func SelectPeer(cfg Config, chain ChainState, clock Clock, candidates []Peer) (Peer, bool) {
	tip := chain.TipHeight()

	var syncable []Peer
	for _, p := range candidates {
		peerMin := p.ExtendedVersion(string(extendedVersionMinSupported))
		peerMax := p.ExtendedVersion(string(extendedVersionMaxSupported))
		if _, err := NegotiateVersion(cfg.MinVersionSupported, cfg.MaxVersionSupported, peerMin, peerMax); err != nil {
			continue
		}

		best := chain.PeerBestHeight(p.ID())
		common := chain.PeerCommonHeight(p.ID())
		if withinThreshold(best, tip) && withinThreshold(common, tip) {
			syncable = append(syncable, p)
		}
	}

	if len(syncable) == 0 {
		return nil, false
	}
	return syncable[clock.RandomIndex(len(syncable))], true
}

func withinThreshold(height, tip uint64) bool {
	var diff uint64
	if height > tip {
		diff = height - tip
	} else {
		diff = tip - height
	}
	return diff <= heightProximityThreshold
}
