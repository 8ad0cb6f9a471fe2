package mempoolsync

import "sync"

// State is the per-peer, per-direction session record tracked while a
// mempool sync exchange is in flight.
type State struct {
	LastUpdated int64 // unix nanoseconds from Clock.Now; a wall-clock reading, not a monotonic one
	K0          uint64
	K1          uint64
	Completed   bool
}

// SyncRegistry owns the two per-peer session maps ("requested", sessions
// this node initiated, and "responded", sessions a peer initiated against
// this node) behind a single mutex, replacing the module-level maps the
// original kept keyed by raw peer pointers. A peer's entry lives here
// until superseded by a fresh session or explicitly cleared by the
// connection layer on disconnect.
type SyncRegistry struct {
	mu        sync.Mutex
	requested map[string]*State
	responded map[string]*State
}

// NewSyncRegistry returns an empty SyncRegistry.
func NewSyncRegistry() *SyncRegistry {
	return &SyncRegistry{
		requested: make(map[string]*State),
		responded: make(map[string]*State),
	}
}

// Requested returns the session this node initiated against peerID, if any.
func (r *SyncRegistry) Requested(peerID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.requested[peerID]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// SetRequested records or replaces the session this node initiated against
// peerID.
func (r *SyncRegistry) SetRequested(peerID string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requested[peerID] = &s
}

// CompleteRequested marks the outstanding requested session against peerID
// complete, if one exists.
func (r *SyncRegistry) CompleteRequested(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.requested[peerID]; ok {
		s.Completed = true
	}
}

// Responded returns the session peerID initiated against this node, if any.
func (r *SyncRegistry) Responded(peerID string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.responded[peerID]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// SetResponded records or replaces the session peerID initiated against
// this node.
func (r *SyncRegistry) SetResponded(peerID string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responded[peerID] = &s
}

// CompleteResponded marks the outstanding responded session against peerID
// complete, if one exists.
func (r *SyncRegistry) CompleteResponded(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.responded[peerID]; ok {
		s.Completed = true
	}
}

// Clear drops every session held for peerID in both directions. The
// connection layer calls this when a peer disconnects.
func (r *SyncRegistry) Clear(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requested, peerID)
	delete(r.responded, peerID)
}
