// Package peer wraps a single connected remote node with the minimal
// surface the protocol layer needs: a stable identity, a place to stash
// values the remote advertised during the extended version handshake, and
// an outgoing route to hand it messages.
package peer

import (
	"fmt"
	"sync"

	"github.com/hexmire/subtail/app/appmessage"
	"github.com/hexmire/subtail/infrastructure/network/netadapter/router"
)

// Peer represents a single connected remote node.
type Peer struct {
	id     string
	router *router.Router

	mtx              sync.RWMutex
	extendedVersions map[string]uint64
}

// New returns a new Peer identified by id and routed through router.
func New(id string, router *router.Router) *Peer {
	return &Peer{
		id:               id,
		router:           router,
		extendedVersions: make(map[string]uint64),
	}
}

// ID returns the peer's stable identity, as assigned by the connection
// layer at handshake time.
func (p *Peer) ID() string {
	return p.id
}

// LogName returns a human-readable name for this peer suitable for log
// messages.
func (p *Peer) LogName() string {
	return fmt.Sprintf("peer %s", p.id)
}

// ExtendedVersion returns a value the remote peer advertised under key
// during the extended version handshake, or zero if it advertised none.
func (p *Peer) ExtendedVersion(key string) uint64 {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.extendedVersions[key]
}

// SetExtendedVersion records a value the remote peer advertised under key
// during the extended version handshake.
func (p *Peer) SetExtendedVersion(key string, value uint64) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.extendedVersions[key] = value
}

// Send enqueues message on the peer's outgoing route.
func (p *Peer) Send(message appmessage.Message) error {
	return p.router.OutgoingRoute().Enqueue(message)
}
