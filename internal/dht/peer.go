package dht

import (
	"fmt"
	"net/netip"

	"github.com/zde37/halo/internal/ring"
)

// Peer is a complete description of a node in the overlay: its ring
// identifier, IPv4 address and UDP port. Peer is an immutable value type
// compared by exact field equality; a meaningful Peer is never the zero
// value, so absence is always signalled with a separate bool, not a zero
// Peer.
type Peer struct {
	ID   ring.ID
	Addr netip.Addr
	Port uint16
}

// NewPeer creates a Peer from its identifier and network endpoint.
func NewPeer(id ring.ID, addr netip.Addr, port uint16) Peer {
	return Peer{ID: id, Addr: addr.Unmap(), Port: port}
}

// String returns a human-readable representation of the peer.
// Format: "Peer{ID: <hex>, Addr: <addr>:<port>}"
func (p Peer) String() string {
	return fmt.Sprintf("Peer{ID: %04x, Addr: %s:%d}", uint16(p.ID), p.Addr, p.Port)
}

// AddrPort returns the peer's UDP endpoint.
func (p Peer) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(p.Addr, p.Port)
}

// Equals checks if two peers are equal in every field.
func (p Peer) Equals(other Peer) bool {
	return p == other
}

// IsZero reports whether the peer is the zero value. The zero Peer carries no
// information and must never be routed to.
func (p Peer) IsZero() bool {
	return p == Peer{}
}
