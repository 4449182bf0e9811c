// Package ring defines the cyclic 16-bit identifier space of the overlay:
// hashing of keys to ring positions, the wraparound distance, and the
// responsibility predicate every routing decision is built on.
package ring

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// Bits is the width of the identifier space.
	Bits = 16

	// Size is the number of identifiers on the ring (2^Bits).
	Size = 1 << Bits
)

// ID is a position on the ring. The space wraps around, so IDs have no
// meaningful total order; compare them through Distance only.
type ID uint16

// Hash maps a key to its ring position. The key is digested with SHA-256 and
// the leading two bytes of the digest, read big-endian, form the ID.
// Collisions are an accepted property of the truncated space.
func Hash(key string) ID {
	digest := sha256.Sum256([]byte(key))
	return ID(binary.BigEndian.Uint16(digest[:2]))
}

// Distance returns the clockwise distance from one ID to another,
// (to - from) mod 2^Bits. It is asymmetric: Distance(a, b) and
// Distance(b, a) differ unless a == b.
func Distance(from, to ID) ID {
	return to - from
}

// Responsible reports whether the peer owning the arc (pred, peer] covers id.
// A peer whose predecessor is itself is alone on the ring and covers
// everything. A false result says nothing about who IS responsible; in
// particular it does not imply the predecessor is.
func Responsible(pred, peer, id ID) bool {
	if pred == peer {
		return true
	}
	return Distance(id, peer) < Distance(id, pred)
}
