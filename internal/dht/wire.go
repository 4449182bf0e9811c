package dht

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/zde37/halo/internal/ring"
	"github.com/zde37/halo/pkg"
)

// MessageType tags a wire message. The numeric values are part of the
// protocol and must not be reordered.
type MessageType uint8

const (
	// TypeLookup asks who is responsible for Key; Peer is the originator.
	TypeLookup MessageType = iota

	// TypeReply answers a lookup; Peer is the responsible peer and Key is
	// that peer's predecessor identifier, which together define the arc it
	// owns.
	TypeReply

	// TypeStabilize carries the originator in Peer and its identifier in Key
	// (redundant with Peer.ID, but unambiguous).
	TypeStabilize

	// TypeNotify carries the originator's predecessor in Peer; Key is unused.
	TypeNotify

	// TypeJoin carries the originator in Peer; Key is unused.
	TypeJoin
)

// Valid reports whether the tag is one the protocol defines.
func (t MessageType) Valid() bool {
	return t <= TypeJoin
}

func (t MessageType) String() string {
	switch t {
	case TypeLookup:
		return "lookup"
	case TypeReply:
		return "reply"
	case TypeStabilize:
		return "stabilize"
	case TypeNotify:
		return "notify"
	case TypeJoin:
		return "join"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// MessageSize is the exact wire size of every message. One datagram carries
// exactly one message; anything else is a framing error.
const MessageSize = 11

// Fixed field offsets within a wire message. Multi-byte fields are network
// (big-endian) byte order. Encode and Decode are exact inverses over this
// layout.
const (
	offTag      = 0
	offKey      = 1
	offPeerID   = 3
	offPeerAddr = 5
	offPeerPort = 9
)

// Message is one overlay datagram. Messages are transient: they exist for
// the duration of a single send or receive and are never persisted.
type Message struct {
	Type MessageType
	Key  ring.ID
	Peer Peer
}

// Encode serializes the message into its fixed wire layout.
func (m Message) Encode() []byte {
	buf := make([]byte, MessageSize)
	buf[offTag] = byte(m.Type)
	binary.BigEndian.PutUint16(buf[offKey:], uint16(m.Key))
	binary.BigEndian.PutUint16(buf[offPeerID:], uint16(m.Peer.ID))

	var addr [4]byte
	if a := m.Peer.Addr.Unmap(); a.Is4() {
		addr = a.As4()
	}
	copy(buf[offPeerAddr:], addr[:])

	binary.BigEndian.PutUint16(buf[offPeerPort:], m.Peer.Port)
	return buf
}

// Decode parses one wire message. The datagram must be exactly MessageSize
// bytes; the tag is not validated here so that dispatch can report and drop
// unrecognized types instead of failing the whole receive path.
func Decode(data []byte) (Message, error) {
	if len(data) != MessageSize {
		return Message{}, fmt.Errorf("%w: got %d bytes, want %d", pkg.ErrShortMessage, len(data), MessageSize)
	}

	var addr [4]byte
	copy(addr[:], data[offPeerAddr:offPeerPort])

	return Message{
		Type: MessageType(data[offTag]),
		Key:  ring.ID(binary.BigEndian.Uint16(data[offKey:])),
		Peer: Peer{
			ID:   ring.ID(binary.BigEndian.Uint16(data[offPeerID:])),
			Addr: netip.AddrFrom4(addr),
			Port: binary.BigEndian.Uint16(data[offPeerPort:]),
		},
	}, nil
}
