package dht

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeer_Equals(t *testing.T) {
	base := testPeer(42, "127.0.0.1", 1400)

	tests := []struct {
		name     string
		other    Peer
		expected bool
	}{
		{"identical", testPeer(42, "127.0.0.1", 1400), true},
		{"different id", testPeer(43, "127.0.0.1", 1400), false},
		{"different address", testPeer(42, "127.0.0.2", 1400), false},
		{"different port", testPeer(42, "127.0.0.1", 1401), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.Equals(tt.other))
		})
	}
}

func TestPeer_String(t *testing.T) {
	p := testPeer(255, "127.0.0.1", 8080)
	s := p.String()
	assert.Contains(t, s, "00ff")
	assert.Contains(t, s, "127.0.0.1:8080")
}

func TestPeer_AddrPort(t *testing.T) {
	p := testPeer(1, "192.168.1.9", 9000)
	assert.Equal(t, netip.MustParseAddrPort("192.168.1.9:9000"), p.AddrPort())
}

func TestPeer_IsZero(t *testing.T) {
	assert.True(t, Peer{}.IsZero())
	assert.False(t, testPeer(0, "0.0.0.1", 0).IsZero())
}
