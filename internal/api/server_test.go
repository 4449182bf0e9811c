package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zde37/halo/internal/config"
	"github.com/zde37/halo/internal/dht"
	"github.com/zde37/halo/internal/ring"
	"github.com/zde37/halo/pkg"
)

type recordingSender struct {
	sent []dht.Message
}

func (r *recordingSender) Send(msg dht.Message, to dht.Peer) error {
	r.sent = append(r.sent, msg)
	return nil
}

func newTestServer(t *testing.T) (*Server, *dht.Node, *recordingSender) {
	t.Helper()

	logger, err := pkg.NewLogger(pkg.DefaultLogConfig())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.ID = 100

	node, err := dht.NewNode(cfg, logger)
	require.NoError(t, err)

	sender := &recordingSender{}
	node.SetSender(sender)

	server, err := NewServer(node, logger)
	require.NoError(t, err)
	return server, node, sender
}

func peerAt(id uint16, port uint16) dht.Peer {
	return dht.NewPeer(ring.ID(id), netip.MustParseAddr("10.0.0.1"), port)
}

func TestNewServer(t *testing.T) {
	logger, err := pkg.NewLogger(pkg.DefaultLogConfig())
	require.NoError(t, err)

	t.Run("nil node", func(t *testing.T) {
		server, err := NewServer(nil, logger)
		assert.Error(t, err)
		assert.Nil(t, server)
	})

	t.Run("nil logger", func(t *testing.T) {
		cfg := config.DefaultConfig()
		node, err := dht.NewNode(cfg, logger)
		require.NoError(t, err)

		server, err := NewServer(node, nil)
		assert.Error(t, err)
		assert.Nil(t, server)
	})
}

func TestServer_Health(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestServer_Status(t *testing.T) {
	server, node, _ := newTestServer(t)

	t.Run("fresh node has no neighbors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.statusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var status struct {
			Self        peerInfo       `json:"self"`
			Predecessor peerInfo       `json:"predecessor"`
			Successor   peerInfo       `json:"successor"`
			Cache       dht.CacheStats `json:"cache"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))

		assert.True(t, status.Self.Known)
		assert.Equal(t, uint16(100), status.Self.ID)
		assert.False(t, status.Predecessor.Known)
		assert.False(t, status.Successor.Known)
		assert.Equal(t, 30, status.Cache.Slots)
	})

	t.Run("neighbors show up once set", func(t *testing.T) {
		node.SetPredecessor(peerAt(50, 1401))
		node.SetSuccessor(peerAt(150, 1402))

		rec := httptest.NewRecorder()
		server.statusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var status struct {
			Predecessor peerInfo `json:"predecessor"`
			Successor   peerInfo `json:"successor"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))

		assert.True(t, status.Predecessor.Known)
		assert.Equal(t, uint16(50), status.Predecessor.ID)
		assert.True(t, status.Successor.Known)
		assert.Equal(t, "10.0.0.1:1402", status.Successor.Addr)
	})
}

func TestServer_Resolve(t *testing.T) {
	t.Run("missing key parameter", func(t *testing.T) {
		server, _, _ := newTestServer(t)

		rec := httptest.NewRecorder()
		server.resolveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/resolve", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("locally resolvable key", func(t *testing.T) {
		server, node, _ := newTestServer(t)

		// Single node ring: everything resolves to self
		node.SetPredecessor(node.Self())
		node.SetSuccessor(node.Self())

		rec := httptest.NewRecorder()
		server.resolveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/resolve?key=hello", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Key  string   `json:"key"`
			ID   uint16   `json:"id"`
			Peer peerInfo `json:"peer"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "hello", resp.Key)
		assert.Equal(t, uint16(ring.Hash("hello")), resp.ID)
		assert.Equal(t, uint16(100), resp.Peer.ID)
	})

	t.Run("unresolvable key fires a lookup and reports 404", func(t *testing.T) {
		server, node, sender := newTestServer(t)

		// Successor owns a narrow arc, hash("hello")=0x2cf2 is outside it
		node.SetPredecessor(peerAt(50, 1401))
		node.SetSuccessor(peerAt(150, 1402))

		rec := httptest.NewRecorder()
		server.resolveHandler(rec, httptest.NewRequest(http.MethodGet, "/api/resolve?key=hello", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, dht.TypeLookup, sender.sent[0].Type)
		assert.Equal(t, ring.Hash("hello"), sender.sent[0].Key)
	})
}
