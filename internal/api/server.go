// Package api exposes the node's admin surface over HTTP: status, a
// local-knowledge resolve endpoint, Prometheus metrics and a WebSocket feed
// of routing events.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zde37/halo/internal/dht"
	"github.com/zde37/halo/internal/ring"
	"github.com/zde37/halo/pkg"
)

// Server is the HTTP admin server for one node.
type Server struct {
	httpServer *http.Server
	wsHub      *WebSocketHub
	node       *dht.Node
	logger     *pkg.Logger
}

// NewServer creates the admin server for the given node.
func NewServer(node *dht.Node, logger *pkg.Logger) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("node cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Server{
		node:   node,
		wsHub:  NewWebSocketHub(logger),
		logger: logger.WithFields(pkg.Fields{"component": "http_api"}),
	}, nil
}

// Hub returns the WebSocket hub so it can be installed as the node's event
// broadcaster.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Start starts the HTTP server on the given port.
func (s *Server) Start(port int) error {
	go s.wsHub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/status", s.statusHandler)
	mux.HandleFunc("/api/resolve", s.resolveHandler)
	mux.HandleFunc("/api/ws", s.wsHub.HandleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.logger.Info().Int("port", port).Msg("HTTP admin server started")
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP admin server")

	if s.wsHub != nil {
		s.wsHub.Stop()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}

	s.logger.Info().Msg("HTTP admin server stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// peerInfo is the JSON shape of a possibly unknown peer.
type peerInfo struct {
	Known bool   `json:"known"`
	ID    uint16 `json:"id,omitempty"`
	Addr  string `json:"addr,omitempty"`
}

func toPeerInfo(p dht.Peer, known bool) peerInfo {
	if !known {
		return peerInfo{}
	}
	return peerInfo{
		Known: true,
		ID:    uint16(p.ID),
		Addr:  p.AddrPort().String(),
	}
}

// statusHandler reports the node's identity, neighbors and cache usage.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	pred, predOK := s.node.Predecessor()
	succ, succOK := s.node.Successor()
	anchor, anchorOK := s.node.Anchor()

	status := struct {
		Self        peerInfo       `json:"self"`
		Predecessor peerInfo       `json:"predecessor"`
		Successor   peerInfo       `json:"successor"`
		Anchor      peerInfo       `json:"anchor"`
		Cache       dht.CacheStats `json:"cache"`
	}{
		Self:        toPeerInfo(s.node.Self(), true),
		Predecessor: toPeerInfo(pred, predOK),
		Successor:   toPeerInfo(succ, succOK),
		Anchor:      toPeerInfo(anchor, anchorOK),
		Cache:       s.node.Cache().Stats(),
	}

	writeJSON(w, http.StatusOK, status)
}

// resolveHandler answers who is locally believed responsible for a key. When
// local knowledge is insufficient it fires a background lookup and reports
// 404 so the caller can poll again.
func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing key parameter"})
		return
	}

	id := ring.Hash(key)

	if peer, ok := s.node.Resolve(id); ok {
		writeJSON(w, http.StatusOK, struct {
			Key  string   `json:"key"`
			ID   uint16   `json:"id"`
			Peer peerInfo `json:"peer"`
		}{
			Key:  key,
			ID:   uint16(id),
			Peer: toPeerInfo(peer, true),
		})
		return
	}

	if err := s.node.Lookup(id); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to issue lookup")
	}

	writeJSON(w, http.StatusNotFound, struct {
		Key    string `json:"key"`
		ID     uint16 `json:"id"`
		Status string `json:"status"`
	}{
		Key:    key,
		ID:     uint16(id),
		Status: "unknown, lookup issued",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
