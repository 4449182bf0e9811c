package dht

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/zde37/halo/internal/config"
	"github.com/zde37/halo/internal/ring"
	"github.com/zde37/halo/pkg"
)

// Sender transmits one encoded message to a peer. The UDP transport
// implements it; tests substitute a recorder.
type Sender interface {
	Send(msg Message, to Peer) error
}

// Node is the routing core of one overlay member. It decides, for any ring
// identifier, who is locally believed responsible, and relays lookups it
// cannot answer along the successor chain.
//
// All peer fields and the cache are guarded: the transport goroutine mutates
// them while API handlers and local callers read them.
type Node struct {
	// Node identity, fixed for the process lifetime
	self Peer

	// Configuration
	config *config.Config

	// Logger
	logger *pkg.Logger

	// Lookup result cache
	cache *LookupCache

	// Outbound transport
	sender Sender

	// Ring membership extension
	maintenance Maintenance

	// Optional routing event sink
	broadcaster EventBroadcaster

	// Metrics sink
	metrics Metrics

	// Clock shared with the cache, injectable for tests
	clock clock.Clock

	// Ring neighbors and the bootstrap contact; nil while unknown
	predecessor *Peer
	successor   *Peer
	anchor      *Peer
	peerMu      sync.RWMutex
}

// NewNode creates a node from the given configuration. The node's identifier
// comes from cfg.ID, or is derived by hashing host:port when cfg.ID is -1.
// The sender must be set with SetSender before any operation that emits a
// datagram.
func NewNode(cfg *config.Config, logger *pkg.Logger) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	addr, err := netip.ParseAddr(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", cfg.Host, err)
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return nil, fmt.Errorf("host %q is not an IPv4 address", cfg.Host)
	}

	id := ring.ID(cfg.ID)
	if cfg.ID < 0 {
		id = ring.Hash(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	}

	self := NewPeer(id, addr, uint16(cfg.Port))
	clk := clock.New()
	metrics := Metrics(NoopMetrics{})

	node := &Node{
		self:        self,
		config:      cfg,
		logger:      logger.WithFields(pkg.Fields{"node_id": fmt.Sprintf("%04x", uint16(id))}),
		cache:       NewLookupCache(cfg.CacheSlots, cfg.CacheValidity, clk, metrics),
		maintenance: NoopMaintenance{},
		metrics:     metrics,
		clock:       clk,
	}

	node.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("id", fmt.Sprintf("%04x", uint16(id))).
		Msg("Node created")

	return node, nil
}

// Self returns the node's own identity.
func (n *Node) Self() Peer {
	return n.self
}

// SetSender sets the outbound transport.
func (n *Node) SetSender(sender Sender) {
	n.sender = sender
}

// SetMaintenance installs a ring membership protocol. Passing nil restores
// the no-op default.
func (n *Node) SetMaintenance(m Maintenance) {
	if m == nil {
		m = NoopMaintenance{}
	}
	n.maintenance = m
}

// SetBroadcaster installs an optional routing event sink.
func (n *Node) SetBroadcaster(b EventBroadcaster) {
	n.broadcaster = b
}

// SetMetrics installs a metrics sink for the node and its cache. Passing nil
// restores the no-op default.
func (n *Node) SetMetrics(m Metrics) {
	if m == nil {
		m = NoopMetrics{}
	}
	n.metrics = m
	n.cache = NewLookupCache(n.config.CacheSlots, n.config.CacheValidity, n.clock, m)
}

// Cache returns the node's lookup result cache.
func (n *Node) Cache() *LookupCache {
	return n.cache
}

// Predecessor returns the ring neighbor preceding this node, if known.
func (n *Node) Predecessor() (Peer, bool) {
	n.peerMu.RLock()
	defer n.peerMu.RUnlock()

	if n.predecessor == nil {
		return Peer{}, false
	}
	return *n.predecessor, true
}

// SetPredecessor updates the predecessor.
func (n *Node) SetPredecessor(p Peer) {
	n.peerMu.Lock()
	n.predecessor = &p
	n.peerMu.Unlock()

	n.logger.Debug().
		Str("predecessor", p.String()).
		Msg("Predecessor updated")
}

// ClearPredecessor marks the predecessor as unknown.
func (n *Node) ClearPredecessor() {
	n.peerMu.Lock()
	n.predecessor = nil
	n.peerMu.Unlock()
}

// Successor returns the ring neighbor following this node, if known.
func (n *Node) Successor() (Peer, bool) {
	n.peerMu.RLock()
	defer n.peerMu.RUnlock()

	if n.successor == nil {
		return Peer{}, false
	}
	return *n.successor, true
}

// SetSuccessor updates the successor.
func (n *Node) SetSuccessor(p Peer) {
	n.peerMu.Lock()
	n.successor = &p
	n.peerMu.Unlock()

	n.logger.Debug().
		Str("successor", p.String()).
		Msg("Successor updated")
}

// ClearSuccessor marks the successor as unknown.
func (n *Node) ClearSuccessor() {
	n.peerMu.Lock()
	n.successor = nil
	n.peerMu.Unlock()
}

// Anchor returns the bootstrap contact, if one was used.
func (n *Node) Anchor() (Peer, bool) {
	n.peerMu.RLock()
	defer n.peerMu.RUnlock()

	if n.anchor == nil {
		return Peer{}, false
	}
	return *n.anchor, true
}

// Resolve returns the peer this node currently believes responsible for id,
// using local knowledge only: itself, its successor, then the lookup cache.
// A false result is not an error; it signals that a network lookup is
// required.
func (n *Node) Resolve(id ring.ID) (Peer, bool) {
	if pred, ok := n.Predecessor(); ok && ring.Responsible(pred.ID, n.self.ID, id) {
		return n.self, true
	}

	if succ, ok := n.Successor(); ok && ring.Responsible(n.self.ID, succ.ID, id) {
		return succ, true
	}

	return n.cache.BestMatch(id)
}

// Lookup sends a fire-and-forget lookup for id to the successor. The answer,
// if any, arrives later as a Reply and lands in the cache; callers poll
// Resolve and re-issue lookups themselves, the core schedules no retries.
func (n *Node) Lookup(id ring.ID) error {
	succ, ok := n.Successor()
	if !ok {
		return pkg.ErrNoSuccessor
	}

	msg := Message{Type: TypeLookup, Key: id, Peer: n.self}
	if err := n.send(msg, succ); err != nil {
		return err
	}

	n.broadcast(EventLookupSent, uint16(id), succ)
	return nil
}

// Join announces this node to a bootstrap peer and remembers it as the
// anchor. What the receiving side does with the announcement is up to its
// Maintenance implementation.
func (n *Node) Join(bootstrap Peer) error {
	n.peerMu.Lock()
	b := bootstrap
	n.anchor = &b
	n.peerMu.Unlock()

	msg := Message{Type: TypeJoin, Key: 0, Peer: n.self}
	if err := n.send(msg, bootstrap); err != nil {
		return err
	}

	n.logger.Info().
		Str("bootstrap", bootstrap.String()).
		Msg("Join sent")

	n.broadcast(EventJoinSent, uint16(n.self.ID), bootstrap)
	return nil
}

// HandleDatagram decodes one inbound datagram and dispatches it exactly
// once. Unknown tags are reported and dropped without failing the receive
// path; a decode error is returned for the transport to log.
func (n *Node) HandleDatagram(data []byte, from netip.AddrPort) error {
	msg, err := Decode(data)
	if err != nil {
		return fmt.Errorf("from %s: %w", from, err)
	}

	if !msg.Type.Valid() {
		n.metrics.UnknownDropped()
		n.logger.Warn().
			Err(pkg.ErrUnknownMessageType).
			Uint8("tag", uint8(msg.Type)).
			Str("from", from.String()).
			Msg("Dropping message with unknown tag")
		return nil
	}

	n.metrics.MessageReceived(msg.Type)
	n.logger.Debug().
		Str("type", msg.Type.String()).
		Str("key", fmt.Sprintf("%04x", uint16(msg.Key))).
		Str("from", from.String()).
		Msg("Message received")

	switch msg.Type {
	case TypeLookup:
		return n.handleLookup(msg)
	case TypeReply:
		n.handleReply(msg)
	case TypeStabilize:
		n.maintenance.HandleStabilize(n, msg)
	case TypeNotify:
		n.maintenance.HandleNotify(n, msg)
	case TypeJoin:
		n.maintenance.HandleJoin(n, msg)
	}
	return nil
}

// handleLookup terminates a lookup when the requested key falls on this
// node's own arc or its successor's, and otherwise forwards it unchanged
// along the successor chain. Terminating on the own arc too keeps a lookup
// for a locally owned key from circling the entire ring. The reply names the
// successor as responsible and this node's identifier as the start of the
// owned arc.
func (n *Node) handleLookup(msg Message) error {
	succ, ok := n.Successor()
	if !ok {
		n.logger.Debug().
			Str("key", fmt.Sprintf("%04x", uint16(msg.Key))).
			Msg("No successor known, dropping lookup")
		return nil
	}

	authoritative := ring.Responsible(n.self.ID, succ.ID, msg.Key)
	if pred, ok := n.Predecessor(); ok && !authoritative {
		authoritative = ring.Responsible(pred.ID, n.self.ID, msg.Key)
	}

	if !authoritative {
		if err := n.send(msg, succ); err != nil {
			return err
		}
		n.broadcast(EventLookupForwarded, uint16(msg.Key), succ)
		return nil
	}

	reply := Message{Type: TypeReply, Key: n.self.ID, Peer: succ}
	if err := n.send(reply, msg.Peer); err != nil {
		return err
	}
	n.broadcast(EventLookupAnswered, uint16(msg.Key), succ)
	return nil
}

// handleReply records the learned responsibility fact. Per the Reply
// semantics, msg.Key is the responsible peer's predecessor identifier.
func (n *Node) handleReply(msg Message) {
	n.cache.Record(msg.Key, msg.Peer)
	n.broadcast(EventReplyRecorded, uint16(msg.Key), msg.Peer)
}

// send transmits one message, counting it on success.
func (n *Node) send(msg Message, to Peer) error {
	if n.sender == nil {
		return fmt.Errorf("sender not set - call SetSender() first")
	}

	if err := n.sender.Send(msg, to); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Type, to.AddrPort(), err)
	}

	n.metrics.MessageSent(msg.Type)
	return nil
}

// broadcast publishes a routing event if a sink is installed.
func (n *Node) broadcast(event string, key uint16, peer Peer) {
	if n.broadcaster == nil {
		return
	}

	err := n.broadcaster.BroadcastRoutingEvent(RoutingEvent{
		Type:      event,
		Key:       key,
		Peer:      peer.AddrPort().String(),
		Timestamp: n.clock.Now().UnixMilli(),
	})
	if err != nil {
		n.logger.Debug().Err(err).Msg("Failed to broadcast routing event")
	}
}
