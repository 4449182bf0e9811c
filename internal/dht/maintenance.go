package dht

// Maintenance is the extension point for a ring membership protocol. The
// wire format reserves Stabilize, Notify and Join tags and the dispatcher
// routes them here, but the lookup core does not mandate an algorithm; an
// implementation may update the node's predecessor and successor through the
// exported setters.
type Maintenance interface {
	// HandleStabilize processes a stabilize message; msg.Peer is the
	// originator.
	HandleStabilize(n *Node, msg Message)

	// HandleNotify processes a notify message; msg.Peer is the originator's
	// predecessor candidate.
	HandleNotify(n *Node, msg Message)

	// HandleJoin processes a join request; msg.Peer is the joining node.
	HandleJoin(n *Node, msg Message)
}

// NoopMaintenance accepts every maintenance message without acting on it.
// It pins down the contract that an absent membership protocol must not
// disturb the node's peers or cache.
type NoopMaintenance struct{}

func (NoopMaintenance) HandleStabilize(*Node, Message) {}
func (NoopMaintenance) HandleNotify(*Node, Message)    {}
func (NoopMaintenance) HandleJoin(*Node, Message)      {}

// Ensure NoopMaintenance implements the Maintenance interface at compile time.
var _ Maintenance = NoopMaintenance{}
