package dht

// Routing event types
const (
	EventLookupAnswered  = "lookup_answered"
	EventLookupForwarded = "lookup_forwarded"
	EventLookupSent      = "lookup_sent"
	EventReplyRecorded   = "reply_recorded"
	EventJoinSent        = "join_sent"
)

// EventBroadcaster is an interface for publishing routing events. It lets the
// Node notify external systems (like WebSocket clients) about lookup traffic
// without creating circular dependencies.
type EventBroadcaster interface {
	// BroadcastRoutingEvent sends a routing event notification.
	// The event parameter will be serialized and sent as-is.
	BroadcastRoutingEvent(event any) error
}

// RoutingEvent describes one routing decision taken by the node.
type RoutingEvent struct {
	Type      string `json:"type"`      // one of the Event* constants
	Key       uint16 `json:"key"`       // ring identifier the decision was about
	Peer      string `json:"peer"`      // peer the message went to or named
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}
