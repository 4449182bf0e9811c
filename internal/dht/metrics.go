package dht

// Metrics receives counters from the routing core. Implementations must be
// safe for concurrent use; all methods are called from the dispatch path.
type Metrics interface {
	// CacheHit is called when BestMatch returns a fresh entry.
	CacheHit()

	// CacheMiss is called when BestMatch finds no usable entry.
	CacheMiss()

	// CacheRefresh is called when a reply refreshes an existing slot in place.
	CacheRefresh()

	// CacheEvict is called when a reply overwrites a previously used slot.
	CacheEvict()

	// MessageReceived is called once per decoded inbound message.
	MessageReceived(t MessageType)

	// MessageSent is called once per outbound message handed to the transport.
	MessageSent(t MessageType)

	// UnknownDropped is called when an inbound message is dropped for carrying
	// an unrecognized tag.
	UnknownDropped()
}

// NoopMetrics is a drop-in Metrics implementation that does nothing. It is
// the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) CacheHit()                   {}
func (NoopMetrics) CacheMiss()                  {}
func (NoopMetrics) CacheRefresh()               {}
func (NoopMetrics) CacheEvict()                 {}
func (NoopMetrics) MessageReceived(MessageType) {}
func (NoopMetrics) MessageSent(MessageType)     {}
func (NoopMetrics) UnknownDropped()             {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
