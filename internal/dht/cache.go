package dht

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/zde37/halo/internal/ring"
)

const (
	// DefaultCacheSlots is the fixed number of lookup cache entries.
	DefaultCacheSlots = 30

	// DefaultCacheValidity is how long a recorded reply stays authoritative.
	DefaultCacheValidity = 2000 * time.Millisecond
)

// cacheEntry is one learned responsibility fact: the arc (pred, peer.ID] is
// owned by peer, observed at the stored time. A zero time marks a slot that
// has never been used.
type cacheEntry struct {
	at   time.Time
	pred ring.ID
	peer Peer
}

// LookupCache is a fixed-capacity table of the most recent lookup replies.
// The table never grows; entries are overwritten in place and decay by time,
// never by explicit deletion. Replacement is least-recently-updated: unused
// slots compare as oldest by construction, and expired slots are older than
// fresh ones, so no separate freshness check is needed when picking a victim.
type LookupCache struct {
	mu       sync.Mutex
	slots    []cacheEntry
	validity time.Duration
	clock    clock.Clock
	metrics  Metrics
}

// CacheStats is a point-in-time summary of the cache, exposed on the admin
// API.
type CacheStats struct {
	Slots int `json:"slots"`
	Used  int `json:"used"`
	Fresh int `json:"fresh"`
}

// NewLookupCache creates a cache with the given capacity and validity window.
// The clock is injectable so freshness behavior is testable; pass clock.New()
// for wall time. A nil metrics sink defaults to NoopMetrics.
func NewLookupCache(slots int, validity time.Duration, clk clock.Clock, metrics Metrics) *LookupCache {
	if slots <= 0 {
		slots = DefaultCacheSlots
	}
	if validity <= 0 {
		validity = DefaultCacheValidity
	}
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	return &LookupCache{
		slots:    make([]cacheEntry, slots),
		validity: validity,
		clock:    clk,
		metrics:  metrics,
	}
}

// Record enters the fact learned from a reply: peer owns the arc ending at
// its identifier, starting after pred. If a slot already holds this peer it
// is refreshed in place, so the cache never carries duplicates for one peer.
// Otherwise the least-recently-updated slot is overwritten.
func (c *LookupCache) Record(pred ring.ID, peer Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	for i := range c.slots {
		slot := &c.slots[i]
		if !slot.at.IsZero() && slot.peer == peer && slot.at.Before(now) {
			slot.at = now
			slot.pred = pred
			c.metrics.CacheRefresh()
			return
		}
	}

	victim := 0
	for i := range c.slots {
		if c.slots[i].at.Before(c.slots[victim].at) {
			victim = i
		}
	}

	if !c.slots[victim].at.IsZero() {
		c.metrics.CacheEvict()
	}
	c.slots[victim] = cacheEntry{at: now, pred: pred, peer: peer}
}

// BestMatch returns the first fresh entry, in slot order, whose arc covers
// id. Entries older than the validity window are never authoritative, though
// they remain replacement victims for Record.
func (c *LookupCache) BestMatch(id ring.ID) (Peer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	for i := range c.slots {
		slot := &c.slots[i]
		if slot.at.IsZero() || now.Sub(slot.at) >= c.validity {
			continue
		}
		if ring.Responsible(slot.pred, slot.peer.ID, id) {
			c.metrics.CacheHit()
			return slot.peer, true
		}
	}

	c.metrics.CacheMiss()
	return Peer{}, false
}

// Stats reports slot usage for the admin API.
func (c *LookupCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	stats := CacheStats{Slots: len(c.slots)}
	for i := range c.slots {
		if c.slots[i].at.IsZero() {
			continue
		}
		stats.Used++
		if now.Sub(c.slots[i].at) < c.validity {
			stats.Fresh++
		}
	}
	return stats
}
