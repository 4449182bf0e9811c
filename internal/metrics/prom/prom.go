// Package prom exports the routing core's counters to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zde37/halo/internal/dht"
)

// Adapter implements dht.Metrics and exports Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheRefreshes prometheus.Counter
	cacheEvicts    prometheus.Counter
	rx             *prometheus.CounterVec
	tx             *prometheus.CounterVec
	unknownDrops   prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns:          Prometheus namespace
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "lookup_cache",
			Name:        "hits_total",
			Help:        "Cache entries that answered a resolve",
			ConstLabels: constLabels,
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "lookup_cache",
			Name:        "misses_total",
			Help:        "Resolves the cache could not answer",
			ConstLabels: constLabels,
		}),
		cacheRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "lookup_cache",
			Name:        "refreshes_total",
			Help:        "Replies that refreshed an existing slot",
			ConstLabels: constLabels,
		}),
		cacheEvicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "lookup_cache",
			Name:        "evictions_total",
			Help:        "Used slots overwritten by newer replies",
			ConstLabels: constLabels,
		}),
		rx: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "messages",
				Name:        "received_total",
				Help:        "Inbound messages by type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		tx: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "messages",
				Name:        "sent_total",
				Help:        "Outbound messages by type",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		unknownDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   "messages",
			Name:        "unknown_dropped_total",
			Help:        "Messages dropped for carrying an unrecognized tag",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.cacheHits, a.cacheMisses, a.cacheRefreshes, a.cacheEvicts, a.rx, a.tx, a.unknownDrops)
	return a
}

// CacheHit increments the cache hit counter.
func (a *Adapter) CacheHit() { a.cacheHits.Inc() }

// CacheMiss increments the cache miss counter.
func (a *Adapter) CacheMiss() { a.cacheMisses.Inc() }

// CacheRefresh increments the in-place refresh counter.
func (a *Adapter) CacheRefresh() { a.cacheRefreshes.Inc() }

// CacheEvict increments the eviction counter.
func (a *Adapter) CacheEvict() { a.cacheEvicts.Inc() }

// MessageReceived counts one inbound message with its type label.
func (a *Adapter) MessageReceived(t dht.MessageType) {
	a.rx.WithLabelValues(t.String()).Inc()
}

// MessageSent counts one outbound message with its type label.
func (a *Adapter) MessageSent(t dht.MessageType) {
	a.tx.WithLabelValues(t.String()).Inc()
}

// UnknownDropped counts one dropped unrecognized message.
func (a *Adapter) UnknownDropped() { a.unknownDrops.Inc() }

// Compile-time check: ensure Adapter implements dht.Metrics.
var _ dht.Metrics = (*Adapter)(nil)
