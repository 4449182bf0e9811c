package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zde37/halo/internal/dht"
)

func TestAdapter_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "halo_test", nil)

	a.CacheHit()
	a.CacheHit()
	a.CacheMiss()
	a.CacheRefresh()
	a.CacheEvict()
	a.UnknownDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheRefreshes))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheEvicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.unknownDrops))
}

func TestAdapter_MessageCountersByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "halo_test", nil)

	a.MessageReceived(dht.TypeLookup)
	a.MessageReceived(dht.TypeLookup)
	a.MessageReceived(dht.TypeReply)
	a.MessageSent(dht.TypeReply)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.rx.WithLabelValues("lookup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.rx.WithLabelValues("reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.tx.WithLabelValues("reply")))
	assert.Equal(t, 0.0, testutil.ToFloat64(a.tx.WithLabelValues("lookup")))
}

func TestAdapter_RegistersWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "halo_test", prometheus.Labels{"node": "test"})
	a.CacheHit()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["halo_test_lookup_cache_hits_total"])
}
