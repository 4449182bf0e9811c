package dht

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zde37/halo/internal/ring"
)

func testCache(slots int) (*LookupCache, *clock.Mock) {
	mock := clock.NewMock()
	return NewLookupCache(slots, DefaultCacheValidity, mock, nil), mock
}

func TestLookupCache_RecordAndMatch(t *testing.T) {
	c, _ := testCache(DefaultCacheSlots)
	peer := testPeer(100, "10.0.0.1", 1400)

	c.Record(50, peer)

	t.Run("id inside the arc matches", func(t *testing.T) {
		got, ok := c.BestMatch(75)
		require.True(t, ok)
		assert.Equal(t, peer, got)
	})

	t.Run("id outside the arc does not match", func(t *testing.T) {
		_, ok := c.BestMatch(150)
		assert.False(t, ok)
	})

	t.Run("arc end is inclusive, arc start is not", func(t *testing.T) {
		_, ok := c.BestMatch(50)
		assert.False(t, ok)

		got, ok := c.BestMatch(100)
		require.True(t, ok)
		assert.Equal(t, peer, got)
	})
}

func TestLookupCache_FreshnessWindow(t *testing.T) {
	c, mock := testCache(DefaultCacheSlots)
	peer := testPeer(100, "10.0.0.1", 1400)

	c.Record(50, peer)

	t.Run("matchable just before expiry", func(t *testing.T) {
		mock.Add(DefaultCacheValidity - time.Millisecond)
		_, ok := c.BestMatch(75)
		assert.True(t, ok)
	})

	t.Run("not matchable just after expiry", func(t *testing.T) {
		mock.Add(2 * time.Millisecond)
		_, ok := c.BestMatch(75)
		assert.False(t, ok)
	})

	t.Run("expired entries remain in the table", func(t *testing.T) {
		stats := c.Stats()
		assert.Equal(t, 1, stats.Used)
		assert.Equal(t, 0, stats.Fresh)
	})
}

func TestLookupCache_ReplacementLaw(t *testing.T) {
	c, mock := testCache(DefaultCacheSlots)
	peer := testPeer(100, "10.0.0.1", 1400)

	c.Record(50, peer)
	mock.Add(time.Millisecond)
	c.Record(60, peer)

	t.Run("same peer refreshes in place", func(t *testing.T) {
		assert.Equal(t, 1, c.Stats().Used)
	})

	t.Run("refresh updates the predecessor", func(t *testing.T) {
		// 55 was inside (50, 100] but is outside (60, 100]
		_, ok := c.BestMatch(55)
		assert.False(t, ok)

		got, ok := c.BestMatch(80)
		require.True(t, ok)
		assert.Equal(t, peer, got)
	})
}

func TestLookupCache_CapacityLaw(t *testing.T) {
	const slots = 30
	c, mock := testCache(slots)

	// 40 distinct peers, each owning the disjoint arc (i*100, i*100+100]
	for i := 0; i < 40; i++ {
		peer := testPeer(uint16(i*100+100), "10.0.0.1", uint16(2000+i))
		c.Record(ring.ID(i*100), peer)
		mock.Add(time.Millisecond)
	}

	t.Run("table never grows past capacity", func(t *testing.T) {
		assert.Equal(t, slots, c.Stats().Used)
	})

	t.Run("distinct retrievable peers never exceed capacity", func(t *testing.T) {
		distinct := make(map[Peer]bool)
		for i := 0; i < 40; i++ {
			if peer, ok := c.BestMatch(ring.ID(i*100 + 50)); ok {
				distinct[peer] = true
			}
		}
		assert.LessOrEqual(t, len(distinct), slots)
	})

	t.Run("oldest entries were evicted", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			_, ok := c.BestMatch(ring.ID(i*100 + 50))
			assert.False(t, ok, "arc %d should have been evicted", i)
		}
		for i := 10; i < 40; i++ {
			_, ok := c.BestMatch(ring.ID(i*100 + 50))
			assert.True(t, ok, "arc %d should still be cached", i)
		}
	})
}

func TestLookupCache_EmptySlotsFillBeforeEviction(t *testing.T) {
	c, mock := testCache(5)

	for i := 0; i < 5; i++ {
		c.Record(ring.ID(i*1000), testPeer(uint16(i*1000+500), "10.0.0.2", uint16(3000+i)))
		mock.Add(time.Millisecond)
	}

	assert.Equal(t, 5, c.Stats().Used)

	// All five arcs are still present
	for i := 0; i < 5; i++ {
		_, ok := c.BestMatch(ring.ID(i*1000 + 250))
		assert.True(t, ok, "arc %d", i)
	}
}

func TestLookupCache_ScanOrderBreaksTies(t *testing.T) {
	c, _ := testCache(DefaultCacheSlots)

	// Two overlapping facts recorded at the same instant; the first slot wins
	first := testPeer(200, "10.0.0.1", 1400)
	second := testPeer(300, "10.0.0.2", 1400)
	c.Record(0, first)
	c.Record(0, second)

	got, ok := c.BestMatch(150)
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestLookupCache_Stats(t *testing.T) {
	c, mock := testCache(10)
	assert.Equal(t, CacheStats{Slots: 10, Used: 0, Fresh: 0}, c.Stats())

	c.Record(0, testPeer(100, "10.0.0.1", 1400))
	mock.Add(DefaultCacheValidity + time.Millisecond)
	c.Record(100, testPeer(200, "10.0.0.2", 1400))

	assert.Equal(t, CacheStats{Slots: 10, Used: 2, Fresh: 1}, c.Stats())
}

func BenchmarkLookupCache_BestMatch(b *testing.B) {
	c := NewLookupCache(DefaultCacheSlots, DefaultCacheValidity, nil, nil)
	for i := 0; i < DefaultCacheSlots; i++ {
		c.Record(ring.ID(i*2000), testPeer(uint16(i*2000+1000), "10.0.0.1", uint16(1400+i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.BestMatch(ring.ID(i))
	}
}

func BenchmarkLookupCache_Record(b *testing.B) {
	c := NewLookupCache(DefaultCacheSlots, DefaultCacheValidity, nil, nil)
	peers := make([]Peer, 64)
	for i := range peers {
		peers[i] = testPeer(uint16(i*1000), "10.0.0.1", uint16(1400+i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Record(ring.ID(i), peers[i%len(peers)])
	}
}
