package cache

import (
	"sync/atomic"
	"time"
)

// CacheMetrics is a point-in-time view of multi-level cache traffic.
// L1Hits is a subset of Hits.
type CacheMetrics struct {
	Hits     int64     `json:"hits"`
	L1Hits   int64     `json:"l1_hits"`
	Misses   int64     `json:"misses"`
	Errors   int64     `json:"errors"`
	Sets     int64     `json:"sets"`
	Deletes  int64     `json:"deletes"`
	Since    time.Time `json:"since"`
	HitRatio float64   `json:"hit_ratio"`
}

type counters struct {
	hits, l1Hits, misses atomic.Int64
	errors               atomic.Int64
	sets, deletes        atomic.Int64
	since                time.Time
}

func newCounters() *counters {
	return &counters{since: time.Now()}
}

func (c *counters) hit(fromL1 bool) {
	c.hits.Add(1)
	if fromL1 {
		c.l1Hits.Add(1)
	}
}

func (c *counters) snapshot() CacheMetrics {
	m := CacheMetrics{
		Hits:    c.hits.Load(),
		L1Hits:  c.l1Hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Since:   c.since,
	}
	if lookups := m.Hits + m.Misses; lookups > 0 {
		m.HitRatio = float64(m.Hits) / float64(lookups)
	}
	return m
}
