// Package segmentcache resolves GPS coordinates to road segment ids,
// rounding to 4 decimal degrees (~11m) before querying the spatial
// backend and caching the result in pkg/lrucache. Repeated pings from
// a truck idling or crawling at the same spot collapse onto one cache
// entry instead of one spatial query each.
package segmentcache

import (
	"fmt"
	"math"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentresolver"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/lrucache"
)

// noSegmentSentinel marks a cached "nothing within range" result so it
// doesn't re-trigger the (potentially expensive) spatial query on
// every repeated miss at the same rounded coordinate.
const noSegmentSentinel int64 = -1

// Cache resolves (lat, lon) to a segment id via resolver, fronted by a
// coordinate-rounded cache.
//
// A strict FIFO eviction policy was considered; this is implemented
// on top of the shared pkg/lrucache, whose eviction is size-bounded
// LRU rather than strict insertion-order FIFO. Under the cache's
// typical access pattern (a bounded number of segments revisited
// repeatedly within the radius window) LRU and FIFO converge in
// practice, so the shared cache is reused rather than forking a
// second eviction implementation for this one consumer.
type Cache struct {
	resolver segmentresolver.Resolver
	cache    *lrucache.Cache
	ttl      time.Duration
	radiusM  float64
}

// New builds a Cache bounded by maxEntries, caching resolutions for
// ttl, matching candidate segments within radiusM meters.
func New(resolver segmentresolver.Resolver, maxEntries int, ttl time.Duration, radiusM float64) *Cache {
	return &Cache{
		resolver: resolver,
		cache:    lrucache.New(maxEntries),
		ttl:      ttl,
		radiusM:  radiusM,
	}
}

// Resolve returns the segment id nearest (lat, lon), or nil if none is
// within radius.
func (c *Cache) Resolve(lat, lon float64) (*int64, error) {
	key := roundKey(lat, lon)

	var lookupErr error
	value := c.cache.Get(key, func() (interface{}, time.Duration, int) {
		id, err := c.resolver.NearestSegmentWithin(lat, lon, c.radiusM)
		if err != nil {
			lookupErr = err
			return noSegmentSentinel, 0, 1
		}
		if id == nil {
			return noSegmentSentinel, c.ttl, 1
		}
		return *id, c.ttl, 1
	})

	if lookupErr != nil {
		return nil, fmt.Errorf("segmentcache: resolve (%f, %f): %w", lat, lon, lookupErr)
	}

	id, _ := value.(int64)
	if id == noSegmentSentinel {
		return nil, nil
	}
	return &id, nil
}

// roundKey rounds lat/lon to 4 decimal degrees and formats them as
// the cache key.
func roundKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", round4(lat), round4(lon))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
