// Package devicecache resolves device identifiers to Truck records,
// caching both hits and misses in pkg/lrucache so a hot-looping
// unregistered identifier doesn't hammer the repository.
package devicecache

import (
	"fmt"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/lrucache"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

// unregisteredSentinel is the value cached for an identifier with no
// matching Truck; Resolve reports it as a nil Truck.
var unregisteredSentinel = &schema.Truck{}

// Cache resolves identifiers via repo, with a TTL cache in front.
type Cache struct {
	repo          repository.Repository
	cache         *lrucache.Cache
	positiveTTL   time.Duration
	negativeTTL   time.Duration
}

// New builds a Cache bounded by maxEntries (approximated via
// pkg/lrucache's byte budget, one "entry" costing 1 unit) with the
// given positive/negative TTLs.
func New(repo repository.Repository, maxEntries int, positiveTTL, negativeTTL time.Duration) *Cache {
	return &Cache{
		repo:        repo,
		cache:       lrucache.New(maxEntries),
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

// Resolve returns the Truck for identifier, or nil if unregistered.
// A nil Truck and nil error together mean "unregistered"; a non-nil
// error means the repository lookup itself failed.
func (c *Cache) Resolve(identifier string) (*schema.Truck, error) {
	var lookupErr error

	value := c.cache.Get(identifier, func() (interface{}, time.Duration, int) {
		truck, err := c.repo.FindTruckByIdentifier(identifier)
		if err != nil {
			lookupErr = err
			// Don't cache a repository failure; ttl=0 expires it immediately.
			return nil, 0, 1
		}
		if truck == nil {
			return unregisteredSentinel, c.negativeTTL, 1
		}
		return truck, c.positiveTTL, 1
	})

	if lookupErr != nil {
		return nil, fmt.Errorf("devicecache: resolve %q: %w", identifier, lookupErr)
	}

	truck, _ := value.(*schema.Truck)
	if truck == unregisteredSentinel {
		return nil, nil
	}
	return truck, nil
}
