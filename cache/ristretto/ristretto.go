package ristretto

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/keyward/keyward/cache"
)

// Cache adapts a ristretto cache to cache.Cache.
// Writes are buffered by ristretto: a Set is visible to Get shortly after, not
// immediately. Call Wait to flush.
type Cache[K ristretto.Key, V any] struct {
	cache *ristretto.Cache[K, V]
}

var _ cache.Cache[string, string] = (*Cache[string, string])(nil)

func (rc *Cache[K, V]) Get(key K) (V, bool) {
	return rc.cache.Get(key)
}

func (rc *Cache[K, V]) Set(key K, value V, cost int64) bool {
	return rc.cache.Set(key, value, cost)
}

func (rc *Cache[K, V]) SetWithTTL(key K, value V, cost int64, ttl time.Duration) bool {
	return rc.cache.SetWithTTL(key, value, cost, ttl)
}

func (rc *Cache[K, V]) Del(key K) {
	rc.cache.Del(key)
}

// Wait blocks until buffered writes have been applied.
func (rc *Cache[K, V]) Wait() {
	rc.cache.Wait()
}

func (rc *Cache[K, V]) Close() {
	rc.cache.Close()
}

// level presets. MaxCost is counted in cost units; the state store uses a
// cost of 1 per entry, so MaxCost is effectively the number of live entries.
var levels = map[string]struct {
	numCounters int64
	maxCost     int64
}{
	"small":      {numCounters: 1e4, maxCost: 1e3},
	"medium":     {numCounters: 1e5, maxCost: 1e4},
	"large":      {numCounters: 1e6, maxCost: 1e5},
	"very-large": {numCounters: 1e7, maxCost: 1e6},
}

// New creates a string keyed cache sized by level: small, medium, large or
// very-large.
func New[V any](level string) (*Cache[string, V], error) {
	l, ok := levels[level]
	if !ok {
		return nil, fmt.Errorf("ristretto: unknown cache level %q", level)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: l.numCounters, // 10x the expected number of entries
		MaxCost:     l.maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}

	return &Cache[string, V]{cache: c}, nil
}
