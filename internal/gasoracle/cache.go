package gasoracle

import (
	"sync"
	"time"

	"github.com/ijonas/omikuji/internal/logger"
)

// PriceCache is an in-memory, TTL'd cache of TokenPrice entries, keyed by
// provider token ID. Mirrors original_source/src/gas_price/cache.rs's
// PriceCache, using a sync.RWMutex in place of tokio::sync::RwLock.
type PriceCache struct {
	mu              sync.RWMutex
	entries         map[string]TokenPrice
	ttl             time.Duration
	fallbackToCache bool
}

func NewPriceCache(ttl time.Duration, fallbackToCache bool) *PriceCache {
	return &PriceCache{
		entries:         make(map[string]TokenPrice),
		ttl:             ttl,
		fallbackToCache: fallbackToCache,
	}
}

// Get returns a cached price, honoring the cache's own fallbackToCache
// setting for whether an expired entry is still returned.
func (c *PriceCache) Get(tokenID string) (TokenPrice, bool) {
	return c.GetWithOptions(tokenID, c.fallbackToCache)
}

// GetWithOptions returns a cached price, optionally allowing an expired
// (stale) entry to be returned regardless of the cache's default policy.
func (c *PriceCache) GetWithOptions(tokenID string, allowExpired bool) (TokenPrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[tokenID]
	if !ok {
		return TokenPrice{}, false
	}

	age := time.Since(entry.FetchedAt)
	if age <= c.ttl {
		return entry, true
	}
	if allowExpired {
		logger.Debugf("cache entry expired for token %s but returning stale value (age %s)", tokenID, age)
		return entry, true
	}
	return TokenPrice{}, false
}

// Insert stores price, keyed by its TokenID.
func (c *PriceCache) Insert(price TokenPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[price.TokenID] = price
}

// InsertMany stores a batch of prices.
func (c *PriceCache) InsertMany(prices []TokenPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range prices {
		c.entries[p.TokenID] = p
	}
}

// ClearExpired removes every entry older than the cache's TTL.
func (c *PriceCache) ClearExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, entry := range c.entries {
		if time.Since(entry.FetchedAt) > c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Debugf("cleared %d expired gas price cache entries", removed)
	}
}

// Size returns the number of cached entries.
func (c *PriceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
