package query

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/meridian-logistics/backoffice/internal/gateway"
)

// Tier is a named staleness bucket. A cached read inside its window is
// served without a network call; after it elapses the next read refetches.
type Tier string

const (
	TierLong   Tier = "long"
	TierMedium Tier = "medium"
	TierShort  Tier = "short"
	// TierNone disables caching entirely: every read is a network call.
	TierNone Tier = "none"
)

// Duration returns the freshness window for the tier.
func (t Tier) Duration() time.Duration {
	switch t {
	case TierLong:
		return 15 * time.Minute
	case TierMedium:
		return 5 * time.Minute
	case TierShort:
		return time.Minute
	default:
		return 0
	}
}

type entry struct {
	env       *gateway.Envelope
	fetchedAt time.Time
	tier      Tier
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.tier.Duration()
}

// cache is a bounded LRU over cache keys. Entries are scoped per key, so
// reads on different keys never contend.
type cache struct {
	lru *lru.Cache[string, *entry]
}

func newCache(size int) (*cache, error) {
	if size <= 0 {
		size = 512
	}
	inner, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &cache{lru: inner}, nil
}

func (c *cache) get(key string) (*entry, bool) {
	return c.lru.Get(key)
}

func (c *cache) put(key string, e *entry) {
	c.lru.Add(key, e)
}

func (c *cache) remove(key string) {
	c.lru.Remove(key)
}

// removePrefix drops every entry whose key starts with prefix. Cache keys
// open with the resource name, so this is resource-level invalidation.
func (c *cache) removePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}
