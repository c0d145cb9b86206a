package forecast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"property_valuation/pkg/models"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoises another provider's forecasts for a TTL. Misses
// (ErrNotFound) are not cached.
type CachedProvider struct {
	next   Provider
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps next with a go-cache store.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedProvider) GetForecast(ctx context.Context, p models.Parameter, geography string, horizon int) (*Forecast, error) {
	key := fmt.Sprintf("%s|%d", ID(p, geography), horizon)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return v.(*Forecast), nil
	}
	c.misses.Add(1)

	f, err := c.next.GetForecast(ctx, p, geography, horizon)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, f)
	return f, nil
}

// Hits is the number of lookups served from cache.
func (c *CachedProvider) Hits() int64 { return c.hits.Load() }

// Misses is the number of lookups forwarded to the wrapped provider.
func (c *CachedProvider) Misses() int64 { return c.misses.Load() }

// Flush drops every cached forecast.
func (c *CachedProvider) Flush() { c.cache.Flush() }
