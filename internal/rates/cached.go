package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vytraty/internal/cache"
)

const cacheKey = "usd"

// Cached memoizes a successfully scraped rate for a short TTL so that a
// burst of expense entries does not launch a browser per message.
// Failures are never cached; the next lookup tries the scraper again.
type Cached struct {
	inner Source
	cache *cache.TTLCache[decimal.Decimal]
}

func NewCached(inner Source, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: cache.New[decimal.Decimal](1, ttl),
	}
}

func (c *Cached) Rate(ctx context.Context) (decimal.Decimal, error) {
	if rate, ok := c.cache.Get(cacheKey); ok {
		return rate, nil
	}
	rate, err := c.inner.Rate(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	c.cache.Set(cacheKey, rate)
	return rate, nil
}
