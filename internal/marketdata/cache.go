package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cache wraps a Provider with a TTL cache so one trading cycle hits the API
// at most once per (endpoint, ticker, as-of) tuple. Analysts fan out
// concurrently, so entries are guarded by a mutex.
type Cache struct {
	inner Provider
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	savedAt time.Time
}

func NewCache(inner Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Since(entry.savedAt) > c.ttl {
		return nil, false
	}
	return entry.value, true
}

func (c *Cache) save(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, savedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops all cached entries. The runner calls this at the start of
// each cycle so stale prices never leak across cycles longer than the TTL.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *Cache) Prices(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	key := fmt.Sprintf("prices:%s:%s:%s", ticker, start.Format(dateLayout), end.Format(dateLayout))
	if v, ok := c.lookup(key); ok {
		return v.([]Bar), nil
	}
	bars, err := c.inner.Prices(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	c.save(key, bars)
	return bars, nil
}

func (c *Cache) LatestPrice(ctx context.Context, ticker string, asOf time.Time) (float64, error) {
	key := fmt.Sprintf("price:%s:%s", ticker, asOf.Format(dateLayout))
	if v, ok := c.lookup(key); ok {
		return v.(float64), nil
	}
	price, err := c.inner.LatestPrice(ctx, ticker, asOf)
	if err != nil {
		return 0, err
	}
	c.save(key, price)
	return price, nil
}

func (c *Cache) Metrics(ctx context.Context, ticker string, asOf time.Time) (*FinancialMetrics, error) {
	key := fmt.Sprintf("metrics:%s:%s", ticker, asOf.Format(dateLayout))
	if v, ok := c.lookup(key); ok {
		return v.(*FinancialMetrics), nil
	}
	metrics, err := c.inner.Metrics(ctx, ticker, asOf)
	if err != nil {
		return nil, err
	}
	c.save(key, metrics)
	return metrics, nil
}

func (c *Cache) InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error) {
	key := fmt.Sprintf("insider:%s:%s:%d", ticker, asOf.Format(dateLayout), limit)
	if v, ok := c.lookup(key); ok {
		return v.([]InsiderTrade), nil
	}
	trades, err := c.inner.InsiderTrades(ctx, ticker, asOf, limit)
	if err != nil {
		return nil, err
	}
	c.save(key, trades)
	return trades, nil
}

func (c *Cache) News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error) {
	key := fmt.Sprintf("news:%s:%s:%d", ticker, asOf.Format(dateLayout), limit)
	if v, ok := c.lookup(key); ok {
		return v.([]NewsItem), nil
	}
	items, err := c.inner.News(ctx, ticker, asOf, limit)
	if err != nil {
		return nil, err
	}
	c.save(key, items)
	return items, nil
}
