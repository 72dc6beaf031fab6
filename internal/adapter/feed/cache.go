package feed

import (
	"context"
	"sync"

	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
)

// CachedClient wraps a Client with conditional requests. The last parsed
// copy of each feed URL is kept in memory, and a 304 reply returns those rows
// without re-downloading or re-parsing.
type CachedClient struct {
	inner *Client

	mu    sync.Mutex
	feeds map[string]cachedFeed
}

type cachedFeed struct {
	validators validators
	rows       []domain.RawRow
}

// NewCachedClient creates a cache decorator around a client.
func NewCachedClient(inner *Client) *CachedClient {
	return &CachedClient{
		inner: inner,
		feeds: make(map[string]cachedFeed),
	}
}

// Fetch implements pipeline.Fetcher. Callers must not modify the returned rows.
func (c *CachedClient) Fetch(ctx context.Context, feed, url string) ([]domain.RawRow, error) {
	prev, ok := c.lookup(url)

	resp, err := c.inner.get(ctx, feed, url, prev.validators)
	if err != nil {
		return nil, err
	}
	if resp.notModified && ok {
		c.inner.metrics.FetchCache.WithLabelValues("hit").Inc()
		return prev.rows, nil
	}
	c.inner.metrics.FetchCache.WithLabelValues("miss").Inc()

	rows, err := ParseCSV(resp.body)
	if err != nil {
		return nil, err
	}
	// Servers without validators cannot answer 304, so caching them only costs memory.
	if !resp.validators.empty() {
		c.store(url, cachedFeed{validators: resp.validators, rows: rows})
	}
	return rows, nil
}

func (c *CachedClient) lookup(url string) (cachedFeed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.feeds[url]
	return f, ok
}

func (c *CachedClient) store(url string, f cachedFeed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeds[url] = f
}

func (c *CachedClient) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.feeds)
}
