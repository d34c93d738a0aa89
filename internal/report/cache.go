package report

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/povtrack/internal/log"
)

// CachingClient decorates a Client with a TTL cache so repeated step entries
// against the same report do not refetch. Failures are never cached.
type CachingClient struct {
	inner Client
	cache *gocache.Cache
}

// NewCachingClient wraps inner with the given TTL. A non-positive TTL
// returns inner unchanged.
func NewCachingClient(inner Client, ttl time.Duration) Client {
	if ttl <= 0 {
		return inner
	}
	return &CachingClient{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// FetchReport implements Client.
func (c *CachingClient) FetchReport(ctx context.Context, reportID, userID string) (*Record, error) {
	key := "report:" + userID + ":" + reportID
	if cached, ok := c.cache.Get(key); ok {
		log.Debug(log.CatFetch, "Report served from cache", "reportId", reportID)
		return cached.(*Record), nil
	}

	rec, err := c.inner.FetchReport(ctx, reportID, userID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, rec)
	return rec, nil
}

// FetchTitles implements Client.
func (c *CachingClient) FetchTitles(ctx context.Context, reportID, userID string) (*TitlesRecord, error) {
	key := "titles:" + userID + ":" + reportID
	if cached, ok := c.cache.Get(key); ok {
		log.Debug(log.CatFetch, "Titles served from cache", "reportId", reportID)
		return cached.(*TitlesRecord), nil
	}

	rec, err := c.inner.FetchTitles(ctx, reportID, userID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, rec)
	return rec, nil
}

// Invalidate drops any cached entries for the given report, e.g. after a
// selection update makes the cached selection state stale.
func (c *CachingClient) Invalidate(reportID, userID string) {
	c.cache.Delete("report:" + userID + ":" + reportID)
	c.cache.Delete("titles:" + userID + ":" + reportID)
}
