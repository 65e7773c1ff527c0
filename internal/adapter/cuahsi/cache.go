package cuahsi

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

type seriesFetcher interface {
	FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.Series, error)
}

// CachedFetcher wraps a fetcher with an in-memory LRU cache keyed by request.
// Requests end on "today", so entries naturally stop matching at midnight.
type CachedFetcher struct {
	inner   seriesFetcher
	cache   *lru.Cache[string, domain.Series] // nil when caching is disabled
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. A maxEntries of
// zero or less disables caching.
func NewCachedFetcher(inner seriesFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	c := &CachedFetcher{inner: inner, metrics: metrics}
	if maxEntries > 0 {
		// New only fails for a non-positive size.
		c.cache, _ = lru.New[string, domain.Series](maxEntries)
	}
	return c
}

func (c *CachedFetcher) FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.Series, error) {
	key := cacheKey(req)
	if c.cache != nil {
		if series, ok := c.cache.Get(key); ok {
			c.metrics.FetchCache.WithLabelValues("hit").Inc()
			return cloneSeries(series), nil
		}
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	series, err := c.inner.FetchSeries(ctx, req)
	if err != nil {
		return series, err
	}
	// Only cache non-empty series so a site that has not reported yet is retried.
	if c.cache != nil && len(series.Readings) > 0 {
		c.cache.Add(key, cloneSeries(series))
	}
	return series, nil
}

// Len returns the number of cached series.
func (c *CachedFetcher) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

func cacheKey(req domain.SeriesRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s", req.Site, req.Variable,
		req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
}

func cloneSeries(s domain.Series) domain.Series {
	s.Readings = slices.Clone(s.Readings)
	return s
}
