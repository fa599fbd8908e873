package scraping

import (
	"context"
	"fmt"
	"github.com/maxaizer/jobscout/internal/domain/models"
	gocache "github.com/patrickmn/go-cache"
	"strings"
	"time"
)

// CachedAdapter remembers successful results per query for a short time so repeated
// triggers do not hit the site again. Failures are never cached.
type CachedAdapter struct {
	adapter Adapter
	cache   *gocache.Cache
}

func NewCachedAdapter(adapter Adapter, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{adapter: adapter, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedAdapter) Name() string {
	return c.adapter.Name()
}

func (c *CachedAdapter) Fetch(ctx context.Context, params models.SearchParams) ([]models.RawPosting, error) {
	key := fmt.Sprintf("%s|%s|%d", strings.ToLower(params.Role), strings.ToLower(params.Location), params.MaxPerSource)
	if value, found := c.cache.Get(key); found {
		return append([]models.RawPosting(nil), value.([]models.RawPosting)...), nil
	}

	postings, err := c.adapter.Fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(postings) > 0 {
		c.cache.Set(key, append([]models.RawPosting(nil), postings...), gocache.DefaultExpiration)
	}
	return postings, nil
}

// WithCache wraps every adapter in a CachedAdapter.
func WithCache(adapters []Adapter, ttl time.Duration) []Adapter {
	if ttl <= 0 {
		return adapters
	}
	cached := make([]Adapter, 0, len(adapters))
	for _, adapter := range adapters {
		cached = append(cached, NewCachedAdapter(adapter, ttl))
	}
	return cached
}
