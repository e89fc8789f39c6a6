package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher is the upstream transport capability the cache needs.
type Fetcher interface {
	Fetch(ctx context.Context, center domain.Geo, radiusKm float64, limit int) ([]domain.RawIncident, error)
}

// Cache holds the last successfully fetched payload and decides when a
// re-fetch is due. A fetch failure with a populated cache serves the stale
// payload instead of an error: the feed is preferred stale over absent.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	primed    bool
	fetchedAt time.Time
	payload   []domain.RawIncident
}

// NewCache creates an incident cache in front of the given transport.
func NewCache(fetcher Fetcher, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Get returns fresh-or-cached incidents. It fetches at most once per call
// and never more than once per TTL window, which is what bounds the upstream
// request rate. The returned slice is shared; callers must not mutate it.
//
// The mutex spans the fetch so no two fetches are ever in flight at once.
func (c *Cache) Get(ctx context.Context, center domain.Geo, radiusKm float64, limit int) ([]domain.RawIncident, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.primed && now.Sub(c.fetchedAt) < c.ttl {
		c.metrics.CacheLookups.WithLabelValues("fresh").Inc()
		return c.payload, nil
	}

	start := c.clock.Now()
	incidents, err := c.fetcher.Fetch(ctx, center, radiusKm, limit)
	c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchesTotal.WithLabelValues("error").Inc()
		if c.primed {
			c.metrics.CacheLookups.WithLabelValues("stale").Inc()
			c.logger.Warn("fetch failed, serving stale payload",
				"error", err,
				"stale_age", now.Sub(c.fetchedAt),
				"incidents", len(c.payload),
			)
			return c.payload, nil
		}
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, err
	}

	c.metrics.FetchesTotal.WithLabelValues("success").Inc()
	c.metrics.CacheLookups.WithLabelValues("refresh").Inc()

	// Replace wholesale; the entry is never partially mutated.
	c.payload = incidents
	c.fetchedAt = now
	c.primed = true
	return incidents, nil
}
