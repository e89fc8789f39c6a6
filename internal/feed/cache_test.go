package feed

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher returns a scripted sequence of results and counts calls.
// When notify is set, every call signals it so tests can sequence clock
// advances against fetch attempts.
type countingFetcher struct {
	calls   int
	results [][]domain.RawIncident
	errs    []error
	notify  chan struct{}
}

func (f *countingFetcher) Fetch(_ context.Context, _ domain.Geo, _ float64, _ int) ([]domain.RawIncident, error) {
	i := f.calls
	f.calls++
	if f.notify != nil {
		f.notify <- struct{}{}
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return nil, nil
}

func incidentsNamed(keys ...string) []domain.RawIncident {
	out := make([]domain.RawIncident, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.RawIncident{Key: k, Title: k})
	}
	return out
}

func newTestCache(fetcher Fetcher, ttl time.Duration, clock clockwork.Clock) *Cache {
	return NewCache(fetcher, ttl, clock, observability.NewMetricsForTesting(), slog.Default())
}

var testCenter = domain.Geo{Lat: 40.7128, Lon: -74.0060}

func TestCache_FetchesWhenEmpty(t *testing.T) {
	fetcher := &countingFetcher{results: [][]domain.RawIncident{incidentsNamed("a", "b")}}
	cache := newTestCache(fetcher, 60*time.Second, clockwork.NewFakeClock())

	got, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCache_ServesCachedWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &countingFetcher{results: [][]domain.RawIncident{incidentsNamed("a")}}
	cache := newTestCache(fetcher, 60*time.Second, clock)

	first, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	second, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second call within TTL must not fetch")
}

func TestCache_RefetchesAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &countingFetcher{results: [][]domain.RawIncident{
		incidentsNamed("a"),
		incidentsNamed("a", "b"),
	}}
	cache := newTestCache(fetcher, 60*time.Second, clock)

	_, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	got, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Equal(t, 2, fetcher.calls)
}

func TestCache_ServesStaleOnFetchFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &countingFetcher{
		results: [][]domain.RawIncident{incidentsNamed("a"), nil},
		errs:    []error{nil, errors.New("upstream down")},
	}
	cache := newTestCache(fetcher, 60*time.Second, clock)

	first, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	second, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err, "stale payload must be served, not an error")
	assert.Equal(t, first, second)
}

func TestCache_StalePayloadStaysUntilFetchSucceeds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &countingFetcher{
		results: [][]domain.RawIncident{incidentsNamed("a"), nil, incidentsNamed("b")},
		errs:    []error{nil, errors.New("down"), nil},
	}
	cache := newTestCache(fetcher, 60*time.Second, clock)

	_, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)

	// Serve-stale does not refresh the TTL window, so the next call after
	// the failure fetches again.
	clock.Advance(61 * time.Second)
	stale, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Equal(t, "a", stale[0].Key)

	clock.Advance(61 * time.Second)
	refreshed, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Equal(t, "b", refreshed[0].Key)
	assert.Equal(t, 3, fetcher.calls)
}

func TestCache_PropagatesErrorWhenNeverPrimed(t *testing.T) {
	fetchErr := errors.New("upstream down")
	fetcher := &countingFetcher{errs: []error{fetchErr}}
	cache := newTestCache(fetcher, 60*time.Second, clockwork.NewFakeClock())

	_, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.ErrorIs(t, err, fetchErr)
}

// TTL=60s: fetch at t=0, cached at t=30, fetched again at t=61.
func TestCache_TTLWindowScenario(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fetcher := &countingFetcher{results: [][]domain.RawIncident{
		incidentsNamed("a"),
		incidentsNamed("a"),
	}}
	cache := newTestCache(fetcher, 60*time.Second, clock)

	_, err := cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	clock.Advance(30 * time.Second)
	_, err = cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	clock.Advance(31 * time.Second)
	_, err = cache.Get(context.Background(), testCenter, 5.0, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}
