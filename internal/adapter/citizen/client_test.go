package citizen

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendingBody = `{
	"results": [
		{
			"key": "inc-fire",
			"title": "Structure Fire",
			"latitude": 40.7145,
			"longitude": -74.0071,
			"address": "123 Broadway",
			"neighborhood": "Financial District",
			"cityCode": "nyc",
			"severity": "high",
			"categories": ["fire"],
			"source": "911",
			"hasVod": true,
			"nib": {"text": "FDNY on scene."},
			"updates": {
				"u2": {"ts": 1717243500000, "text": "FDNY on scene."},
				"u1": {"ts": 1717243200000, "text": "Fire reported."}
			},
			"cs": 1717243200000,
			"ts": 1717243500000,
			"preferredStream": {"image": "https://example.com/img.jpg"}
		},
		{
			"key": "inc-collision",
			"title": "Vehicle Collision",
			"latitude": 40.7102,
			"longitude": -74.0120,
			"updates": [
				{"ts": 1717240000000, "text": "Lanes blocked."}
			],
			"cs": 1717240000000,
			"ts": 1717240000000
		},
		{
			"key": "inc-no-coords",
			"title": "Missing Coordinates"
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(5*time.Second, slog.Default())
	c.baseURL = srv.URL
	return c
}

func TestFetch_ParsesIncidents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trendingBody)) //nolint:errcheck
	})

	incidents, err := c.Fetch(context.Background(), domain.Geo{Lat: 40.7128, Lon: -74.0060}, 5.0, 50)
	require.NoError(t, err)
	require.Len(t, incidents, 2, "record without coordinates should be skipped")

	fire := incidents[0]
	assert.Equal(t, "inc-fire", fire.Key)
	assert.Equal(t, "Structure Fire", fire.Title)
	assert.Equal(t, domain.Geo{Lat: 40.7145, Lon: -74.0071}, fire.Geo)
	assert.Equal(t, "123 Broadway", fire.Address)
	assert.Equal(t, "Financial District", fire.Neighborhood)
	assert.Equal(t, "nyc", fire.CityCode)
	assert.Equal(t, "high", fire.Severity)
	assert.Equal(t, []string{"fire"}, fire.Categories)
	assert.Equal(t, "911", fire.Source)
	assert.True(t, fire.HasVideo)
	assert.Equal(t, "FDNY on scene.", fire.Summary)
	assert.Equal(t, "https://example.com/img.jpg", fire.ImageURL)
	assert.Equal(t, "https://citizen.com/incident/inc-fire", fire.ExternalURL)
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), fire.CreatedAt)
	assert.Equal(t, time.UnixMilli(1717243500000).UTC(), fire.UpdatedAt)

	// Map-form updates come back sorted chronologically.
	require.Len(t, fire.Updates, 2)
	assert.Equal(t, "Fire reported.", fire.Updates[0].Text)
	assert.Equal(t, "FDNY on scene.", fire.Updates[1].Text)
	assert.True(t, fire.Updates[0].Timestamp.Before(fire.Updates[1].Timestamp))

	// List-form updates parse too.
	collision := incidents[1]
	require.Len(t, collision.Updates, 1)
	assert.Equal(t, "Lanes blocked.", collision.Updates[0].Text)
}

func TestFetch_SendsBoundingBoxAndHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`{"results":[]}`)) //nolint:errcheck
	})

	_, err := c.Fetch(context.Background(), domain.Geo{Lat: 40.7128, Lon: -74.0060}, 5.0, 75)
	require.NoError(t, err)
	require.NotNil(t, got)

	q := got.URL.Query()
	assert.Equal(t, "true", q.Get("fullResponse"))
	assert.Equal(t, "75", q.Get("limit"))
	assert.NotEmpty(t, q.Get("lowerLatitude"))
	assert.NotEmpty(t, q.Get("upperLatitude"))
	assert.NotEmpty(t, q.Get("lowerLongitude"))
	assert.NotEmpty(t, q.Get("upperLongitude"))

	assert.Contains(t, got.Header.Get("User-Agent"), "Mozilla/5.0")
	assert.Equal(t, "https://citizen.com/explore", got.Header.Get("Referer"))
}

func TestFetch_NonSuccessStatusIsFetchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.Fetch(context.Background(), domain.Geo{}, 5.0, 50)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "403")
}

func TestFetch_MalformedBodyIsFetchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not-json{{{")) //nolint:errcheck
	})

	_, err := c.Fetch(context.Background(), domain.Geo{}, 5.0, 50)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetch_TimeoutIsFetchError(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})
	// Registered after newTestClient so it runs before srv.Close (cleanups
	// are LIFO); otherwise Close deadlocks on the still-blocked handler.
	t.Cleanup(func() { close(block) })
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Fetch(context.Background(), domain.Geo{}, 5.0, 50)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestFetch_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
	})
	// Registered after newTestClient so it runs before srv.Close (cleanups
	// are LIFO); otherwise Close deadlocks on the still-blocked handler.
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, domain.Geo{}, 5.0, 50)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestUpdatesField_GarbageDecodesEmpty(t *testing.T) {
	var u updatesField
	require.NoError(t, u.UnmarshalJSON([]byte(`"oops"`)))
	assert.Empty(t, u)
}

func TestMsToTime_ZeroMapsToZeroTime(t *testing.T) {
	assert.True(t, msToTime(0).IsZero())
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), msToTime(1717243200000))
}
