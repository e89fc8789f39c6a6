package citizen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
)

const (
	defaultBaseURL = "https://citizen.com/api/incident/trending"

	// The trending endpoint rejects non-browser clients, so requests carry a
	// browser User-Agent and the explore-page Referer.
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer = "https://citizen.com/explore"
)

// FetchError is the single failure kind the transport surfaces. Network
// errors, timeouts, non-success statuses, and malformed payloads all
// normalize to it; callers only ever decide "cache or absence".
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "citizen fetch: " + e.Err.Error() }

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErrorf(format string, args ...any) *FetchError {
	return &FetchError{Err: fmt.Errorf(format, args...)}
}

// Client fetches trending incidents from the Citizen API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Citizen API client. The timeout bounds each request so
// a stalled upstream cannot stall the polling loop.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// Fetch returns the incidents currently trending inside the bounding box
// around center. The limit is passed through verbatim; a result exactly at
// the limit carries no signal about whether more incidents were dropped.
func (c *Client) Fetch(ctx context.Context, center domain.Geo, radiusKm float64, limit int) ([]domain.RawIncident, error) {
	bbox := domain.NewBoundingBox(center, radiusKm)
	params := url.Values{
		"lowerLatitude":  {formatCoord(bbox.LowerLat)},
		"lowerLongitude": {formatCoord(bbox.LowerLon)},
		"upperLatitude":  {formatCoord(bbox.UpperLat)},
		"upperLongitude": {formatCoord(bbox.UpperLon)},
		"fullResponse":   {"true"},
		"limit":          {strconv.Itoa(limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fetchErrorf("create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Referer", referer)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fetchErrorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fetchErrorf("status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fetchErrorf("decode response: %w", err)
	}

	incidents := make([]domain.RawIncident, 0, len(apiResp.Results))
	skipped := 0
	for _, rec := range apiResp.Results {
		inc, ok := rec.toRawIncident()
		if !ok {
			skipped++
			continue
		}
		incidents = append(incidents, inc)
	}
	if skipped > 0 {
		c.logger.Debug("skipped incidents without usable coordinates or key", "count", skipped)
	}
	return incidents, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Citizen API response types.

type response struct {
	Results []incident `json:"results"`
}

type incident struct {
	Key          string       `json:"key"`
	Title        string       `json:"title"`
	Latitude     *float64     `json:"latitude"`
	Longitude    *float64     `json:"longitude"`
	Address      string       `json:"address"`
	Neighborhood string       `json:"neighborhood"`
	CityCode     string       `json:"cityCode"`
	Severity     string       `json:"severity"`
	Categories   []string     `json:"categories"`
	Source       string       `json:"source"`
	HasVod       bool         `json:"hasVod"`
	Nib          *nib         `json:"nib"`
	Updates      updatesField `json:"updates"`
	CreatedMs    int64        `json:"cs"`
	UpdatedMs    int64        `json:"ts"`
	Stream       *stream      `json:"preferredStream"`
}

type nib struct {
	Text string `json:"text"`
}

type stream struct {
	Image string `json:"image"`
}

type update struct {
	TS   int64  `json:"ts"`
	Text string `json:"text"`
}

// updatesField tolerates both wire shapes of the update log: a JSON object
// keyed by update ID, or a JSON array. Anything else decodes to empty rather
// than failing the whole fetch.
type updatesField []update

func (u *updatesField) UnmarshalJSON(data []byte) error {
	var list []update
	if err := json.Unmarshal(data, &list); err == nil {
		*u = list
		return nil
	}

	var byID map[string]update
	if err := json.Unmarshal(data, &byID); err == nil {
		list = make([]update, 0, len(byID))
		for _, upd := range byID {
			list = append(list, upd)
		}
		*u = list
		return nil
	}

	*u = nil
	return nil
}

// toRawIncident converts a wire record to the domain representation. Records
// without a key or coordinates are unusable and reported as ok=false.
func (in incident) toRawIncident() (domain.RawIncident, bool) {
	if in.Key == "" || in.Latitude == nil || in.Longitude == nil {
		return domain.RawIncident{}, false
	}

	updates := make([]domain.IncidentUpdate, 0, len(in.Updates))
	for _, upd := range in.Updates {
		updates = append(updates, domain.IncidentUpdate{
			Timestamp: msToTime(upd.TS),
			Text:      upd.Text,
		})
	}
	sortUpdates(updates)

	summary := ""
	if in.Nib != nil {
		summary = in.Nib.Text
	}
	imageURL := ""
	if in.Stream != nil {
		imageURL = in.Stream.Image
	}

	return domain.RawIncident{
		Key:          in.Key,
		Title:        in.Title,
		Geo:          domain.Geo{Lat: *in.Latitude, Lon: *in.Longitude},
		Address:      in.Address,
		Neighborhood: in.Neighborhood,
		CityCode:     in.CityCode,
		Severity:     in.Severity,
		Categories:   in.Categories,
		Source:       in.Source,
		HasVideo:     in.HasVod,
		Summary:      summary,
		Updates:      updates,
		ImageURL:     imageURL,
		CreatedAt:    msToTime(in.CreatedMs),
		UpdatedAt:    msToTime(in.UpdatedMs),
		ExternalURL:  "https://citizen.com/incident/" + in.Key,
	}, true
}

// msToTime converts a millisecond Unix timestamp, mapping the missing-value
// zero to the zero time (which classifies as the oldest tier).
func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func sortUpdates(updates []domain.IncidentUpdate) {
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Timestamp.Before(updates[j].Timestamp)
	})
}
