// Package geojson renders classified incident snapshots as a GeoJSON
// FeatureCollection consumable by Home Assistant's geo_json_events
// integration or any GeoJSON-aware map tool.
package geojson

import (
	"time"

	"github.com/couchcryptid/citizen-feed-service/internal/domain"
)

const attribution = "Data provided by Citizen (citizen.com)"

// FeatureCollection is the top-level GeoJSON document.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one incident as a GeoJSON point feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds a point in GeoJSON [lon, lat] order.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Empty returns a FeatureCollection with no features, the neutral state
// served before the first successful fetch.
func Empty() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// FromSnapshot converts a snapshot into a FeatureCollection.
func FromSnapshot(snap *domain.Snapshot) FeatureCollection {
	if snap == nil {
		return Empty()
	}
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(snap.Incidents)),
	}
	for _, inc := range snap.Incidents {
		fc.Features = append(fc.Features, toFeature(inc))
	}
	return fc
}

func toFeature(inc domain.ClassifiedIncident) Feature {
	props := map[string]any{
		"id":           inc.Key,
		"title":        inc.Title,
		"has_video":    inc.HasVideo,
		"external_url": inc.ExternalURL,
		"attribution":  attribution,

		"age_minutes":     inc.Recency.AgeMinutes,
		"recency_tier":    string(inc.Recency.Tier),
		"recency_color":   inc.Recency.Color,
		"recency_radius":  inc.Recency.RadiusM,
		"recency_opacity": inc.Recency.Opacity,
		"distance_km":     inc.DistanceKm,
	}

	setIfNotEmpty(props, "address", inc.Address)
	setIfNotEmpty(props, "neighborhood", inc.Neighborhood)
	setIfNotEmpty(props, "city_code", inc.CityCode)
	setIfNotEmpty(props, "severity", inc.Severity)
	setIfNotEmpty(props, "source", inc.Source)
	setIfNotEmpty(props, "summary", inc.Summary)
	setIfNotEmpty(props, "image_url", inc.ImageURL)

	if len(inc.Categories) > 0 {
		props["categories"] = inc.Categories
	}
	if len(inc.Updates) > 0 {
		props["updates"] = flattenUpdates(inc.Updates)
	}
	if !inc.CreatedAt.IsZero() {
		props["created"] = inc.CreatedAt.Format(time.RFC3339)
	}
	if !inc.UpdatedAt.IsZero() {
		props["updated"] = inc.UpdatedAt.Format(time.RFC3339)
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: [2]float64{inc.Geo.Lon, inc.Geo.Lat},
		},
		Properties: props,
	}
}

// flattenUpdates renders the update log as timestamped strings, oldest first.
func flattenUpdates(updates []domain.IncidentUpdate) []string {
	out := make([]string, 0, len(updates))
	for _, upd := range updates {
		text := upd.Text
		if !upd.Timestamp.IsZero() {
			text = "[" + upd.Timestamp.Format(time.RFC3339) + "] " + text
		}
		out = append(out, text)
	}
	return out
}

func setIfNotEmpty(props map[string]any, key, value string) {
	if value != "" {
		props[key] = value
	}
}
