package domain

import (
	"sort"
	"time"
)

// IncidentUpdate is one entry in an incident's chronological update log.
type IncidentUpdate struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// RawIncident is a single incident as returned by the upstream feed.
// Values are immutable once fetched; a later fetch of the same key yields a
// new value rather than mutating an old one.
type RawIncident struct {
	Key          string           `json:"key"`
	Title        string           `json:"title"`
	Geo          Geo              `json:"geo"`
	Address      string           `json:"address,omitempty"`
	Neighborhood string           `json:"neighborhood,omitempty"`
	CityCode     string           `json:"city_code,omitempty"`
	Severity     string           `json:"severity,omitempty"`
	Categories   []string         `json:"categories,omitempty"`
	Source       string           `json:"source,omitempty"`
	HasVideo     bool             `json:"has_video"`
	Summary      string           `json:"summary,omitempty"`
	Updates      []IncidentUpdate `json:"updates,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	ExternalURL  string           `json:"external_url"`
}

// ClassifiedIncident is a RawIncident plus derived, read-time attributes.
type ClassifiedIncident struct {
	RawIncident
	Recency     Recency `json:"recency"`
	DistanceKm  float64 `json:"distance_km"`
	DisplayName string  `json:"display_name"`
}

// ClassifyIncident derives the read-time view of an incident: recency tier,
// great-circle distance from the configured center, and a display name with
// a human-readable age suffix.
func ClassifyIncident(raw RawIncident, center Geo, now time.Time) ClassifiedIncident {
	rec := Classify(raw.CreatedAt, now)
	name := raw.Title
	if name != "" {
		name += " · " + FormatAge(rec.AgeMinutes)
	}
	return ClassifiedIncident{
		RawIncident: raw,
		Recency:     rec,
		DistanceKm:  round2(HaversineKm(center, raw.Geo)),
		DisplayName: name,
	}
}

// KeySet is an unordered set of incident identity keys.
type KeySet map[string]struct{}

// NewKeySet builds a KeySet from the given keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether the set holds key.
func (s KeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the keys in lexical order, for deterministic serialization.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChangeSet is the result of one reconciliation pass. The three sets are
// pairwise disjoint: a key appears in at most one of them.
type ChangeSet struct {
	Created KeySet
	Updated KeySet
	Removed KeySet
}

// Empty reports whether the pass produced no changes at all.
func (c ChangeSet) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Snapshot is the immutable value published after each successful tick.
// Between-tick readers get the last snapshot as-is; it is never mutated.
type Snapshot struct {
	TakenAt   time.Time
	Incidents []ClassifiedIncident
	Changes   ChangeSet
}
