// Package domain models Citizen incident data.
//
// # Data Source
//
// Incidents come from the Citizen trending API
// (https://citizen.com/api/incident/trending), queried with a bounding box
// derived from a configured center coordinate and radius. The API returns a
// JSON object whose "results" array holds one record per active incident.
//
// # Citizen Data Conventions
//
// Identity:
//
//	Every incident carries a "key" that is globally unique and stable across
//	fetches. An incident that drops out of the results is considered resolved;
//	the feed never sends an explicit deletion.
//
// Timestamps:
//
//	"cs" (created) and "ts" (last updated) are millisecond Unix timestamps.
//	Update-log entries carry their own "ts" in the same encoding. Missing or
//	unparseable timestamps are represented as the zero time, which classifies
//	as the oldest recency tier.
//
// Update log:
//
//	The "updates" field is either a JSON object keyed by update ID or a JSON
//	array, depending on the endpoint mood. Both forms decode to the same
//	chronologically sorted list.
//
// # Recency Classification
//
// Incident age (whole minutes since creation, clock skew clamped to zero)
// maps onto five tiers used to choose map display color and prominence:
//
//	[0, 30)      critical  purple
//	[30, 120)    recent    red
//	[120, 720)   moderate  orange
//	[720, 2880)  aging     yellow
//	[2880, ∞)    old       gray
//
// Intervals are half-open and evaluated in ascending order, so the tiers
// partition the non-negative integers with no gaps or overlaps. Recency is a
// function of "now" and is therefore recomputed at read time, never cached.
package domain
