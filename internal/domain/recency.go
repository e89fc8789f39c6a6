package domain

import (
	"fmt"
	"time"
)

// Tier is a discrete age bucket used to choose display color and prominence.
type Tier string

const (
	TierCritical Tier = "critical"
	TierRecent   Tier = "recent"
	TierModerate Tier = "moderate"
	TierAging    Tier = "aging"
	TierOld      Tier = "old"
)

// Recency holds the derived, time-dependent display attributes of an incident.
type Recency struct {
	AgeMinutes int     `json:"age_minutes"`
	Tier       Tier    `json:"tier"`
	Color      string  `json:"color"`
	RadiusM    int     `json:"radius_m"`
	Opacity    float64 `json:"opacity"`
	Icon       string  `json:"icon"`
}

// tierSpec defines one row of the static tier table. maxAgeMinutes is
// exclusive; radii are sized for zoom 16 (street level, ~500m visible).
type tierSpec struct {
	maxAgeMinutes int
	tier          Tier
	color         string
	radiusM       int
	opacity       float64
}

var tierTable = []tierSpec{
	{30, TierCritical, "rgba(160,0,255,0.9)", 80, 0.30},   // < 30 min
	{120, TierRecent, "rgba(255,0,0,0.85)", 55, 0.22},     // 30 min - 2 hr
	{720, TierModerate, "rgba(255,120,0,0.7)", 35, 0.15},  // 2 hr - 12 hr
	{2880, TierAging, "rgba(255,200,0,0.6)", 25, 0.10},    // 12 hr - 2 days
	{0, TierOld, "rgba(140,140,140,0.5)", 15, 0.08},       // 2+ days
}

const tierIcon = "mdi:alert-circle"

// Classify buckets an incident by age. Age is the whole number of minutes
// between createdAt and now, clamped to zero when createdAt is in the future
// (clock skew). First matching half-open interval wins.
func Classify(createdAt, now time.Time) Recency {
	age := int(now.Sub(createdAt).Minutes())
	if age < 0 {
		age = 0
	}

	spec := tierTable[len(tierTable)-1]
	for _, s := range tierTable[:len(tierTable)-1] {
		if age < s.maxAgeMinutes {
			spec = s
			break
		}
	}

	return Recency{
		AgeMinutes: age,
		Tier:       spec.tier,
		Color:      spec.color,
		RadiusM:    spec.radiusM,
		Opacity:    spec.opacity,
		Icon:       tierIcon,
	}
}

// FormatAge renders an age in minutes as a short human-readable string,
// e.g. "just now", "5m ago", "3h ago", "2d ago".
func FormatAge(minutes int) string {
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	}
}
