package domain

import "math"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

const earthRadiusKm = 6371.0

// BoundingBox is an axis-aligned lat/lon box, in the parameter naming the
// Citizen API expects.
type BoundingBox struct {
	LowerLat float64
	LowerLon float64
	UpperLat float64
	UpperLon float64
}

// NewBoundingBox computes the box that encloses a circle of radiusKm around
// center. Near the poles the longitude delta degenerates, so the box spans
// the full longitude range there.
func NewBoundingBox(center Geo, radiusKm float64) BoundingBox {
	deltaLat := radiusKm / earthRadiusKm

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	deltaLon := math.Pi
	if math.Abs(cosLat) >= 1e-10 {
		deltaLon = radiusKm / (earthRadiusKm * cosLat)
	}

	return BoundingBox{
		LowerLat: center.Lat - deltaLat*180/math.Pi,
		LowerLon: center.Lon - deltaLon*180/math.Pi,
		UpperLat: center.Lat + deltaLat*180/math.Pi,
		UpperLon: center.Lon + deltaLon*180/math.Pi,
	}
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(a, b Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Clamp to 1.0 to avoid a domain error from floating-point rounding.
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(math.Min(h, 1.0)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
