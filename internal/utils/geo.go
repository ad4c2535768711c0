package utils

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether the two points are at most radiusKm apart.
// Missing coordinates on either side never exclude a candidate.
func WithinRadius(lat1, lon1, lat2, lon2 *float64, radiusKm float64) bool {
	if radiusKm <= 0 || lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return true
	}
	return HaversineKm(*lat1, *lon1, *lat2, *lon2) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
