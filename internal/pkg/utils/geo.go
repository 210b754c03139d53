package utils

import "math"

const earthRadiusMeters = 6371000

// CalculateHaversineDistance returns the great-circle distance between two
// coordinates in meters.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether (lat, lon) lies inside the circle around
// (centerLat, centerLon).
func WithinRadius(lat, lon, centerLat, centerLon, radiusMeters float64) bool {
	return CalculateHaversineDistance(lat, lon, centerLat, centerLon) <= radiusMeters
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
