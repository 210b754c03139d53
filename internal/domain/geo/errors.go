package geo

import "errors"

// Geolocation errors
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrTimeout             = errors.New("location request timed out")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrGeocodeFailed       = errors.New("reverse geocoding failed")
)
