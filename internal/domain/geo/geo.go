package geo

import (
	"context"
	"strings"
	"time"
)

const (
	AddressUnavailable  = "Address unavailable"
	LocationUnavailable = "Location unavailable"
)

// Position is one fix from a position source.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters
	Timestamp time.Time
}

// Options for a one-shot position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is the oldest cached fix accepted; zero forces a fresh one.
	MaximumAge time.Duration
}

type PositionSource interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// Address is the reverse-geocoded place of a position.
type Address struct {
	Locality    string `json:"locality"`
	City        string `json:"city"`
	Subdivision string `json:"principalSubdivision"`
	Country     string `json:"countryName"`
}

// String joins the non-empty parts, most specific first.
func (a Address) String() string {
	var parts []string
	seen := map[string]bool{}
	for _, p := range []string{a.Locality, a.City, a.Subdivision, a.Country} {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (Address, error)
}

// Office is a known site used to label positions when geocoding fails.
type Office struct {
	Name         string  `koanf:"name"`
	Latitude     float64 `koanf:"latitude"`
	Longitude    float64 `koanf:"longitude"`
	RadiusMeters float64 `koanf:"radius_meters"`
}
