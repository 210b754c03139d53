package geo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/utils"
)

const DefaultTimeout = 15 * time.Second

type Config struct {
	Timeout time.Duration
	Offices []geo.Office
}

// GeoServiceImpl resolves the kiosk location for one check-in/out. It never
// blocks the flow: every failure degrades to a placeholder.
type GeoServiceImpl struct {
	source   geo.PositionSource
	geocoder geo.ReverseGeocoder
	cfg      Config
	now      func() time.Time
}

func NewGeoService(source geo.PositionSource, geocoder geo.ReverseGeocoder, cfg Config) *GeoServiceImpl {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GeoServiceImpl{source: source, geocoder: geocoder, cfg: cfg, now: time.Now}
}

// Resolve returns the current location. When no fix is available the
// location carries a placeholder address and the error is
// LOCATION_UNAVAILABLE, which callers treat as non-fatal.
func (s *GeoServiceImpl) Resolve(ctx context.Context) (attendance.Location, error) {
	pos, err := s.source.CurrentPosition(ctx, geo.Options{
		HighAccuracy: true,
		Timeout:      s.cfg.Timeout,
		MaximumAge:   0,
	})
	if err != nil {
		slog.Warn("Location unavailable", "error", err)
		return attendance.Location{
			Address:    geo.LocationUnavailable,
			CapturedAt: s.now(),
		}, locationError(err)
	}

	if pos.Timestamp.IsZero() {
		pos.Timestamp = s.now()
	}

	return attendance.Location{
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		Accuracy:   pos.Accuracy,
		Address:    s.address(ctx, pos),
		CapturedAt: pos.Timestamp,
		Available:  true,
	}, nil
}

func (s *GeoServiceImpl) address(ctx context.Context, pos geo.Position) string {
	if s.geocoder != nil {
		addr, err := s.geocoder.Reverse(ctx, pos.Latitude, pos.Longitude)
		if err == nil {
			if str := addr.String(); str != "" {
				return str
			}
		} else {
			slog.Warn("Reverse geocoding failed", "error", err)
		}
	}

	if office, ok := s.nearestOffice(pos); ok {
		return office.Name
	}
	return geo.AddressUnavailable
}

// nearestOffice returns the closest configured office whose radius covers pos.
func (s *GeoServiceImpl) nearestOffice(pos geo.Position) (geo.Office, bool) {
	var (
		best  geo.Office
		found bool
		dist  float64
	)
	for _, o := range s.cfg.Offices {
		d := utils.CalculateHaversineDistance(pos.Latitude, pos.Longitude, o.Latitude, o.Longitude)
		if d > o.RadiusMeters {
			continue
		}
		if !found || d < dist {
			best, dist, found = o, d, true
		}
	}
	return best, found
}

func locationError(err error) error {
	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		return attendance.ErrLocationUnavailable.Wrap(err).WithMessage("Location permission denied, continuing without location")
	case errors.Is(err, geo.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return attendance.ErrLocationUnavailable.Wrap(err).WithMessage("Location request timed out, continuing without location")
	default:
		return attendance.ErrLocationUnavailable.Wrap(err)
	}
}
