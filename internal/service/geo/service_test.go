package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
)

type fakeSource struct {
	pos  geo.Position
	err  error
	opts geo.Options
}

func (f *fakeSource) CurrentPosition(_ context.Context, opts geo.Options) (geo.Position, error) {
	f.opts = opts
	return f.pos, f.err
}

type fakeGeocoder struct {
	addr geo.Address
	err  error
}

func (f fakeGeocoder) Reverse(context.Context, float64, float64) (geo.Address, error) {
	return f.addr, f.err
}

var jakarta = geo.Position{Latitude: -6.2088, Longitude: 106.8456, Accuracy: 12, Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}

func TestResolveWithAddress(t *testing.T) {
	src := &fakeSource{pos: jakarta}
	svc := NewGeoService(src, fakeGeocoder{addr: geo.Address{Locality: "Menteng", City: "Jakarta", Country: "Indonesia"}}, Config{})

	loc, err := svc.Resolve(context.Background())

	require.NoError(t, err)
	assert.True(t, loc.Available)
	assert.Equal(t, "Menteng, Jakarta, Indonesia", loc.Address)
	assert.Equal(t, jakarta.Latitude, loc.Latitude)
	assert.Equal(t, jakarta.Timestamp, loc.CapturedAt)

	assert.True(t, src.opts.HighAccuracy)
	assert.Equal(t, DefaultTimeout, src.opts.Timeout)
	assert.Zero(t, src.opts.MaximumAge)
}

func TestResolveGeocodeFailureKeepsCoordinates(t *testing.T) {
	svc := NewGeoService(&fakeSource{pos: jakarta}, fakeGeocoder{err: geo.ErrGeocodeFailed}, Config{})

	loc, err := svc.Resolve(context.Background())

	require.NoError(t, err)
	assert.True(t, loc.Available)
	assert.Equal(t, geo.AddressUnavailable, loc.Address)
	assert.Equal(t, jakarta.Longitude, loc.Longitude)
}

func TestResolveFallsBackToOffice(t *testing.T) {
	offices := []geo.Office{
		{Name: "Bandung Office", Latitude: -6.9175, Longitude: 107.6191, RadiusMeters: 200},
		{Name: "Jakarta HQ", Latitude: -6.2089, Longitude: 106.8457, RadiusMeters: 100},
	}
	svc := NewGeoService(&fakeSource{pos: jakarta}, fakeGeocoder{err: errors.New("boom")}, Config{Offices: offices})

	loc, err := svc.Resolve(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Jakarta HQ", loc.Address)
}

func TestResolvePositionFailures(t *testing.T) {
	for _, cause := range []error{geo.ErrPermissionDenied, geo.ErrTimeout, geo.ErrPositionUnavailable} {
		svc := NewGeoService(&fakeSource{err: cause}, fakeGeocoder{}, Config{})

		loc, err := svc.Resolve(context.Background())

		assert.ErrorIs(t, err, attendance.ErrLocationUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.False(t, loc.Available)
		assert.Equal(t, geo.LocationUnavailable, loc.Address)
		assert.False(t, loc.CapturedAt.IsZero())

		kind, _ := attendance.KindOf(err)
		assert.False(t, kind.Fatal())
	}
}
