package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
)

// Static reports a fixed, surveyed position. Kiosks are mounted in place, so
// this is the usual source.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Enabled   bool
	Now       func() time.Time
}

var _ geo.PositionSource = Static{}

func (s Static) CurrentPosition(ctx context.Context, _ geo.Options) (geo.Position, error) {
	if err := ctx.Err(); err != nil {
		return geo.Position{}, translate(err)
	}
	if !s.Enabled {
		return geo.Position{}, geo.ErrPositionUnavailable
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return geo.Position{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Timestamp: now(),
	}, nil
}

// HTTP reads a fix from a JSON endpoint such as a GNSS bridge:
// {"latitude":..,"longitude":..,"accuracy":..,"timestamp":"RFC3339"}.
type HTTP struct {
	URL    string
	Client *http.Client
}

var _ geo.PositionSource = HTTP{}

type fix struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (h HTTP) CurrentPosition(ctx context.Context, opts geo.Options) (geo.Position, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return geo.Position{}, fmt.Errorf("%w: %v", geo.ErrPositionUnavailable, err)
	}
	if opts.HighAccuracy {
		req.Header.Set("X-High-Accuracy", "true")
	}
	if opts.MaximumAge == 0 {
		req.Header.Set("Cache-Control", "no-cache")
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return geo.Position{}, translate(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return geo.Position{}, geo.ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return geo.Position{}, fmt.Errorf("%w: source responded %d", geo.ErrPositionUnavailable, resp.StatusCode)
	}

	var f fix
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&f); err != nil {
		return geo.Position{}, fmt.Errorf("%w: %v", geo.ErrPositionUnavailable, err)
	}
	if f.Latitude == nil || f.Longitude == nil {
		return geo.Position{}, fmt.Errorf("%w: no fix", geo.ErrPositionUnavailable)
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	if opts.MaximumAge > 0 && time.Since(f.Timestamp) > opts.MaximumAge {
		return geo.Position{}, fmt.Errorf("%w: stale fix", geo.ErrPositionUnavailable)
	}

	return geo.Position{
		Latitude:  *f.Latitude,
		Longitude: *f.Longitude,
		Accuracy:  f.Accuracy,
		Timestamp: f.Timestamp,
	}, nil
}

func translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", geo.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", geo.ErrPositionUnavailable, err)
}
