package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/breaker"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cache"
)

const DefaultURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

// Client reverse-geocodes through the BigDataCloud client endpoint. Results
// are cached per ~11m grid cell when a cache is configured.
type Client struct {
	endpoint string
	language string
	http     *http.Client
	cache    cache.Store
	cacheTTL time.Duration
	breaker  *breaker.CircuitBreaker
}

var _ geo.ReverseGeocoder = (*Client)(nil)

type Option func(*Client)

func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

func WithBreaker(cb *breaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		endpoint: endpoint,
		language: "en",
		http:     &http.Client{Timeout: timeout},
		cacheTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (geo.Address, error) {
	key := cacheKey(lat, lng)

	if c.cache != nil {
		var cached geo.Address
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			slog.Warn("Geocode cache read failed", "error", err)
		} else if found {
			return cached, nil
		}
	}

	var addr geo.Address
	fetch := func(ctx context.Context) error {
		var err error
		addr, err = c.fetch(ctx, lat, lng)
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, fetch)
	} else {
		err = fetch(ctx)
	}
	if err != nil {
		return geo.Address{}, fmt.Errorf("%w: %v", geo.ErrGeocodeFailed, err)
	}
	if addr.String() == "" {
		return geo.Address{}, fmt.Errorf("%w: empty address", geo.ErrGeocodeFailed)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, addr, c.cacheTTL); err != nil {
			slog.Warn("Geocode cache write failed", "error", err)
		}
	}
	return addr, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (geo.Address, error) {
	q := url.Values{
		"latitude":         {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":        {strconv.FormatFloat(lng, 'f', -1, 64)},
		"localityLanguage": {c.language},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return geo.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Address{}, fmt.Errorf("geocoder responded %d", resp.StatusCode)
	}

	var addr geo.Address
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&addr); err != nil {
		return geo.Address{}, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	return addr, nil
}

func cacheKey(lat, lng float64) string {
	return cache.Key("geocode", strconv.FormatFloat(lat, 'f', 4, 64), strconv.FormatFloat(lng, 'f', 4, 64))
}
