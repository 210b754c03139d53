package hrms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
)

// ProfileClient implements profile.ProfileFetcher.
type ProfileClient struct {
	*Client
}

var _ profile.ProfileFetcher = ProfileClient{}

func (c ProfileClient) GetProfile(ctx context.Context, employeeID string) (profile.Profile, error) {
	var p profile.Profile
	err := c.do(ctx, http.MethodGet, "employee-profiles/"+url.PathEscape(employeeID), nil, nil, &p)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return profile.Profile{}, profile.ErrProfileNotFound
		}
		return profile.Profile{}, translate(err)
	}
	return p, nil
}

// FetchImage downloads an image. URLs on the backend origin are fetched with
// the bearer credential, anything else without it.
func (c *Client) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}

	client := c.public
	if u.Scheme == c.baseURL.Scheme && u.Host == c.baseURL.Host {
		client = c.authed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, translate(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, translate(&StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)})
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}
