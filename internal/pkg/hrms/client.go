package hrms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
)

const maxBodyBytes = 10 << 20

// Client talks to the HRIS REST backend. BaseURL includes the API prefix,
// e.g. "http://localhost:8080/api".
type Client struct {
	baseURL *url.URL
	authed  *http.Client
	public  *http.Client
}

// NewClient builds a client. authed attaches the bearer credential; public is
// used for resources that must not carry it (off-origin images).
func NewClient(baseURL string, authed, public *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host required", baseURL)
	}
	if public == nil {
		public = http.DefaultClient
	}
	return &Client{baseURL: u, authed: authed, public: public}, nil
}

// BaseURL returns the configured backend URL with trailing slash.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// envelope mirrors the HRIS response body
// {success, message, data, error{code, message, details}}.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend responded %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request and decodes envelope data into out. out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authed.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			se.Code = env.Error.Code
			if env.Error.Message != "" {
				se.Message = env.Error.Message
			}
		}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return se
	}

	if out == nil || isNull(env.Data) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null")) || bytes.Equal(s, []byte("{}"))
}

// translate maps transport and status failures to the attendance taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := attendance.KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return attendance.ErrAuthMissing.Wrap(err)
		}
		if se.StatusCode >= 400 && se.StatusCode < 500 && se.Message != "" {
			return attendance.ErrNetwork.Wrap(err).WithMessage(se.Message)
		}
		return attendance.ErrNetwork.Wrap(err)
	}

	// the token source refuses before anything reaches the wire
	if errors.Is(err, profile.ErrNoCredentials) {
		return attendance.ErrAuthMissing.Wrap(err)
	}
	return attendance.ErrNetwork.Wrap(err)
}
