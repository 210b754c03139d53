package oauth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenFunc returns the current bearer credential, or an error when none is
// available.
type TokenFunc func(ctx context.Context) (string, error)

// bearerSource adapts a TokenFunc to oauth2.TokenSource. It is consulted on
// every request, so a credential swapped by a session hand-off takes effect
// immediately.
type bearerSource struct {
	fn TokenFunc
}

func (s bearerSource) Token() (*oauth2.Token, error) {
	token, err := s.fn(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// NewTokenSource wraps fn as an oauth2.TokenSource.
func NewTokenSource(fn TokenFunc) oauth2.TokenSource {
	return bearerSource{fn: fn}
}

// StaticToken is a TokenFunc for a fixed credential.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// NewClient returns an HTTP client that attaches the bearer credential from
// src to every request. The source is not wrapped in oauth2.ReuseTokenSource:
// credentials here carry no expiry and must never be cached past a hand-off.
func NewClient(src oauth2.TokenSource, base http.RoundTripper, timeout time.Duration) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: base},
		Timeout:   timeout,
	}
}
