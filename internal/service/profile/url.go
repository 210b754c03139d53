package profile

import (
	"net/url"
	"strings"
)

// URLNormalizer rewrites reference image URLs so they point at the backend.
type URLNormalizer struct {
	backend   *url.URL
	frontends map[string]bool
}

// NewURLNormalizer takes the backend base URL and the origins of development
// front-ends whose asset URLs must be redirected to the backend.
func NewURLNormalizer(backendURL string, frontendOrigins []string) (*URLNormalizer, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}
	n := &URLNormalizer{
		backend:   &url.URL{Scheme: u.Scheme, Host: u.Host},
		frontends: make(map[string]bool, len(frontendOrigins)),
	}
	for _, o := range frontendOrigins {
		fu, err := url.Parse(strings.TrimRight(o, "/"))
		if err != nil || fu.Host == "" {
			continue
		}
		n.frontends[strings.ToLower(fu.Scheme+"://"+fu.Host)] = true
	}
	return n, nil
}

// Normalize returns raw with front-end origins swapped for the backend origin
// and relative paths made absolute. Data URLs pass through.
func (n *URLNormalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.Host == "" {
		p := u.Path
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out := *n.backend
		out.Path = p
		out.RawQuery = u.RawQuery
		return out.String()
	}

	if u.Scheme == "" {
		u.Scheme = n.backend.Scheme
	}
	if n.frontends[strings.ToLower(u.Scheme+"://"+u.Host)] {
		u.Scheme = n.backend.Scheme
		u.Host = n.backend.Host
	}
	return u.String()
}
