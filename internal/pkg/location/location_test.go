package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
)

func TestStatic(t *testing.T) {
	pos, err := Static{Latitude: -6.2, Longitude: 106.8, Accuracy: 5, Enabled: true}.CurrentPosition(context.Background(), geo.Options{})
	require.NoError(t, err)
	assert.Equal(t, -6.2, pos.Latitude)
	assert.False(t, pos.Timestamp.IsZero())

	_, err = Static{}.CurrentPosition(context.Background(), geo.Options{})
	assert.ErrorIs(t, err, geo.ErrPositionUnavailable)
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fix":
			assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
			_, _ = w.Write([]byte(`{"latitude":-6.2,"longitude":106.8,"accuracy":12.5}`))
		case "/denied":
			w.WriteHeader(http.StatusForbidden)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		case "/nofix":
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	opts := geo.Options{HighAccuracy: true, Timeout: 50 * time.Millisecond}

	pos, err := HTTP{URL: srv.URL + "/fix"}.CurrentPosition(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos.Accuracy)

	_, err = HTTP{URL: srv.URL + "/denied"}.CurrentPosition(context.Background(), opts)
	assert.ErrorIs(t, err, geo.ErrPermissionDenied)

	_, err = HTTP{URL: srv.URL + "/slow"}.CurrentPosition(context.Background(), opts)
	assert.ErrorIs(t, err, geo.ErrTimeout)

	_, err = HTTP{URL: srv.URL + "/nofix"}.CurrentPosition(context.Background(), opts)
	assert.ErrorIs(t, err, geo.ErrPositionUnavailable)
}
