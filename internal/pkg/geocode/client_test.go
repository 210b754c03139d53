package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/breaker"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func TestReverseCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "-6.2", r.URL.Query().Get("latitude"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"locality":             "Menteng",
			"city":                 "Jakarta",
			"principalSubdivision": "DKI Jakarta",
			"countryName":          "Indonesia",
		})
	}))
	defer srv.Close()

	store := &memoryStore{data: map[string][]byte{}}
	c := NewClient(srv.URL, time.Second, WithCache(store, time.Hour))

	addr, err := c.Reverse(context.Background(), -6.2, 106.8)
	require.NoError(t, err)
	assert.Equal(t, "Menteng, Jakarta, DKI Jakarta, Indonesia", addr.String())

	_, err = c.Reverse(context.Background(), -6.2, 106.8)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestReverseFailureOpensBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithBreaker(breaker.New("geocode", 2, time.Minute)))

	for i := 0; i < 4; i++ {
		_, err := c.Reverse(context.Background(), -6.2, 106.8)
		assert.ErrorIs(t, err, geo.ErrGeocodeFailed)
	}
	assert.Equal(t, int32(2), hits.Load())
}
