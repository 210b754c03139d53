package faceapi

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
)

func newEngine(t *testing.T) *Client {
	t.Helper()
	enrolled := map[string]bool{}

	r := chi.NewRouter()
	r.Post("/enroll", func(w http.ResponseWriter, r *http.Request) {
		var req enrollRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if strings.Contains(req.Image, "landscape") {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(enrollResponse{Message: "no face in image"})
			return
		}
		enrolled[req.EmployeeID] = true
		_ = json.NewEncoder(w).Encode(enrollResponse{Success: true})
	})
	r.Post("/detect", func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, strings.HasPrefix(req.Image, "data:image/jpeg;base64,"))
		_ = json.NewEncoder(w).Encode(detectResponse{DetectedFaces: []detectedFace{{Quality: 0.9}, {Quality: 0.7}}})
	})
	r.Post("/verify", func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !enrolled[req.EmployeeID] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(face.Result{Success: true, Matched: true, Similarity: 0.91})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestEnrollAndVerify(t *testing.T) {
	c := newEngine(t)
	ctx := context.Background()

	_, err := c.Verify(ctx, "emp-1", []byte{0xff, 0xd8})
	assert.ErrorIs(t, err, face.ErrNotEnrolled)

	require.NoError(t, c.Enroll(ctx, "emp-1", face.Reference("https://hr.example.com/uploads/emp-1.jpg")))

	res, err := c.Verify(ctx, "emp-1", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 0.91, res.Similarity, 1e-9)
}

func TestEnrollWithoutFace(t *testing.T) {
	c := newEngine(t)
	err := c.Enroll(context.Background(), "emp-2", face.Reference("https://hr.example.com/landscape.jpg"))
	assert.ErrorIs(t, err, face.ErrNoFaceInReference)
}

func TestDetectCountsFaces(t *testing.T) {
	c := newEngine(t)
	n, err := c.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 48)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEngineDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.ErrorIs(t, err, face.ErrEngineUnavailable)
}
