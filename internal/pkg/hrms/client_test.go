package hrms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/oauth"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"message": "ok",
		"data":    data,
	})
}

func newTestClient(t *testing.T, r http.Handler, token oauth.TokenFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	authed := oauth.NewClient(oauth.NewTokenSource(token), nil, 5*time.Second)
	c, err := NewClient(srv.URL+"/api", authed, srv.Client())
	require.NoError(t, err)
	return c
}

func TestGetToday(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	r := chi.NewRouter()
	r.Get("/api/attendance/today", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		switch r.URL.Query().Get("employeeId") {
		case "emp-1":
			writeEnvelope(w, http.StatusOK, attendance.AttendanceDay{EmployeeID: "emp-1", CheckInTime: &checkIn})
		default:
			writeEnvelope(w, http.StatusOK, nil)
		}
	})

	api := AttendanceClient{newTestClient(t, r, oauth.StaticToken("tok"))}

	day, err := api.GetToday(context.Background(), "emp-1")
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.True(t, day.CheckInTime.Equal(checkIn))

	day, err = api.GetToday(context.Background(), "emp-2")
	require.NoError(t, err)
	assert.Nil(t, day)
}

func TestCheckInPostsBody(t *testing.T) {
	var got attendance.CheckInRequest
	r := chi.NewRouter()
	r.Post("/api/attendance/check-in", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		now := got.CheckInTime
		writeEnvelope(w, http.StatusCreated, attendance.AttendanceDay{EmployeeID: got.EmployeeID, CheckInTime: &now})
	})

	api := AttendanceClient{newTestClient(t, r, oauth.StaticToken("tok"))}
	req := attendance.CheckInRequest{
		EmployeeID:         "emp-1",
		CheckInTime:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Address:            "Location unavailable",
		VerificationMethod: attendance.VerificationFaceRecognition,
		DetectedFaces:      1,
	}

	day, err := api.CheckIn(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.Equal(t, attendance.VerificationFaceRecognition, got.VerificationMethod)
	assert.Nil(t, got.Latitude)
}

func TestErrorTranslation(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/attendance/today", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	r.Post("/api/attendance/check-in", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"code": "CONFLICT", "message": "already checked in"},
		})
	})
	r.Get("/api/settings/company/holidays", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	api := AttendanceClient{newTestClient(t, r, oauth.StaticToken("tok"))}

	_, err := api.GetToday(context.Background(), "emp-1")
	assert.ErrorIs(t, err, attendance.ErrAuthMissing)

	_, err = api.CheckIn(context.Background(), attendance.CheckInRequest{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, attendance.ErrNetwork)
	assert.Equal(t, "already checked in", attendance.ViewOf(err).Message)

	_, err = api.Holidays(context.Background())
	assert.ErrorIs(t, err, attendance.ErrNetwork)
}

func TestMissingCredentialNeverReachesBackend(t *testing.T) {
	called := false
	r := chi.NewRouter()
	r.Get("/api/attendance/today", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	api := AttendanceClient{newTestClient(t, r, func(context.Context) (string, error) {
		return "", profile.ErrNoCredentials
	})}

	_, err := api.GetToday(context.Background(), "emp-1")
	assert.ErrorIs(t, err, attendance.ErrAuthMissing)
	assert.False(t, called)
}

func TestHistoryAndHolidays(t *testing.T) {
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	r := chi.NewRouter()
	r.Get("/api/attendance", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2026-03-07", r.URL.Query().Get("endDate"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"attendances": []attendance.AttendanceDay{{EmployeeID: "emp-1", CheckInTime: &in}},
		})
	})
	r.Get("/api/settings/company/holidays", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{
			"holidays": []attendance.Holiday{{ID: "h1", Name: "Nyepi", Date: "2026-03-19"}},
		})
	})

	api := AttendanceClient{newTestClient(t, r, oauth.StaticToken("tok"))}

	days, err := api.History(context.Background(), attendance.HistoryFilter{EmployeeID: "emp-1", StartDate: "2026-03-01", EndDate: "2026-03-07"})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "emp-1", days[0].EmployeeID)

	holidays, err := api.Holidays(context.Background())
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Nyepi", holidays[0].Name)
}

func TestGetProfile(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/employee-profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "emp-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeEnvelope(w, http.StatusOK, profile.Profile{EmployeeID: "emp-1", FullName: "Rina", ProfilePhoto: "/uploads/rina.jpg"})
	})
	r.Get("/uploads/rina.jpg", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	c := newTestClient(t, r, oauth.StaticToken("tok"))
	api := ProfileClient{c}

	p, err := api.GetProfile(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/rina.jpg", p.FaceReference())

	_, err = api.GetProfile(context.Background(), "emp-404")
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)

	img, err := c.FetchImage(context.Background(), c.BaseURL().ResolveReference(&url.URL{Path: "/uploads/rina.jpg"}).String())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(img))
}
