package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/handler/http/response"
)

// SessionStore holds the explicit session handed over by the UI shell.
type SessionStore interface {
	SetSession(ctx context.Context, s profile.Session) error
	ClearSession(ctx context.Context) error
}

// ProfileCache drops cached profile data when the employee changes.
type ProfileCache interface {
	Forget()
}

type SessionHandler interface {
	Put(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	sessions          SessionStore
	profiles          ProfileCache
	attendanceService attendance.AttendanceService
}

func NewSessionHandler(sessions SessionStore, profiles ProfileCache, attendanceService attendance.AttendanceService) SessionHandler {
	return &sessionHandlerImpl{
		sessions:          sessions,
		profiles:          profiles,
		attendanceService: attendanceService,
	}
}

// Put replaces the session and remounts the state machine for the new
// employee. Mount failures are reported in the returned state, not as an
// error: the session itself was accepted.
func (h *sessionHandlerImpl) Put(w http.ResponseWriter, r *http.Request) {
	token := jwtauth.TokenFromHeader(r)
	if token == "" {
		response.Unauthorized(w, "Bearer token is required")
		return
	}

	var req profile.Session
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.Token = token

	if err := h.sessions.SetSession(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	h.attendanceService.Unmount()
	h.profiles.Forget()

	state, err := h.attendanceService.Mount(r.Context())
	if err != nil {
		slog.Warn("Mount after session change failed", "error", err)
	}
	response.SuccessWithMessage(w, "Session updated", state)
}

// Delete clears the session and the stored credential.
func (h *sessionHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	h.attendanceService.Unmount()
	h.profiles.Forget()

	if err := h.sessions.ClearSession(r.Context()); err != nil {
		slog.Error("Failed to clear session", "error", err)
		response.InternalServerError(w, "Failed to clear session")
		return
	}
	response.SuccessWithMessage(w, "Session cleared", h.attendanceService.State())
}
