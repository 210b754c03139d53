package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/export"
)

type AttendanceHandler interface {
	State(w http.ResponseWriter, r *http.Request)
	StartCheckIn(w http.ResponseWriter, r *http.Request)
	ConfirmCheckIn(w http.ResponseWriter, r *http.Request)
	StartCheckOut(w http.ResponseWriter, r *http.Request)
	ConfirmCheckOut(w http.ResponseWriter, r *http.Request)
	CancelDialog(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	ExportHistory(w http.ResponseWriter, r *http.Request)
	Holidays(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	location          *time.Location
}

// NewAttendanceHandler serves the state machine. loc is used to render
// exported times; nil means time.Local.
func NewAttendanceHandler(attendanceService attendance.AttendanceService, loc *time.Location) AttendanceHandler {
	if loc == nil {
		loc = time.Local
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		location:          loc,
	}
}

type stateAction func(ctx context.Context) (attendance.StateResponse, error)

// respondState writes the snapshot, with the error envelope when the action failed.
func respondState(w http.ResponseWriter, state attendance.StateResponse, err error, message string) {
	if err != nil {
		response.HandleErrorWithData(w, err, state)
		return
	}
	response.SuccessWithMessage(w, message, state)
}

func (h *attendanceHandlerImpl) run(w http.ResponseWriter, r *http.Request, action stateAction, message string) {
	state, err := action(r.Context())
	respondState(w, state, err, message)
}

// State implements AttendanceHandler.
func (h *attendanceHandlerImpl) State(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.attendanceService.State())
}

// StartCheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.attendanceService.StartCheckIn, "Camera ready")
}

// ConfirmCheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) ConfirmCheckIn(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.attendanceService.ConfirmCheckIn, "Check in successful")
}

// StartCheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartCheckOut(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.attendanceService.StartCheckOut, "Camera ready")
}

// ConfirmCheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ConfirmCheckOut(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.attendanceService.ConfirmCheckOut, "Check out successful")
}

// CancelDialog implements AttendanceHandler.
func (h *attendanceHandlerImpl) CancelDialog(w http.ResponseWriter, r *http.Request) {
	h.attendanceService.Cancel()
	response.SuccessWithMessage(w, "Dialog closed", h.attendanceService.State())
}

// Refresh implements AttendanceHandler.
func (h *attendanceHandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.attendanceService.Refresh, "Attendance refreshed")
}

// History implements AttendanceHandler.
func (h *attendanceHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days, err := h.attendanceService.History(r.Context(), query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if days == nil {
		days = []attendance.AttendanceDay{}
	}
	response.Success(w, days)
}

// ExportHistory implements AttendanceHandler.
func (h *attendanceHandlerImpl) ExportHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days, err := h.attendanceService.History(r.Context(), query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// holidays only annotate the sheet
	holidays, err := h.attendanceService.Holidays(r.Context())
	if err != nil {
		slog.Warn("Failed to load holidays for export", "error", err)
		holidays = nil
	}

	var buf bytes.Buffer
	if err := export.WriteAttendanceXLSX(&buf, days, holidays, h.location); err != nil {
		slog.Error("Failed to render attendance export", "error", err)
		response.InternalServerError(w, "Failed to export attendance history")
		return
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", time.Now().In(h.location).Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Holidays implements AttendanceHandler.
func (h *attendanceHandlerImpl) Holidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.attendanceService.Holidays(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if holidays == nil {
		holidays = []attendance.Holiday{}
	}
	response.Success(w, holidays)
}
