package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
)

const DefaultReconcileInterval = 5 * time.Minute

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	interval          time.Duration
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, interval time.Duration) *AttendanceJobs {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &AttendanceJobs{attendanceService: attendanceService, interval: interval}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("reconcile_today_attendance", j.interval, j.ReconcileToday)
	scheduler.AddJob("retry_face_enrollment", j.interval, j.RetryEnrollment)
}

// ReconcileToday re-reads today's record so a check-in made elsewhere, or a
// submission whose response was dropped after a cancel, shows up.
func (j *AttendanceJobs) ReconcileToday(ctx context.Context) error {
	state := j.attendanceService.State()
	if state.EmployeeID == "" {
		return nil
	}
	if state.Processing {
		slog.Debug("Cron: Skipping reconcile during submission")
		return nil
	}

	before := state.Status
	state, err := j.attendanceService.Refresh(ctx)
	if err != nil {
		if errors.Is(err, attendance.ErrAuthMissing) {
			return nil
		}
		return fmt.Errorf("failed to reconcile today's attendance: %w", err)
	}
	if state.Status != before {
		slog.Info("Cron: Attendance status reconciled", "employee_id", state.EmployeeID, "from", before, "to", state.Status)
	}
	return nil
}

// RetryEnrollment remounts when face recognition failed for a known
// employee, e.g. the engine was down or a profile photo was uploaded since.
func (j *AttendanceJobs) RetryEnrollment(ctx context.Context) error {
	state := j.attendanceService.State()
	if state.EmployeeID == "" || state.Dialog != attendance.DialogClosed {
		return nil
	}
	switch state.EngineStatus {
	case attendance.EngineUnavailable, attendance.EngineNoProfilePhoto:
	default:
		return nil
	}

	slog.Info("Cron: Retrying face enrollment", "employee_id", state.EmployeeID, "status", state.EngineStatus)
	state, err := j.attendanceService.Mount(ctx)
	if err != nil {
		slog.Info("Cron: Face enrollment still unavailable", "employee_id", state.EmployeeID, "error", err)
	}
	return nil
}
