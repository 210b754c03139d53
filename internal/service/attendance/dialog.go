package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
)

func (s *AttendanceServiceImpl) StartCheckIn(ctx context.Context) (attendance.StateResponse, error) {
	return s.start(ctx, attendance.ActionCheckIn)
}

func (s *AttendanceServiceImpl) StartCheckOut(ctx context.Context) (attendance.StateResponse, error) {
	return s.start(ctx, attendance.ActionCheckOut)
}

func (s *AttendanceServiceImpl) ConfirmCheckIn(ctx context.Context) (attendance.StateResponse, error) {
	return s.confirm(ctx, attendance.ActionCheckIn)
}

func (s *AttendanceServiceImpl) ConfirmCheckOut(ctx context.Context) (attendance.StateResponse, error) {
	return s.confirm(ctx, attendance.ActionCheckOut)
}

// Cancel closes the dialog. Results still in flight for it are dropped.
func (s *AttendanceServiceImpl) Cancel() {
	s.mu.Lock()
	closed := s.closeDialogLocked()
	s.mu.Unlock()

	if closed {
		slog.Info("Attendance dialog cancelled")
		s.publishState()
	}
}

// guardActionLocked checks the preconditions of opening a dialog for a.
func (s *AttendanceServiceImpl) guardActionLocked(a attendance.Action) error {
	if s.identity == nil || s.identity.EmployeeID == "" || s.identity.Token == "" {
		return attendance.ErrAuthMissing
	}

	switch s.engine {
	case attendance.EngineReady:
	case attendance.EngineNoProfilePhoto:
		return attendance.ErrNoProfilePhoto
	default:
		return attendance.ErrFaceRecognitionUnavailable
	}

	status := attendance.StatusOf(s.today)
	switch a {
	case attendance.ActionCheckIn:
		if status != attendance.DayCheckedOut {
			return attendance.ErrAlreadyCheckedIn
		}
	case attendance.ActionCheckOut:
		if status == attendance.DayCompleted {
			return attendance.ErrAlreadyCheckedIn.WithMessage("You have already checked out today")
		}
		if status != attendance.DayCheckedIn {
			return attendance.ErrNotCheckedIn
		}
	}
	return nil
}

func (s *AttendanceServiceImpl) start(ctx context.Context, a attendance.Action) (attendance.StateResponse, error) {
	s.camMu.Lock()
	defer s.camMu.Unlock()

	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return s.State(), attendance.ErrSubmissionInProgress
	}
	if s.dialog != attendance.DialogClosed {
		if s.action == a {
			s.mu.Unlock()
			return s.State(), nil
		}
		s.closeDialogLocked()
	}
	if err := s.guardActionLocked(a); err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.emitError(err)
		return s.State(), err
	}

	s.dialogGen++
	gen := s.dialogGen
	dctx, cancel := context.WithCancel(context.Background())
	s.dialogCtx = dctx
	s.dialogCancel = cancel
	s.dialog = attendance.DialogOpening
	s.action = a
	s.lastVerification = nil
	s.lastErr = nil
	s.mu.Unlock()
	s.publishState()

	err := s.camera.Open(ctx)

	s.mu.Lock()
	if gen != s.dialogGen || s.dialog != attendance.DialogOpening {
		// cancelled while the camera was opening
		s.mu.Unlock()
		s.camera.Close()
		return s.State(), nil
	}
	if err != nil {
		s.closeDialogLocked()
		s.lastErr = err
		s.mu.Unlock()
		s.emitError(err)
		return s.State(), err
	}

	s.dialog = attendance.DialogLive
	s.poller.Start(dctx, s.camera, func(n int) { s.faceCountChanged(gen, n) })
	s.metrics.DialogOpen(true)
	s.mu.Unlock()

	slog.Info("Attendance dialog opened", "action", a)
	state := s.State()
	s.emit(sse.EventStatus, state)
	return state, nil
}

func (s *AttendanceServiceImpl) faceCountChanged(gen uint64, n int) {
	s.mu.Lock()
	live := gen == s.dialogGen && s.dialog != attendance.DialogClosed
	s.mu.Unlock()
	if !live {
		return
	}
	s.emit(sse.EventFaceCount, map[string]int{"count": n})
}

// closeDialogLocked releases the camera and stops the poller. It reports
// whether a dialog was open.
func (s *AttendanceServiceImpl) closeDialogLocked() bool {
	if s.dialog == attendance.DialogClosed {
		return false
	}
	s.dialogGen++
	if s.dialogCancel != nil {
		s.dialogCancel()
		s.dialogCancel = nil
	}
	s.dialogCtx = nil
	s.poller.Stop()
	s.camera.Close()
	s.dialog = attendance.DialogClosed
	s.action = ""
	s.processing = false
	s.metrics.DialogOpen(false)
	return true
}

func (s *AttendanceServiceImpl) confirm(ctx context.Context, a attendance.Action) (attendance.StateResponse, error) {
	s.mu.Lock()
	switch {
	case s.processing || s.dialog == attendance.DialogVerifying:
		s.mu.Unlock()
		return s.State(), attendance.ErrSubmissionInProgress
	case s.dialog != attendance.DialogLive || s.action != a:
		s.mu.Unlock()
		return s.State(), attendance.ErrDialogNotOpen
	}

	faces := s.poller.Count()
	if faces != 1 {
		err := attendance.ErrNoFaceDetected
		if faces > 1 {
			err = attendance.ErrMultipleFacesDetected
		}
		s.lastErr = err
		s.mu.Unlock()
		s.metrics.Attempt(string(a), err.Kind.String())
		s.emitError(err)
		return s.State(), err
	}

	gen := s.dialogGen
	dctx := s.dialogCtx
	id := *s.identity
	s.processing = true
	s.dialog = attendance.DialogVerifying
	s.lastErr = nil
	s.mu.Unlock()
	s.publishState()

	// the attempt is abandoned when either the request or the dialog ends
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(dctx, cancel)
	defer stop()

	capturedAt := s.cfg.Now()
	step := time.Now()
	img, err := s.camera.CaptureFrame()
	s.metrics.Step("capture", time.Since(step).Seconds())
	if err != nil {
		return s.fail(gen, a, err)
	}

	step = time.Now()
	loc, lerr := s.location.Resolve(ctx)
	s.metrics.Step("location", time.Since(step).Seconds())
	if lerr != nil {
		if ctx.Err() != nil {
			return s.fail(gen, a, ctx.Err())
		}
		s.emitError(lerr)
	}

	step = time.Now()
	result, err := s.faces.Verify(ctx, id.EmployeeID, img.Data)
	s.metrics.Step("verify", time.Since(step).Seconds())
	if s.stale(gen) {
		return s.State(), nil
	}
	if errors.Is(err, face.ErrNotEnrolled) && ctx.Err() == nil {
		result, err = s.reenroll(ctx, id.EmployeeID, img.Data)
		if s.stale(gen) {
			return s.State(), nil
		}
		if errors.Is(err, face.ErrNotEnrolled) {
			return s.templateLost(gen, a, err)
		}
	}
	s.mu.Lock()
	if result.Success {
		s.lastVerification = &result
	}
	s.mu.Unlock()
	if result.Success {
		s.emit(sse.EventVerification, result)
	}
	if err != nil {
		return s.fail(gen, a, err)
	}
	if !result.Matched {
		return s.fail(gen, a, attendance.ErrFaceVerificationFailed)
	}

	attempt := attendance.VerificationAttempt{
		Action:            a,
		DetectedFaceCount: faces,
		CapturedPhoto:     img.DataURL(),
		Location:          loc,
		Result:            result,
		CapturedAt:        capturedAt,
	}

	step = time.Now()
	day, err := s.submit(ctx, id, attempt)
	s.metrics.Step("submit", time.Since(step).Seconds())
	if err != nil {
		// attempt goes out of scope here; a retry captures a fresh frame
		return s.fail(gen, a, err)
	}

	if day == nil || day.CheckInTime == nil {
		if fresh, ferr := s.api.GetToday(ctx, id.EmployeeID); ferr == nil {
			day = fresh
		}
	}

	s.mu.Lock()
	if gen != s.dialogGen {
		s.mu.Unlock()
		slog.Info("Attendance submitted after dialog closed", "action", a, "employee_id", id.EmployeeID)
		return s.State(), nil
	}
	if day != nil {
		s.today = day
	}
	s.closeDialogLocked()
	s.syncHoursLocked()
	s.mu.Unlock()

	s.metrics.Attempt(string(a), "success")
	slog.Info("Attendance submitted", "action", a, "employee_id", id.EmployeeID, "similarity", result.Similarity, "location_available", loc.Available)

	state := s.State()
	s.emit(sse.EventStatus, state)
	return state, nil
}

func (s *AttendanceServiceImpl) submit(ctx context.Context, id profile.Identity, attempt attendance.VerificationAttempt) (*attendance.AttendanceDay, error) {
	submitter := attendance.Submitter{
		EmployeeID: id.EmployeeID,
		Name:       id.Name,
		Department: id.Department,
		TeamID:     id.TeamID,
	}

	switch attempt.Action {
	case attendance.ActionCheckOut:
		req := attendance.NewCheckOutRequest(submitter, attempt)
		if err := req.Validate(); err != nil {
			return nil, attendance.ErrNetwork.Wrap(err).WithMessage("Attendance data is incomplete, please try again")
		}
		return s.api.CheckOut(ctx, req)
	default:
		req := attendance.NewCheckInRequest(submitter, attempt)
		if err := req.Validate(); err != nil {
			return nil, attendance.ErrNetwork.Wrap(err).WithMessage("Attendance data is incomplete, please try again")
		}
		return s.api.CheckIn(ctx, req)
	}
}

// reenroll restores a template the engine no longer holds, e.g. after an
// engine restart, and verifies the frame again.
func (s *AttendanceServiceImpl) reenroll(ctx context.Context, employeeID string, jpeg []byte) (attendance.VerificationResult, error) {
	s.mu.Lock()
	ref := s.reference
	s.mu.Unlock()

	slog.Warn("Face template lost, enrolling again", "employee_id", employeeID)
	lost := attendance.ErrFaceRecognitionUnavailable.WithMessage("Face recognition needs to be set up again")
	if ref == "" {
		return attendance.VerificationResult{}, lost.Wrap(face.ErrNotEnrolled)
	}
	if err := s.faces.Enroll(ctx, employeeID, ref); err != nil {
		return attendance.VerificationResult{}, lost.Wrap(fmt.Errorf("%w: %w", face.ErrNotEnrolled, err))
	}
	return s.faces.Verify(ctx, employeeID, jpeg)
}

// templateLost disables the actions until the next mount re-enrolls.
func (s *AttendanceServiceImpl) templateLost(gen uint64, a attendance.Action, err error) (attendance.StateResponse, error) {
	s.mu.Lock()
	if gen != s.dialogGen {
		s.mu.Unlock()
		return s.State(), nil
	}
	s.closeDialogLocked()
	s.engine = attendance.EngineUnavailable
	s.reference = ""
	s.lastErr = err
	s.mu.Unlock()

	s.metrics.EngineReady(false)
	s.metrics.Attempt(string(a), attendance.KindFaceRecognitionUnavailable.String())
	slog.Warn("Face template could not be restored", "action", a, "error", err)

	s.emitError(err)
	s.publishState()
	return s.State(), err
}

func (s *AttendanceServiceImpl) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.dialogGen
}

// fail returns the dialog to Live so the user can retry without reopening
// the camera. Failures for a closed dialog are dropped.
func (s *AttendanceServiceImpl) fail(gen uint64, a attendance.Action, err error) (attendance.StateResponse, error) {
	s.mu.Lock()
	if gen != s.dialogGen {
		s.mu.Unlock()
		return s.State(), nil
	}
	if _, ok := attendance.KindOf(err); !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = attendance.ErrNetwork.Wrap(err).WithMessage("The request was interrupted, please try again")
		} else {
			err = attendance.ErrNetwork.Wrap(err)
		}
	}
	s.processing = false
	s.dialog = attendance.DialogLive
	s.lastErr = err
	s.mu.Unlock()

	kind, _ := attendance.KindOf(err)
	s.metrics.Attempt(string(a), kind.String())
	slog.Warn("Attendance attempt failed", "action", a, "code", kind.String(), "error", err)

	s.emitError(err)
	s.publishState()
	return s.State(), err
}
