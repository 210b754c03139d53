package attendance

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
	facesvc "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/face"
)

// Topic is the event hub topic the state machine publishes on.
const Topic = "attendance"

const historyDays = 7

// ProfileResolver resolves the employee and prepares their face reference.
type ProfileResolver interface {
	profile.Resolver
	PrepareReference(ctx context.Context, ref string) (face.Reference, error)
}

// FaceVerifier enrolls and verifies faces; errors are attendance errors.
type FaceVerifier interface {
	Enroll(ctx context.Context, employeeID string, ref face.Reference) error
	Verify(ctx context.Context, employeeID string, jpeg []byte) (attendance.VerificationResult, error)
}

// FacePoller maintains the detected face count while the camera is live.
type FacePoller interface {
	Start(ctx context.Context, frames facesvc.FrameSampler, onCount func(int))
	Stop()
	Count() int
}

// LocationResolver resolves the best-effort location of an attempt.
type LocationResolver interface {
	Resolve(ctx context.Context) (attendance.Location, error)
}

type Publisher interface {
	Publish(topic, name string, data any)
}

type Config struct {
	// TickInterval drives the working-hours display; one second by default.
	TickInterval time.Duration
	NewTicker    cron.TickerFunc
	Now          func() time.Time
	Location     *time.Location
}

// AttendanceServiceImpl is the attendance state machine. All state lives
// here and changes only through its actions; observers read snapshots.
type AttendanceServiceImpl struct {
	api      attendance.AttendanceAPI
	profiles ProfileResolver
	faces    FaceVerifier
	poller   FacePoller
	camera   camera.Controller
	location LocationResolver
	events   Publisher
	metrics  *metrics.Metrics
	cfg      Config

	// camMu serializes dialog openings so a stale open cannot race a new one.
	camMu sync.Mutex

	mu               sync.Mutex
	mountGen         uint64
	identity         *profile.Identity
	engine           attendance.EngineStatus
	reference        face.Reference
	today            *attendance.AttendanceDay
	workingHours     string
	hours            *cron.Handle
	dialog           attendance.DialogState
	action           attendance.Action
	dialogGen        uint64
	dialogCancel     context.CancelFunc
	dialogCtx        context.Context
	processing       bool
	lastVerification *attendance.VerificationResult
	lastErr          error
}

var _ attendance.AttendanceService = (*AttendanceServiceImpl)(nil)

func NewAttendanceService(
	api attendance.AttendanceAPI,
	profiles ProfileResolver,
	faces FaceVerifier,
	poller FacePoller,
	cam camera.Controller,
	location LocationResolver,
	events Publisher,
	m *metrics.Metrics,
	cfg Config,
) *AttendanceServiceImpl {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = cron.NewTicker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &AttendanceServiceImpl{
		api:      api,
		profiles: profiles,
		faces:    faces,
		poller:   poller,
		camera:   cam,
		location: location,
		events:   events,
		metrics:  m,
		cfg:      cfg,
		engine:   attendance.EngineIdle,
		dialog:   attendance.DialogClosed,
	}
}

// Mount resolves the employee, loads today's record and enrolls the face
// template. Enrollment failure leaves the engine unavailable and the
// check-in/out actions disabled.
func (s *AttendanceServiceImpl) Mount(ctx context.Context) (attendance.StateResponse, error) {
	s.mu.Lock()
	s.mountGen++
	gen := s.mountGen
	s.engine = attendance.EngineAwaitingProfile
	s.lastErr = nil
	s.mu.Unlock()
	s.publishState()

	id, err := s.profiles.Identity(ctx)
	if err != nil {
		return s.mountFailed(gen, attendance.EngineUnavailable, err)
	}

	s.mu.Lock()
	if gen != s.mountGen {
		s.mu.Unlock()
		return s.State(), nil
	}
	s.identity = &id
	s.mu.Unlock()
	slog.Info("Attendance mounted", "employee_id", id.EmployeeID)

	if _, err := s.Refresh(ctx); err != nil {
		slog.Warn("Failed to load today's attendance", "employee_id", id.EmployeeID, "error", err)
	}

	ref, err := s.profiles.FaceReference(ctx, id.EmployeeID)
	if err != nil {
		if errors.Is(err, attendance.ErrNoProfilePhoto) {
			return s.mountFailed(gen, attendance.EngineNoProfilePhoto, err)
		}
		return s.mountFailed(gen, attendance.EngineUnavailable, err)
	}

	prepared, err := s.profiles.PrepareReference(ctx, ref)
	if err != nil {
		return s.mountFailed(gen, attendance.EngineUnavailable, err)
	}

	if err := s.faces.Enroll(ctx, id.EmployeeID, prepared); err != nil {
		return s.mountFailed(gen, attendance.EngineUnavailable, err)
	}

	s.mu.Lock()
	if gen == s.mountGen {
		s.engine = attendance.EngineReady
		s.reference = prepared
	}
	s.mu.Unlock()
	s.metrics.EngineReady(true)

	state := s.State()
	s.emit(sse.EventStatus, state)
	return state, nil
}

func (s *AttendanceServiceImpl) mountFailed(gen uint64, status attendance.EngineStatus, err error) (attendance.StateResponse, error) {
	if _, ok := attendance.KindOf(err); !ok && !errors.Is(err, context.Canceled) {
		err = attendance.ErrFaceRecognitionUnavailable.Wrap(err)
	}

	s.mu.Lock()
	if gen != s.mountGen {
		s.mu.Unlock()
		return s.State(), nil
	}
	s.engine = status
	s.reference = ""
	s.lastErr = err
	s.mu.Unlock()

	s.metrics.EngineReady(false)
	slog.Warn("Face recognition unavailable", "status", status, "error", err)

	state := s.State()
	s.emit(sse.EventStatus, state)
	s.emitError(err)
	return state, err
}

// Unmount tears everything down: dialog, camera, poller, ticker.
func (s *AttendanceServiceImpl) Unmount() {
	s.mu.Lock()
	s.mountGen++
	s.closeDialogLocked()
	s.stopHoursLocked()
	s.identity = nil
	s.engine = attendance.EngineIdle
	s.reference = ""
	s.today = nil
	s.workingHours = ""
	s.lastVerification = nil
	s.lastErr = nil
	s.mu.Unlock()

	s.metrics.EngineReady(false)
	slog.Info("Attendance unmounted")
	s.publishState()
}

// Refresh re-reads today's record from the backend.
func (s *AttendanceServiceImpl) Refresh(ctx context.Context) (attendance.StateResponse, error) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return s.State(), attendance.ErrAuthMissing
	}
	employeeID := s.identity.EmployeeID
	gen := s.mountGen
	s.mu.Unlock()

	day, err := s.api.GetToday(ctx, employeeID)
	if err != nil {
		return s.State(), err
	}
	if !day.Valid() {
		slog.Warn("Backend returned an inconsistent attendance record", "employee_id", employeeID)
	}

	s.mu.Lock()
	if gen != s.mountGen {
		s.mu.Unlock()
		return s.State(), nil
	}
	s.today = day
	if s.dialog != attendance.DialogClosed && !s.processing && s.guardActionLocked(s.action) != nil {
		s.closeDialogLocked()
	}
	s.syncHoursLocked()
	s.mu.Unlock()

	state := s.State()
	s.emit(sse.EventStatus, state)
	return state, nil
}

// History returns attendance records of the current employee between the
// given dates, the last seven days when both are empty.
func (s *AttendanceServiceImpl) History(ctx context.Context, startDate, endDate string) ([]attendance.AttendanceDay, error) {
	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()
	if id == nil {
		return nil, attendance.ErrAuthMissing
	}

	if startDate == "" && endDate == "" {
		now := s.cfg.Now().In(s.cfg.Location)
		endDate = now.Format(time.DateOnly)
		startDate = now.AddDate(0, 0, -(historyDays - 1)).Format(time.DateOnly)
	}

	filter := attendance.HistoryFilter{EmployeeID: id.EmployeeID, StartDate: startDate, EndDate: endDate}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.api.History(ctx, filter)
}

func (s *AttendanceServiceImpl) Holidays(ctx context.Context) ([]attendance.Holiday, error) {
	s.mu.Lock()
	mounted := s.identity != nil
	s.mu.Unlock()
	if !mounted {
		return nil, attendance.ErrAuthMissing
	}
	return s.api.Holidays(ctx)
}

// State returns a snapshot of the state machine.
func (s *AttendanceServiceImpl) State() attendance.StateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *AttendanceServiceImpl) stateLocked() attendance.StateResponse {
	status := attendance.StatusOf(s.today)
	state := attendance.StateResponse{
		EngineStatus: s.engine,
		Status:       status,
		WorkingHours: s.workingHours,
		Dialog:       s.dialog,
		Processing:   s.processing,
		LastError:    attendance.ViewOf(s.lastErr),
	}
	if s.identity != nil {
		state.EmployeeID = s.identity.EmployeeID
	}
	if s.today != nil {
		day := *s.today
		state.Today = &day
	}
	if s.dialog != attendance.DialogClosed {
		state.DialogAction = s.action
		state.DetectedFaces = s.poller.Count()
	}
	if s.lastVerification != nil {
		v := *s.lastVerification
		state.LastVerification = &v
	}

	idle := s.dialog == attendance.DialogClosed && !s.processing
	state.CanCheckIn = idle && s.guardActionLocked(attendance.ActionCheckIn) == nil
	state.CanCheckOut = idle && s.guardActionLocked(attendance.ActionCheckOut) == nil
	return state
}

func (s *AttendanceServiceImpl) publishState() {
	s.emit(sse.EventStatus, s.State())
}

func (s *AttendanceServiceImpl) emit(name string, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(Topic, name, data)
}

func (s *AttendanceServiceImpl) emitError(err error) {
	if view := attendance.ViewOf(err); view != nil {
		s.emit(sse.EventError, view)
	}
}
