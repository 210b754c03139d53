package face

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/metrics"
)

// FaceServiceImpl fronts the face engine for the state machine. It tracks
// which reference each employee is enrolled with and translates engine
// failures into attendance errors.
type FaceServiceImpl struct {
	engine  face.Engine
	metrics *metrics.Metrics

	mu       sync.Mutex
	enrolled map[string]face.Reference
}

func NewFaceService(engine face.Engine, m *metrics.Metrics) *FaceServiceImpl {
	return &FaceServiceImpl{
		engine:   engine,
		metrics:  m,
		enrolled: make(map[string]face.Reference),
	}
}

// Enroll derives the template for employeeID. Enrolling the same reference
// again is a no-op; a different reference replaces the template.
func (s *FaceServiceImpl) Enroll(ctx context.Context, employeeID string, ref face.Reference) error {
	s.mu.Lock()
	prev, ok := s.enrolled[employeeID]
	s.mu.Unlock()
	if ok && prev == ref {
		return nil
	}

	if err := s.engine.Enroll(ctx, employeeID, ref); err != nil {
		s.Forget(employeeID)
		slog.Warn("Face enrollment failed", "employee_id", employeeID, "error", err)
		return translate(err)
	}

	s.mu.Lock()
	s.enrolled[employeeID] = ref
	s.mu.Unlock()

	slog.Info("Face template enrolled", "employee_id", employeeID)
	return nil
}

// Enrolled reports whether a template is held for employeeID.
func (s *FaceServiceImpl) Enrolled(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrolled[employeeID]
	return ok
}

// Forget drops the local record of an enrollment.
func (s *FaceServiceImpl) Forget(employeeID string) {
	s.mu.Lock()
	delete(s.enrolled, employeeID)
	s.mu.Unlock()
}

func (s *FaceServiceImpl) Detect(ctx context.Context, frame image.Image) (int, error) {
	n, err := s.engine.Detect(ctx, frame)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// Verify compares jpeg with the enrolled template. A non-match returns the
// result together with FACE_VERIFICATION_FAILED; an engine failure returns
// FACE_RECOGNITION_UNAVAILABLE.
func (s *FaceServiceImpl) Verify(ctx context.Context, employeeID string, jpeg []byte) (attendance.VerificationResult, error) {
	if !s.Enrolled(employeeID) {
		return attendance.VerificationResult{}, attendance.ErrFaceRecognitionUnavailable.Wrap(face.ErrNotEnrolled).WithMessage("Face recognition is not set up for this employee")
	}

	res, err := s.engine.Verify(ctx, employeeID, jpeg)
	if err != nil {
		if errors.Is(err, face.ErrNotEnrolled) {
			s.Forget(employeeID)
		}
		return attendance.VerificationResult{}, translate(err)
	}

	out := attendance.VerificationResult{
		Success:    res.Success,
		Matched:    res.Matched,
		Similarity: res.Similarity,
		Message:    res.Message,
	}

	if !res.Success {
		slog.Warn("Face engine reported failure", "employee_id", employeeID, "message", res.Message)
		e := attendance.ErrFaceRecognitionUnavailable
		if res.Message != "" {
			e = e.WithMessage(res.Message)
		}
		return out, e
	}

	s.metrics.Similarity(res.Similarity)
	if !res.Matched {
		slog.Info("Face verification failed", "employee_id", employeeID, "similarity", res.Similarity)
		e := attendance.ErrFaceVerificationFailed
		if res.Message != "" {
			e = e.WithMessage(res.Message)
		}
		return out, e
	}

	return out, nil
}

func translate(err error) error {
	if _, ok := attendance.KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch {
	case errors.Is(err, face.ErrNoFaceInReference):
		return attendance.ErrFaceRecognitionUnavailable.Wrap(err).WithMessage("No face found in your profile photo")
	case errors.Is(err, face.ErrInvalidReference):
		return attendance.ErrFaceRecognitionUnavailable.Wrap(err).WithMessage("Your profile photo could not be read")
	default:
		return attendance.ErrFaceRecognitionUnavailable.Wrap(err)
	}
}
