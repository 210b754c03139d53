package camera

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/imaging"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/metrics"
)

const previewQuality = 70

type Config struct {
	Constraints camera.Constraints
	JPEGQuality int
}

// CameraServiceImpl owns at most one stream at a time. Open and Close bracket
// one dialog; Close is safe on every exit path.
type CameraServiceImpl struct {
	source  camera.FrameSource
	cfg     Config
	metrics *metrics.Metrics

	mu     sync.Mutex
	stream camera.Stream
	last   image.Image
	// closes counts Close calls; an Open that straddles one is discarded.
	closes uint64
}

var _ camera.Controller = (*CameraServiceImpl)(nil)

func NewCameraService(source camera.FrameSource, cfg Config, m *metrics.Metrics) *CameraServiceImpl {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 90
	}
	if cfg.Constraints.FacingMode == "" {
		cfg.Constraints.FacingMode = camera.FacingUser
	}
	return &CameraServiceImpl{source: source, cfg: cfg, metrics: m}
}

// Open acquires the stream. Opening an already live camera is a no-op.
// The device is opened without holding the lock, so Close returns at once
// and a stream that arrives after it is released. Failures are
// CAMERA_UNAVAILABLE.
func (s *CameraServiceImpl) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.stream != nil {
		s.mu.Unlock()
		return nil
	}
	closes := s.closes
	s.mu.Unlock()

	stream, err := s.source.Open(ctx, s.cfg.Constraints)
	if err != nil {
		s.metrics.CameraOpen("failed")
		slog.Warn("Camera unavailable", "error", err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if errors.Is(err, camera.ErrPermissionDenied) {
			return attendance.ErrCameraUnavailable.Wrap(err).WithMessage("Camera permission was denied")
		}
		return attendance.ErrCameraUnavailable.Wrap(err)
	}

	s.mu.Lock()
	switch {
	case s.closes != closes:
		s.mu.Unlock()
		closeStream(stream)
		slog.Info("Camera closed while opening")
		return attendance.ErrCameraUnavailable.Wrap(camera.ErrNotLive).WithMessage("Camera was closed while opening")
	case s.stream != nil:
		s.mu.Unlock()
		closeStream(stream)
		return nil
	}
	s.stream = stream
	s.last = nil
	s.mu.Unlock()

	s.metrics.CameraOpen("ok")
	slog.Info("Camera opened", "facing", s.cfg.Constraints.FacingMode)
	return nil
}

func closeStream(stream camera.Stream) {
	if err := stream.Close(); err != nil {
		slog.Warn("Camera close failed", "error", err)
	}
}

func (s *CameraServiceImpl) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Sample reads the current frame. It returns camera.ErrFrameNotReady while
// the device warms up and camera.ErrNotLive when closed.
func (s *CameraServiceImpl) Sample() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *CameraServiceImpl) readLocked() (image.Image, error) {
	if s.stream == nil {
		return nil, camera.ErrNotLive
	}
	frame, err := s.stream.Read()
	if err != nil {
		return nil, err
	}
	if imaging.Empty(frame) {
		return nil, camera.ErrFrameNotReady
	}
	s.last = frame
	return frame, nil
}

// CaptureFrame encodes the current frame as a bounded JPEG. If the device
// has no new frame the last good one is used.
func (s *CameraServiceImpl) CaptureFrame() (camera.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return camera.Image{}, attendance.ErrCameraUnavailable.Wrap(camera.ErrNotLive).WithMessage("Camera is not open")
	}

	frame, err := s.readLocked()
	if err != nil {
		if !errors.Is(err, camera.ErrFrameNotReady) || s.last == nil {
			return camera.Image{}, attendance.ErrCameraUnavailable.Wrap(err).WithMessage("Camera is not ready yet, try again")
		}
		frame = s.last
	}

	return s.encode(frame, s.cfg.JPEGQuality)
}

// Preview encodes a fresh frame for the live preview stream.
func (s *CameraServiceImpl) Preview() (camera.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := s.readLocked()
	if err != nil {
		return camera.Image{}, err
	}
	return s.encode(frame, previewQuality)
}

func (s *CameraServiceImpl) encode(frame image.Image, quality int) (camera.Image, error) {
	bounded := imaging.Fit(frame, s.cfg.Constraints.Width, s.cfg.Constraints.Height)
	data, err := imaging.EncodeJPEG(bounded, quality)
	if err != nil {
		return camera.Image{}, attendance.ErrCameraUnavailable.Wrap(err)
	}
	b := bounded.Bounds()
	return camera.Image{Data: data, MIME: imaging.MIMEJPEG, Width: b.Dx(), Height: b.Dy()}, nil
}

// Close stops the stream. Calling it again, or before Open, does nothing.
func (s *CameraServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
	if s.stream == nil {
		return
	}
	closeStream(s.stream)
	s.stream = nil
	s.last = nil
	slog.Info("Camera closed")
}
