package opencv

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
)

// Camera opens V4L/AVFoundation devices through OpenCV.
type Camera struct {
	// Device is a numeric index ("0") or a device path / stream URL.
	Device string
}

var _ camera.FrameSource = Camera{}

func (c Camera) Open(ctx context.Context, constraints camera.Constraints) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var device any = c.Device
	if idx, err := strconv.Atoi(c.Device); err == nil {
		device = idx
	} else if strings.HasPrefix(c.Device, "/dev/") {
		if _, statErr := os.Stat(c.Device); statErr != nil {
			if os.IsPermission(statErr) {
				return nil, fmt.Errorf("%w: %v", camera.ErrPermissionDenied, statErr)
			}
			return nil, fmt.Errorf("%w: %v", camera.ErrNoDevice, statErr)
		}
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "permission") {
			return nil, fmt.Errorf("%w: %v", camera.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", camera.ErrNoDevice, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: device %q did not open", camera.ErrNoDevice, c.Device)
	}

	if constraints.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(constraints.Width))
	}
	if constraints.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(constraints.Height))
	}

	slog.Info("Camera device opened", "device", c.Device, "width", constraints.Width, "height", constraints.Height)
	return &stream{vc: vc, mat: gocv.NewMat()}, nil
}

type stream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

func (s *stream) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, camera.ErrNotLive
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, camera.ErrFrameNotReady
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.mat.Close()
	return s.vc.Close()
}
