package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
)

type fakeStream struct {
	mu     sync.Mutex
	frames []image.Image
	closed int
}

func (s *fakeStream) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, camera.ErrFrameNotReady
	}
	f := s.frames[0]
	if len(s.frames) > 1 {
		s.frames = s.frames[1:]
	}
	return f, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeSource struct {
	stream *fakeStream
	err    error
	opens  int
	got    camera.Constraints
}

func (f *fakeSource) Open(_ context.Context, c camera.Constraints) (camera.Stream, error) {
	f.opens++
	f.got = c
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 80, A: 255})
		}
	}
	return img
}

func newService(src camera.FrameSource) *CameraServiceImpl {
	return NewCameraService(src, Config{Constraints: camera.Constraints{Width: 320, Height: 240}}, nil)
}

func TestOpenIsIdempotent(t *testing.T) {
	src := &fakeSource{stream: &fakeStream{}}
	svc := newService(src)

	require.NoError(t, svc.Open(context.Background()))
	require.NoError(t, svc.Open(context.Background()))

	assert.Equal(t, 1, src.opens)
	assert.True(t, svc.Live())
	assert.Equal(t, camera.FacingUser, src.got.FacingMode)
}

func TestOpenFailureIsCameraUnavailable(t *testing.T) {
	cases := []error{camera.ErrPermissionDenied, camera.ErrNoDevice, errors.New("v4l2 busy")}
	for _, cause := range cases {
		svc := newService(&fakeSource{err: cause})

		err := svc.Open(context.Background())

		assert.ErrorIs(t, err, attendance.ErrCameraUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.False(t, svc.Live())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	stream := &fakeStream{}
	svc := newService(&fakeSource{stream: stream})

	assert.NotPanics(t, svc.Close)

	require.NoError(t, svc.Open(context.Background()))
	svc.Close()
	svc.Close()
	svc.Close()

	assert.Equal(t, 1, stream.closed)
	assert.False(t, svc.Live())
}

func TestCaptureFrameRequiresLiveStream(t *testing.T) {
	svc := newService(&fakeSource{stream: &fakeStream{}})

	_, err := svc.CaptureFrame()

	assert.ErrorIs(t, err, attendance.ErrCameraUnavailable)
	assert.ErrorIs(t, err, camera.ErrNotLive)
}

func TestCaptureFrameEncodesBoundedJPEG(t *testing.T) {
	stream := &fakeStream{frames: []image.Image{solid(640, 480)}}
	svc := newService(&fakeSource{stream: stream})
	require.NoError(t, svc.Open(context.Background()))

	img, err := svc.CaptureFrame()

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.Equal(t, 320, img.Width)
	assert.Equal(t, 240, img.Height)
	assert.Equal(t, []byte{0xFF, 0xD8}, img.Data[:2])
	assert.Contains(t, img.DataURL(), "data:image/jpeg;base64,")
}

func TestCaptureFrameNotReady(t *testing.T) {
	svc := newService(&fakeSource{stream: &fakeStream{}})
	require.NoError(t, svc.Open(context.Background()))

	_, err := svc.CaptureFrame()

	assert.ErrorIs(t, err, attendance.ErrCameraUnavailable)
	assert.ErrorIs(t, err, camera.ErrFrameNotReady)
}

func TestSampleSkipsEmptyFrames(t *testing.T) {
	stream := &fakeStream{frames: []image.Image{image.NewRGBA(image.Rect(0, 0, 0, 0))}}
	svc := newService(&fakeSource{stream: stream})

	_, err := svc.Sample()
	assert.ErrorIs(t, err, camera.ErrNotLive)

	require.NoError(t, svc.Open(context.Background()))
	_, err = svc.Sample()
	assert.ErrorIs(t, err, camera.ErrFrameNotReady)
}

// gatedSource blocks Open until release is closed.
type gatedSource struct {
	stream  *fakeStream
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Open(context.Context, camera.Constraints) (camera.Stream, error) {
	close(g.entered)
	<-g.release
	return g.stream, nil
}

func TestCloseDuringOpenReleasesLateStream(t *testing.T) {
	src := &gatedSource{stream: &fakeStream{}, entered: make(chan struct{}), release: make(chan struct{})}
	svc := newService(src)

	opened := make(chan error, 1)
	go func() { opened <- svc.Open(context.Background()) }()
	<-src.entered

	closed := make(chan struct{})
	go func() {
		svc.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked while the device was opening")
	}
	assert.False(t, svc.Live())

	close(src.release)
	err := <-opened

	assert.ErrorIs(t, err, attendance.ErrCameraUnavailable)
	assert.False(t, svc.Live())
	assert.Equal(t, 1, src.stream.closed)
}
