package attendance

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	facesvc "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/face"
)

type fakeAPI struct {
	mu       sync.Mutex
	today    *attendance.AttendanceDay
	checkIns []attendance.CheckInRequest
	outs     []attendance.CheckOutRequest
	err      error
	// block, when set, holds submissions until closed
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeAPI) GetToday(context.Context, string) (*attendance.AttendanceDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.today == nil {
		return nil, nil
	}
	d := *f.today
	return &d, nil
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) CheckIn(ctx context.Context, req attendance.CheckInRequest) (*attendance.AttendanceDay, error) {
	f.mu.Lock()
	f.checkIns = append(f.checkIns, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	at := req.CheckInTime
	f.today = &attendance.AttendanceDay{ID: "att-1", EmployeeID: req.EmployeeID, CheckInTime: &at, FaceVerified: true}
	d := *f.today
	return &d, nil
}

func (f *fakeAPI) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (*attendance.AttendanceDay, error) {
	f.mu.Lock()
	f.outs = append(f.outs, req)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	at := req.CheckOutTime
	f.today.CheckOutTime = &at
	d := *f.today
	return &d, nil
}

func (f *fakeAPI) History(_ context.Context, filter attendance.HistoryFilter) ([]attendance.AttendanceDay, error) {
	return []attendance.AttendanceDay{{EmployeeID: filter.EmployeeID}}, nil
}

func (f *fakeAPI) Holidays(context.Context) ([]attendance.Holiday, error) {
	return []attendance.Holiday{{ID: "h1", Name: "New Year", Date: "2026-01-01"}}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checkIns) + len(f.outs)
}

type fakeResolver struct {
	id     profile.Identity
	idErr  error
	ref     string
	refErr  error
	prepErr error
}

func (f *fakeResolver) Identity(context.Context) (profile.Identity, error) { return f.id, f.idErr }

func (f *fakeResolver) FaceReference(context.Context, string) (string, error) {
	return f.ref, f.refErr
}

func (f *fakeResolver) PrepareReference(_ context.Context, ref string) (face.Reference, error) {
	if f.prepErr != nil {
		return "", f.prepErr
	}
	return face.Reference(ref), nil
}

type fakeFaces struct {
	mu        sync.Mutex
	enrollErr error
	result    attendance.VerificationResult
	err       error
	verifies  int
	// block, when set, holds Verify until closed or cancelled
	block chan struct{}
}

func (f *fakeFaces) Enroll(context.Context, string, face.Reference) error { return f.enrollErr }

func (f *fakeFaces) Verify(ctx context.Context, _ string, _ []byte) (attendance.VerificationResult, error) {
	f.mu.Lock()
	f.verifies++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return attendance.VerificationResult{}, attendance.ErrFaceRecognitionUnavailable.Wrap(ctx.Err())
		}
	}
	return f.result, f.err
}

type fakePoller struct {
	mu      sync.Mutex
	count   int
	running bool
	starts  int
}

func (p *fakePoller) Start(context.Context, facesvc.FrameSampler, func(int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	p.starts++
}

func (p *fakePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

func (p *fakePoller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return p.count
}

func (p *fakePoller) set(n int) {
	p.mu.Lock()
	p.count = n
	p.mu.Unlock()
}

func (p *fakePoller) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	live    bool
	opens   int
	closes  int
	// gate, when set, holds Open until closed; entered is closed on arrival
	gate    chan struct{}
	entered chan struct{}
}

func (c *fakeCamera) Open(context.Context) error {
	c.mu.Lock()
	c.opens++
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		close(c.entered)
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.live = true
	return nil
}

func (c *fakeCamera) CaptureFrame() (camera.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live {
		return camera.Image{}, attendance.ErrCameraUnavailable
	}
	return camera.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, MIME: "image/jpeg", Width: 640, Height: 480}, nil
}

func (c *fakeCamera) Sample() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (c *fakeCamera) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *fakeCamera) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = false
	c.closes++
}

type fakeLocation struct {
	loc attendance.Location
	err error
}

func (f fakeLocation) Resolve(context.Context) (attendance.Location, error) { return f.loc, f.err }

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(_, name string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

var (
	monday9am = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	jakarta   = attendance.Location{Latitude: -6.2088, Longitude: 106.8456, Accuracy: 10, Address: "Menteng, Jakarta", Available: true}
	unplaced  = attendance.Location{Address: geo.LocationUnavailable}
)

type countingDetector struct {
	mu sync.Mutex
	n  int
	c  int
}

func (d *countingDetector) Detect(context.Context, image.Image) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.c++
	return d.n, nil
}

func (d *countingDetector) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.c
}

// forgetfulEngine drops its templates when lost is set, as a restarted
// remote engine does.
type forgetfulEngine struct {
	mu        sync.Mutex
	lost      bool
	enrollErr error
	enrolls   int
}

func (e *forgetfulEngine) Detect(context.Context, image.Image) (int, error) { return 1, nil }

func (e *forgetfulEngine) Enroll(context.Context, string, face.Reference) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enrolls++
	if e.enrollErr != nil {
		return e.enrollErr
	}
	e.lost = false
	return nil
}

func (e *forgetfulEngine) Verify(context.Context, string, []byte) (face.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lost {
		return face.Result{}, face.ErrNotEnrolled
	}
	return face.Result{Success: true, Matched: true, Similarity: 0.91}, nil
}

func (e *forgetfulEngine) set(lost bool, enrollErr error) {
	e.mu.Lock()
	e.lost = lost
	e.enrollErr = enrollErr
	e.mu.Unlock()
}

func (e *forgetfulEngine) enrollCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enrolls
}
