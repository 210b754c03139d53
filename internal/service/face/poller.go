package face

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/metrics"
)

const DefaultPollInterval = 1500 * time.Millisecond

// FrameSampler yields the current raw camera frame.
type FrameSampler interface {
	Sample() (image.Image, error)
}

// Poller counts faces in the live camera frame at a fixed interval. It is
// the only writer of the detected face count.
type Poller struct {
	detector  face.Detector
	interval  time.Duration
	newTicker cron.TickerFunc
	metrics   *metrics.Metrics

	mu      sync.Mutex
	current *pollRun
	count   int
}

type pollRun struct {
	handle  *cron.Handle
	onCount func(int)
}

func NewPoller(detector face.Detector, interval time.Duration, newTicker cron.TickerFunc, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{detector: detector, interval: interval, newTicker: newTicker, metrics: m}
}

// Start begins polling frames. A running poll is replaced. onCount, if set,
// is called when the count changes; counts detected after Stop are dropped.
func (p *Poller) Start(ctx context.Context, frames FrameSampler, onCount func(int)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	run := &pollRun{onCount: onCount}
	p.current = run
	run.handle = cron.Every(ctx, "face-poller", p.interval, p.newTicker, func(ctx context.Context) {
		p.tick(ctx, run, frames)
	})
}

// Stop cancels polling and resets the count. It does not wait for an
// in-flight detection; that result is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.current == nil {
		return
	}
	p.current.handle.Cancel()
	p.current = nil
	p.count = 0
}

// Count returns the latest detected face count, 0 when not polling.
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *Poller) tick(ctx context.Context, run *pollRun, frames FrameSampler) {
	frame, err := frames.Sample()
	if err != nil {
		if errors.Is(err, camera.ErrFrameNotReady) || errors.Is(err, camera.ErrNotLive) {
			p.metrics.PollTick("skipped")
			return
		}
		p.metrics.PollTick("error")
		slog.Debug("Frame sample failed", "error", err)
		return
	}

	n, err := p.detector.Detect(ctx, frame)
	if err != nil {
		p.metrics.PollTick("error")
		slog.Debug("Face detection failed", "error", err)
		return
	}

	p.mu.Lock()
	if p.current != run || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	changed := p.count != n
	p.count = n
	p.mu.Unlock()

	p.metrics.PollTick("ok")
	if changed && run.onCount != nil {
		run.onCount(n)
	}
}
