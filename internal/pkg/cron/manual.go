package cron

import (
	"sync"
	"time"
)

// ManualClock hands out tickers that only fire when Tick is called.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
	now     time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// NewTicker satisfies TickerFunc.
func (m *ManualClock) NewTicker(time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	m.tickers = append(m.tickers, t)
	return t
}

// Tick delivers one tick to every running ticker, blocking until each has
// been received, and returns how many received it.
func (m *ManualClock) Tick() int {
	m.mu.Lock()
	live := make([]*manualTicker, 0, len(m.tickers))
	for _, t := range m.tickers {
		select {
		case <-t.stopped:
		default:
			live = append(live, t)
		}
	}
	m.tickers = live
	now := m.now
	m.mu.Unlock()

	delivered := 0
	for _, t := range live {
		select {
		case t.ch <- now:
			delivered++
		case <-t.stopped:
		}
	}
	return delivered
}

// Active returns the number of tickers not yet stopped.
func (m *ManualClock) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tickers {
		select {
		case <-t.stopped:
		default:
			n++
		}
	}
	return n
}

// Advance moves the clock's notion of now forward.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Now satisfies func() time.Time.
func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
