package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates tickers. Tests inject a manual factory to drive ticks.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker is the wall-clock TickerFunc.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Handle controls one repeating task started by Every.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Cancel stops the task. It is idempotent, safe on a nil Handle and does not
// wait for the task goroutine, so it may be called from inside fn.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancel()
		slog.Debug("Task cancelled", "name", h.name)
	})
}

// Done is closed once the task goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Every runs fn on each tick of a ticker built by newTicker until the handle
// is cancelled or ctx ends. fn receives a context that is cancelled with the
// handle; a tick already in fn when Cancel is called is not interrupted.
func Every(ctx context.Context, name string, interval time.Duration, newTicker TickerFunc, fn func(ctx context.Context)) *Handle {
	if newTicker == nil {
		newTicker = NewTicker
	}
	taskCtx, cancel := context.WithCancel(ctx)
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}
	ticker := newTicker(interval)

	go func() {
		defer close(h.done)
		defer ticker.Stop()

		for {
			select {
			case <-taskCtx.Done():
				return
			case <-ticker.C():
				// a tick and a cancel may be ready together
				if taskCtx.Err() != nil {
					return
				}
				fn(taskCtx)
			}
		}
	}()

	slog.Debug("Task started", "name", name, "interval", interval)
	return h
}
