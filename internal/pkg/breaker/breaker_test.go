package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cb := New("geocode", 2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func(context.Context) error { return boom }
	ok := func(context.Context) error { return nil }
	ctx := context.Background()

	assert.ErrorIs(t, cb.Call(ctx, fail), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(ctx, fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Call(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cb := New("geocode", 1, time.Second)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	_ = cb.Call(context.Background(), func(context.Context) error { return boom })
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Call(context.Background(), func(context.Context) error { return boom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	cb := New("geocode", 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}
