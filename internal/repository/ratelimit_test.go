package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-bot/internal/schedule"
)

func newTestLimiter(t *testing.T, window time.Duration) (*memoryRateLimiter, func(time.Duration)) {
	t.Helper()
	sched := schedule.New()
	t.Cleanup(sched.Stop)

	limiter := NewMemoryRateLimiter(map[Action]time.Duration{
		ActionCreateTicket: window,
	}, sched).(*memoryRateLimiter)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.nowFn = func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }
	return limiter, advance
}

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("first action allowed, repeat blocked inside the window", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 30*time.Second)

		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		assert.True(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
	})

	t.Run("allowed again after the window elapses", func(t *testing.T) {
		limiter, advance := newTestLimiter(t, 30*time.Second)

		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		advance(29 * time.Second)
		assert.True(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		advance(time.Second)
		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
	})

	t.Run("actors and actions are tracked separately", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 30*time.Second)

		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		assert.False(t, limiter.Check(ctx, "user-2", ActionCreateTicket))
		// Close has no configured window here, so it is never limited.
		assert.False(t, limiter.Check(ctx, "user-1", ActionCloseTicket))
		assert.False(t, limiter.Check(ctx, "user-1", ActionCloseTicket))
	})

	t.Run("blocked attempts do not extend the window", func(t *testing.T) {
		limiter, advance := newTestLimiter(t, 30*time.Second)

		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		advance(20 * time.Second)
		assert.True(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
		advance(10 * time.Second)
		assert.False(t, limiter.Check(ctx, "user-1", ActionCreateTicket))
	})
}
