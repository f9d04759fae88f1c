package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/schedule"
)

// Action identifies a rate-limited action kind.
type Action string

const (
	ActionCreateTicket Action = "create_ticket"
	ActionCloseTicket  Action = "close_ticket"
)

// RateLimiter tracks per (actor, action) cooldown windows. Check returns
// true when the action is still inside its window ("blocked"); otherwise it
// records now as the new window start and returns false ("allowed").
type RateLimiter interface {
	Check(ctx context.Context, actorID string, action Action) bool
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[Action]time.Duration
	started map[string]time.Time
	sched   *schedule.Scheduler
	nowFn   func() time.Time
}

// NewMemoryRateLimiter returns the default in-process limiter. Each accepted
// action schedules its own expiry so entries are self-cleaning; an action
// kind without a configured window is never limited.
func NewMemoryRateLimiter(windows map[Action]time.Duration, sched *schedule.Scheduler) RateLimiter {
	return &memoryRateLimiter{
		windows: windows,
		started: make(map[string]time.Time),
		sched:   sched,
		nowFn:   time.Now,
	}
}

func (l *memoryRateLimiter) Check(_ context.Context, actorID string, action Action) bool {
	window, ok := l.windows[action]
	if !ok || window <= 0 {
		return false
	}

	key := actorID + ":" + string(action)
	now := l.nowFn()

	l.mu.Lock()
	defer l.mu.Unlock()

	if started, ok := l.started[key]; ok && now.Sub(started) < window {
		return true
	}

	l.started[key] = now
	l.sched.After("ratelimit:"+key, window, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.started, key)
	})
	return false
}
