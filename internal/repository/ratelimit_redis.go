package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisRateLimiter struct {
	client  *redis.Client
	windows map[Action]time.Duration
	logger  *zap.Logger
}

// NewRedisRateLimiter returns a limiter whose windows are keyed in Redis, so
// cooldowns survive a process restart. Semantics match the in-memory
// limiter: SETNX with the window as TTL means the first caller in a window
// is allowed and owns it until the key expires. Redis errors fail open.
func NewRedisRateLimiter(client *redis.Client, windows map[Action]time.Duration, logger *zap.Logger) RateLimiter {
	return &redisRateLimiter{
		client:  client,
		windows: windows,
		logger:  logger,
	}
}

func (l *redisRateLimiter) Check(ctx context.Context, actorID string, action Action) bool {
	window, ok := l.windows[action]
	if !ok || window <= 0 {
		return false
	}

	key := "ratelimit:" + actorID + ":" + string(action)
	acquired, err := l.client.SetNX(ctx, key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing action",
			zap.String("actor", actorID),
			zap.String("action", string(action)),
			zap.Error(err))
		return false
	}
	return !acquired
}
