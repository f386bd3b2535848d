// internal/trigger/lock.go
package trigger

import (
	"context"
	"time"

	"stayflow-messaging/internal/common/database"
	"stayflow-messaging/internal/common/logger"
)

const sweepLockKey = "stayflow:sweep:lock"

// RedisSweepLock is a best-effort advisory lock over sweeps. The TTL bounds
// how long a crashed holder can block later runs.
type RedisSweepLock struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisSweepLock(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisSweepLock {
	return &RedisSweepLock{redis: redis, ttl: ttl, logger: log}
}

func (l *RedisSweepLock) Acquire(ctx context.Context) (bool, error) {
	return l.redis.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), l.ttl)
}

func (l *RedisSweepLock) Release(ctx context.Context) {
	if err := l.redis.Del(ctx, sweepLockKey); err != nil {
		l.logger.Warn("failed to release sweep lock", map[string]interface{}{"error": err.Error()})
	}
}
