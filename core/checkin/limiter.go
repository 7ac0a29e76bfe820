package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Attempt limiting defaults: a device locks out after MaxFailedAttempts
// failures within the lockout window.
const (
	MaxFailedAttempts = 5
	LockoutWindow     = 5 * time.Minute
)

// AttemptLimiter throttles failed PIN attempts per kiosk device.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// RedisLimiter counts failures in redis with a rolling expiry so every API
// replica shares the lockout state.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

var _ AttemptLimiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, max: MaxFailedAttempts, window: LockoutWindow}
}

func (l *RedisLimiter) key(key string) string {
	return "checkin:attempts:" + key
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(key)).Int()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "reading attempt count")
	}
	return count < l.max, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, l.key(key))
	pipe.Expire(ctx, l.key(key), l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "recording failed attempt")
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.client.Del(ctx, l.key(key)).Err(), "resetting attempts")
}

// MemLimiter is the in-process fallback used in tests and single-node DEV.
type MemLimiter struct {
	max    int
	window time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
	nowFunc  func() time.Time // mockable
}

var _ AttemptLimiter = (*MemLimiter)(nil)

func NewMemLimiter() *MemLimiter {
	return &MemLimiter{
		max:      MaxFailedAttempts,
		window:   LockoutWindow,
		failures: make(map[string][]time.Time),
		nowFunc:  time.Now,
	}
}

func (l *MemLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recentLocked(key)) < l.max, nil
}

func (l *MemLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key] = append(l.recentLocked(key), l.nowFunc())
	return nil
}

func (l *MemLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return nil
}

func (l *MemLimiter) recentLocked(key string) []time.Time {
	cutoff := l.nowFunc().Add(-l.window)
	var recent []time.Time
	for _, at := range l.failures[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	l.failures[key] = recent
	return recent
}
