package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const limiterPrefix = "otp:rate"

// Limiter throttles how often a user can have a code sent: a cooldown between
// consecutive sends plus a cap on sends inside a rolling window. A nil Redis
// client disables limiting, and Redis errors fail open.
type Limiter struct {
	cache       *redis.Client
	cooldown    time.Duration
	window      time.Duration
	maxInWindow int
	logger      *slog.Logger
}

// NewLimiter constructs a Redis-backed send limiter.
func NewLimiter(cache *redis.Client, cooldown, window time.Duration, maxInWindow int, logger *slog.Logger) *Limiter {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if maxInWindow <= 0 {
		maxInWindow = 5
	}
	return &Limiter{cache: cache, cooldown: cooldown, window: window, maxInWindow: maxInWindow, logger: logger}
}

// Allow records a send for userID or returns a *RateLimitError.
func (l *Limiter) Allow(ctx context.Context, userID string) error {
	if l == nil || l.cache == nil {
		return nil
	}

	lastKey := fmt.Sprintf("%s:last:%s", limiterPrefix, userID)
	countKey := fmt.Sprintf("%s:count:%s", limiterPrefix, userID)

	if ttl, err := l.cache.PTTL(ctx, lastKey).Result(); err != nil {
		l.warn("otp limiter cooldown lookup failed", err)
		return nil
	} else if ttl > 0 {
		return &RateLimitError{RetryAfter: ttl}
	}

	cnt, err := l.cache.Incr(ctx, countKey).Result()
	if err != nil {
		l.warn("otp limiter count failed", err)
		return nil
	}
	if cnt == 1 {
		l.cache.Expire(ctx, countKey, l.window)
	}

	if cnt > int64(l.maxInWindow) {
		ttl, err := l.cache.PTTL(ctx, countKey).Result()
		if err != nil || ttl <= 0 {
			ttl = l.window
		}
		return &RateLimitError{RetryAfter: ttl}
	}

	if l.cooldown > 0 {
		if err := l.cache.Set(ctx, lastKey, "1", l.cooldown).Err(); err != nil {
			l.warn("otp limiter cooldown write failed", err)
		}
	}
	return nil
}

// Reset forgets the send history for userID, used once the account is verified.
func (l *Limiter) Reset(ctx context.Context, userID string) {
	if l == nil || l.cache == nil {
		return
	}
	lastKey := fmt.Sprintf("%s:last:%s", limiterPrefix, userID)
	countKey := fmt.Sprintf("%s:count:%s", limiterPrefix, userID)
	if err := l.cache.Del(ctx, lastKey, countKey).Err(); err != nil {
		l.warn("otp limiter reset failed", err)
	}
}

func (l *Limiter) warn(msg string, err error) {
	if l.logger != nil {
		l.logger.Warn(msg, "error", err)
	}
}
