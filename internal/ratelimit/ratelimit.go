// Package ratelimit provides Redis-based fixed-window rate limiting.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limits defines the windows guarded by the limiter.
type Limits struct {
	// Login attempts per username+IP pair.
	LoginLimit  int
	LoginWindow time.Duration

	// Frame submissions per room. Frames arrive on a periodic timer from
	// each participant, so the ceiling only has to catch runaway clients.
	FrameLimit  int
	FrameWindow time.Duration
}

// DefaultLimits returns the recommended limits.
func DefaultLimits() Limits {
	return Limits{
		LoginLimit:  5,
		LoginWindow: time.Minute,
		FrameLimit:  120,
		FrameWindow: time.Minute,
	}
}

// Limiter counts requests in Redis. Without Redis every check is allowed
// (fail-open for availability), matching the rest of the service's optional
// Redis posture.
type Limiter struct {
	redis  *redis.Client
	limits Limits
}

// NewLimiter creates a limiter with the default limits.
func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{redis: rdb, limits: DefaultLimits()}
}

// CheckLogin guards credential checks against brute forcing.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	key := fmt.Sprintf("ratelimit:login:%s:%s", username, ip)
	if err := l.checkLimit(ctx, key, l.limits.LoginLimit, l.limits.LoginWindow); err != nil {
		log.Printf("[RateLimit] Login attempts for %s from %s exceeded limit", username, ip)
		return ErrRateLimited
	}
	return nil
}

// CheckFrame guards the detection endpoint per room.
func (l *Limiter) CheckFrame(ctx context.Context, roomID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	key := fmt.Sprintf("ratelimit:frame:%s", roomID)
	if err := l.checkLimit(ctx, key, l.limits.FrameLimit, l.limits.FrameWindow); err != nil {
		log.Printf("[RateLimit] Frame submissions for room %s exceeded limit", roomID)
		return ErrRateLimited
	}
	return nil
}

// checkLimit performs the INCR/EXPIRE window check.
func (l *Limiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		// Fail-open on Redis errors to maintain availability.
		return nil
	}
	if count == 1 {
		l.redis.Expire(ctx, key, window)
	}
	if int(count) > limit {
		return ErrRateLimited
	}
	return nil
}
