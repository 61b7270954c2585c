package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// CeilingKey holds the global generation ceiling. Operators set it directly in Redis.
	CeilingKey = "GLOBAL_RATE_LIMIT"
	// CounterKey counts generations. It has no expiry and is reset by an operator.
	CounterKey = "TotalRequestCount"
)

// ErrRateLimited is returned once the global counter exceeds the ceiling.
var ErrRateLimited = errors.New("global rate limit exceeded")

// RateStatus is a snapshot of the global limiter.
type RateStatus struct {
	Ceiling  int64 `json:"ceiling"`
	Enforced bool  `json:"enforced"`
	Count    int64 `json:"count"`
	Limited  bool  `json:"limited"`
}

// RateLimiter enforces a single global ceiling on generations, shared by all
// callers through a Redis counter.
type RateLimiter struct {
	client          redis.UniversalClient
	fallbackCeiling int64
}

// NewRateLimiter constructs a RateLimiter. fallbackCeiling applies when
// GLOBAL_RATE_LIMIT is not set in Redis; 0 disables the limit in that case.
func NewRateLimiter(client redis.UniversalClient, fallbackCeiling int64) *RateLimiter {
	return &RateLimiter{client: client, fallbackCeiling: fallbackCeiling}
}

// ceiling returns the active ceiling and whether it is enforced. A value
// stored in Redis is always enforced, including 0 or a negative number; the
// configured fallback only when it is positive.
func (l *RateLimiter) ceiling(ctx context.Context) (int64, bool, error) {
	raw, err := l.client.Get(ctx, CeilingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.fallbackCeiling, l.fallbackCeiling > 0, nil
		}
		return 0, false, fmt.Errorf("reading %s: %w", CeilingKey, err)
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parsing %s value %q: %w", CeilingKey, raw, err)
	}
	return v, true, nil
}

// Allow counts one generation attempt against the ceiling.
// Returns ErrRateLimited when the incremented count exceeds it. When no
// ceiling is enforced the counter is left untouched.
func (l *RateLimiter) Allow(ctx context.Context) error {
	ceiling, enforced, err := l.ceiling(ctx)
	if err != nil {
		return err
	}
	if !enforced {
		return nil
	}

	count, err := l.client.Incr(ctx, CounterKey).Result()
	if err != nil {
		return fmt.Errorf("incrementing %s: %w", CounterKey, err)
	}

	if count > ceiling {
		return fmt.Errorf("%w: %d of %d", ErrRateLimited, count, ceiling)
	}
	return nil
}

// Status reports the current ceiling and count without incrementing.
func (l *RateLimiter) Status(ctx context.Context) (RateStatus, error) {
	ceiling, enforced, err := l.ceiling(ctx)
	if err != nil {
		return RateStatus{}, err
	}

	count, err := l.client.Get(ctx, CounterKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return RateStatus{}, fmt.Errorf("reading %s: %w", CounterKey, err)
	}

	return RateStatus{
		Ceiling:  ceiling,
		Enforced: enforced,
		Count:    count,
		Limited:  enforced && count >= ceiling,
	}, nil
}

// Reset clears the counter.
func (l *RateLimiter) Reset(ctx context.Context) error {
	if err := l.client.Del(ctx, CounterKey).Err(); err != nil {
		return fmt.Errorf("resetting %s: %w", CounterKey, err)
	}
	return nil
}
