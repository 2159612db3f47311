// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLoginAttempt allows up to 5 attempts per (ip, address) per 15 minutes.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, address string) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:login:%s:%s", ip, address)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, key, 15*time.Minute)
	}

	maxAttempts := int64(5)
	remaining := maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= maxAttempts, remaining, nil
}

// ResetLoginAttempts resets the login attempt counter.
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, address string) error {
	return r.client.Del(ctx, fmt.Sprintf("ratelimit:login:%s:%s", ip, address)).Err()
}

// CheckAPIRateLimit is a fixed-window limiter for per-address endpoint quotas.
func (r *RateLimiter) CheckAPIRateLimit(ctx context.Context, address, endpoint string, maxRequests int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:api:%s:%s", address, endpoint)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, key, window)
	}
	return count <= maxRequests, nil
}

// IsLocked reports whether an address is temporarily locked out.
func (r *RateLimiter) IsLocked(ctx context.Context, address string) (bool, time.Duration, error) {
	ttl, err := r.client.TTL(ctx, fmt.Sprintf("account:locked:%s", address)).Result()
	if err != nil && err != redis.Nil {
		return false, 0, err
	}
	if ttl < 0 {
		return false, 0, nil
	}
	return true, ttl, nil
}

// Lock temporarily locks an address out of session creation.
func (r *RateLimiter) Lock(ctx context.Context, address string, duration time.Duration) error {
	return r.client.Set(ctx, fmt.Sprintf("account:locked:%s", address), "1", duration).Err()
}
