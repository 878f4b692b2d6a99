package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// CounterStore is the shared counter the limiter rides on. Implementations
// must be safe for concurrent use by many in-flight requests.
type CounterStore interface {
	// Increment atomically bumps the counter and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)
	// Expire sets the key's TTL. Called only right after an increment that
	// created the key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter enforces a fixed-window request quota per (route, client) pair.
//
// The counter is incremented first and the TTL set only when the increment
// created the key, so up to 2x the quota can slip through across a window
// boundary, and a crash between the two calls leaves a key without TTL until
// its next window. Both match the shared counter store contract.
type Limiter struct {
	store  CounterStore
	max    int64
	window time.Duration
}

// NewLimiter constructs the limiter.
func NewLimiter(store CounterStore, maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, max: int64(maxRequests), window: window}
}

// Allow counts one request against the (route, client) window. A counter
// store failure denies the request rather than admitting it.
func (l *Limiter) Allow(ctx context.Context, routeKey, clientKey string) error {
	key := fmt.Sprintf("rate_limit:%s:ip-%s", routeKey, clientKey)

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return apperrors.NewServerError(fmt.Errorf("rate limit increment: %w", err))
	}
	if count == 1 {
		if err := l.store.Expire(ctx, key, l.window); err != nil {
			return apperrors.NewServerError(fmt.Errorf("rate limit expire: %w", err))
		}
	}
	if count > l.max {
		return apperrors.NewTooManyRequests()
	}
	return nil
}

// Handle is the Fiber stage form of the limiter, keyed by route path and
// client IP.
func (l *Limiter) Handle(c *fiber.Ctx) error {
	if err := l.Allow(c.UserContext(), c.Path(), c.IP()); err != nil {
		return err
	}
	return c.Next()
}
