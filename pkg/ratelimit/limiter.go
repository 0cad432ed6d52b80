// FILE: pkg/ratelimit/limiter.go
// PURPOSE: Token bucket admission for the turn endpoint. One bucket per
// session or per client IP, continuous refill, atomic take. The store
// decides where the bucket lives (Redis in production, memory otherwise).
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	ScopeSession = "session"
	ScopeIP      = "ip"

	// Idle buckets expire after this long.
	bucketTTL = 120 * time.Second
)

// Store runs one bucket admission atomically: refill from elapsed time,
// judge, persist. RetryAfter is only meaningful when the take was denied.
type Store interface {
	Take(ctx context.Context, key string, capacity int, refillPerSec float64, now time.Time, ttl time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// Decision is the admission verdict for one request
type Decision struct {
	Allowed    bool
	Scope      string
	RetryAfter time.Duration
}

// Limiter handles admission for scoped keys
type Limiter struct {
	store  Store
	now    func() time.Time
	logger *log.Logger
}

func NewLimiter(store Store, logger *log.Logger) *Limiter {
	return &Limiter{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Allow takes one token from the scope's bucket. capacityPerMin is both the
// burst ceiling and the per-minute refill; zero capacity denies everything.
// Errors are store failures, the caller owns the fail-open decision.
func (l *Limiter) Allow(ctx context.Context, scope, id string, capacityPerMin int) (Decision, error) {
	key := fmt.Sprintf("rl:%s:%s", scope, id)

	allowed, retryAfter, err := l.store.Take(ctx, key, capacityPerMin, perMinToRefill(capacityPerMin), l.now(), bucketTTL)
	if err != nil {
		return Decision{Scope: scope}, err
	}

	if !allowed {
		l.logger.Printf("[WARN] Rate limit exceeded for %s", key)
	}
	return Decision{Allowed: allowed, Scope: scope, RetryAfter: retryAfter}, nil
}

// perMinToRefill converts a per-minute capacity to a per-second refill rate
func perMinToRefill(capacity int) float64 {
	return float64(capacity) / 60.0
}
