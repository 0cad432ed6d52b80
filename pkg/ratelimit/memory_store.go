// FILE: pkg/ratelimit/memory_store.go
// PURPOSE: In-process bucket store with the same refill math as the Lua
// script. Serves deployments without Redis, single replica only.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	ts     time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]bucket)}
}

func (s *MemoryStore) Take(_ context.Context, key string, capacity int, refillPerSec float64, now time.Time, ttl time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.Sub(b.ts) > ttl {
		b = bucket{tokens: float64(capacity), ts: now}
	}

	elapsed := now.Sub(b.ts).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens = math.Min(float64(capacity), b.tokens+elapsed*refillPerSec)

	allowed := false
	var retryAfter time.Duration
	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	} else if refillPerSec > 0 {
		retryAfter = time.Duration(math.Ceil((1-b.tokens)/refillPerSec*1000)) * time.Millisecond
	} else {
		retryAfter = ttl
	}

	b.ts = now
	s.buckets[key] = b
	return allowed, retryAfter, nil
}
