package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/config"
)

// MemoryRateLimiter keeps sliding windows in process memory. It is the
// fallback when Redis is not reachable: counts are per-replica and reset on
// restart, which is acceptable for a burst gate in front of the real quota
// enforcement.
type MemoryRateLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
}

func NewMemoryRateLimiter() RateLimiter {
	return &MemoryRateLimiter{events: make(map[string][]time.Time)}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string, cfg config.RateLimitConfig) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, now)

	windows := []struct {
		duration time.Duration
		limit    int
	}{
		{time.Minute, cfg.RequestsPerMinute},
		{time.Hour, cfg.RequestsPerHour},
		{24 * time.Hour, cfg.RequestsPerDay},
	}

	allowed := true
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		if countSince(kept, now.Add(-w.duration)) >= w.limit {
			allowed = false
			break
		}
	}

	// The request is recorded either way, matching the Redis limiter.
	l.events[key] = append(kept, now)
	return allowed, nil
}

func (l *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, key)
	return nil
}

// prune drops events older than the widest window. Caller holds the lock.
func (l *MemoryRateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-24 * time.Hour)
	events := l.events[key]
	i := 0
	for ; i < len(events); i++ {
		if events[i].After(cutoff) {
			break
		}
	}
	return events[i:]
}

func countSince(events []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range events {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
