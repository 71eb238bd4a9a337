package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// byteRateLimiter meters input bytes per key with a token bucket each.
type byteRateLimiter struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	buckets     map[string]*byteBucket
	lastCleanup time.Time
}

type byteBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newByteRateLimiter returns nil when rateBytesPerSec is not positive, which
// disables limiting.
func newByteRateLimiter(rateBytesPerSec, burstBytes int) *byteRateLimiter {
	if rateBytesPerSec <= 0 {
		return nil
	}
	if burstBytes < rateBytesPerSec {
		burstBytes = rateBytesPerSec
	}
	return &byteRateLimiter{
		limit:       rate.Limit(rateBytesPerSec),
		burst:       burstBytes,
		buckets:     make(map[string]*byteBucket),
		lastCleanup: time.Now(),
	}
}

func (l *byteRateLimiter) Allow(key string, costBytes int, now time.Time) bool {
	if l == nil {
		return true
	}
	if key == "" {
		return false
	}
	if costBytes <= 0 {
		return true
	}

	l.mu.Lock()
	l.cleanupLocked(now)
	b := l.buckets[key]
	if b == nil {
		b = &byteBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	limiter := b.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, costBytes)
}

// forget drops the bucket for a removed session.
func (l *byteRateLimiter) forget(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *byteRateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < 2*time.Minute {
		return
	}
	l.lastCleanup = now

	const idleTTL = 10 * time.Minute
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.buckets, k)
		}
	}
}
