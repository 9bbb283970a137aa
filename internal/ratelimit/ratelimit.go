package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides if a request from key should be allowed.
// Allow returns (allowed, retryAfterSeconds). When allowed is false, retryAfterSeconds
// may be set for the Retry-After response header (0 = omit).
type Limiter interface {
	Allow(key string) (allowed bool, retryAfterSec int)
}

// Noop allows all requests.
type Noop struct{}

func (Noop) Allow(key string) (bool, int) { return true, 0 }

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// TokenBucket gives every key its own token bucket (single-instance only).
// Buckets idle for longer than the refill period of a full burst are dropped.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	nowFunc func() time.Time
}

// NewTokenBucket allows bursts of up to burst requests per key, refilled at
// burst tokens per window.
func NewTokenBucket(burst int, window time.Duration) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(burst)),
		burst:   burst,
		idle:    window,
		nowFunc: time.Now,
	}
}

func (r *TokenBucket) Allow(key string) (allowed bool, retryAfterSec int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowFunc()
	r.sweep(now)

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now

	res := b.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	retryAfterSec = int(math.Ceil(delay.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	return false, retryAfterSec
}

func (r *TokenBucket) sweep(now time.Time) {
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) > r.idle {
			delete(r.buckets, key)
		}
	}
}
