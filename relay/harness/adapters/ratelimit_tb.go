package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

// ErrRateLimitExceeded is matched by every *RateLimitError via errors.Is.
var ErrRateLimitExceeded = &RateLimitError{}

// RateLimitError reports which key ran out of tokens.
type RateLimitError struct {
	Key string
}

func (e *RateLimitError) Error() string {
	if e.Key == "" {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for %q", e.Key)
}

// Is makes every RateLimitError match ErrRateLimitExceeded.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// TokenBucket is a per-key token bucket. Acquire never blocks: an empty
// bucket fails fast with a *RateLimitError.
type TokenBucket struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int           // max tokens per bucket
	refillRate time.Duration // one token per interval
	now        func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket creates a limiter with capacity tokens per key, refilled one
// token per refillRate.
func NewTokenBucket(capacity int, refillRate time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = time.Second
	}
	return &TokenBucket{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
		now:        time.Now,
	}
}

// Acquire consumes one token for key. Tokens come back with time only, so
// release is a no-op kept for the port's shape.
func (tb *TokenBucket) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}

	if refill := int(now.Sub(b.lastRefill) / tb.refillRate); refill > 0 {
		b.tokens = min(b.tokens+refill, tb.capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(refill) * tb.refillRate)
	}

	if b.tokens <= 0 {
		return nil, &RateLimitError{Key: key}
	}
	b.tokens--

	return func() {}, nil
}

var _ ports.RateLimiter = (*TokenBucket)(nil)
