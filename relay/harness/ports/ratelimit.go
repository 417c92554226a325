package harnessports

import "context"

// RateLimiter throttles outbound work per key (pipeline entry, page host).
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
