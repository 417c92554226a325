package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_BasicRateLimiting(t *testing.T) {
	limiter := NewTokenBucket(2, time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	release1, err := limiter.Acquire(ctx, "test")
	require.NoError(t, err)
	require.NotNil(t, release1)
	release1()

	_, err = limiter.Acquire(ctx, "test")
	require.NoError(t, err)

	// Bucket empty; releasing does not refund
	_, err = limiter.Acquire(ctx, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Contains(t, err.Error(), `"test"`)

	var rlErr *RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "test", rlErr.Key)

	// Other keys have their own bucket
	_, err = limiter.Acquire(ctx, "other")
	assert.NoError(t, err)

	// One refill interval returns one token
	now = now.Add(time.Second)
	_, err = limiter.Acquire(ctx, "test")
	assert.NoError(t, err)
	_, err = limiter.Acquire(ctx, "test")
	assert.Error(t, err)
}

func TestTokenBucket_RefillCapsAtCapacity(t *testing.T) {
	limiter := NewTokenBucket(2, time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := limiter.Acquire(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	for range 2 {
		_, err = limiter.Acquire(ctx, "k")
		require.NoError(t, err)
	}
	_, err = limiter.Acquire(ctx, "k")
	assert.Error(t, err)
}

func TestTokenBucket_CanceledContext(t *testing.T) {
	limiter := NewTokenBucket(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limiter.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
