package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerAllowsBelowThreshold(t *testing.T) {
	_, rdb := testRedis(t)
	b := NewRefreshBreaker(rdb, 5, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		b.OnFailure(ctx, "198.51.100.9")
		require.NoError(t, b.Allow(ctx, "198.51.100.9"))
	}
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	_, rdb := testRedis(t)
	b := NewRefreshBreaker(rdb, 5, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.OnFailure(ctx, "198.51.100.9")
	}
	require.ErrorIs(t, b.Allow(ctx, "198.51.100.9"), ErrBreakerOpen)

	// other origins are unaffected
	require.NoError(t, b.Allow(ctx, "203.0.113.1"))
}

func TestBreakerClosesAfterCooldown(t *testing.T) {
	mr, rdb := testRedis(t)
	b := NewRefreshBreaker(rdb, 5, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.OnFailure(ctx, "198.51.100.9")
	}
	require.ErrorIs(t, b.Allow(ctx, "198.51.100.9"), ErrBreakerOpen)

	mr.FastForward(5*time.Minute + time.Second)
	require.NoError(t, b.Allow(ctx, "198.51.100.9"))
}

func TestBreakerReArmsWhileOpen(t *testing.T) {
	mr, rdb := testRedis(t)
	b := NewRefreshBreaker(rdb, 5, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.OnFailure(ctx, "198.51.100.9")
	}

	// probing an open breaker resets the cooldown clock
	mr.FastForward(4 * time.Minute)
	require.ErrorIs(t, b.Allow(ctx, "198.51.100.9"), ErrBreakerOpen)
	mr.FastForward(4 * time.Minute)
	require.ErrorIs(t, b.Allow(ctx, "198.51.100.9"), ErrBreakerOpen)
}

func TestBreakerSuccessClears(t *testing.T) {
	_, rdb := testRedis(t)
	b := NewRefreshBreaker(rdb, 5, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.OnFailure(ctx, "198.51.100.9")
	}
	b.OnSuccess(ctx, "198.51.100.9")
	require.NoError(t, b.Allow(ctx, "198.51.100.9"))
}
