package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBreakerOpen is returned while an IP's refresh traffic is blocked.
var ErrBreakerOpen = errors.New("refresh circuit breaker open")

// RefreshBreaker is a per-client-IP failure counter with a time-boxed open
// state, guarding the refresh endpoint against credential stuffing. It is
// keyed by network origin, not identity: a breaker trip does not lock any
// account, and an account lock does not trip the breaker.
//
// State lives in Redis under a TTL so it survives process restarts and is
// shared across server instances. Expiry is the store's job; the breaker
// itself never sweeps.
type RefreshBreaker struct {
	rdb       *redis.Client
	threshold int
	cooldown  time.Duration
}

func NewRefreshBreaker(rdb *redis.Client, threshold int, cooldown time.Duration) *RefreshBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &RefreshBreaker{rdb: rdb, threshold: threshold, cooldown: cooldown}
}

func breakerKey(ip string) string { return "rcb:" + ip }

// Allow reports whether refresh traffic from ip may proceed. While open it
// returns ErrBreakerOpen and re-arms the cooldown, so sustained attack
// traffic keeps the breaker open without any token parsing.
func (b *RefreshBreaker) Allow(ctx context.Context, ip string) error {
	count, err := b.rdb.Get(ctx, breakerKey(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("breaker lookup: %w", err)
	}
	if count >= int64(b.threshold) {
		_ = b.rdb.Expire(ctx, breakerKey(ip), b.cooldown).Err()
		return ErrBreakerOpen
	}
	return nil
}

// OnFailure bumps the failure counter and resets its TTL.
func (b *RefreshBreaker) OnFailure(ctx context.Context, ip string) {
	key := breakerKey(ip)
	if err := b.rdb.Incr(ctx, key).Err(); err != nil {
		return
	}
	_ = b.rdb.Expire(ctx, key, b.cooldown).Err()
}

// OnSuccess deletes the counter outright; a single good refresh closes the
// breaker completely rather than decrementing.
func (b *RefreshBreaker) OnSuccess(ctx context.Context, ip string) {
	_ = b.rdb.Del(ctx, breakerKey(ip)).Err()
}
