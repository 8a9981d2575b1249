// Package idempotency remembers which order an Idempotency-Key produced.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jerseyprint:idem:"

// Guard claims keys in redis with SETNX. A nil Guard claims every key.
type Guard struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func New(rdb redis.Cmdable, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

// Claim binds key to orderID. When the key is already bound it returns the
// earlier order id and false.
func (g *Guard) Claim(ctx context.Context, key, orderID string) (string, bool, error) {
	if g == nil || g.rdb == nil || key == "" {
		return orderID, true, nil
	}
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, orderID, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return orderID, true, nil
	}
	existing, err := g.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return g.Claim(ctx, key, orderID)
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	return existing, false, nil
}

// Release frees a key whose submission failed so the client can retry.
func (g *Guard) Release(ctx context.Context, key string) error {
	if g == nil || g.rdb == nil || key == "" {
		return nil
	}
	return g.rdb.Del(ctx, keyPrefix+key).Err()
}
