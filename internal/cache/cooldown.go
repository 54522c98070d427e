// Package cache holds the redis-backed alert cooldown.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cooldown struct {
	rdb *redis.Client
}

func NewCooldown(addr, password string) *Cooldown {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Cooldown{rdb: rdb}
}

// Allow reports whether key is outside its cooldown window and, when it is,
// starts a new window of the given length.
func (c *Cooldown) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, "cooldown:"+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}

func (c *Cooldown) Close() error {
	return c.rdb.Close()
}
