// Package ratelimit implements fixed-window request limits backed by Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "edita:rl"

// incrWindow bumps the counter and arms its expiry in one step. Keys found
// without a TTL get one too, so a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter counts requests per resource and caller in fixed windows.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window}
}

// NewFromURL parses a redis:// URL and returns a limiter plus the client so
// the caller can close it on shutdown.
func NewFromURL(url string, limit int, window time.Duration) (*Limiter, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return New(rdb, limit, window), rdb, nil
}

// Allow reports whether the caller id may make another request against
// resource. A non-positive limit disables limiting.
func (l *Limiter) Allow(ctx context.Context, resource, id string) (bool, error) {
	if l == nil || l.limit <= 0 {
		return true, nil
	}
	if l.rdb == nil {
		return false, errors.New("redis client is nil")
	}

	key := fmt.Sprintf("%s:%s:%s", keyPrefix, resource, id)
	count, err := incrWindow.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(l.limit), nil
}

// Window is the length of a counting window, used for Retry-After.
func (l *Limiter) Window() time.Duration {
	return l.window
}
