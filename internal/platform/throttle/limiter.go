package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskhub:login_failures:"

// incrWithExpiry counts a failure and starts the window on the first one.
var incrWithExpiry = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter counts failed logins per identifier inside a fixed window.
type RedisLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	n, err := l.rdb.Get(ctx, Key(identifier)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("read login failures: %w", err)
	}
	return n < l.maxAttempts, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, identifier string) error {
	err := incrWithExpiry.Run(ctx, l.rdb, []string{Key(identifier)}, l.window.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.rdb.Del(ctx, Key(identifier)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

// Key hashes the normalized identifier so raw emails never sit in Redis.
func Key(identifier string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Noop never throttles. It is used when Redis is not configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
func (Noop) RecordFailure(context.Context, string) error { return nil }
func (Noop) Reset(context.Context, string) error { return nil }
