package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter (INCR + EXPIRE) for deployments
// running more than one instance, where per-process buckets would
// multiply the effective limit. Slightly coarser than the in-memory
// token bucket but shared across instances.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) Admit(ctx context.Context, key string, class Class) (Decision, error) {
	preset := PresetFor(class)
	now := time.Now().UTC()
	windowStart := now.Truncate(preset.Window)
	redisKey := fmt.Sprintf("%s%s:%s:%d", l.prefix, class, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	hits := incr.Val()
	if hits == 1 {
		_ = l.client.Expire(ctx, redisKey, preset.Window).Err()
	}

	remaining := int(int64(preset.MaxRequests) - hits)
	if remaining < 0 {
		remaining = 0
	}

	if hits > int64(preset.MaxRequests) {
		until := windowStart.Add(preset.Window).Sub(now)
		retry := time.Duration(math.Ceil(until.Seconds())) * time.Second
		if retry <= 0 {
			retry = time.Second
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	return Decision{Allowed: true, Remaining: remaining}, nil
}
