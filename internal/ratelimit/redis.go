package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fraghub:ratelimit:"

// RedisLimiter shares fixed windows between replicas. A counter without
// expiry gets the window as its TTL, which starts the window.
type RedisLimiter struct {
	rdb redis.Cmdable
}

func NewRedisLimiter(rdb redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	k := redisKeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd

	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	// -1 means the key has no expiry yet
	if ttl.Val() < 0 {
		if err := l.rdb.PExpire(ctx, k, rule.Window).Err(); err != nil {
			return Decision{}, err
		}
		ttl.SetVal(rule.Window)
	}

	if incr.Val() <= int64(rule.Max) {
		return Decision{Allowed: true}, nil
	}

	return Decision{Allowed: false, RetryAfter: ttl.Val()}, nil
}
