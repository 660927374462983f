package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisLimiter implements a fixed-window counter shared across instances.
// Each key gets one counter per window bucket; the first hit arms the
// expiry.
type redisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) Limiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &redisLimiter{client: client, prefix: prefix}
}

func (rl *redisLimiter) Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	if rl.client == nil {
		return Decision{}, fmt.Errorf("redis limiter: no client")
	}
	now := time.Now()
	bucket := now.UnixNano() / int64(policy.SustainedWindow)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, policy.SustainedWindow+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis limiter: %w", err)
	}

	count := incr.Val()
	resetAt := time.Unix(0, (bucket+1)*int64(policy.SustainedWindow))
	remaining := policy.SustainedLimit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if count > int64(policy.SustainedLimit) {
		return Decision{
			Allowed:    false,
			RetryAfter: time.Until(resetAt),
			Remaining:  0,
			ResetAt:    resetAt,
		}, nil
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}
