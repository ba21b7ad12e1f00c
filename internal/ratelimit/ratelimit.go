// Package ratelimit implements a per-session fixed 60-second window
// counter: the window starts at a session's first request and resets when
// its key expires. It fails open on store outage: if Redis is unreachable the
// limiter admits the request and logs a warning, since for this class of
// system availability outranks strict enforcement.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"
const window = 60 * time.Second

// Decision is the result of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter int // seconds, only meaningful when !Allowed
}

// redisClient is the subset of *redis.Client's command surface Admit needs.
// *redis.Client satisfies this interface structurally; tests substitute a
// small in-memory fake so the counting/fail-open logic is verified without a
// live Redis connection.
type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// Limiter is the Redis-backed Rate Limiter.
type Limiter struct {
	rdb   redisClient
	limit int
}

// New constructs a Limiter with the given per-window request limit
// (RATE_LIMIT_PER_MIN from configuration).
func New(rdb redisClient, limit int) *Limiter {
	return &Limiter{rdb: rdb, limit: limit}
}

func key(id string) string {
	return keyPrefix + id
}

// Admit increments the session's counter and reports whether the request is
// allowed within the current 60s window. On the first increment of a window
// the key's expiry is set to the window length, so the next window begins
// automatically once the key lapses.
func (l *Limiter) Admit(ctx context.Context, id string) Decision {
	count, err := l.rdb.Incr(ctx, key(id)).Result()
	if err != nil {
		log.Printf("warning: ratelimit store unavailable for %s, failing open: %v", id, err)
		return Decision{Allowed: true}
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key(id), window).Err(); err != nil {
			log.Printf("warning: ratelimit set expiry for %s: %v", id, err)
		}
	}

	if int(count) > l.limit {
		ttl, err := l.rdb.TTL(ctx, key(id)).Result()
		retryAfter := 60
		if err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			if retryAfter > 60 {
				retryAfter = 60
			}
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	return Decision{Allowed: true}
}
