// Package sessionstore is the Redis-backed Session Store. It owns Session
// persistence (rate-limit counters live in internal/ratelimit): encoded JSON
// documents at namespaced keys with a sliding TTL refreshed on every read or
// write. Load and Touch fail soft — a transport error is logged and treated
// as absence, never a panic — so the turn proceeds without history rather
// than failing the request. Save logs a transport error and returns it; the
// Turn Controller discards that error.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sessions:"

// Message is one turn of conversation history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// Session is the durable per-client document.
type Session struct {
	CreatedAt time.Time `json:"createdAt"`
	Language  string    `json:"language"`
	Messages  []Message `json:"messages"`
}

// redisClient is the subset of *redis.Client's command surface Load/Save/
// Touch need. *redis.Client satisfies this interface structurally; tests
// substitute a small in-memory fake so the fail-soft/TTL-refresh paths are
// verified without a live Redis connection.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Store is the Redis-backed Session Store: a sliding-TTL document keyed
// by session id.
type Store struct {
	rdb redisClient
	ttl time.Duration
}

// New constructs a Store against the given Redis client. ttl is the sliding
// session TTL (SESSION_TTL_MIN from configuration, converted to a duration).
func New(rdb redisClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id string) string {
	return keyPrefix + id
}

// Load returns the stored session, or (nil, nil) if absent or unreachable.
// A transport error is logged as a warning and treated as absence, per the
// store's fail-soft contract.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		log.Printf("warning: sessionstore load %s: %v", id, err)
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Printf("warning: sessionstore decode %s: %v", id, err)
		return nil, nil
	}

	// Sliding TTL: a read refreshes expiry too.
	if err := s.rdb.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		log.Printf("warning: sessionstore touch-on-load %s: %v", id, err)
	}

	return &sess, nil
}

// Save upserts the session document and resets its TTL.
func (s *Store) Save(ctx context.Context, id string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sessionstore: marshal %s: %w", id, err)
	}
	if err := s.rdb.Set(ctx, key(id), raw, s.ttl).Err(); err != nil {
		log.Printf("warning: sessionstore save %s: %v", id, err)
		return err
	}
	return nil
}

// Touch refreshes the TTL without mutating the stored value; used when a
// session is referenced but not modified this turn.
func (s *Store) Touch(ctx context.Context, id string) {
	if err := s.rdb.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		log.Printf("warning: sessionstore touch %s: %v", id, err)
	}
}
