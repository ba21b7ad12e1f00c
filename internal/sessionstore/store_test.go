package sessionstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestSessionRoundTrip verifies the round-trip law from the testable
// properties: encoding then decoding a Session yields an equal Session.
func TestSessionRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := Session{
		CreatedAt: now,
		Language:  "pl-PL",
		Messages: []Message{
			{Role: "user", Content: "Cześć", TS: now},
			{Role: "assistant", Content: "Witaj", TS: now},
		},
	}

	raw, err := json.Marshal(&want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Session
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt mismatch: got %v want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Language != want.Language {
		t.Fatalf("language mismatch: got %q want %q", got.Language, want.Language)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("messages length mismatch: got %d want %d", len(got.Messages), len(want.Messages))
	}
	for i := range want.Messages {
		if got.Messages[i] != want.Messages[i] {
			t.Fatalf("message %d mismatch: got %+v want %+v", i, got.Messages[i], want.Messages[i])
		}
	}
}

func TestKeyNamespacing(t *testing.T) {
	if got, want := key("S1"), "sessions:S1"; got != want {
		t.Fatalf("key(%q) = %q, want %q", "S1", got, want)
	}
}

// fakeRedis implements redisClient in-memory so Load/Save/Touch's fail-soft
// and TTL-refresh behaviour can be exercised without a live Redis connection.
type fakeRedis struct {
	values  map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	expires int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	raw, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(raw))
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = v
	case string:
		f.values[key] = []byte(v)
	}
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.expires++
	f.ttls[key] = expiration
	cmd.SetVal(true)
	return cmd
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// TestLoadAbsentKeyReturnsNilNil checks a never-saved session id is treated
// as absence rather than an error.
func TestLoadAbsentKeyReturnsNilNil(t *testing.T) {
	s := New(newFakeRedis(), time.Hour)
	got, err := s.Load(context.Background(), "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session for an absent key, got %+v", got)
	}
}

// TestLoadTransportErrorFailsSoft checks that a transport error from the
// store is treated as absence rather than surfaced as an error, so the turn
// proceeds without history rather than failing the request.
func TestLoadTransportErrorFailsSoft(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errBoom{}
	s := New(rdb, time.Hour)

	got, err := s.Load(context.Background(), "S1")
	if err != nil {
		t.Fatalf("expected fail-soft nil error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session on transport error, got %+v", got)
	}
}

// TestSaveThenLoadRoundTrips checks that a saved session can be loaded back
// with equal contents.
func TestSaveThenLoadRoundTrips(t *testing.T) {
	rdb := newFakeRedis()
	s := New(rdb, time.Hour)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := &Session{
		CreatedAt: now,
		Language:  "en-US",
		Messages:  []Message{{Role: "user", Content: "hi", TS: now}},
	}

	if err := s.Save(context.Background(), "S1", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(context.Background(), "S1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a session, got nil")
	}
	if got.Language != want.Language || len(got.Messages) != len(want.Messages) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

// TestSaveSetsConfiguredTTL checks that Save applies the sliding TTL the
// Store was constructed with.
func TestSaveSetsConfiguredTTL(t *testing.T) {
	rdb := newFakeRedis()
	ttl := 45 * time.Minute
	s := New(rdb, ttl)

	if err := s.Save(context.Background(), "S1", &Session{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := rdb.ttls["sessions:S1"]; got != ttl {
		t.Fatalf("ttl = %v, want %v", got, ttl)
	}
}

// TestLoadRefreshesTTL checks that a read also slides the session's expiry.
func TestLoadRefreshesTTL(t *testing.T) {
	rdb := newFakeRedis()
	ttl := 30 * time.Minute
	s := New(rdb, ttl)

	if err := s.Save(context.Background(), "S1", &Session{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	before := rdb.expires
	if _, err := s.Load(context.Background(), "S1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if rdb.expires <= before {
		t.Fatalf("expected Load to refresh the TTL via Expire")
	}
}

// TestTouchRefreshesTTLWithoutMutatingValue checks that Touch extends expiry
// without altering the stored document.
func TestTouchRefreshesTTLWithoutMutatingValue(t *testing.T) {
	rdb := newFakeRedis()
	s := New(rdb, time.Hour)

	want := &Session{Language: "fr-FR"}
	if err := s.Save(context.Background(), "S1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	before := rdb.values["sessions:S1"]

	s.Touch(context.Background(), "S1")

	if string(rdb.values["sessions:S1"]) != string(before) {
		t.Fatalf("touch must not mutate the stored document")
	}
	got, err := s.Load(context.Background(), "S1")
	if err != nil || got == nil || got.Language != "fr-FR" {
		t.Fatalf("touch must preserve the stored session, got %+v, err %v", got, err)
	}
}
