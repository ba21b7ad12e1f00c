package turn

import (
	"context"
	"testing"
	"time"

	"github.com/joestump/hotel-chat-gateway/internal/orchestrator"
	"github.com/joestump/hotel-chat-gateway/internal/ratelimit"
	"github.com/joestump/hotel-chat-gateway/internal/sessionstore"
)

type fakeStore struct {
	sessions map[string]*sessionstore.Session
}

func newFakeStore() *fakeStore { return &fakeStore{sessions: make(map[string]*sessionstore.Session)} }

func (f *fakeStore) Load(ctx context.Context, id string) (*sessionstore.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeStore) Save(ctx context.Context, id string, s *sessionstore.Session) error {
	f.sessions[id] = s
	return nil
}

type fakeLimiter struct{ decision ratelimit.Decision }

func (f *fakeLimiter) Admit(ctx context.Context, id string) ratelimit.Decision { return f.decision }

type fakeDetector struct {
	tag   string
	calls int
}

func (f *fakeDetector) Detect(ctx context.Context, text string) (string, string) {
	f.calls++
	return f.tag, ""
}

type fakeOrchestrator struct {
	reply string
}

func (f *fakeOrchestrator) Run(ctx context.Context, history []sessionstore.Message, userText, language, bearerCredential string) (orchestrator.Result, error) {
	return orchestrator.Result{Reply: f.reply}, nil
}

func newController(store SessionStore, limiter RateLimiter, detector LanguageDetector, orch Orchestrator, maxMessages int) *Controller {
	return New(store, limiter, detector, orch, nil, nil, maxMessages, time.Minute)
}

func TestColdSessionDetectsLanguage(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{tag: "pl-PL"}
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, detector, &fakeOrchestrator{reply: "Witaj"}, 20)

	out, err := c.Handle(context.Background(), Input{
		SessionID: "S1", UserText: "Cześć, szukam informacji o hotelu", BearerCredential: "tok",
	})
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if out.Language != "pl-PL" {
		t.Fatalf("language = %q, want pl-PL", out.Language)
	}
	if len(store.sessions["S1"].Messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(store.sessions["S1"].Messages))
	}
	if detector.calls != 1 {
		t.Fatalf("expected exactly one detection call, got %d", detector.calls)
	}
}

func TestWarmSessionReusesLanguage(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{tag: "pl-PL"}
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, detector, &fakeOrchestrator{reply: "odp"}, 20)

	ctx := context.Background()
	if _, err := c.Handle(ctx, Input{SessionID: "S1", UserText: "Cześć", BearerCredential: "tok"}); err != nil {
		t.Fatalf("first turn: %+v", err)
	}
	out, err := c.Handle(ctx, Input{SessionID: "S1", UserText: "a jakie macie pokoje?", BearerCredential: "tok"})
	if err != nil {
		t.Fatalf("second turn: %+v", err)
	}
	if out.Language != "pl-PL" {
		t.Fatalf("language = %q, want pl-PL", out.Language)
	}
	if detector.calls != 1 {
		t.Fatalf("expected language detector invoked exactly once across both turns, got %d", detector.calls)
	}
	if len(store.sessions["S1"].Messages) != 4 {
		t.Fatalf("expected 4 stored messages, got %d", len(store.sessions["S1"].Messages))
	}
}

func TestHistoryTrimsToMax(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{tag: "en-US"}
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, detector, &fakeOrchestrator{reply: "ok"}, 30)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := c.Handle(ctx, Input{SessionID: "S4", UserText: "hi", BearerCredential: "tok"}); err != nil {
			t.Fatalf("turn %d: %+v", i, err)
		}
		want := 2 * (i + 1)
		if want > 30 {
			want = 30
		}
		if got := len(store.sessions["S4"].Messages); got != want {
			t.Fatalf("after turn %d: messages = %d, want %d", i, got, want)
		}
	}
}

func TestRateLimitedRejectsTurn(t *testing.T) {
	store := newFakeStore()
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: false, RetryAfter: 12}}, &fakeDetector{tag: "en-US"}, &fakeOrchestrator{reply: "ok"}, 20)

	_, err := c.Handle(context.Background(), Input{SessionID: "S5", UserText: "hi", BearerCredential: "tok"})
	if err == nil {
		t.Fatalf("expected RATE_LIMITED error")
	}
	if err.Code != "RATE_LIMITED" || err.RetryAfter != 12 {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func TestPayloadTooLarge(t *testing.T) {
	store := newFakeStore()
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, &fakeDetector{tag: "en-US"}, &fakeOrchestrator{reply: "ok"}, 20)

	big := make([]byte, maxInlineBytes+1)
	_, err := c.Handle(context.Background(), Input{
		SessionID: "S6", BearerCredential: "tok",
		Audio: &AudioInput{MimeType: "audio/wav", Data: big},
	})
	if err == nil || err.Code != "PAYLOAD_TOO_LARGE" {
		t.Fatalf("expected PAYLOAD_TOO_LARGE, got %+v", err)
	}
}

func TestMissingBearerIsUnauthorized(t *testing.T) {
	store := newFakeStore()
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, &fakeDetector{tag: "en-US"}, &fakeOrchestrator{reply: "ok"}, 20)

	_, err := c.Handle(context.Background(), Input{SessionID: "S7", UserText: "hi"})
	if err == nil || err.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %+v", err)
	}
}

func TestVoiceModeWithoutTTSConfiguredWarns(t *testing.T) {
	store := newFakeStore()
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, &fakeDetector{tag: "en-US"}, &fakeOrchestrator{reply: "ok"}, 20)

	out, err := c.Handle(context.Background(), Input{SessionID: "S8", UserText: "hi", BearerCredential: "tok", VoiceMode: true})
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if out.Audio != nil {
		t.Fatalf("expected no audio when TTS is unconfigured")
	}
	found := false
	for _, w := range out.Warnings {
		if w.Code == "TTS_UNAVAILABLE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TTS_UNAVAILABLE warning, got %+v", out.Warnings)
	}
}

func TestAudioOnlyFirstTurnSkipsDetectionAndUsesPlaceholder(t *testing.T) {
	store := newFakeStore()
	detector := &fakeDetector{tag: "should-not-be-used"}
	c := newController(store, &fakeLimiter{decision: ratelimit.Decision{Allowed: true}}, detector, &fakeOrchestrator{reply: "ok"}, 20)

	out, err := c.Handle(context.Background(), Input{
		SessionID: "S9", BearerCredential: "tok",
		Audio: &AudioInput{MimeType: "audio/wav", Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if out.Language != audioPlaceholderLanguage {
		t.Fatalf("language = %q, want default placeholder language", out.Language)
	}
	if detector.calls != 0 {
		t.Fatalf("expected the language detector not to be invoked for audio-only input")
	}
}
