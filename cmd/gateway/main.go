// Command gateway runs the hotel chat gateway: the HTTP front door that
// mediates between a chat frontend and the hotel REST backend via an
// LLM function-calling loop. It wires together the Session Store, Rate
// Limiter, Language Detector, FC Orchestrator, optional TTS Renderer, and
// optional audit ledger behind the Turn Controller, then exposes them
// through its two HTTP routes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joestump/hotel-chat-gateway/internal/backend"
	"github.com/joestump/hotel-chat-gateway/internal/config"
	"github.com/joestump/hotel-chat-gateway/internal/db"
	"github.com/joestump/hotel-chat-gateway/internal/langdetect"
	"github.com/joestump/hotel-chat-gateway/internal/llm"
	"github.com/joestump/hotel-chat-gateway/internal/orchestrator"
	"github.com/joestump/hotel-chat-gateway/internal/ratelimit"
	"github.com/joestump/hotel-chat-gateway/internal/redaction"
	"github.com/joestump/hotel-chat-gateway/internal/sessionstore"
	"github.com/joestump/hotel-chat-gateway/internal/tts"
	"github.com/joestump/hotel-chat-gateway/internal/turn"
	"github.com/joestump/hotel-chat-gateway/internal/web"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Hotel chat gateway — LLM function-calling front door for the hotel REST backend",
		RunE:  run,
	}

	// Register flags with their default values.
	f := rootCmd.Flags()
	f.Int("session-ttl-min", 60, "sliding session TTL in minutes")
	f.Int("session-max-messages", 20, "max retained history messages per session")
	f.Int("rate-limit-per-min", 30, "per-session request limit per 60s window")
	f.Int("max-fc-rounds", 6, "max function-calling rounds per turn")
	f.Int("turn-deadline-sec", 60, "coarse per-turn deadline in seconds")
	f.String("backend-url", "", "hotel REST backend base URL")
	f.Int("backend-timeout-sec", 10, "per-call backend request timeout in seconds")
	f.String("llm-model-main", "claude-sonnet-4-5", "Claude model for the FC orchestrator")
	f.String("llm-model-detect", "claude-haiku-4-5", "Claude model for language detection")
	f.String("tts-api-key", "", "TTS provider API key (empty disables voice mode)")
	f.String("tts-voice-id", "", "TTS provider voice id")
	f.String("redis-addr", "localhost:6379", "Redis address for session store and rate limiter")
	f.Int("redis-db", 0, "Redis logical database index")
	f.String("listen-addr", ":8080", "HTTP listen address")
	f.String("state-dir", "/state", "directory for the local audit ledger database file")
	f.String("log-level", "info", "log verbosity (info or debug)")
	f.String("app-env", "development", "deployment environment (development or production)")

	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, f.Lookup(flagName))
	}
	bindFlag("session_ttl_min", "session-ttl-min")
	bindFlag("session_max_messages", "session-max-messages")
	bindFlag("rate_limit_per_min", "rate-limit-per-min")
	bindFlag("max_fc_rounds", "max-fc-rounds")
	bindFlag("turn_deadline_sec", "turn-deadline-sec")
	bindFlag("backend_url", "backend-url")
	bindFlag("backend_timeout_sec", "backend-timeout-sec")
	bindFlag("llm_model_main", "llm-model-main")
	bindFlag("llm_model_detect", "llm-model-detect")
	bindFlag("tts_api_key", "tts-api-key")
	bindFlag("tts_voice_id", "tts-voice-id")
	bindFlag("redis_addr", "redis-addr")
	bindFlag("redis_db", "redis-db")
	bindFlag("listen_addr", "listen-addr")
	bindFlag("state_dir", "state-dir")
	bindFlag("log_level", "log-level")
	bindFlag("app_env", "app-env")

	// No prefix: viper's AutomaticEnv upper-cases a key and applies the
	// replacer, so "session_ttl_min" resolves to the literal env var
	// SESSION_TTL_MIN with no gateway-specific prefix in the way.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	fmt.Printf("hotel-chat-gateway %s starting\n", config.Version)
	fmt.Printf("  listen:        %s\n", cfg.ListenAddr)
	fmt.Printf("  backend:       %s\n", cfg.BackendURL)
	fmt.Printf("  redis:         %s/%d\n", cfg.RedisAddr, cfg.RedisDB)
	fmt.Printf("  session ttl:   %dm\n", cfg.SessionTTLMin)
	fmt.Printf("  rate limit:    %d/min\n", cfg.RateLimitPerMin)
	fmt.Printf("  max fc rounds: %d\n", cfg.MaxFCRounds)
	fmt.Printf("  voice mode:    %t\n", cfg.TTSAPIKey != "")
	fmt.Println()

	filter := redaction.New()
	log.SetOutput(&redactingWriter{filter: filter})

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	store := sessionstore.New(rdb, time.Duration(cfg.SessionTTLMin)*time.Minute)
	limiter := ratelimit.New(rdb, cfg.RateLimitPerMin)

	anthropicClient := llm.NewSDKClient()
	detector := langdetect.New(anthropicClient, cfg.LLMModelDetect)

	beTimeout := time.Duration(cfg.BackendTimeoutSec) * time.Second
	be := backend.New(cfg.BackendURL, beTimeout)

	orch := orchestrator.New(anthropicClient, be, cfg.LLMModelMain, cfg.MaxFCRounds)

	var renderer *tts.Renderer
	if cfg.TTSAPIKey != "" {
		renderer = tts.New(cfg.TTSAPIKey, cfg.TTSVoiceID)
	}

	var auditLog turn.AuditLog
	database, err := db.Open(cfg.StateDir + "/gateway.db")
	if err != nil {
		log.Printf("warning: audit ledger unavailable, continuing without it: %v", err)
	} else {
		defer database.Close() //nolint:errcheck
		auditLog = &auditAdapter{db: database}
	}

	controller := turn.New(store, limiter, detector, orch, rendererOrNil(renderer), auditLog, cfg.SessionMaxMessages, time.Duration(cfg.TurnDeadlineSec)*time.Second)

	webServer := web.New(&cfg, controller, be, filter)

	go func() {
		if err := webServer.Start(); err != nil {
			log.Printf("web server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("received %s, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("web server shutdown: %v", err)
	}

	return nil
}

// rendererOrNil returns a nil turn.TTSRenderer interface value (not merely
// a nil *tts.Renderer wrapped in a non-nil interface) when renderer is nil,
// so turn.Controller's "tts == nil disables voice mode" check works.
func rendererOrNil(renderer *tts.Renderer) turn.TTSRenderer {
	if renderer == nil {
		return nil
	}
	return renderer
}

// auditAdapter satisfies turn.AuditLog by translating a completed turn
// into the audit ledger's row shape. It never returns an error to the Turn
// Controller; failures here are logged and discarded rather than failing
// an otherwise-successful turn.
type auditAdapter struct {
	db *db.DB
}

func (a *auditAdapter) RecordTurn(ctx context.Context, rec turn.TurnRecord) {
	createdAt := db.NowString(time.Now())

	names := make([]string, 0, len(rec.ToolTrace))
	invocations := make([]db.ToolInvocation, 0, len(rec.ToolTrace))
	for _, t := range rec.ToolTrace {
		names = append(names, t.Name)
		invocations = append(invocations, db.ToolInvocation{
			Name:       t.Name,
			Status:     string(t.Status),
			DurationMs: t.DurationMs,
			CreatedAt:  createdAt,
		})
	}

	_, err := a.db.InsertTurn(db.TurnRecord{
		SessionID:  rec.SessionID,
		Language:   rec.Language,
		Rounds:     rec.Rounds,
		ToolNames:  db.JoinNames(names),
		DurationMs: rec.DurationMs,
		Outcome:    rec.Outcome,
		CreatedAt:  createdAt,
	}, invocations)
	if err != nil {
		log.Printf("warning: audit ledger insert failed: %v", err)
	}
}

// redactingWriter wraps stderr (the standard log package's default output)
// and scrubs registered secrets out of every line before it is written.
type redactingWriter struct {
	filter *redaction.Filter
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	redacted := w.filter.Redact(string(p))
	if _, err := os.Stderr.WriteString(redacted); err != nil {
		return 0, err
	}
	return len(p), nil
}
