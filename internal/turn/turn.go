// Package turn implements the Turn Controller: the per-turn coordinator
// that composes the Session Store, Rate Limiter, Language Detector, FC
// Orchestrator, and optional TTS Renderer into one request lifecycle
// (auth -> rate limit -> load session -> detect language -> orchestrate
// -> persist -> render -> respond), and unifies every failure path into
// a single internal/turnerr error envelope.
package turn

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joestump/hotel-chat-gateway/internal/orchestrator"
	"github.com/joestump/hotel-chat-gateway/internal/ratelimit"
	"github.com/joestump/hotel-chat-gateway/internal/sessionstore"
	"github.com/joestump/hotel-chat-gateway/internal/turnerr"
)

const maxInlineBytes = 20 * 1024 * 1024 // max accepted size of an inline request body
const audioPlaceholder = "[voice message]"
const audioPlaceholderLanguage = "en-US"

// SessionStore is the subset of sessionstore.Store the controller needs.
type SessionStore interface {
	Load(ctx context.Context, id string) (*sessionstore.Session, error)
	Save(ctx context.Context, id string, s *sessionstore.Session) error
}

// RateLimiter is the subset of ratelimit.Limiter the controller needs.
type RateLimiter interface {
	Admit(ctx context.Context, id string) ratelimit.Decision
}

// LanguageDetector is the subset of langdetect.Detector the controller needs.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (tag string, warning string)
}

// Orchestrator is the subset of orchestrator.Orchestrator the controller needs.
type Orchestrator interface {
	Run(ctx context.Context, history []sessionstore.Message, userText, language, bearerCredential string) (orchestrator.Result, error)
}

// TTSRenderer is the subset of tts.Renderer the controller needs. A nil
// TTSRenderer disables voice mode entirely.
type TTSRenderer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, mime string, err error)
}

// AuditLog is the optional, write-only turn/tool-invocation ledger. A nil
// AuditLog disables auditing entirely; failures here are never fatal to
// an otherwise-successful turn.
type AuditLog interface {
	RecordTurn(ctx context.Context, rec TurnRecord)
}

// TurnRecord is what gets persisted to the audit ledger for one turn,
// including the per-tool trace entries so the ledger's tool_invocations
// table actually gets populated rather than only the turns row.
type TurnRecord struct {
	SessionID  string
	Language   string
	Rounds     int
	ToolTrace  []orchestrator.Trace
	DurationMs int64
	Outcome    string
}

// AudioInput carries an opaque audio hint: accepted, but never transcribed.
type AudioInput struct {
	MimeType string
	Data     []byte
}

// Input is one validated incoming turn request.
type Input struct {
	SessionID        string
	UserText         string
	Audio            *AudioInput
	VoiceMode        bool
	BearerCredential string
	TraceID          string
}

// AudioOutput is the TurnOutput's optional synthesized audio.
type AudioOutput struct {
	MimeType string
	Data     []byte
}

// Warning is one non-fatal degradation surfaced to the caller.
type Warning struct {
	Code    string
	Message string
}

// Output is the assembled result of handling one turn.
type Output struct {
	SessionID string
	Language  string
	Reply     string
	Audio     *AudioOutput
	ToolTrace []orchestrator.Trace
	Warnings  []Warning
}

// Controller is the per-turn coordinator.
type Controller struct {
	sessions    SessionStore
	limiter     RateLimiter
	detector    LanguageDetector
	orch        Orchestrator
	tts         TTSRenderer // optional
	audit       AuditLog    // optional
	maxMessages int
	deadline    time.Duration
}

// New constructs a Controller. tts and audit may be nil to disable voice
// mode and the audit ledger respectively.
func New(sessions SessionStore, limiter RateLimiter, detector LanguageDetector, orch Orchestrator, tts TTSRenderer, audit AuditLog, maxMessages int, deadline time.Duration) *Controller {
	return &Controller{
		sessions:    sessions,
		limiter:     limiter,
		detector:    detector,
		orch:        orch,
		tts:         tts,
		audit:       audit,
		maxMessages: maxMessages,
		deadline:    deadline,
	}
}

// Handle runs one full turn and returns its assembled Output, or a
// turnerr.Error for Turn-Controller-level failures (parsing the
// Authorization header is the HTTP layer's responsibility; a missing
// credential and size/rate/unrecoverable-orchestrator failures are this
// layer's).
func (c *Controller) Handle(ctx context.Context, in Input) (Output, *turnerr.Error) {
	if err := validate(in); err != nil {
		return Output{}, err
	}

	traceID := in.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	if d := c.limiter.Admit(ctx, in.SessionID); !d.Allowed {
		return Output{}, turnerr.RateLimitedError(d.RetryAfter).WithTraceID(traceID)
	}

	sess, _ := c.sessions.Load(ctx, in.SessionID)
	now := time.Now().UTC()
	if sess == nil {
		sess = &sessionstore.Session{CreatedAt: now}
	}

	utterance := in.UserText
	var warnings []Warning

	language := sess.Language
	if language == "" {
		if utterance == "" && in.Audio != nil {
			// No transcription provider is wired, so an audio-only turn
			// gets a fixed placeholder utterance and skips detection
			// outright.
			utterance = audioPlaceholder
			language = audioPlaceholderLanguage
		} else {
			tag, warn := c.detector.Detect(ctx, utterance)
			language = tag
			if warn != "" {
				warnings = append(warnings, Warning{Code: "LANGUAGE_DETECTION_DEGRADED", Message: warn})
			}
		}
	} else if utterance == "" && in.Audio != nil {
		utterance = audioPlaceholder
	}

	start := time.Now()
	result, err := c.orch.Run(ctx, sess.Messages, utterance, language, in.BearerCredential)
	if err != nil {
		return Output{}, turnerr.New(turnerr.InternalError, "orchestration failed").WithTraceID(traceID)
	}
	elapsed := time.Since(start).Milliseconds()

	sess.Language = language
	sess.Messages = append(sess.Messages,
		sessionstore.Message{Role: "user", Content: utterance, TS: now},
		sessionstore.Message{Role: "assistant", Content: result.Reply, TS: time.Now().UTC()},
	)
	sess.Messages = trim(sess.Messages, c.maxMessages)

	// Best-effort persistence: a failure here must not change the reply
	// visible to the user.
	_ = c.sessions.Save(ctx, in.SessionID, sess)

	out := Output{
		SessionID: in.SessionID,
		Language:  language,
		Reply:     result.Reply,
		ToolTrace: result.Trace,
		Warnings:  warnings,
	}

	if in.VoiceMode {
		if c.tts == nil {
			out.Warnings = append(out.Warnings, Warning{Code: "TTS_UNAVAILABLE", Message: "voice rendering is not configured"})
		} else {
			audio, mime, terr := c.tts.Synthesize(ctx, result.Reply)
			if terr != nil {
				out.Warnings = append(out.Warnings, Warning{Code: "TTS_UNAVAILABLE", Message: terr.Error()})
			} else {
				out.Audio = &AudioOutput{MimeType: mime, Data: audio}
			}
		}
	}

	if c.audit != nil {
		outcome := "OK"
		if result.Aborted {
			outcome = "ABORTED"
		}
		c.audit.RecordTurn(ctx, TurnRecord{
			SessionID:  in.SessionID,
			Language:   language,
			Rounds:     len(result.Trace),
			ToolTrace:  result.Trace,
			DurationMs: elapsed,
			Outcome:    outcome,
		})
	}

	return out, nil
}

func validate(in Input) *turnerr.Error {
	if in.UserText == "" && in.Audio == nil {
		return turnerr.New(turnerr.BadRequest, "at least one of message or audio must be present")
	}
	if in.SessionID == "" {
		return turnerr.New(turnerr.BadRequest, "sessionId is required")
	}
	if in.BearerCredential == "" {
		return turnerr.New(turnerr.Unauthorized, "missing bearer credential")
	}

	total := len(in.UserText)
	if in.Audio != nil {
		total += len(in.Audio.Data)
	}
	if total > maxInlineBytes {
		return turnerr.New(turnerr.PayloadTooLarge, "inline payload exceeds 20 MiB")
	}
	return nil
}

func trim(messages []sessionstore.Message, max int) []sessionstore.Message {
	if len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}
