// Package tts implements the optional TTS Renderer: a synchronous
// synthesis call against an ElevenLabs-style REST endpoint, one
// non-streaming HTTP POST per reply.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
const mimeType = "audio/mpeg"

// Renderer synthesizes final reply text into audio. Callers construct one
// only when TTS_API_KEY is set; voice mode is disabled by passing a nil
// turn.TTSRenderer interface, since Synthesize on a nil *Renderer panics.
type Renderer struct {
	httpClient *http.Client
	apiKey     string
	voiceID    string
	baseURL    string
}

// New constructs a Renderer from TTS_API_KEY/TTS_VOICE_ID configuration.
func New(apiKey, voiceID string) *Renderer {
	return &Renderer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		voiceID:    voiceID,
		baseURL:    defaultBaseURL,
	}
}

type synthesizeRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings map[string]any `json:"voice_settings,omitempty"`
}

// Synthesize renders text to audio bytes. Failures are returned to the
// caller as an error; callers are expected to treat any error here as
// non-fatal and degrade to a text-only reply with a warning.
func (r *Renderer) Synthesize(ctx context.Context, text string) (audio []byte, mime string, err error) {
	reqBody := synthesizeRequest{Text: text, ModelID: "eleven_multilingual_v2"}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("tts: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", r.baseURL, r.voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("tts: create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", r.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", mimeType)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("tts: provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, mimeType, nil
}
