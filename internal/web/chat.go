package web

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/joestump/hotel-chat-gateway/internal/turn"
	"github.com/joestump/hotel-chat-gateway/internal/turnerr"
)

const maxBodyBytes = 20*1024*1024 + 4096 // 20 MiB inline payload cap plus JSON envelope overhead

// handleChat serves POST /chat: the gateway's single external contract.
// It extracts the bearer credential, decodes the request body, runs one
// Turn Controller round-trip, and renders either the JSON envelope or,
// when Accept: audio/mpeg and voiceMode=true, raw audio bytes with the
// final text carried in X-Agent-Text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	bearer, ok := extractBearer(r)
	if !ok {
		writeErr(w, turnerr.New(turnerr.Unauthorized, "missing or malformed Authorization header"))
		return
	}
	if s.filter != nil {
		s.filter.AddCredential(bearer)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeErr(w, turnerr.New(turnerr.BadRequest, "failed to read request body"))
		return
	}
	if len(body) > maxBodyBytes {
		writeErr(w, turnerr.New(turnerr.PayloadTooLarge, "inline payload exceeds 20 MiB"))
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, turnerr.New(turnerr.BadRequest, "malformed JSON body"))
		return
	}

	wantsAudio := r.Header.Get("Accept") == "audio/mpeg"
	if wantsAudio && !req.VoiceMode {
		writeErr(w, turnerr.New(turnerr.BadRequest, "Accept: audio/mpeg requires voiceMode=true"))
		return
	}

	in := turn.Input{
		SessionID:        req.SessionID,
		UserText:         req.Message,
		VoiceMode:        req.VoiceMode,
		BearerCredential: bearer,
	}
	if req.Client != nil {
		in.TraceID = req.Client.TraceID
	}
	if req.Audio != nil {
		data, err := base64.StdEncoding.DecodeString(req.Audio.Data)
		if err != nil {
			writeErr(w, turnerr.New(turnerr.BadRequest, "audio.data is not valid base64"))
			return
		}
		in.Audio = &turn.AudioInput{MimeType: req.Audio.MimeType, Data: data}
	}

	out, terr := s.controller.Handle(r.Context(), in)
	if terr != nil {
		writeErr(w, terr)
		return
	}

	if wantsAudio {
		writeAudioResponse(w, out)
		return
	}

	writeJSON(w, http.StatusOK, toChatResponse(out))
}

// extractBearer reads the Authorization header and requires the
// "Bearer <credential>" form with a non-empty credential.
func extractBearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	cred := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if cred == "" {
		return "", false
	}
	return cred, true
}

func toChatResponse(out turn.Output) chatResponse {
	resp := chatResponse{
		SessionID: out.SessionID,
		Language:  out.Language,
		Reply:     out.Reply,
	}
	if out.Audio != nil {
		resp.Audio = &audioOutput{
			MimeType: out.Audio.MimeType,
			Data:     base64.StdEncoding.EncodeToString(out.Audio.Data),
		}
	}
	for _, t := range out.ToolTrace {
		resp.ToolTrace = append(resp.ToolTrace, toolTraceEntry{
			Name:       t.Name,
			Status:     string(t.Status),
			DurationMs: t.DurationMs,
		})
	}
	for _, warn := range out.Warnings {
		resp.Warnings = append(resp.Warnings, warningEntry{Code: warn.Code, Message: warn.Message})
	}
	return resp
}

// writeAudioResponse serves the Accept: audio/mpeg variant: raw audio bytes
// as the body, the final text URL-escaped into X-Agent-Text. If
// TTS degraded (no audio available), it falls back to the JSON envelope so
// the caller still gets a reply rather than an empty audio body.
func writeAudioResponse(w http.ResponseWriter, out turn.Output) {
	if out.Audio == nil {
		writeJSON(w, http.StatusOK, toChatResponse(out))
		return
	}
	w.Header().Set("Content-Type", out.Audio.MimeType)
	w.Header().Set("X-Agent-Text", url.QueryEscape(out.Reply))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Audio.Data)
}

func writeErr(w http.ResponseWriter, err *turnerr.Error) {
	writeJSON(w, err.Status, errorResponse{
		Code:       string(err.Code),
		Message:    err.Message,
		Status:     err.Status,
		TraceID:    err.TraceID,
		Details:    err.Details,
		RetryAfter: err.RetryAfter,
	})
}
